package delegate

import (
	"fmt"

	"github.com/danmuck/penne/internal/protocol"
)

// Factory builds an empty delegate of one kind.
type Factory func() Delegate

// DefaultFactories returns the built-in delegate for every kind.
func DefaultFactories() map[protocol.Kind]Factory {
	return map[protocol.Kind]Factory{
		protocol.KindMethod: func() Delegate { return &Method{} },
		protocol.KindSignal: func() Delegate { return &Signal{} },
		protocol.KindEntity: func() Delegate { return &Entity{} },
		protocol.KindPlot:   func() Delegate { return &Plot{} },
		protocol.KindBuffer: func() Delegate { return &Buffer{} },
		protocol.KindBufferView: func() Delegate {
			return &BufferView{BufferView: protocol.BufferView{Type: protocol.ViewUnknown}}
		},
		protocol.KindMaterial: func() Delegate { return &Material{Material: protocol.NewMaterial()} },
		protocol.KindImage:    func() Delegate { return &Image{} },
		protocol.KindTexture:  func() Delegate { return &Texture{} },
		protocol.KindSampler:  func() Delegate { return &Sampler{Sampler: protocol.NewSampler()} },
		protocol.KindLight:    func() Delegate { return &Light{Light: protocol.NewLight()} },
		protocol.KindGeometry: func() Delegate { return &Geometry{} },
		protocol.KindTable:    func() Delegate { return NewTable() },
		protocol.KindDocument: func() Delegate { return &Document{} },
	}
}

// Registry maps each kind to the factory used for new delegates.
type Registry struct {
	factories map[protocol.Kind]Factory
}

// NewRegistry starts from the defaults and applies overrides per kind.
func NewRegistry(overrides map[protocol.Kind]Factory) *Registry {
	r := &Registry{factories: DefaultFactories()}
	for kind, f := range overrides {
		if f != nil {
			r.factories[kind] = f
		}
	}
	return r
}

// Set replaces the factory for kind.
func (r *Registry) Set(kind protocol.Kind, f Factory) {
	if f == nil {
		return
	}
	r.factories[kind] = f
}

func (r *Registry) Len() int { return len(r.factories) }

// New builds a delegate of kind attached to host.
func (r *Registry) New(kind protocol.Kind, host Host) (Delegate, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	d := f()
	if d == nil {
		return nil, fmt.Errorf("%w: %s factory returned nil", ErrUnknownKind, kind)
	}
	Attach(d, host)
	return d, nil
}
