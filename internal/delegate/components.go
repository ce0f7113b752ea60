package delegate

import (
	"fmt"
	"strings"

	"github.com/danmuck/penne/internal/protocol"
)

// Method mirrors a server method.
type Method struct {
	Base
	protocol.Method
}

func (m *Method) method() *Method  { return m }
func (m *Method) Key() protocol.ID { return m.ID.Key() }
func (m *Method) Name() string     { return m.Method.Name }
func (m *Method) Validate() error  { return m.Method.Validate() }

func (m *Method) Apply(body []byte) error {
	return update(&m.Base, &m.Method, protocol.Method{}, body, protocol.Method.Validate)
}

// Invoke calls the method on the server with on as the invoke context. on must be an
// entity, table or plot.
func (m *Method) Invoke(on Delegate, args []any, done protocol.ReplyFunc) error {
	ictx := ContextOf(on)
	if ictx == nil {
		return fmt.Errorf("%w: %v", ErrInvalidContext, on)
	}
	if m.host == nil {
		return ErrNoHost
	}
	return m.host.Invoke(m.ID, args, ictx, done)
}

func (m *Method) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n\t%s\n\tReturns: %s\n\tArgs:", m.Method.Name, m.Doc, m.ReturnDoc)
	for _, arg := range m.ArgDoc {
		fmt.Fprintf(&sb, "\n\t\t%s: %s", arg.Name, arg.Doc)
	}
	return sb.String()
}

// Signal mirrors a server signal.
type Signal struct {
	Base
	protocol.Signal
}

func (s *Signal) signal() *Signal  { return s }
func (s *Signal) Key() protocol.ID { return s.ID.Key() }
func (s *Signal) Name() string     { return s.Signal.Name }
func (s *Signal) Validate() error  { return s.Signal.Validate() }
func (s *Signal) String() string   { return describe(s.Signal.Name, "Signal", s.Key()) }

func (s *Signal) Apply(body []byte) error {
	return update(&s.Base, &s.Signal, protocol.Signal{}, body, protocol.Signal.Validate)
}

// Entity mirrors a scene entity. Methods and signals listed on the entity are injected
// on create and re-injected on update.
type Entity struct {
	Base
	protocol.Entity
}

func (e *Entity) Key() protocol.ID { return e.ID.Key() }
func (e *Entity) Name() string     { return e.Entity.Name }
func (e *Entity) Validate() error  { return nil }
func (e *Entity) String() string   { return describe(e.Entity.Name, "Entity", e.Key()) }

func (e *Entity) Apply(body []byte) error {
	fresh := protocol.Entity{
		TextRep: protocol.NewTextRepresentation(),
		WebRep:  protocol.NewWebRepresentation(),
	}
	return update(&e.Base, &e.Entity, fresh, body, nil)
}

func (e *Entity) OnNew(body []byte) {
	InjectMethods(e.target(e), e.MethodsList)
	InjectSignals(e.target(e), e.SignalsList)
}

func (e *Entity) OnUpdate(body []byte) {
	if hasField(body, "methods_list") {
		InjectMethods(e.target(e), e.MethodsList)
	}
	if hasField(body, "signals_list") {
		InjectSignals(e.target(e), e.SignalsList)
	}
}

func (e *Entity) ShowMethods() string {
	return showMethods(e.host, e.Entity.Name, e.MethodsList)
}

// Plot mirrors a server plot.
type Plot struct {
	Base
	protocol.Plot
}

func (p *Plot) Key() protocol.ID { return p.ID.Key() }
func (p *Plot) Name() string     { return p.Plot.Name }
func (p *Plot) Validate() error  { return p.Plot.Validate() }
func (p *Plot) String() string   { return describe(p.Plot.Name, "Plot", p.Key()) }

func (p *Plot) Apply(body []byte) error {
	return update(&p.Base, &p.Plot, protocol.Plot{}, body, protocol.Plot.Validate)
}

func (p *Plot) OnNew(body []byte) {
	InjectMethods(p.target(p), p.MethodsList)
	InjectSignals(p.target(p), p.SignalsList)
}

func (p *Plot) OnUpdate(body []byte) {
	if hasField(body, "methods_list") {
		InjectMethods(p.target(p), p.MethodsList)
	}
	if hasField(body, "signals_list") {
		InjectSignals(p.target(p), p.SignalsList)
	}
}

func (p *Plot) ShowMethods() string {
	return showMethods(p.host, p.Plot.Name, p.MethodsList)
}

type Buffer struct {
	Base
	protocol.Buffer
}

func (b *Buffer) Key() protocol.ID { return b.ID.Key() }
func (b *Buffer) Name() string     { return b.Buffer.Name }
func (b *Buffer) Validate() error  { return b.Buffer.Validate() }
func (b *Buffer) String() string   { return describe(b.Buffer.Name, "Buffer", b.Key()) }

func (b *Buffer) Apply(body []byte) error {
	return update(&b.Base, &b.Buffer, protocol.Buffer{}, body, protocol.Buffer.Validate)
}

type BufferView struct {
	Base
	protocol.BufferView
}

func (v *BufferView) Key() protocol.ID { return v.ID.Key() }
func (v *BufferView) Name() string     { return v.BufferView.Name }
func (v *BufferView) Validate() error  { return nil }
func (v *BufferView) String() string   { return describe(v.BufferView.Name, "BufferView", v.Key()) }

// Apply merges body and coerces a non-conforming view type.
func (v *BufferView) Apply(body []byte) error {
	if err := update(&v.Base, &v.BufferView, protocol.BufferView{Type: protocol.ViewUnknown}, body, nil); err != nil {
		return err
	}
	v.Type = protocol.CoerceViewType(v.Type)
	return nil
}

type Material struct {
	Base
	protocol.Material
}

func (m *Material) Key() protocol.ID { return m.ID.Key() }
func (m *Material) Name() string     { return m.Material.Name }
func (m *Material) Validate() error  { return m.Material.Validate() }
func (m *Material) String() string   { return describe(m.Material.Name, "Material", m.Key()) }

func (m *Material) Apply(body []byte) error {
	return update(&m.Base, &m.Material, protocol.NewMaterial(), body, protocol.Material.Validate)
}

type Image struct {
	Base
	protocol.Image
}

func (i *Image) Key() protocol.ID { return i.ID.Key() }
func (i *Image) Name() string     { return i.Image.Name }
func (i *Image) Validate() error  { return i.Image.Validate() }
func (i *Image) String() string   { return describe(i.Image.Name, "Image", i.Key()) }

func (i *Image) Apply(body []byte) error {
	return update(&i.Base, &i.Image, protocol.Image{}, body, protocol.Image.Validate)
}

type Texture struct {
	Base
	protocol.Texture
}

func (t *Texture) Key() protocol.ID { return t.ID.Key() }
func (t *Texture) Name() string     { return t.Texture.Name }
func (t *Texture) Validate() error  { return nil }
func (t *Texture) String() string   { return describe(t.Texture.Name, "Texture", t.Key()) }

func (t *Texture) Apply(body []byte) error {
	return update(&t.Base, &t.Texture, protocol.Texture{}, body, nil)
}

type Sampler struct {
	Base
	protocol.Sampler
}

func (s *Sampler) Key() protocol.ID { return s.ID.Key() }
func (s *Sampler) Name() string     { return s.Sampler.Name }
func (s *Sampler) Validate() error  { return nil }
func (s *Sampler) String() string   { return describe(s.Sampler.Name, "Sampler", s.Key()) }

func (s *Sampler) Apply(body []byte) error {
	return update(&s.Base, &s.Sampler, protocol.NewSampler(), body, nil)
}

type Light struct {
	Base
	protocol.Light
}

func (l *Light) Key() protocol.ID { return l.ID.Key() }
func (l *Light) Name() string     { return l.Light.Name }
func (l *Light) Validate() error  { return l.Light.Validate() }
func (l *Light) String() string   { return describe(l.Light.Name, "Light", l.Key()) }

func (l *Light) Apply(body []byte) error {
	fresh := protocol.NewLight()
	fresh.Point = &protocol.PointLight{Range: -1}
	fresh.Spot = protocol.NewSpotLight()
	fresh.Directional = &protocol.DirectionalLight{Range: -1}
	return update(&l.Base, &l.Light, fresh, body, protocol.Light.Validate)
}

type Geometry struct {
	Base
	protocol.Geometry
}

func (g *Geometry) Key() protocol.ID { return g.ID.Key() }
func (g *Geometry) Name() string     { return g.Geometry.Name }
func (g *Geometry) Validate() error  { return g.Geometry.Validate() }
func (g *Geometry) String() string   { return describe(g.Geometry.Name, "Geometry", g.Key()) }

func (g *Geometry) Apply(body []byte) error {
	return update(&g.Base, &g.Geometry, protocol.Geometry{}, body, protocol.Geometry.Validate)
}
