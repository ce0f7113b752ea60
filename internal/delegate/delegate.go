package delegate

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/danmuck/penne/internal/protocol"
	"github.com/fxamacker/cbor/v2"
)

// SignalFunc handles one server signal invocation. args is the raw signal_data list.
type SignalFunc func(args []cbor.RawMessage) error

// Host is the client side a delegate talks back to.
type Host interface {
	// Lookup returns the delegate stored under id.
	Lookup(id protocol.ID) (Delegate, bool)
	// Invoke sends a method invocation. done runs when the reply arrives.
	Invoke(method protocol.MethodID, args []any, ictx *protocol.InvokeContext, done protocol.ReplyFunc) error
	// InvokeApply is Invoke with an apply hook that runs while the reply itself is
	// dispatched, before any message that follows it. done runs later, like Invoke.
	InvokeApply(method protocol.MethodID, args []any, ictx *protocol.InvokeContext, apply, done protocol.ReplyFunc) error
	// ResetState drops every delegate except the document.
	ResetState()
}

// Delegate is the client-side object for one server component.
type Delegate interface {
	Key() protocol.ID
	Name() string
	// Apply merges a create or update body. Absent fields keep their value and
	// present ones are replaced whole. A failed Apply leaves the delegate unchanged.
	Apply(body []byte) error
	Validate() error
	OnNew(body []byte)
	OnUpdate(body []byte)
	OnRemove(body []byte)
	Signals() map[string]SignalFunc
	Attr(key string, out any) (bool, error)
	String() string
	base() *Base
}

// Base carries what every delegate shares. Embed it (usually through a default
// delegate) to build custom delegates.
type Base struct {
	host    Host
	self    Delegate
	attrs   map[string]cbor.RawMessage
	signals map[string]SignalFunc
	methods map[string]*InjectedMethod
}

func (b *Base) base() *Base { return b }

func (b *Base) attach(host Host, self Delegate) {
	b.host = host
	b.self = self
	if b.attrs == nil {
		b.attrs = make(map[string]cbor.RawMessage)
	}
	if b.signals == nil {
		b.signals = make(map[string]SignalFunc)
	}
	if b.methods == nil {
		b.methods = make(map[string]*InjectedMethod)
	}
}

// target returns the outermost delegate wrapping b, so hooks on an embedded default
// delegate still inject onto the custom type.
func (b *Base) target(fallback Delegate) Delegate {
	if b.self != nil {
		return b.self
	}
	return fallback
}

// Host returns the client this delegate belongs to.
func (b *Base) Host() Host { return b.host }

func (b *Base) OnNew(body []byte)    {}
func (b *Base) OnUpdate(body []byte) {}
func (b *Base) OnRemove(body []byte) {}

// Signals returns the handlers registered on this delegate by signal name.
func (b *Base) Signals() map[string]SignalFunc {
	out := make(map[string]SignalFunc, len(b.signals))
	for name, fn := range b.signals {
		out[name] = fn
	}
	return out
}

// LinkSignal registers fn under name, replacing any earlier handler.
func (b *Base) LinkSignal(name string, fn SignalFunc) {
	if b.signals == nil {
		b.signals = make(map[string]SignalFunc)
	}
	b.signals[name] = fn
}

// Attr decodes any field the server sent for this delegate, including fields the
// typed body does not model.
func (b *Base) Attr(key string, out any) (bool, error) {
	raw, ok := b.attrs[key]
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	return true, protocol.Unmarshal(raw, out)
}

// AttrNames lists received field names, sorted.
func (b *Base) AttrNames() []string {
	out := make([]string, 0, len(b.attrs))
	for k := range b.attrs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// update decodes body into a copy of *cur and commits the copy only when decoding
// and check succeed. Each top-level field present in body starts over from its value
// in fresh, so a nested body such as text_rep is replaced rather than merged.
func update[T any](b *Base, cur *T, fresh T, body []byte, check func(T) error) error {
	fields, err := protocol.RawFields(body)
	if err != nil {
		return err
	}
	next := *cur
	resetPresent(reflect.ValueOf(&next).Elem(), reflect.ValueOf(fresh), fields)
	if err := protocol.Unmarshal(body, &next); err != nil {
		return err
	}
	if check != nil {
		if err := check(next); err != nil {
			return err
		}
	}
	*cur = next
	if b.attrs == nil {
		b.attrs = make(map[string]cbor.RawMessage, len(fields))
	}
	for k, v := range fields {
		b.attrs[k] = v
	}
	return nil
}

func resetPresent(dst, fresh reflect.Value, present map[string]cbor.RawMessage) {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("cbor"), ",")
		if name == "" {
			name = f.Name
		}
		if _, ok := present[name]; ok {
			dst.Field(i).Set(fresh.Field(i))
		}
	}
}

func hasField(body []byte, key string) bool {
	fields, err := protocol.RawFields(body)
	if err != nil {
		return false
	}
	_, ok := fields[key]
	return ok
}

func describe(name, typeName string, key protocol.ID) string {
	if name == "" {
		name = "No-Name"
	}
	return fmt.Sprintf("%s - %s - %s", name, typeName, key.Compact())
}

// Attach binds a delegate built outside a Registry to host.
func Attach(d Delegate, host Host) {
	d.base().attach(host, d)
}
