package delegate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/penne/internal/protocol"
	"github.com/rs/zerolog/log"
)

// NamespacePrefix marks protocol-defined methods and signals.
const NamespacePrefix = "noo::"

// InjectedMethod is a server method bound to a target delegate, so calling it sets the
// invoke context automatically.
type InjectedMethod struct {
	Name   string
	Method protocol.MethodID
	target Delegate
}

// Call invokes the bound method with the target as context.
func (m *InjectedMethod) Call(args []any, done protocol.ReplyFunc) error {
	host := m.target.base().host
	if host == nil {
		return ErrNoHost
	}
	return host.Invoke(m.Method, args, ContextOf(m.target), done)
}

func (m *InjectedMethod) callApply(args []any, apply, done protocol.ReplyFunc) error {
	host := m.target.base().host
	if host == nil {
		return ErrNoHost
	}
	return host.InvokeApply(m.Method, args, ContextOf(m.target), apply, done)
}

// InjectedMethods lists the names of methods injected on this delegate, sorted.
func (b *Base) InjectedMethods() []string {
	out := make([]string, 0, len(b.methods))
	for name := range b.methods {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// InjectedMethod returns the method injected under name ("tbl_subscribe", not
// "noo::tbl_subscribe").
func (b *Base) InjectedMethod(name string) (*InjectedMethod, bool) {
	m, ok := b.methods[name]
	return m, ok
}

// CallMethod invokes the injected method name with this delegate as context.
func (b *Base) CallMethod(name string, args []any, done protocol.ReplyFunc) error {
	m, ok := b.methods[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMethodNotInjected, name)
	}
	return m.Call(args, done)
}

// InjectMethods replaces the injected methods of d with ids. Methods the host does not
// know are skipped with a warning.
func InjectMethods(d Delegate, ids []protocol.MethodID) {
	b := d.base()
	b.methods = make(map[string]*InjectedMethod, len(ids))
	if b.host == nil {
		return
	}
	for _, id := range ids {
		found, ok := b.host.Lookup(id.Key())
		if !ok {
			log.Warn().Msgf("delegate.InjectMethods unknown method id=%s target=%s", id, d.Key())
			continue
		}
		m, ok := AsMethod(found)
		if !ok {
			continue
		}
		name := strings.TrimPrefix(m.Method.Name, NamespacePrefix)
		b.methods[name] = &InjectedMethod{Name: name, Method: id, target: d}
		log.Trace().Msgf("delegate.InjectMethods injected name=%s target=%s", name, d.Key())
	}
}

// InjectSignals registers the listed signals by name. Signals without a linked
// handler are kept with a nil handler.
func InjectSignals(d Delegate, ids []protocol.SignalID) {
	b := d.base()
	if b.host == nil {
		return
	}
	for _, id := range ids {
		found, ok := b.host.Lookup(id.Key())
		if !ok {
			log.Warn().Msgf("delegate.InjectSignals unknown signal id=%s target=%s", id, d.Key())
			continue
		}
		s, ok := AsSignal(found)
		if !ok {
			continue
		}
		if _, linked := b.signals[s.Signal.Name]; !linked {
			b.LinkSignal(s.Signal.Name, nil)
		}
	}
}

// ContextOf returns the invoke context targeting d, or nil for the document and any
// kind that cannot be a context.
func ContextOf(d Delegate) *protocol.InvokeContext {
	if d == nil {
		return nil
	}
	key := d.Key()
	switch key.Kind {
	case protocol.KindEntity:
		var id protocol.EntityID
		id.FromKey(key)
		return &protocol.InvokeContext{Entity: &id}
	case protocol.KindTable:
		var id protocol.TableID
		id.FromKey(key)
		return &protocol.InvokeContext{Table: &id}
	case protocol.KindPlot:
		var id protocol.PlotID
		id.FromKey(key)
		return &protocol.InvokeContext{Plot: &id}
	default:
		return nil
	}
}

// AsMethod unwraps a method delegate, including custom ones embedding Method.
func AsMethod(d Delegate) (*Method, bool) {
	m, ok := d.(interface{ method() *Method })
	if !ok {
		return nil, false
	}
	return m.method(), true
}

// AsSignal unwraps a signal delegate, including custom ones embedding Signal.
func AsSignal(d Delegate) (*Signal, bool) {
	s, ok := d.(interface{ signal() *Signal })
	if !ok {
		return nil, false
	}
	return s.signal(), true
}

// AsTable unwraps a table delegate, including custom ones embedding Table.
func AsTable(d Delegate) (*Table, bool) {
	t, ok := d.(interface{ table() *Table })
	if !ok {
		return nil, false
	}
	return t.table(), true
}

func showMethods(host Host, name string, ids []protocol.MethodID) string {
	if len(ids) == 0 {
		return "No methods available"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "-- Methods on %s --\n", name)
	sb.WriteString("--------------------------------------")
	for _, id := range ids {
		if host == nil {
			fmt.Fprintf(&sb, "\n>> %s", id)
			continue
		}
		found, ok := host.Lookup(id.Key())
		if !ok {
			fmt.Fprintf(&sb, "\n>> %s", id)
			continue
		}
		fmt.Fprintf(&sb, "\n>> %s", found)
	}
	return sb.String()
}
