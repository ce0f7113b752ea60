package admin

import (
	"sort"

	"github.com/danmuck/penne/internal/delegate"
	"github.com/danmuck/penne/internal/protocol"
)

type delegateView struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Name    string   `json:"name"`
	Methods []string `json:"methods,omitempty"`
	Signals []string `json:"signals,omitempty"`
}

type injected interface {
	InjectedMethods() []string
}

func viewOf(d delegate.Delegate) delegateView {
	key := d.Key()
	v := delegateView{
		ID:   key.Compact(),
		Kind: key.Kind.Specifier(),
		Name: d.Name(),
	}
	if inj, ok := d.(injected); ok {
		v.Methods = inj.InjectedMethods()
	}
	for name := range d.Signals() {
		v.Signals = append(v.Signals, name)
	}
	sort.Strings(v.Signals)
	return v
}

type methodView struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Doc     string               `json:"doc,omitempty"`
	Returns string               `json:"returns,omitempty"`
	Args    []protocol.MethodArg `json:"args,omitempty"`
}

func methodViewOf(m *delegate.Method) methodView {
	return methodView{
		ID:      m.ID.Compact(),
		Name:    m.Method.Name,
		Doc:     m.Doc,
		Returns: m.ReturnDoc,
		Args:    m.ArgDoc,
	}
}

type tableView struct {
	ID         string                     `json:"id"`
	Name       string                     `json:"name"`
	Columns    []protocol.TableColumnInfo `json:"columns"`
	Rows       map[int64][]any            `json:"rows"`
	Selections map[string][]int64         `json:"selections"`
}

func tableViewOf(t *delegate.Table) tableView {
	v := tableView{
		ID:         t.ID.Compact(),
		Name:       t.Table.Name,
		Columns:    t.Data.Columns(),
		Rows:       make(map[int64][]any),
		Selections: make(map[string][]int64),
	}
	for _, key := range t.Data.Keys() {
		if row, ok := t.Data.Row(key); ok {
			v.Rows[key] = row
		}
	}
	for _, name := range t.Data.SelectionNames() {
		v.Selections[name] = t.Data.SelectedKeys(name)
	}
	return v
}
