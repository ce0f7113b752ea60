package delegate

import (
	"fmt"
	"sort"
	"sync"

	"github.com/danmuck/penne/internal/protocol"
)

// TableData is the local mirror of a subscribed table. Rows keep insertion order.
type TableData struct {
	mu         sync.RWMutex
	columns    []protocol.TableColumnInfo
	order      []int64
	rows       map[int64][]any
	selections map[string]protocol.Selection
}

func NewTableData() *TableData {
	return &TableData{
		rows:       make(map[int64][]any),
		selections: make(map[string]protocol.Selection),
	}
}

// Init replaces the mirror with a subscription reply or reset payload.
func (d *TableData) Init(init protocol.TableInitData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.columns = append([]protocol.TableColumnInfo(nil), init.Columns...)
	d.order = make([]int64, 0, len(init.Keys))
	d.rows = make(map[int64][]any, len(init.Keys))
	for i, key := range init.Keys {
		if i >= len(init.Data) {
			break
		}
		if _, dup := d.rows[key]; !dup {
			d.order = append(d.order, key)
		}
		d.rows[key] = init.Data[i]
	}
	d.selections = make(map[string]protocol.Selection, len(init.Selections))
	for _, sel := range init.Selections {
		d.selections[sel.Name] = sel
	}
}

// Reset drops rows and selections. Columns are kept.
func (d *TableData) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.order = nil
	d.rows = make(map[int64][]any)
	d.selections = make(map[string]protocol.Selection)
}

// Upsert replaces rows by key, appending keys not yet present.
func (d *TableData) Upsert(keys []int64, rows [][]any) error {
	if len(keys) != len(rows) {
		return fmt.Errorf("%w: %d keys for %d rows", protocol.ErrColumnMismatch, len(keys), len(rows))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.columns) > 0 {
		if err := protocol.ValidateRows(d.columns, rows); err != nil {
			return err
		}
	}
	for i, key := range keys {
		if _, ok := d.rows[key]; !ok {
			d.order = append(d.order, key)
		}
		d.rows[key] = rows[i]
	}
	return nil
}

// Remove drops rows by key and reports how many existed.
func (d *TableData) Remove(keys []int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	drop := make(map[int64]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := d.rows[key]; ok {
			drop[key] = struct{}{}
			delete(d.rows, key)
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := d.order[:0]
	for _, key := range d.order {
		if _, gone := drop[key]; !gone {
			kept = append(kept, key)
		}
	}
	d.order = kept
	return len(drop)
}

// SetSelection replaces the selection with the same name.
func (d *TableData) SetSelection(sel protocol.Selection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selections[sel.Name] = sel
}

func (d *TableData) Columns() []protocol.TableColumnInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]protocol.TableColumnInfo(nil), d.columns...)
}

func (d *TableData) Keys() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]int64(nil), d.order...)
}

func (d *TableData) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

func (d *TableData) Row(key int64) ([]any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	row, ok := d.rows[key]
	if !ok {
		return nil, false
	}
	return append([]any(nil), row...), true
}

// Column returns the values of the named column in row order.
func (d *TableData) Column(name string) ([]any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	idx := -1
	for i, col := range d.columns {
		if col.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]any, 0, len(d.order))
	for _, key := range d.order {
		row := d.rows[key]
		if idx < len(row) {
			out = append(out, row[idx])
		} else {
			out = append(out, nil)
		}
	}
	return out, true
}

func (d *TableData) Selection(name string) (protocol.Selection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	sel, ok := d.selections[name]
	return sel, ok
}

// SelectionNames lists known selections, sorted.
func (d *TableData) SelectionNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.selections))
	for name := range d.selections {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SelectedKeys resolves a selection's rows and ranges to keys present in the mirror,
// in row order.
func (d *TableData) SelectedKeys(name string) []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	sel, ok := d.selections[name]
	if !ok {
		return nil
	}
	picked := make(map[int64]struct{}, len(sel.Rows))
	for _, key := range sel.Rows {
		picked[key] = struct{}{}
	}
	var out []int64
	for _, key := range d.order {
		if _, ok := picked[key]; ok {
			out = append(out, key)
			continue
		}
		for _, r := range sel.RowRanges {
			if key >= r.KeyFromInclusive && key < r.KeyToExclusive {
				out = append(out, key)
				break
			}
		}
	}
	return out
}
