package delegate

import (
	"fmt"
	"sync"

	"github.com/danmuck/penne/internal/protocol"
	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog/log"
)

// Built-in table signals.
const (
	SignalTableReset            = "noo::tbl_reset"
	SignalTableUpdated          = "noo::tbl_updated"
	SignalTableRowsRemoved      = "noo::tbl_rows_removed"
	SignalTableSelectionUpdated = "noo::tbl_selection_updated"
)

// Injected table method names.
const (
	MethodTableSubscribe       = "tbl_subscribe"
	MethodTableInsert          = "tbl_insert"
	MethodTableUpdate          = "tbl_update"
	MethodTableRemove          = "tbl_remove"
	MethodTableClear           = "tbl_clear"
	MethodTableUpdateSelection = "tbl_update_selection"
)

// TableListener observes changes to a table mirror.
type TableListener interface {
	TableInitialized(t *Table)
	TableReset(t *Table)
	RowsUpdated(t *Table, keys []int64)
	RowsRemoved(t *Table, keys []int64)
	SelectionUpdated(t *Table, sel protocol.Selection)
}

// TableListenerFuncs adapts optional funcs to TableListener.
type TableListenerFuncs struct {
	OnInit      func(t *Table)
	OnReset     func(t *Table)
	OnUpdated   func(t *Table, keys []int64)
	OnRemoved   func(t *Table, keys []int64)
	OnSelection func(t *Table, sel protocol.Selection)
}

func (f TableListenerFuncs) TableInitialized(t *Table) {
	if f.OnInit != nil {
		f.OnInit(t)
	}
}

func (f TableListenerFuncs) TableReset(t *Table) {
	if f.OnReset != nil {
		f.OnReset(t)
	}
}

func (f TableListenerFuncs) RowsUpdated(t *Table, keys []int64) {
	if f.OnUpdated != nil {
		f.OnUpdated(t, keys)
	}
}

func (f TableListenerFuncs) RowsRemoved(t *Table, keys []int64) {
	if f.OnRemoved != nil {
		f.OnRemoved(t, keys)
	}
}

func (f TableListenerFuncs) SelectionUpdated(t *Table, sel protocol.Selection) {
	if f.OnSelection != nil {
		f.OnSelection(t, sel)
	}
}

// Table mirrors a server table and keeps a local copy of its rows once subscribed.
type Table struct {
	Base
	protocol.Table
	Data *TableData

	listenerMu sync.RWMutex
	listener   TableListener
}

func NewTable() *Table {
	return &Table{Data: NewTableData()}
}

func (t *Table) table() *Table    { return t }
func (t *Table) Key() protocol.ID { return t.ID.Key() }
func (t *Table) Name() string     { return t.Table.Name }
func (t *Table) Validate() error  { return nil }
func (t *Table) String() string   { return describe(t.Table.Name, "Table", t.Key()) }

func (t *Table) Apply(body []byte) error {
	return update(&t.Base, &t.Table, protocol.Table{}, body, nil)
}

// SetListener attaches l; nil detaches.
func (t *Table) SetListener(l TableListener) {
	t.listenerMu.Lock()
	t.listener = l
	t.listenerMu.Unlock()
}

func (t *Table) currentListener() TableListener {
	t.listenerMu.RLock()
	defer t.listenerMu.RUnlock()
	return t.listener
}

func (t *Table) OnNew(body []byte) {
	self := t.target(t)
	InjectMethods(self, t.MethodsList)
	InjectSignals(self, t.SignalsList)
	if t.Data == nil {
		t.Data = NewTableData()
	}
	t.Data.Reset()
	t.relinkSignals()
}

func (t *Table) OnUpdate(body []byte) {
	self := t.target(t)
	if hasField(body, "methods_list") {
		InjectMethods(self, t.MethodsList)
	}
	if hasField(body, "signals_list") {
		InjectSignals(self, t.SignalsList)
	}
	t.relinkSignals()
}

func (t *Table) relinkSignals() {
	t.LinkSignal(SignalTableReset, t.onReset)
	t.LinkSignal(SignalTableUpdated, t.onUpdated)
	t.LinkSignal(SignalTableRowsRemoved, t.onRowsRemoved)
	t.LinkSignal(SignalTableSelectionUpdated, t.onSelectionUpdated)
}

func (t *Table) onReset(args []cbor.RawMessage) error {
	if len(args) > 0 {
		var init protocol.TableInitData
		if err := protocol.Unmarshal(args[0], &init); err != nil {
			return fmt.Errorf("delegate: %s reset payload: %w", SignalTableReset, err)
		}
		if err := init.Validate(); err != nil {
			return err
		}
		t.Data.Init(init)
	} else {
		t.Data.Reset()
	}
	log.Debug().Msgf("delegate.Table.onReset table=%s rows=%d", t.Key(), t.Data.Len())
	if l := t.currentListener(); l != nil {
		l.TableReset(t)
	}
	return nil
}

func (t *Table) onUpdated(args []cbor.RawMessage) error {
	if len(args) < 2 {
		return fmt.Errorf("delegate: %s wants keys and rows, got %d args", SignalTableUpdated, len(args))
	}
	var keys []int64
	if err := protocol.Unmarshal(args[0], &keys); err != nil {
		return err
	}
	var rows [][]any
	if err := protocol.Unmarshal(args[1], &rows); err != nil {
		return err
	}
	if err := t.Data.Upsert(keys, rows); err != nil {
		return err
	}
	log.Debug().Msgf("delegate.Table.onUpdated table=%s keys=%v", t.Key(), keys)
	if l := t.currentListener(); l != nil {
		l.RowsUpdated(t, keys)
	}
	return nil
}

func (t *Table) onRowsRemoved(args []cbor.RawMessage) error {
	if len(args) < 1 {
		return fmt.Errorf("delegate: %s wants keys", SignalTableRowsRemoved)
	}
	var keys []int64
	if err := protocol.Unmarshal(args[0], &keys); err != nil {
		return err
	}
	n := t.Data.Remove(keys)
	log.Debug().Msgf("delegate.Table.onRowsRemoved table=%s removed=%d", t.Key(), n)
	if l := t.currentListener(); l != nil {
		l.RowsRemoved(t, keys)
	}
	return nil
}

func (t *Table) onSelectionUpdated(args []cbor.RawMessage) error {
	if len(args) < 1 {
		return fmt.Errorf("delegate: %s wants a selection", SignalTableSelectionUpdated)
	}
	var sel protocol.Selection
	if err := protocol.Unmarshal(args[0], &sel); err != nil {
		return err
	}
	t.Data.SetSelection(sel)
	log.Debug().Msgf("delegate.Table.onSelectionUpdated table=%s selection=%q", t.Key(), sel.Name)
	if l := t.currentListener(); l != nil {
		l.SelectionUpdated(t, sel)
	}
	return nil
}

// Subscribe asks the server for the table contents. The reply initializes Data as
// soon as it is read, so table signals that follow it apply on top. done runs after.
func (t *Table) Subscribe(done protocol.ReplyFunc) error {
	m, ok := t.methods[MethodTableSubscribe]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMethodNotInjected, MethodTableSubscribe)
	}
	return m.callApply(nil, func(r protocol.Reply) {
		if r.MethodException == nil {
			t.initFromReply(r)
		}
	}, done)
}

func (t *Table) initFromReply(r protocol.Reply) {
	var init protocol.TableInitData
	if err := r.Decode(&init); err != nil {
		log.Warn().Msgf("delegate.Table.Subscribe bad init data table=%s err=%v", t.Key(), err)
		return
	}
	if err := init.Validate(); err != nil {
		log.Warn().Msgf("delegate.Table.Subscribe invalid init data table=%s err=%v", t.Key(), err)
		return
	}
	t.Data.Init(init)
	log.Debug().Msgf("delegate.Table.Subscribe initialized table=%s columns=%d rows=%d", t.Key(), len(init.Columns), len(init.Keys))
	if l := t.currentListener(); l != nil {
		l.TableInitialized(t)
	}
}

// RequestInsert appends rows on the server.
func (t *Table) RequestInsert(rows [][]any, done protocol.ReplyFunc) error {
	return t.CallMethod(MethodTableInsert, []any{rows}, done)
}

// RequestUpdate replaces the rows stored under keys.
func (t *Table) RequestUpdate(keys []int64, rows [][]any, done protocol.ReplyFunc) error {
	return t.CallMethod(MethodTableUpdate, []any{keys, rows}, done)
}

func (t *Table) RequestRemove(keys []int64, done protocol.ReplyFunc) error {
	return t.CallMethod(MethodTableRemove, []any{keys}, done)
}

func (t *Table) RequestClear(done protocol.ReplyFunc) error {
	return t.CallMethod(MethodTableClear, []any{}, done)
}

// RequestUpdateSelection sets the named selection to keys.
func (t *Table) RequestUpdateSelection(name string, keys []int64, done protocol.ReplyFunc) error {
	return t.CallMethod(MethodTableUpdateSelection, []any{name, map[string]any{"rows": keys}}, done)
}

// Selection resolves the named selection against the local mirror.
func (t *Table) Selection(name string) []int64 {
	return t.Data.SelectedKeys(name)
}

func (t *Table) ShowMethods() string {
	return showMethods(t.host, t.Table.Name, t.MethodsList)
}
