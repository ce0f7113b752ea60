package delegate

import (
	"strings"
	"testing"

	"github.com/danmuck/penne/internal/protocol"
	"github.com/danmuck/penne/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDefaultsCoverEveryKind(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry(nil)
	require.Equal(t, 14, r.Len())
	host := newFakeHost()
	for _, kind := range protocol.Kinds() {
		d, err := r.New(kind, host)
		require.NoError(t, err, "kind %s", kind)
		assert.NotNil(t, d.base().host, "kind %s", kind)
	}
	_, err := r.New(protocol.KindNone, host)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

type customEntity struct {
	Entity
	created int
}

func (c *customEntity) OnNew(body []byte) {
	c.Entity.OnNew(body)
	c.created++
}

func TestRegistryOverride(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry(map[protocol.Kind]Factory{
		protocol.KindEntity: func() Delegate { return &customEntity{} },
	})
	host := newFakeHost()
	host.create(t, protocol.KindMethod, map[string]any{"id": []int{0, 0}, "name": "noo::set_position"})

	d, err := r.New(protocol.KindEntity, host)
	require.NoError(t, err)
	raw := encode(t, map[string]any{"id": []int{1, 0}, "name": "cube", "methods_list": [][]int{{0, 0}}})
	require.NoError(t, d.Apply(raw))
	d.OnNew(raw)

	custom, ok := d.(*customEntity)
	require.True(t, ok)
	assert.Equal(t, 1, custom.created)
	assert.Equal(t, []string{"set_position"}, custom.InjectedMethods())

	m, ok := custom.InjectedMethod("set_position")
	require.True(t, ok)
	require.NoError(t, m.Call([]any{1, 2, 3}, nil))
	require.Len(t, host.invokes, 1)
	require.NotNil(t, host.invokes[0].ictx)
	require.NotNil(t, host.invokes[0].ictx.Entity)
	assert.Equal(t, protocol.EntityID{Slot: 1}, *host.invokes[0].ictx.Entity)
}

func TestApplyMergesAndKeepsUnknownAttrs(t *testing.T) {
	testlog.Start(t)
	host := newFakeHost()
	d := host.create(t, protocol.KindEntity, map[string]any{
		"id":       []int{3, 1},
		"name":     "sphere",
		"null_rep": map[string]any{},
		"tags":     []string{"a"},
	})
	ent := d.(*Entity)

	require.NoError(t, ent.Apply(encode(t, map[string]any{"id": []int{3, 1}, "tags": []string{"b", "c"}})))
	assert.Equal(t, "sphere", ent.Name())
	assert.Equal(t, []string{"b", "c"}, ent.Tags)

	ok, err := ent.Attr("null_rep", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	var tags []string
	ok, err = ent.Attr("tags", &tags)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"b", "c"}, tags)
	ok, _ = ent.Attr("missing", nil)
	assert.False(t, ok)
	assert.Contains(t, ent.AttrNames(), "null_rep")
}

func TestRepresentationDefaults(t *testing.T) {
	testlog.Start(t)
	host := newFakeHost()
	d := host.create(t, protocol.KindEntity, map[string]any{
		"id":       []int{0, 0},
		"text_rep": map[string]any{"txt": "hello", "height": 0.0},
	})
	ent := d.(*Entity)
	require.NotNil(t, ent.TextRep)
	assert.Equal(t, "Arial", ent.TextRep.Font)
	assert.Equal(t, 0.0, ent.TextRep.Height)
	assert.Equal(t, -1.0, ent.TextRep.Width)
	assert.Nil(t, ent.WebRep)

	l := host.create(t, protocol.KindLight, map[string]any{
		"id":   []int{0, 0},
		"spot": map[string]any{"range": 10.0},
	}).(*Light)
	require.NotNil(t, l.Spot)
	assert.Equal(t, 10.0, l.Spot.Range)
	assert.InDelta(t, 0.785398, l.Spot.OuterConeAngleRad, 1e-5)
	assert.Equal(t, protocol.RGB{1, 1, 1}, l.Color)
}

func TestBufferViewCoercion(t *testing.T) {
	testlog.Start(t)
	host := newFakeHost()
	v := host.create(t, protocol.KindBufferView, map[string]any{
		"id":            []int{0, 0},
		"source_buffer": []int{0, 0},
		"type":          "geometry_data",
		"offset":        0,
		"length":        128,
	}).(*BufferView)
	assert.Equal(t, protocol.ViewGeometry, v.Type)
	assert.Equal(t, int64(128), v.Length)
}

func TestValidateFailsOnOneOf(t *testing.T) {
	testlog.Start(t)
	d, err := NewRegistry(nil).New(protocol.KindPlot, newFakeHost())
	require.NoError(t, err)
	assert.ErrorIs(t, d.Validate(), protocol.ErrOneOfViolation)
	assert.ErrorIs(t, d.Apply(encode(t, map[string]any{"id": []int{0, 0}})), protocol.ErrOneOfViolation)
}

func TestApplyReplacesNestedFields(t *testing.T) {
	testlog.Start(t)
	host := newFakeHost()
	ent := host.create(t, protocol.KindEntity, map[string]any{
		"id":       []int{0, 0},
		"text_rep": map[string]any{"txt": "a", "font": "Mono", "height": 2.0},
	}).(*Entity)
	require.Equal(t, "Mono", ent.TextRep.Font)

	require.NoError(t, ent.Apply(encode(t, map[string]any{"id": []int{0, 0}, "text_rep": map[string]any{"txt": "b"}})))
	require.NotNil(t, ent.TextRep)
	assert.Equal(t, "b", ent.TextRep.Txt)
	assert.Equal(t, "Arial", ent.TextRep.Font)
	assert.Equal(t, 0.25, ent.TextRep.Height)
	assert.Equal(t, -1.0, ent.TextRep.Width)

	l := host.create(t, protocol.KindLight, map[string]any{
		"id":   []int{0, 0},
		"spot": map[string]any{"range": 10.0, "outer_cone_angle_rad": 1.0},
	}).(*Light)
	require.NoError(t, l.Apply(encode(t, map[string]any{"id": []int{0, 0}, "spot": map[string]any{"inner_cone_angle_rad": 0.1}})))
	assert.Equal(t, -1.0, l.Spot.Range)
	assert.InDelta(t, 0.785398, l.Spot.OuterConeAngleRad, 1e-5)
	assert.Equal(t, 0.1, l.Spot.InnerConeAngleRad)
}

func TestFailedApplyLeavesDelegateUnchanged(t *testing.T) {
	testlog.Start(t)
	host := newFakeHost()
	ent := host.create(t, protocol.KindEntity, map[string]any{
		"id":       []int{0, 0},
		"name":     "sphere",
		"text_rep": map[string]any{"txt": "a"},
	}).(*Entity)

	err := ent.Apply(encode(t, map[string]any{"id": []int{0, 0}, "text_rep": map[string]any{"txt": "b"}, "name": 7}))
	require.Error(t, err)
	assert.Equal(t, "sphere", ent.Name())
	assert.Equal(t, "a", ent.TextRep.Txt)
	ok, _ := ent.Attr("name", nil)
	assert.True(t, ok)
	var name string
	_, err = ent.Attr("name", &name)
	require.NoError(t, err)
	assert.Equal(t, "sphere", name)

	l := host.create(t, protocol.KindLight, map[string]any{"id": []int{0, 0}, "point": map[string]any{"range": 5.0}}).(*Light)
	err = l.Apply(encode(t, map[string]any{"id": []int{0, 0}, "intensity": 3.0, "spot": map[string]any{}}))
	assert.ErrorIs(t, err, protocol.ErrOneOfViolation)
	assert.Equal(t, 1.0, l.Intensity)
	assert.Nil(t, l.Spot)
	require.NotNil(t, l.Point)
	assert.Equal(t, 5.0, l.Point.Range)
}

func TestStringForms(t *testing.T) {
	testlog.Start(t)
	host := newFakeHost()
	ent := host.create(t, protocol.KindEntity, map[string]any{"id": []int{2, 0}})
	assert.Equal(t, "No-Name - Entity - |2/0|", ent.String())
	tbl := host.create(t, protocol.KindTable, map[string]any{"id": []int{0, 1}, "name": "points"})
	assert.Equal(t, "points - Table - |0/1|", tbl.String())

	m := host.create(t, protocol.KindMethod, map[string]any{
		"id":         []int{5, 0},
		"name":       "move",
		"doc":        "Moves a thing",
		"return_doc": "nothing",
		"arg_doc":    []map[string]any{{"name": "x", "doc": "offset"}, {"name": "y"}},
	})
	assert.Equal(t, "move:\n\tMoves a thing\n\tReturns: nothing\n\tArgs:\n\t\tx: offset\n\t\ty: ", m.String())
}

func TestMethodInvokeRequiresContext(t *testing.T) {
	testlog.Start(t)
	host := newFakeHost()
	m := host.create(t, protocol.KindMethod, map[string]any{"id": []int{0, 0}, "name": "ping"}).(*Method)
	plot := host.create(t, protocol.KindPlot, map[string]any{"id": []int{4, 0}, "simple_plot": "scatter"})
	buf := host.create(t, protocol.KindBuffer, map[string]any{"id": []int{0, 0}, "uri_bytes": "http://x/y"})

	err := m.Invoke(buf, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidContext)

	require.NoError(t, m.Invoke(plot, []any{"a"}, nil))
	require.Len(t, host.invokes, 1)
	assert.Equal(t, protocol.PlotID{Slot: 4}, *host.invokes[0].ictx.Plot)
	assert.Equal(t, []any{"a"}, host.invokes[0].args)
}

func TestContextOf(t *testing.T) {
	testlog.Start(t)
	host := newFakeHost()
	assert.Nil(t, ContextOf(nil))
	assert.Nil(t, ContextOf(&Document{}))
	tbl := host.create(t, protocol.KindTable, map[string]any{"id": []int{1, 2}})
	ictx := ContextOf(tbl)
	require.NotNil(t, ictx)
	require.NotNil(t, ictx.Table)
	assert.Nil(t, ictx.Entity)
	assert.Equal(t, protocol.TableID{Slot: 1, Gen: 2}, *ictx.Table)
}

func TestShowMethods(t *testing.T) {
	testlog.Start(t)
	host := newFakeHost()
	ent := host.create(t, protocol.KindEntity, map[string]any{"id": []int{0, 0}, "name": "e"}).(*Entity)
	assert.Equal(t, "No methods available", ent.ShowMethods())

	host.create(t, protocol.KindMethod, map[string]any{"id": []int{1, 0}, "name": "spin", "doc": "Spins"})
	require.NoError(t, ent.Apply(encode(t, map[string]any{"id": []int{0, 0}, "methods_list": [][]int{{1, 0}}})))
	out := ent.ShowMethods()
	assert.True(t, strings.HasPrefix(out, "-- Methods on e --\n--------------------------------------\n>> spin:"), out)
}

func TestReinjectionClearsPrevious(t *testing.T) {
	testlog.Start(t)
	host := newFakeHost()
	host.create(t, protocol.KindMethod, map[string]any{"id": []int{0, 0}, "name": "noo::a"})
	host.create(t, protocol.KindMethod, map[string]any{"id": []int{1, 0}, "name": "b"})
	ent := host.create(t, protocol.KindEntity, map[string]any{"id": []int{0, 0}, "methods_list": [][]int{{0, 0}}}).(*Entity)
	assert.Equal(t, []string{"a"}, ent.InjectedMethods())

	upd := encode(t, map[string]any{"id": []int{0, 0}, "methods_list": [][]int{{1, 0}}})
	require.NoError(t, ent.Apply(upd))
	ent.OnUpdate(upd)
	assert.Equal(t, []string{"b"}, ent.InjectedMethods())
	assert.ErrorIs(t, ent.CallMethod("a", nil, nil), ErrMethodNotInjected)
}

func TestInjectSignalsRegistersNames(t *testing.T) {
	testlog.Start(t)
	host := newFakeHost()
	host.create(t, protocol.KindSignal, map[string]any{"id": []int{0, 0}, "name": "pinged"})
	ent := host.create(t, protocol.KindEntity, map[string]any{"id": []int{0, 0}, "signals_list": [][]int{{0, 0}}})
	_, ok := ent.Signals()["pinged"]
	assert.True(t, ok)
}

func TestDocumentResetAndUpdate(t *testing.T) {
	testlog.Start(t)
	host := newFakeHost()
	doc, err := NewRegistry(nil).New(protocol.KindDocument, host)
	require.NoError(t, err)
	d := doc.(*Document)

	body := encode(t, map[string]any{"methods_list": [][]int{{0, 0}, {1, 0}}})
	require.NoError(t, d.Apply(body))
	d.OnUpdate(body)
	assert.Len(t, d.MethodsList, 2)
	assert.Equal(t, protocol.ID{Kind: protocol.KindDocument}, d.Key())

	d.Reset()
	assert.Equal(t, 1, host.resets)
	assert.Empty(t, d.MethodsList)
	assert.Empty(t, d.SignalsList)
}
