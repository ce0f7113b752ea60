package protocol

import (
	"errors"
	"testing"

	"github.com/danmuck/penne/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDEqualityIsKindQualified(t *testing.T) {
	testlog.Start(t)
	m := MethodID{Slot: 0, Gen: 0}
	s := SignalID{Slot: 0, Gen: 0}
	assert.NotEqual(t, m.Key(), s.Key())
	assert.Equal(t, m.Key(), MethodID{}.Key())

	state := map[ID]string{m.Key(): "method", s.Key(): "signal"}
	assert.Len(t, state, 2)
}

func TestIDStringForms(t *testing.T) {
	testlog.Start(t)
	assert.Equal(t, "MethodID|0/0|", MethodID{}.String())
	assert.Equal(t, "TableID|3/1|", TableID{Slot: 3, Gen: 1}.String())
	assert.Equal(t, "|3/1|", TableID{Slot: 3, Gen: 1}.Compact())
	assert.Equal(t, "ID|0/0|", ID{}.String())
	assert.Equal(t, "methods", KindMethod.Specifier())
	kind, ok := KindFromSpecifier("geometries")
	require.True(t, ok)
	assert.Equal(t, KindGeometry, kind)
	assert.Len(t, Kinds(), 14)
}

func TestIDNull(t *testing.T) {
	testlog.Start(t)
	assert.True(t, EntityID{Slot: NullSlot, Gen: NullSlot}.IsNull())
	assert.False(t, EntityID{Slot: NullSlot}.IsNull())
}

func TestIDWireFormat(t *testing.T) {
	testlog.Start(t)
	data, err := Marshal(EntityID{Slot: 4, Gen: 2})
	require.NoError(t, err)

	var pair []uint32
	require.NoError(t, Unmarshal(data, &pair))
	assert.Equal(t, []uint32{4, 2}, pair)

	var back EntityID
	require.NoError(t, Unmarshal(data, &back))
	assert.Equal(t, EntityID{Slot: 4, Gen: 2}, back)

	bad, err := Marshal([]int{1, 2, 3})
	require.NoError(t, err)
	err = Unmarshal(bad, &back)
	assert.True(t, errors.Is(err, ErrDecode), "got %v", err)
}

func TestIDFromKey(t *testing.T) {
	testlog.Start(t)
	var table TableID
	assert.False(t, table.FromKey(ID{Kind: KindPlot, Slot: 1}))
	assert.True(t, table.FromKey(ID{Kind: KindTable, Slot: 1, Gen: 5}))
	assert.Equal(t, TableID{Slot: 1, Gen: 5}, table)
	keys := Keys([]MethodID{{Slot: 1}, {Slot: 2}})
	assert.Equal(t, []ID{{Kind: KindMethod, Slot: 1}, {Kind: KindMethod, Slot: 2}}, keys)
}

func TestDecodeKey(t *testing.T) {
	testlog.Start(t)
	data, err := Marshal(map[string]any{"id": []int{7, 1}, "name": "thing"})
	require.NoError(t, err)
	key, err := DecodeKey(KindEntity, data)
	require.NoError(t, err)
	assert.Equal(t, ID{Kind: KindEntity, Slot: 7, Gen: 1}, key)

	data, err = Marshal(map[string]any{"name": "thing"})
	require.NoError(t, err)
	_, err = DecodeKey(KindEntity, data)
	assert.ErrorIs(t, err, ErrMissingID)

	data, err = Marshal(map[string]any{"id": []int{7}})
	require.NoError(t, err)
	_, err = DecodeKey(KindEntity, data)
	assert.ErrorIs(t, err, ErrInvalidID)
}
