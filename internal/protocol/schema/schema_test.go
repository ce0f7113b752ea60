package schema

import (
	"errors"
	"testing"

	"github.com/danmuck/penne/internal/protocol"
	"github.com/danmuck/penne/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func body(t *testing.T, v any) []byte {
	t.Helper()
	data, err := protocol.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestServerMessageTableComplete(t *testing.T) {
	testlog.Start(t)
	table := ServerMessages()
	require.Len(t, table, 36)
	for id := uint32(0); id < 36; id++ {
		_, ok := table[id]
		assert.True(t, ok, "missing message id %d", id)
	}
	assert.Equal(t, HandleInfo{protocol.KindEntity, ActionUpdate}, table[MsgEntityUpdate])
	assert.Equal(t, HandleInfo{protocol.KindDocument, ActionReset}, table[32])
	assert.Equal(t, HandleInfo{protocol.KindSignal, ActionInvoke}, table[33])
	assert.Equal(t, HandleInfo{protocol.KindMethod, ActionReply}, table[34])
	assert.Equal(t, HandleInfo{protocol.KindDocument, ActionInitialized}, table[35])

	client := ClientMessages()
	assert.Equal(t, map[uint32]string{0: "intro", 1: "invoke"}, client)
}

func TestEveryKindHasCreateAndDelete(t *testing.T) {
	testlog.Start(t)
	for _, kind := range protocol.Kinds() {
		if kind == protocol.KindDocument {
			continue
		}
		_, ok := MessageFor(kind, ActionCreate)
		assert.True(t, ok, "%s create", kind)
		_, ok = MessageFor(kind, ActionDelete)
		assert.True(t, ok, "%s delete", kind)
	}
	id, ok := MessageFor(protocol.KindTable, ActionUpdate)
	require.True(t, ok)
	assert.Equal(t, MsgTableUpdate, id)
	_, ok = MessageFor(protocol.KindBuffer, ActionUpdate)
	assert.False(t, ok)
}

func TestLookupUnknown(t *testing.T) {
	testlog.Start(t)
	_, err := Lookup(36)
	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, uint32(36), ve.MessageType)
	assert.Equal(t, "unknown message_type", ve.Reason)
}

func TestValidateRequiredFields(t *testing.T) {
	testlog.Start(t)
	ok := body(t, map[string]any{"id": []int{0, 0}, "name": "noo::tbl_subscribe"})
	require.NoError(t, Validate(MsgMethodCreate, ok))

	err := Validate(MsgMethodCreate, body(t, map[string]any{"id": []int{0, 0}}))
	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)
	assert.Equal(t, "missing required field", ve.Reason)
}

func TestValidateUnknownFieldsIgnored(t *testing.T) {
	testlog.Start(t)
	data := body(t, map[string]any{"id": []int{1, 0}, "null_rep": map[string]any{}, "extra": 7})
	require.NoError(t, Validate(MsgEntityCreate, data))
}

func TestValidateMessagesWithoutRequirements(t *testing.T) {
	testlog.Start(t)
	require.NoError(t, Validate(MsgDocumentInitialized, nil))
	require.NoError(t, Validate(MsgDocumentReset, body(t, map[string]any{})))
	require.Error(t, Validate(99, nil))
}

func TestValidateRejectsNonMap(t *testing.T) {
	testlog.Start(t)
	err := Validate(MsgMethodReply, body(t, []int{1, 2}))
	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "body is not a map", ve.Reason)
}
