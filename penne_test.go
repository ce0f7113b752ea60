package penne_test

import (
	"context"
	"testing"
	"time"

	"github.com/danmuck/penne"
	"github.com/danmuck/penne/internal/protocol"
	"github.com/danmuck/penne/internal/protocol/schema"
	"github.com/danmuck/penne/internal/testutil/noodlestest"
	"github.com/danmuck/penne/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedEntity struct {
	penne.Entity
	created chan string
}

func (e *namedEntity) OnNew(body []byte) {
	e.Entity.OnNew(body)
	e.created <- e.Name()
}

func TestDialCallAndCustomDelegate(t *testing.T) {
	testlog.Start(t)

	srv := noodlestest.NewServer(t)
	srv.Add(schema.MsgMethodCreate, protocol.Method{ID: penne.MethodID{Slot: 0}, Name: "double"})
	srv.Add(schema.MsgEntityCreate, protocol.Entity{ID: penne.EntityID{Slot: 0}, Name: "cube"})
	srv.Handle(penne.MethodID{Slot: 0}, func(inv protocol.InvokeMethod) (any, *protocol.MethodException) {
		n, _ := inv.Args[0].(int64)
		return n * 2, nil
	})

	created := make(chan string, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := penne.Dial(ctx, srv.URL(),
		penne.WithName("facade"),
		penne.WithDelegate(penne.KindEntity, func() penne.Delegate {
			return &namedEntity{created: created}
		}),
	)
	require.NoError(t, err)
	defer c.Shutdown()

	assert.Equal(t, "cube", <-created)
	d, err := c.DelegateByName("cube")
	require.NoError(t, err)
	_, ok := d.(*namedEntity)
	assert.True(t, ok)

	reply, err := c.Call(ctx, penne.MethodID{Slot: 0}, []any{21})
	require.NoError(t, err)
	var got int
	require.NoError(t, reply.Decode(&got))
	assert.Equal(t, 42, got)

	var replied penne.Reply
	_, err = c.InvokeMethodByName(ctx, "double", []any{4}, penne.OnReply(func(r penne.Reply) { replied = r }))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		c.RunCallbacks()
		return replied.InvokeID != ""
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, replied.Decode(&got))
	assert.Equal(t, 8, got)
}

func TestDialRejectsHTTP(t *testing.T) {
	testlog.Start(t)
	_, err := penne.Dial(context.Background(), "http://localhost:50000")
	assert.ErrorIs(t, err, penne.ErrInvalidAddress)
}
