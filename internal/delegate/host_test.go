package delegate

import (
	"testing"

	"github.com/danmuck/penne/internal/protocol"
	"github.com/stretchr/testify/require"
)

type invocation struct {
	method protocol.MethodID
	args   []any
	ictx   *protocol.InvokeContext
	done   protocol.ReplyFunc
}

type fakeHost struct {
	state   map[protocol.ID]Delegate
	invokes []invocation
	resets  int
}

func newFakeHost() *fakeHost {
	return &fakeHost{state: make(map[protocol.ID]Delegate)}
}

func (h *fakeHost) Lookup(id protocol.ID) (Delegate, bool) {
	d, ok := h.state[id]
	return d, ok
}

func (h *fakeHost) Invoke(method protocol.MethodID, args []any, ictx *protocol.InvokeContext, done protocol.ReplyFunc) error {
	h.invokes = append(h.invokes, invocation{method: method, args: args, ictx: ictx, done: done})
	return nil
}

// InvokeApply records apply and done as one callback, in dispatch order.
func (h *fakeHost) InvokeApply(method protocol.MethodID, args []any, ictx *protocol.InvokeContext, apply, done protocol.ReplyFunc) error {
	return h.Invoke(method, args, ictx, func(r protocol.Reply) {
		apply(r)
		if done != nil {
			done(r)
		}
	})
}

func (h *fakeHost) ResetState() {
	h.resets++
	h.state = make(map[protocol.ID]Delegate)
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := protocol.Marshal(v)
	require.NoError(t, err)
	return data
}

// create builds, applies and stores a delegate the way the client does.
func (h *fakeHost) create(t *testing.T, kind protocol.Kind, body map[string]any) Delegate {
	t.Helper()
	d, err := NewRegistry(nil).New(kind, h)
	require.NoError(t, err)
	raw := encode(t, body)
	require.NoError(t, d.Apply(raw))
	require.NoError(t, d.Validate())
	h.state[d.Key()] = d
	d.OnNew(raw)
	return d
}
