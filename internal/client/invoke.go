package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/danmuck/penne/internal/delegate"
	"github.com/danmuck/penne/internal/observability"
	"github.com/danmuck/penne/internal/protocol"
	"github.com/danmuck/penne/internal/protocol/schema"
	"github.com/danmuck/penne/internal/protocol/session"
)

type invokeOptions struct {
	ictx *protocol.InvokeContext
	done protocol.ReplyFunc
}

// InvokeOption configures one method invocation.
type InvokeOption func(*invokeOptions)

// WithInvokeContext targets an entity, table or plot. Without it the method runs on
// the document.
func WithInvokeContext(ictx *protocol.InvokeContext) InvokeOption {
	return func(o *invokeOptions) {
		o.ictx = ictx
	}
}

// On targets d, deriving the invoke context from its kind.
func On(d delegate.Delegate) InvokeOption {
	return func(o *invokeOptions) {
		o.ictx = delegate.ContextOf(d)
	}
}

// OnReply queues fn to run with the reply.
func OnReply(fn protocol.ReplyFunc) InvokeOption {
	return func(o *invokeOptions) {
		o.done = fn
	}
}

// InvokeMethod sends an invoke message for method and returns the message sent. A
// reply callback set with OnReply is queued when the reply arrives.
func (c *Client) InvokeMethod(ctx context.Context, method protocol.MethodID, args []any, opts ...InvokeOption) (protocol.InvokeMethod, error) {
	var o invokeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return c.invoke(ctx, method, args, o.ictx, c.queued(o.done))
}

// InvokeMethodByName resolves name to a method id and invokes it.
func (c *Client) InvokeMethodByName(ctx context.Context, name string, args []any, opts ...InvokeOption) (protocol.InvokeMethod, error) {
	m, err := c.MethodByName(name)
	if err != nil {
		return protocol.InvokeMethod{}, err
	}
	return c.InvokeMethod(ctx, m.ID, args, opts...)
}

// Call invokes method and waits for its reply. A method exception is returned as an
// error wrapping ErrMethodException alongside the reply.
func (c *Client) Call(ctx context.Context, method protocol.MethodID, args []any, opts ...InvokeOption) (protocol.Reply, error) {
	var o invokeOptions
	for _, opt := range opts {
		opt(&o)
	}
	ch := make(chan protocol.Reply, 1)
	msg, err := c.invoke(ctx, method, args, o.ictx, func(r protocol.Reply) { ch <- r })
	if err != nil {
		return protocol.Reply{}, err
	}
	select {
	case r := <-ch:
		if o.done != nil {
			c.callbacks.push(func() { o.done(r) })
		}
		if r.MethodException != nil {
			return r, fmt.Errorf("%w: invoke %s: %w", ErrMethodException, r.InvokeID, r.MethodException)
		}
		return r, nil
	case <-ctx.Done():
		c.outbox.Take(msg.InvokeID)
		return protocol.Reply{}, ctx.Err()
	case <-c.done:
		return protocol.Reply{}, ErrClosed
	}
}

// Invoke implements delegate.Host. done is queued like OnReply.
func (c *Client) Invoke(method protocol.MethodID, args []any, ictx *protocol.InvokeContext, done protocol.ReplyFunc) error {
	_, err := c.invoke(context.Background(), method, args, ictx, c.queued(done))
	return err
}

// InvokeApply implements delegate.Host. apply runs on the read goroutine as the reply
// is dispatched; done is queued.
func (c *Client) InvokeApply(method protocol.MethodID, args []any, ictx *protocol.InvokeContext, apply, done protocol.ReplyFunc) error {
	later := c.queued(done)
	_, err := c.invoke(context.Background(), method, args, ictx, func(r protocol.Reply) {
		if apply != nil {
			apply(r)
		}
		if later != nil {
			later(r)
		}
	})
	return err
}

func (c *Client) queued(fn protocol.ReplyFunc) protocol.ReplyFunc {
	if fn == nil {
		return nil
	}
	return func(r protocol.Reply) {
		c.callbacks.push(func() { fn(r) })
	}
}

func (c *Client) invoke(ctx context.Context, method protocol.MethodID, args []any, ictx *protocol.InvokeContext, done protocol.ReplyFunc) (protocol.InvokeMethod, error) {
	if !c.IsActive() {
		return protocol.InvokeMethod{}, ErrClosed
	}
	if ictx != nil {
		if err := ictx.Validate(); err != nil {
			return protocol.InvokeMethod{}, err
		}
	}
	if args == nil {
		args = []any{}
	}
	msg := protocol.InvokeMethod{
		Method:   method,
		Context:  ictx,
		InvokeID: strconv.FormatUint(c.nextInvoke.Add(1)-1, 10),
		Args:     args,
	}
	if err := c.outbox.Add(session.PendingInvoke{
		InvokeID: msg.InvokeID,
		Method:   method,
		QueuedAt: time.Now(),
		Done:     done,
	}); err != nil {
		return msg, err
	}
	if err := c.send(ctx, schema.MsgInvoke, msg); err != nil {
		c.outbox.Take(msg.InvokeID)
		return msg, fmt.Errorf("client: send invoke %s: %w", msg.InvokeID, err)
	}
	observability.RecordInvoke()
	c.logger.Debug().Msgf("client.Client.invoke method=%s invoke_id=%s args=%d", method, msg.InvokeID, len(args))
	return msg, nil
}

// PendingInvokes lists invocations still waiting for a reply.
func (c *Client) PendingInvokes() []session.PendingInvoke {
	return c.outbox.List()
}
