package client

import (
	"context"
	"sync"
)

// callbackQueue is an unbounded FIFO of functions waiting to run on the application's
// goroutine. Enqueue never blocks the read loop.
type callbackQueue struct {
	mu     sync.Mutex
	items  []func()
	notify chan struct{}
}

func newCallbackQueue() *callbackQueue {
	return &callbackQueue{notify: make(chan struct{}, 1)}
}

func (q *callbackQueue) push(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, fn)
	q.mu.Unlock()
	q.wake()
}

func (q *callbackQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *callbackQueue) take() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *callbackQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// PendingCallbacks reports how many callbacks are queued.
func (c *Client) PendingCallbacks() int {
	return c.callbacks.len()
}

// RunCallbacks runs every queued callback on the calling goroutine and returns how many
// ran.
func (c *Client) RunCallbacks() int {
	n := 0
	for {
		batch := c.callbacks.take()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// ServeCallbacks runs queued callbacks as they arrive until ctx ends or the connection
// closes. Callbacks queued before the close still run.
func (c *Client) ServeCallbacks(ctx context.Context) error {
	for {
		c.RunCallbacks()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			c.RunCallbacks()
			return nil
		case <-c.callbacks.notify:
		}
	}
}
