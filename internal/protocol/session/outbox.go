package session

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/penne/internal/protocol"
)

var ErrDuplicateInvoke = errors.New("session: duplicate invoke id")

// PendingInvoke tracks one method invocation awaiting its reply.
type PendingInvoke struct {
	InvokeID string
	Method   protocol.MethodID
	QueuedAt time.Time
	Done     protocol.ReplyFunc
}

// InvokeOutbox stores pending invocations by invoke id.
type InvokeOutbox struct {
	mu    sync.RWMutex
	items map[string]PendingInvoke
}

func NewInvokeOutbox() *InvokeOutbox {
	return &InvokeOutbox{
		items: make(map[string]PendingInvoke),
	}
}

func (o *InvokeOutbox) Add(item PendingInvoke) error {
	key := strings.TrimSpace(item.InvokeID)
	if key == "" {
		return errors.New("session: invoke id required")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.items[key]; exists {
		return ErrDuplicateInvoke
	}
	o.items[key] = item
	return nil
}

// Take removes and returns the pending invoke for id.
func (o *InvokeOutbox) Take(invokeID string) (PendingInvoke, bool) {
	key := strings.TrimSpace(invokeID)
	o.mu.Lock()
	defer o.mu.Unlock()
	item, ok := o.items[key]
	if ok {
		delete(o.items, key)
	}
	return item, ok
}

func (o *InvokeOutbox) Get(invokeID string) (PendingInvoke, bool) {
	key := strings.TrimSpace(invokeID)
	o.mu.RLock()
	defer o.mu.RUnlock()
	item, ok := o.items[key]
	return item, ok
}

func (o *InvokeOutbox) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

// List returns pending invokes ordered by numeric invoke id.
func (o *InvokeOutbox) List() []PendingInvoke {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]PendingInvoke, 0, len(o.items))
	for _, item := range o.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		a, errA := strconv.ParseUint(out[i].InvokeID, 10, 64)
		b, errB := strconv.ParseUint(out[j].InvokeID, 10, 64)
		if errA != nil || errB != nil {
			return out[i].InvokeID < out[j].InvokeID
		}
		return a < b
	})
	return out
}

// Drain empties the outbox and returns what was pending.
func (o *InvokeOutbox) Drain() []PendingInvoke {
	out := o.List()
	o.mu.Lock()
	o.items = make(map[string]PendingInvoke)
	o.mu.Unlock()
	return out
}
