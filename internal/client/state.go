package client

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/penne/internal/delegate"
	"github.com/danmuck/penne/internal/protocol"
)

// Lookup returns the delegate stored under id. The document answers KindDocument.
func (c *Client) Lookup(id protocol.ID) (delegate.Delegate, bool) {
	if id.Kind == protocol.KindDocument {
		return c.document, true
	}
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	d, ok := c.state[id]
	return d, ok
}

// ResetState drops every delegate except the document.
func (c *Client) ResetState() {
	c.stateMu.Lock()
	n := len(c.state)
	c.state = make(map[protocol.ID]delegate.Delegate)
	c.names = make(map[protocol.ID]string)
	c.stateMu.Unlock()
	c.logger.Debug().Msgf("client.Client.ResetState dropped=%d", n)
}

// store publishes d under key. It runs on the read goroutine, which owns d's fields.
func (c *Client) store(key protocol.ID, d delegate.Delegate) (replaced bool) {
	name := d.Name()
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	_, replaced = c.state[key]
	c.state[key] = d
	c.names[key] = name
	return replaced
}

func (c *Client) rename(key protocol.ID, d delegate.Delegate) {
	name := d.Name()
	c.stateMu.Lock()
	if _, ok := c.state[key]; ok {
		c.names[key] = name
	}
	c.stateMu.Unlock()
}

func (c *Client) drop(key protocol.ID) {
	c.stateMu.Lock()
	delete(c.state, key)
	delete(c.names, key)
	c.stateMu.Unlock()
}

// Delegate returns the delegate for id or ErrNotFound.
func (c *Client) Delegate(id protocol.ID) (delegate.Delegate, error) {
	d, ok := c.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// Document returns the root delegate.
func (c *Client) Document() delegate.Delegate {
	return c.document
}

func keyLess(a, b protocol.ID) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Slot != b.Slot {
		return a.Slot < b.Slot
	}
	return a.Gen < b.Gen
}

// sortedKeys returns the state keys accepted by keep, ordered by kind, slot and gen.
// The caller holds stateMu.
func (c *Client) sortedKeys(keep func(key protocol.ID, name string) bool) []protocol.ID {
	keys := make([]protocol.ID, 0, len(c.state))
	for key := range c.state {
		if keep == nil || keep(key, c.names[key]) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
	return keys
}

// Snapshot returns every delegate except the document ordered by kind, slot and gen.
// Read the returned delegates' fields inside View.
func (c *Client) Snapshot() []delegate.Delegate {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	keys := c.sortedKeys(nil)
	out := make([]delegate.Delegate, 0, len(keys))
	for _, key := range keys {
		out = append(out, c.state[key])
	}
	return out
}

// Len reports how many delegates are mirrored, not counting the document.
func (c *Client) Len() int {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return len(c.state)
}

// DelegateID returns the state key of the delegate named name. Ties resolve to the
// lowest kind, slot and gen.
func (c *Client) DelegateID(name string) (protocol.ID, error) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	keys := c.sortedKeys(func(_ protocol.ID, n string) bool { return n == name })
	if len(keys) == 0 {
		return protocol.ID{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return keys[0], nil
}

// DelegateByName searches every kind for a delegate named name.
func (c *Client) DelegateByName(name string) (delegate.Delegate, error) {
	key, err := c.DelegateID(name)
	if err != nil {
		return nil, err
	}
	return c.Delegate(key)
}

// DelegateByContext resolves an invoke context. A nil context is the document.
func (c *Client) DelegateByContext(ictx *protocol.InvokeContext) (delegate.Delegate, error) {
	if ictx == nil {
		return c.document, nil
	}
	key, err := ictx.Key()
	if err != nil {
		return nil, fmt.Errorf("%w: context: %v", ErrNotFound, err)
	}
	return c.Delegate(key)
}

func (c *Client) methods(keep func(name string) bool) []*delegate.Method {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	keys := c.sortedKeys(func(key protocol.ID, name string) bool {
		return key.Kind == protocol.KindMethod && keep(name)
	})
	out := make([]*delegate.Method, 0, len(keys))
	for _, key := range keys {
		if m, ok := delegate.AsMethod(c.state[key]); ok {
			out = append(out, m)
		}
	}
	return out
}

// MethodByName finds a method delegate by its server name.
func (c *Client) MethodByName(name string) (*delegate.Method, error) {
	found := c.methods(func(n string) bool { return n == name })
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: method %q", ErrNotFound, name)
	}
	return found[0], nil
}

// Methods lists user-facing methods, skipping protocol-defined noo:: methods.
func (c *Client) Methods() []*delegate.Method {
	return c.methods(func(n string) bool { return !strings.Contains(n, delegate.NamespacePrefix) })
}

// ShowMethods renders the methods a user can call. Method bodies never change after
// their create message, so this reads them without View.
func (c *Client) ShowMethods() string {
	var sb strings.Builder
	sb.WriteString("-- Available Methods to call --\n")
	sb.WriteString("client.InvokeMethodByName(ctx, name, args, options...)\n")
	sb.WriteString("-------------------------------------------------------------------")
	for _, m := range c.Methods() {
		sb.WriteString("\n")
		sb.WriteString(m.String())
	}
	return sb.String()
}

// View runs fn while no frame is being applied, so delegate fields read inside fn are
// consistent. Lookups are safe inside fn; signal handlers and delegate hooks already
// run under the apply lock and must not call View.
func (c *Client) View(fn func()) {
	c.applyMu.RLock()
	defer c.applyMu.RUnlock()
	fn()
}
