package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/penne/internal/delegate"
	"github.com/danmuck/penne/internal/observability"
	"github.com/danmuck/penne/internal/protocol"
	"github.com/danmuck/penne/internal/protocol/frame"
	"github.com/danmuck/penne/internal/protocol/schema"
)

// Process decodes one websocket frame and dispatches each message in order. A failing
// message does not stop the rest of the frame; all failures are joined.
func (c *Client) Process(data []byte) error {
	msgs, err := frame.Decode(data, c.opts.limits)
	if err != nil {
		observability.RecordHandlerError("frame")
		return err
	}
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	var errs []error
	for _, m := range msgs {
		if err := c.dispatch(m.ID, m.Body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) dispatch(id uint32, body []byte) error {
	info, err := schema.Lookup(id)
	if err != nil {
		observability.RecordHandlerError("unknown")
		return fmt.Errorf("%w: id=%d", ErrUnknownMessage, id)
	}
	observability.RecordMessage(info.Kind.Specifier(), string(info.Action))
	c.logger.Trace().Msgf("client.Client.dispatch id=%d %s bytes=%d", id, info, len(body))

	if err := schema.Validate(id, body); err != nil {
		if err := c.lenient(info, err); err != nil {
			return err
		}
		return nil
	}

	switch info.Action {
	case schema.ActionCreate:
		err = c.handleCreate(info, body)
	case schema.ActionUpdate:
		err = c.handleUpdate(info, body)
	case schema.ActionDelete:
		err = c.handleDelete(info, body)
	case schema.ActionReply:
		err = c.handleReply(body)
	case schema.ActionInvoke:
		err = c.handleInvoke(body)
	case schema.ActionInitialized:
		c.handleInitialized()
	case schema.ActionReset:
		c.handleReset()
	}
	if err != nil {
		observability.RecordHandlerError(string(info.Action))
	}
	return err
}

// lenient returns err in strict mode and logs it otherwise.
func (c *Client) lenient(info schema.HandleInfo, err error) error {
	if c.opts.strict {
		return err
	}
	c.logger.Warn().Msgf("client.Client.dispatch %s skipped err=%v", info, err)
	return nil
}

func (c *Client) handleCreate(info schema.HandleInfo, body []byte) error {
	d, err := c.registry.New(info.Kind, c)
	if err != nil {
		return err
	}
	if err := d.Apply(body); err != nil {
		return c.lenient(info, fmt.Errorf("%w: %s: %w", ErrInvalidCreate, info.Kind, err))
	}
	if err := d.Validate(); err != nil {
		return c.lenient(info, fmt.Errorf("%w: %s: %w", ErrInvalidCreate, d.Key(), err))
	}
	key := d.Key()
	if c.store(key, d) {
		c.logger.Debug().Msgf("client.Client.handleCreate replaced id=%s", key)
	}
	d.OnNew(body)
	c.logger.Debug().Msgf("client.Client.handleCreate %s", d)
	return nil
}

func (c *Client) handleUpdate(info schema.HandleInfo, body []byte) error {
	if info.Kind == protocol.KindDocument {
		if err := c.document.Apply(body); err != nil {
			return c.lenient(info, fmt.Errorf("%w: document: %w", ErrInvalidUpdate, err))
		}
		c.document.OnUpdate(body)
		return nil
	}
	key, err := protocol.DecodeKey(info.Kind, body)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidUpdate, info.Kind, err)
	}
	d, ok := c.Lookup(key)
	if !ok {
		return c.lenient(info, fmt.Errorf("%w: update for %s", ErrNotFound, key))
	}
	// A failed Apply leaves d as it was.
	if err := d.Apply(body); err != nil {
		return c.lenient(info, fmt.Errorf("%w: %s: %w", ErrInvalidUpdate, key, err))
	}
	if err := d.Validate(); err != nil {
		if err := c.lenient(info, fmt.Errorf("%w: %s: %w", ErrInvalidUpdate, key, err)); err != nil {
			return err
		}
	}
	c.rename(key, d)
	d.OnUpdate(body)
	return nil
}

func (c *Client) handleDelete(info schema.HandleInfo, body []byte) error {
	key, err := protocol.DecodeKey(info.Kind, body)
	if err != nil {
		return err
	}
	d, ok := c.Lookup(key)
	if !ok {
		return c.lenient(info, fmt.Errorf("%w: delete for %s", ErrNotFound, key))
	}
	d.OnRemove(body)
	c.drop(key)
	c.logger.Debug().Msgf("client.Client.handleDelete %s", d)
	return nil
}

func (c *Client) handleReply(body []byte) error {
	var r protocol.Reply
	if err := protocol.Unmarshal(body, &r); err != nil {
		return err
	}
	pending, ok := c.outbox.Take(r.InvokeID)
	outcome := "ok"
	if r.MethodException != nil {
		outcome = "exception"
	}
	if ok {
		observability.RecordReply(outcome, time.Since(pending.QueuedAt))
		if pending.Done != nil {
			pending.Done(r)
		}
	} else {
		observability.RecordReply(outcome, 0)
		c.logger.Warn().Msgf("client.Client.handleReply unknown invoke_id=%s", r.InvokeID)
	}
	if r.MethodException != nil {
		err := fmt.Errorf("%w: invoke %s: %w", ErrMethodException, r.InvokeID, r.MethodException)
		if c.opts.strict {
			return err
		}
		c.logger.Warn().Msgf("client.Client.handleReply %v", err)
	}
	return nil
}

func (c *Client) handleInvoke(body []byte) error {
	var inv protocol.Invoke
	if err := protocol.Unmarshal(body, &inv); err != nil {
		return err
	}
	found, ok := c.Lookup(inv.ID.Key())
	if !ok {
		return c.lenient(schema.HandleInfo{Kind: protocol.KindSignal, Action: schema.ActionInvoke},
			fmt.Errorf("%w: signal %s", ErrNotFound, inv.ID))
	}
	sig, ok := delegate.AsSignal(found)
	if !ok {
		return fmt.Errorf("%w: %s", delegate.ErrNotSignal, inv.ID)
	}
	target, err := c.DelegateByContext(inv.Context)
	if err != nil {
		return err
	}
	name := sig.Signal.Name
	observability.RecordSignal(name)
	fn := target.Signals()[name]
	if fn == nil {
		return c.lenient(schema.HandleInfo{Kind: protocol.KindSignal, Action: schema.ActionInvoke},
			fmt.Errorf("%w: %s on %s", ErrNoSignalHandler, name, target))
	}
	c.logger.Debug().Msgf("client.Client.handleInvoke signal=%s target=%s args=%d", name, target, len(inv.SignalData))
	if err := fn(inv.SignalData); err != nil {
		return fmt.Errorf("client: signal %s on %s: %w", name, target, err)
	}
	return nil
}

func (c *Client) handleInitialized() {
	c.initOnce.Do(func() {
		close(c.initialized)
		c.logger.Info().Msgf("client.Client.handleInitialized delegates=%d", c.Len())
		if c.opts.onConnected != nil {
			c.callbacks.push(c.opts.onConnected)
		}
	})
}

func (c *Client) handleReset() {
	if r, ok := c.document.(interface{ Reset() }); ok {
		r.Reset()
	} else {
		c.ResetState()
	}
	c.logger.Debug().Msg("client.Client.handleReset document reset")
}
