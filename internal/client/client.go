package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/penne/internal/delegate"
	"github.com/danmuck/penne/internal/protocol"
	"github.com/danmuck/penne/internal/protocol/frame"
	"github.com/danmuck/penne/internal/protocol/schema"
	"github.com/danmuck/penne/internal/protocol/session"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Client is one live connection to a NOODLES server.
type Client struct {
	url       *url.URL
	opts      options
	sessionID string
	logger    zerolog.Logger
	rng       *rand.Rand

	conn    *websocket.Conn
	writeMu sync.Mutex

	// applyMu is held for writing while a frame is dispatched.
	applyMu sync.RWMutex
	// stateMu guards state and names. names holds each delegate's name as of its last
	// create or update, so lookups never read delegate fields.
	stateMu  sync.RWMutex
	state    map[protocol.ID]delegate.Delegate
	names    map[protocol.ID]string
	document delegate.Delegate
	registry *delegate.Registry

	outbox     *session.InvokeOutbox
	nextInvoke atomic.Uint64
	callbacks  *callbackQueue

	initialized chan struct{}
	initOnce    sync.Once
	active      atomic.Bool
	closing     atomic.Bool
	done        chan struct{}
	closeOnce   sync.Once
	cancel      context.CancelFunc

	errMu sync.Mutex
	err   error
}

func newClient(u *url.URL, o options) (*Client, error) {
	o.session = o.session.WithDefaults()
	if strings.TrimSpace(o.name) == "" {
		o.name = "Go Client @ " + u.String()
	}
	c := &Client{
		url:         u,
		opts:        o,
		sessionID:   uuid.NewString(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		state:       make(map[protocol.ID]delegate.Delegate),
		names:       make(map[protocol.ID]string),
		registry:    delegate.NewRegistry(o.factories),
		outbox:      session.NewInvokeOutbox(),
		callbacks:   newCallbackQueue(),
		initialized: make(chan struct{}),
		done:        make(chan struct{}),
	}
	base := log.Logger
	if o.logger != nil {
		base = *o.logger
	}
	c.logger = base.With().Str("session", c.sessionID).Logger()

	doc, err := c.registry.New(protocol.KindDocument, c)
	if err != nil {
		return nil, err
	}
	c.document = doc
	return c, nil
}

// ParseURL checks that raw is a ws:// or wss:// address.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: scheme %q, want ws or wss", ErrInvalidAddress, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidAddress)
	}
	return u, nil
}

// Dial connects to the server at rawURL, sends the intro and blocks until the server
// reports the document initialized.
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Client, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c, err := newClient(u, o)
	if err != nil {
		return nil, err
	}
	if err := c.opts.session.ValidateClientTransport(u); err != nil {
		return nil, err
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	c.start(conn)

	if err := c.send(ctx, schema.MsgIntro, protocol.Intro{ClientName: c.opts.name}); err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("client: send intro: %w", err)
	}
	c.logger.Info().Msgf("client.Client.Dial connected url=%s name=%q", u, c.opts.name)

	timer := time.NewTimer(c.opts.session.InitTimeout)
	defer timer.Stop()
	select {
	case <-c.initialized:
		return c, nil
	case <-timer.C:
		c.Shutdown()
		return nil, fmt.Errorf("%w: no initialized message after %s", ErrConnectTimeout, c.opts.session.InitTimeout)
	case <-ctx.Done():
		c.Shutdown()
		return nil, ctx.Err()
	case <-c.done:
		if err := c.Err(); err != nil {
			return nil, err
		}
		return nil, ErrClosed
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	var attempt int
	for {
		attempt++
		conn, err := c.dial(ctx)
		if err == nil {
			return conn, nil
		}
		c.logger.Warn().Msgf("client.Client.connect dial attempt=%d url=%s err=%v", attempt, c.url, err)
		if ctx.Err() != nil || !session.ShouldRetry(c.opts.session.MaxConnectAttempts, attempt) {
			return nil, fmt.Errorf("%w: %v", ErrConnectTimeout, err)
		}
		if err := session.SleepBackoff(ctx, c.opts.session.Backoff, attempt, c.rng); err != nil {
			return nil, err
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	tlsCfg, err := c.opts.session.ClientTLS(c.url)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.opts.session.HandshakeTimeout,
		TLSClientConfig:  tlsCfg,
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.session.ConnectTimeout)
	defer cancel()
	conn, resp, err := dialer.DialContext(dialCtx, c.url.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(c.opts.session.ReadLimit)
	return conn, nil
}

func (c *Client) start(conn *websocket.Conn) {
	c.conn = conn
	c.active.Store(true)
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	group, gctx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return c.readLoop()
	})
	group.Go(func() error {
		<-gctx.Done()
		_ = c.conn.Close()
		return nil
	})
	go func() {
		err := group.Wait()
		c.finish(err)
	}()
}

func (c *Client) readLoop() error {
	defer c.cancel()
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("client: read: %w", err)
		}
		if mt != websocket.BinaryMessage {
			c.logger.Warn().Msgf("client.Client.readLoop ignoring non-binary message type=%d", mt)
			continue
		}
		if err := c.Process(data); err != nil {
			c.logger.Error().Msgf("client.Client.readLoop handler err=%v", err)
			if c.opts.strict {
				c.setErr(err)
			}
		}
	}
}

func (c *Client) finish(err error) {
	c.active.Store(false)
	if err != nil {
		c.setErr(err)
		c.logger.Warn().Msgf("client.Client.finish session ended err=%v", err)
	} else {
		c.logger.Info().Msg("client.Client.finish session closed")
	}
	if pending := c.outbox.Drain(); len(pending) > 0 {
		c.logger.Debug().Msgf("client.Client.finish dropped pending invokes=%d", len(pending))
	}
	c.closeOnce.Do(func() { close(c.done) })
	c.callbacks.wake()
}

func (c *Client) send(ctx context.Context, id uint32, body any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := frame.EncodeBody(id, body)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(c.opts.session.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrClosed
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// IsActive reports whether the connection is open.
func (c *Client) IsActive() bool {
	return c.active.Load()
}

// Shutdown closes the connection. It is safe to call more than once and from any
// goroutine, including callbacks. Wait for Done to observe the read loop exit.
func (c *Client) Shutdown() {
	if !c.closing.CompareAndSwap(false, true) {
		return
	}
	c.active.Store(false)
	if c.conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = c.conn.Close()
	}
	if c.cancel != nil {
		c.cancel()
	} else {
		c.finish(nil)
	}
	c.logger.Info().Msgf("client.Client.Shutdown url=%s", c.url)
}

// Done is closed once the read loop has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the read loop exits and returns the session error, if any.
func (c *Client) Wait() error {
	<-c.done
	return c.Err()
}

// Err returns the last recorded session or strict-mode handler error.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
}

// SessionID identifies this connection in logs and admin output.
func (c *Client) SessionID() string { return c.sessionID }

// URL is the server address this client dialed.
func (c *Client) URL() string { return c.url.String() }

// Name is the client_name sent in the intro.
func (c *Client) Name() string { return c.opts.name }

// Strict reports whether handler errors are returned instead of logged.
func (c *Client) Strict() bool { return c.opts.strict }
