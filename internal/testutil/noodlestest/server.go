// Package noodlestest runs an in-process NOODLES server for client tests.
//
// The server answers the intro with a scripted scene followed by document
// initialized, records every invoke and replies automatically for methods that have a
// handler. Tests drive signals and late updates through the Conn it hands out.
package noodlestest

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/penne/internal/protocol"
	"github.com/danmuck/penne/internal/protocol/frame"
	"github.com/danmuck/penne/internal/protocol/schema"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// MethodHandler computes the reply to one invocation. A non-nil exception is sent
// instead of result.
type MethodHandler func(inv protocol.InvokeMethod) (result any, exc *protocol.MethodException)

// Server is a scripted NOODLES server.
type Server struct {
	t    testing.TB
	http *httptest.Server
	url  string

	mu          sync.Mutex
	scene       []frame.Message
	handlers    map[protocol.MethodID]MethodHandler
	initialized bool
	conns       []*Conn

	Intros  chan protocol.Intro
	Invokes chan protocol.InvokeMethod
	accepts chan *Conn
}

// Option configures a Server before it starts.
type Option func(*Server)

// WithoutInitialized makes the server send the scene but never document initialized.
func WithoutInitialized() Option {
	return func(s *Server) {
		s.initialized = false
	}
}

// NewServer starts a plain ws:// server. It is closed by t.Cleanup.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := newServer(t, opts...)
	s.http = httptest.NewServer(http.HandlerFunc(s.serveWS))
	s.url = "ws" + strings.TrimPrefix(s.http.URL, "http")
	t.Cleanup(s.Close)
	return s
}

// NewTLSServer starts a wss:// server using cfg.
func NewTLSServer(t testing.TB, cfg *tls.Config, opts ...Option) *Server {
	t.Helper()
	s := newServer(t, opts...)
	s.http = httptest.NewUnstartedServer(http.HandlerFunc(s.serveWS))
	s.http.TLS = cfg
	s.http.StartTLS()
	s.url = "wss" + strings.TrimPrefix(s.http.URL, "https")
	t.Cleanup(s.Close)
	return s
}

func newServer(t testing.TB, opts ...Option) *Server {
	s := &Server{
		t:           t,
		handlers:    make(map[protocol.MethodID]MethodHandler),
		initialized: true,
		Intros:      make(chan protocol.Intro, 8),
		Invokes:     make(chan protocol.InvokeMethod, 64),
		accepts:     make(chan *Conn, 8),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL is the websocket address clients dial.
func (s *Server) URL() string { return s.url }

// Add appends a message to the scene sent after the intro.
func (s *Server) Add(id uint32, body any) *Server {
	s.t.Helper()
	raw, err := protocol.Marshal(body)
	if err != nil {
		s.t.Fatalf("noodlestest: encode scene body id=%d: %v", id, err)
	}
	s.mu.Lock()
	s.scene = append(s.scene, frame.Message{ID: id, Body: raw})
	s.mu.Unlock()
	return s
}

// Handle registers fn as the auto-reply for method.
func (s *Server) Handle(method protocol.MethodID, fn MethodHandler) *Server {
	s.mu.Lock()
	s.handlers[method] = fn
	s.mu.Unlock()
	return s
}

// Accepted waits for the next client to finish its intro.
func (s *Server) Accepted() *Conn {
	s.t.Helper()
	select {
	case c := <-s.accepts:
		return c
	case <-time.After(5 * time.Second):
		s.t.Fatalf("noodlestest: no client connected")
		return nil
	}
}

// NextInvoke waits for the next invoke message from any client.
func (s *Server) NextInvoke() protocol.InvokeMethod {
	s.t.Helper()
	select {
	case inv := <-s.Invokes:
		return inv
	case <-time.After(5 * time.Second):
		s.t.Fatalf("noodlestest: no invoke received")
		return protocol.InvokeMethod{}
	}
}

// Close drops every client and stops the listener.
func (s *Server) Close() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.ws.Close()
	}
	s.http.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Msgf("noodlestest.Server upgrade err=%v", err)
		return
	}
	c := &Conn{ws: ws, server: s}
	s.mu.Lock()
	s.conns = append(s.conns, c)
	s.mu.Unlock()

	if !c.readIntro() {
		_ = ws.Close()
		return
	}
	s.mu.Lock()
	msgs := append([]frame.Message(nil), s.scene...)
	if s.initialized {
		msgs = append(msgs, frame.Message{ID: schema.MsgDocumentInitialized})
	}
	s.mu.Unlock()
	if len(msgs) > 0 {
		if err := c.Send(msgs...); err != nil {
			log.Warn().Msgf("noodlestest.Server send scene err=%v", err)
			return
		}
	}
	s.accepts <- c
	c.readLoop()
}

func (s *Server) handler(method protocol.MethodID) MethodHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[method]
}
