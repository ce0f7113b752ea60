package client

import (
	"github.com/danmuck/penne/internal/delegate"
	"github.com/danmuck/penne/internal/protocol"
	"github.com/danmuck/penne/internal/protocol/frame"
	"github.com/danmuck/penne/internal/protocol/session"
	"github.com/rs/zerolog"
)

type options struct {
	name        string
	strict      bool
	onConnected func()
	factories   map[protocol.Kind]delegate.Factory
	session     session.Config
	limits      frame.Limits
	logger      *zerolog.Logger
}

func defaultOptions() options {
	return options{
		factories: make(map[protocol.Kind]delegate.Factory),
		session:   session.DefaultConfig(),
		limits:    frame.DefaultLimits(),
	}
}

// Option configures Dial.
type Option func(*options)

// WithDelegate replaces the default delegate for kind.
func WithDelegate(kind protocol.Kind, f delegate.Factory) Option {
	return func(o *options) {
		o.factories[kind] = f
	}
}

// WithStrict turns invalid creates and method exceptions into errors instead of
// logged warnings.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithOnConnected queues fn once the server reports the document initialized.
func WithOnConnected(fn func()) Option {
	return func(o *options) {
		o.onConnected = fn
	}
}

// WithName sets the client_name sent in the intro.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithSession overrides timeouts, retry and TLS settings. Zero fields take defaults.
func WithSession(cfg session.Config) Option {
	return func(o *options) {
		o.session = cfg
	}
}

// WithFrameLimits bounds incoming frame size.
func WithFrameLimits(l frame.Limits) Option {
	return func(o *options) {
		o.limits = l
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}
