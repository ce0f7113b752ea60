// Package penne is a client for the NOODLES scene protocol.
//
// Dial connects to a server over ws:// or wss://, mirrors every component the server
// publishes and exposes them as delegates. Methods are invoked with Call or
// InvokeMethod; replies and table notifications are delivered through the callback
// queue, which the application drains with RunCallbacks or ServeCallbacks.
//
//	c, err := penne.Dial(ctx, "ws://localhost:50000", penne.WithName("viewer"))
//	if err != nil {
//		return err
//	}
//	defer c.Shutdown()
//	reply, err := c.Call(ctx, methodID, []any{1, 2})
//
// Custom behavior is added by embedding a default delegate and registering a factory
// with WithDelegate.
package penne

import (
	"context"

	"github.com/danmuck/penne/internal/client"
	"github.com/danmuck/penne/internal/delegate"
	"github.com/danmuck/penne/internal/protocol"
	"github.com/danmuck/penne/internal/protocol/session"
)

type (
	Client       = client.Client
	Option       = client.Option
	InvokeOption = client.InvokeOption

	SessionConfig = session.Config
	TLSConfig     = session.TLSConfig
)

// Delegates.
type (
	Delegate           = delegate.Delegate
	DelegateFactory    = delegate.Factory
	Base               = delegate.Base
	Method             = delegate.Method
	Signal             = delegate.Signal
	Entity             = delegate.Entity
	Plot               = delegate.Plot
	Buffer             = delegate.Buffer
	BufferView         = delegate.BufferView
	Material           = delegate.Material
	Image              = delegate.Image
	Texture            = delegate.Texture
	Sampler            = delegate.Sampler
	Light              = delegate.Light
	Geometry           = delegate.Geometry
	Table              = delegate.Table
	TableData          = delegate.TableData
	TableListener      = delegate.TableListener
	TableListenerFuncs = delegate.TableListenerFuncs
	Document           = delegate.Document
	SignalFunc         = delegate.SignalFunc
)

// Wire types.
type (
	Kind            = protocol.Kind
	ID              = protocol.ID
	MethodID        = protocol.MethodID
	SignalID        = protocol.SignalID
	EntityID        = protocol.EntityID
	PlotID          = protocol.PlotID
	BufferID        = protocol.BufferID
	BufferViewID    = protocol.BufferViewID
	MaterialID      = protocol.MaterialID
	ImageID         = protocol.ImageID
	TextureID       = protocol.TextureID
	SamplerID       = protocol.SamplerID
	LightID         = protocol.LightID
	GeometryID      = protocol.GeometryID
	TableID         = protocol.TableID
	InvokeContext   = protocol.InvokeContext
	InvokeMethod    = protocol.InvokeMethod
	Reply           = protocol.Reply
	ReplyFunc       = protocol.ReplyFunc
	MethodException = protocol.MethodException
	Selection       = protocol.Selection
)

const (
	KindMethod     = protocol.KindMethod
	KindSignal     = protocol.KindSignal
	KindEntity     = protocol.KindEntity
	KindPlot       = protocol.KindPlot
	KindBuffer     = protocol.KindBuffer
	KindBufferView = protocol.KindBufferView
	KindMaterial   = protocol.KindMaterial
	KindImage      = protocol.KindImage
	KindTexture    = protocol.KindTexture
	KindSampler    = protocol.KindSampler
	KindLight      = protocol.KindLight
	KindGeometry   = protocol.KindGeometry
	KindTable      = protocol.KindTable
	KindDocument   = protocol.KindDocument
)

var (
	ErrInvalidAddress  = client.ErrInvalidAddress
	ErrConnectTimeout  = client.ErrConnectTimeout
	ErrNotFound        = client.ErrNotFound
	ErrUnknownMessage  = client.ErrUnknownMessage
	ErrInvalidCreate   = client.ErrInvalidCreate
	ErrInvalidUpdate   = client.ErrInvalidUpdate
	ErrMethodException = client.ErrMethodException
	ErrNoSignalHandler = client.ErrNoSignalHandler
	ErrClosed          = client.ErrClosed
)

// Dial connects to rawURL and blocks until the server reports the document
// initialized.
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Client, error) {
	return client.Dial(ctx, rawURL, opts...)
}

// DefaultSessionConfig returns the transport defaults used when WithSession is not set.
func DefaultSessionConfig() SessionConfig { return session.DefaultConfig() }

func WithName(name string) Option                        { return client.WithName(name) }
func WithStrict(strict bool) Option                      { return client.WithStrict(strict) }
func WithOnConnected(fn func()) Option                   { return client.WithOnConnected(fn) }
func WithSession(cfg SessionConfig) Option               { return client.WithSession(cfg) }
func WithDelegate(kind Kind, f DelegateFactory) Option   { return client.WithDelegate(kind, f) }
func WithInvokeContext(ictx *InvokeContext) InvokeOption { return client.WithInvokeContext(ictx) }
func On(d Delegate) InvokeOption                         { return client.On(d) }
func OnReply(fn ReplyFunc) InvokeOption                  { return client.OnReply(fn) }
