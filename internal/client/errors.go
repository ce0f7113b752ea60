package client

import "errors"

var (
	ErrInvalidAddress  = errors.New("client: invalid address")
	ErrConnectTimeout  = errors.New("client: connect timeout")
	ErrNotFound        = errors.New("client: not found")
	ErrUnknownMessage  = errors.New("client: unknown message")
	ErrInvalidCreate   = errors.New("client: invalid create")
	ErrInvalidUpdate   = errors.New("client: invalid update")
	ErrMethodException = errors.New("client: method exception")
	ErrNoSignalHandler = errors.New("client: no signal handler")
	ErrClosed          = errors.New("client: closed")
)
