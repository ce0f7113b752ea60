package delegate

import "errors"

var (
	ErrInvalidContext    = errors.New("delegate: invalid context")
	ErrMethodNotInjected = errors.New("delegate: method not injected")
	ErrNoHost            = errors.New("delegate: not attached to a client")
	ErrUnknownKind       = errors.New("delegate: unknown kind")
	ErrNotMethod         = errors.New("delegate: not a method")
	ErrNotSignal         = errors.New("delegate: not a signal")
)
