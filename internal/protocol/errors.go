package protocol

import "errors"

var (
	ErrInvalidID         = errors.New("protocol: invalid id")
	ErrMissingID         = errors.New("protocol: missing id")
	ErrMissingField      = errors.New("protocol: missing required field")
	ErrOneOfViolation    = errors.New("protocol: exactly one field required")
	ErrColumnMismatch    = errors.New("protocol: column type mismatch")
	ErrInvalidColumnType = errors.New("protocol: invalid column type")
	ErrDecode            = errors.New("protocol: decode failed")
)
