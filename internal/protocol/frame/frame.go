// Package frame encodes and decodes NOODLES websocket frames.
//
// One binary websocket message carries a CBOR array alternating message ids and
// message bodies: [id, body, id, body, ...]. Bodies stay raw until dispatched.
package frame

import (
	"errors"
	"fmt"

	"github.com/danmuck/penne/internal/protocol"
	"github.com/fxamacker/cbor/v2"
)

var (
	ErrEmptyFrame     = errors.New("frame: empty frame")
	ErrMalformedFrame = errors.New("frame: malformed frame")
	ErrOddLength      = errors.New("frame: odd element count")
	ErrFrameTooLarge  = errors.New("frame: frame too large")
	ErrTooManyEntries = errors.New("frame: too many messages")
)

// Message is one (id, body) pair.
type Message struct {
	ID   uint32
	Body cbor.RawMessage
}

// Limits constrains frame decode memory use.
type Limits struct {
	MaxFrameBytes int
	MaxMessages   int
}

func DefaultLimits() Limits {
	return Limits{
		MaxFrameBytes: 64 * 1024 * 1024,
		MaxMessages:   1 << 16,
	}
}

// Encode builds a frame from already-encoded messages.
func Encode(msgs ...Message) ([]byte, error) {
	if len(msgs) == 0 {
		return nil, ErrEmptyFrame
	}
	flat := make([]any, 0, len(msgs)*2)
	for _, m := range msgs {
		body := m.Body
		if len(body) == 0 {
			body = cbor.RawMessage{0xa0}
		}
		flat = append(flat, m.ID, body)
	}
	return protocol.Marshal(flat)
}

// EncodeBody marshals body and frames it as a single message.
func EncodeBody(id uint32, body any) ([]byte, error) {
	raw, err := protocol.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("frame: encode body id=%d: %w", id, err)
	}
	return Encode(Message{ID: id, Body: raw})
}

// Decode splits a frame into its messages.
func Decode(data []byte, limits Limits) ([]Message, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	if limits.MaxFrameBytes > 0 && len(data) > limits.MaxFrameBytes {
		return nil, ErrFrameTooLarge
	}
	var flat []cbor.RawMessage
	if err := protocol.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(flat)%2 != 0 {
		return nil, ErrOddLength
	}
	if limits.MaxMessages > 0 && len(flat)/2 > limits.MaxMessages {
		return nil, ErrTooManyEntries
	}
	out := make([]Message, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		var id uint64
		if err := protocol.Unmarshal(flat[i], &id); err != nil {
			return nil, fmt.Errorf("%w: message id at %d: %v", ErrMalformedFrame, i, err)
		}
		if id > uint64(^uint32(0)) {
			return nil, fmt.Errorf("%w: message id %d out of range", ErrMalformedFrame, id)
		}
		out = append(out, Message{ID: uint32(id), Body: flat[i+1]})
	}
	return out, nil
}
