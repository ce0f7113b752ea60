package frame

import (
	"errors"
	"testing"

	"github.com/danmuck/penne/internal/protocol"
	"github.com/danmuck/penne/internal/testutil/testlog"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	intro, err := protocol.Marshal(protocol.Intro{ClientName: "tester"})
	if err != nil {
		t.Fatalf("marshal intro: %v", err)
	}
	invoke, err := protocol.Marshal(protocol.InvokeMethod{
		Method:   protocol.MethodID{Slot: 2, Gen: 1},
		InvokeID: "7",
		Args:     []any{1, "two"},
	})
	if err != nil {
		t.Fatalf("marshal invoke: %v", err)
	}

	data, err := Encode(Message{ID: 0, Body: intro}, Message{ID: 1, Body: invoke})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msgs, err := Decode(data, DefaultLimits())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != 0 || msgs[1].ID != 1 {
		t.Fatalf("unexpected messages: %+v", msgs)
	}

	var gotIntro protocol.Intro
	if err := protocol.Unmarshal(msgs[0].Body, &gotIntro); err != nil {
		t.Fatalf("decode intro: %v", err)
	}
	if gotIntro.ClientName != "tester" {
		t.Fatalf("client name mismatch: %q", gotIntro.ClientName)
	}
	var gotInvoke protocol.InvokeMethod
	if err := protocol.Unmarshal(msgs[1].Body, &gotInvoke); err != nil {
		t.Fatalf("decode invoke: %v", err)
	}
	if gotInvoke.Method != (protocol.MethodID{Slot: 2, Gen: 1}) || gotInvoke.InvokeID != "7" {
		t.Fatalf("invoke mismatch: %+v", gotInvoke)
	}
}

func TestDecodeRejectsOddLength(t *testing.T) {
	testlog.Start(t)
	data, err := protocol.Marshal([]any{4, map[string]any{"id": []int{0, 0}}, 5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := Decode(data, DefaultLimits()); !errors.Is(err, ErrOddLength) {
		t.Fatalf("expected ErrOddLength, got %v", err)
	}
}

func TestDecodeRejectsNonArray(t *testing.T) {
	testlog.Start(t)
	data, err := protocol.Marshal(map[string]any{"not": "a frame"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := Decode(data, DefaultLimits()); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
	if _, err := Decode(nil, DefaultLimits()); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
}

func TestDecodeEnforcesLimits(t *testing.T) {
	testlog.Start(t)
	data, err := EncodeBody(35, map[string]any{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(data, Limits{MaxFrameBytes: 2}); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	two, err := Encode(Message{ID: 35}, Message{ID: 35})
	if err != nil {
		t.Fatalf("encode two: %v", err)
	}
	if _, err := Decode(two, Limits{MaxMessages: 1}); !errors.Is(err, ErrTooManyEntries) {
		t.Fatalf("expected ErrTooManyEntries, got %v", err)
	}
}

func TestEncodeRejectsEmpty(t *testing.T) {
	testlog.Start(t)
	if _, err := Encode(); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
}
