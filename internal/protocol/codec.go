package protocol

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort: cbor.SortNone,
		Time: cbor.TimeRFC3339,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: cbor encode mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		IntDec:           cbor.IntDecConvertSigned,
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 20,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: cbor decode mode: %v", err))
	}
}

// Marshal encodes v with the NOODLES CBOR options.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v. Fields absent from data keep their current value,
// which is what update messages rely on.
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty body", ErrDecode)
	}
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// RawFields splits a CBOR map body into its top-level keys.
func RawFields(data []byte) (map[string]cbor.RawMessage, error) {
	out := make(map[string]cbor.RawMessage)
	if len(data) == 0 {
		return out, nil
	}
	if err := decMode.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: body is not a map: %v", ErrDecode, err)
	}
	return out, nil
}
