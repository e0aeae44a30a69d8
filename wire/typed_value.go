package wire

import (
	"encoding/binary"
	"fmt"
)

// Typed value bodies are used by setVar, outputValue, varValue and
// taskReturnedValue: a kind byte followed by the payload. The version
// message carries its string as raw bytes, without a kind byte.

// ValueKind is the first byte of a typed value body.
type ValueKind byte

const (
	IntKind       ValueKind = 1 // 4 bytes little-endian
	StringKind    ValueKind = 2 // raw bytes; length from the frame
	BooleanKind   ValueKind = 3 // one byte, 0 or 1
	ByteArrayKind ValueKind = 4 // raw bytes
)

// TypedValue is a decoded typed value body.
type TypedValue struct {
	Kind  ValueKind
	Int   int32
	Str   string
	Bool  bool
	Bytes []byte
}

// IntValue, StringValue, BoolValue and BytesValue build TypedValues.
func IntValue(n int32) TypedValue    { return TypedValue{Kind: IntKind, Int: n} }
func StringValue(s string) TypedValue { return TypedValue{Kind: StringKind, Str: s} }
func BoolValue(b bool) TypedValue    { return TypedValue{Kind: BooleanKind, Bool: b} }
func BytesValue(b []byte) TypedValue { return TypedValue{Kind: ByteArrayKind, Bytes: b} }

// EncodeTypedValue serializes v as a message body.
func EncodeTypedValue(v TypedValue) []byte {
	switch v.Kind {
	case IntKind:
		body := make([]byte, 5)
		body[0] = byte(IntKind)
		binary.LittleEndian.PutUint32(body[1:], uint32(v.Int))
		return body
	case StringKind:
		return append([]byte{byte(StringKind)}, v.Str...)
	case BooleanKind:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		return []byte{byte(BooleanKind), b}
	case ByteArrayKind:
		return append([]byte{byte(ByteArrayKind)}, v.Bytes...)
	}
	return nil
}

// DecodeTypedValue parses a typed value body.
func DecodeTypedValue(body []byte) (TypedValue, error) {
	if len(body) < 1 {
		return TypedValue{}, fmt.Errorf("wire: empty typed value body")
	}
	switch ValueKind(body[0]) {
	case IntKind:
		if len(body) < 5 {
			return TypedValue{}, fmt.Errorf("wire: short integer body (%d bytes)", len(body))
		}
		return IntValue(int32(binary.LittleEndian.Uint32(body[1:]))), nil
	case StringKind:
		return StringValue(string(body[1:])), nil
	case BooleanKind:
		if len(body) < 2 {
			return TypedValue{}, fmt.Errorf("wire: short boolean body")
		}
		return BoolValue(body[1] != 0), nil
	case ByteArrayKind:
		b := make([]byte, len(body)-1)
		copy(b, body[1:])
		return BytesValue(b), nil
	}
	return TypedValue{}, fmt.Errorf("wire: unknown value kind %d", body[0])
}
