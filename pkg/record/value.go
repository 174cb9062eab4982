package record

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind is the type held by a Value.
type Kind uint8

const (
	Absent Kind = iota
	Uint8
	Uint16
	Uint32
	Int16
	Int32
	Float32
	Text
)

func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Text:
		return "text"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a decoded field. The zero Value is Absent, which is what
// reserved fields and unreadable fields decode to.
//
// 64-bit floats are narrowed to Float32 when decoded.
type Value struct {
	kind Kind
	bits uint64 // integer payload; sign-extended for Int16/Int32
	f    float32
	s    string
}

// Uint8Value returns a Uint8 value.
func Uint8Value(v uint8) Value { return Value{kind: Uint8, bits: uint64(v)} }

// Uint16Value returns a Uint16 value.
func Uint16Value(v uint16) Value { return Value{kind: Uint16, bits: uint64(v)} }

// Uint32Value returns a Uint32 value.
func Uint32Value(v uint32) Value { return Value{kind: Uint32, bits: uint64(v)} }

// Int16Value returns an Int16 value.
func Int16Value(v int16) Value { return Value{kind: Int16, bits: uint64(int64(v))} }

// Int32Value returns an Int32 value.
func Int32Value(v int32) Value { return Value{kind: Int32, bits: uint64(int64(v))} }

// Float32Value returns a Float32 value.
func Float32Value(v float32) Value { return Value{kind: Float32, f: v} }

// TextValue returns a Text value.
func TextValue(v string) Value { return Value{kind: Text, s: v} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v holds no value.
func (v Value) IsAbsent() bool { return v.kind == Absent }

// Uint returns the value of an unsigned integer field.
func (v Value) Uint() (uint64, bool) {
	switch v.kind {
	case Uint8, Uint16, Uint32:
		return v.bits, true
	}
	return 0, false
}

// Int returns the value of any integer field.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case Uint8, Uint16, Uint32, Int16, Int32:
		return int64(v.bits), true
	}
	return 0, false
}

// Float returns the value of a float field.
func (v Value) Float() (float32, bool) {
	return v.f, v.kind == Float32
}

// Text returns the value of a text field.
func (v Value) Text() (string, bool) {
	return v.s, v.kind == Text
}

// Interface returns the value as its natural Go type, or nil when absent.
func (v Value) Interface() any {
	switch v.kind {
	case Uint8:
		return uint8(v.bits)
	case Uint16:
		return uint16(v.bits)
	case Uint32:
		return uint32(v.bits)
	case Int16:
		return int16(int64(v.bits))
	case Int32:
		return int32(int64(v.bits))
	case Float32:
		return v.f
	case Text:
		return v.s
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case Absent:
		return "<absent>"
	case Uint8, Uint16, Uint32:
		return strconv.FormatUint(v.bits, 10)
	case Int16, Int32:
		return strconv.FormatInt(int64(v.bits), 10)
	case Float32:
		return strconv.FormatFloat(float64(v.f), 'g', -1, 32)
	default:
		return v.s
	}
}

// MarshalJSON encodes absent values, NaN and infinities as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == Float32 {
		f := float64(v.f)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return []byte("null"), nil
		}
	}
	return json.Marshal(v.Interface())
}
