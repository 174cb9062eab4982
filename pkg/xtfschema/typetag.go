package xtfschema

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	// ErrMalformedTypeCode is returned when a type code matches neither a
	// bare letter nor the <count><letter> form.
	ErrMalformedTypeCode = errors.New("malformed type code")
	// ErrUnknownTypeTag is returned when a type code parses but its letter
	// (or letter and count combination) has no primitive reader.
	ErrUnknownTypeTag = errors.New("unknown type tag")
	// ErrEmptySchema is returned when a schema has no fields.
	ErrEmptySchema = errors.New("empty schema")
	// ErrUnorderedFields is returned when field offsets decrease.
	ErrUnorderedFields = errors.New("field offsets out of order")
	// ErrDuplicateField is returned when two fields share a name.
	ErrDuplicateField = errors.New("duplicate field name")
)

// Kind identifies the primitive a type code decodes to.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindByte
	KindUint16
	KindUint32 // "2H": two shorts consumed as one u32
	KindInt16
	KindInt32
	KindFloat32
	KindFloat64
	KindText
	KindPadding
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindByte:    "u1",
	KindUint16:  "u2le",
	KindUint32:  "u4le",
	KindInt16:   "s2le",
	KindInt32:   "s4le",
	KindFloat32: "f4le",
	KindFloat64: "f8le",
	KindText:    "str",
	KindPadding: "reserved",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// TypeTag is a parsed type code.
type TypeTag struct {
	Code   string
	Count  int
	Letter byte
	Kind   Kind
}

// Size returns the number of bytes a field with this tag occupies.
func (t TypeTag) Size() int {
	switch t.Kind {
	case KindByte:
		return 1
	case KindUint16, KindInt16:
		return 2
	case KindUint32, KindInt32, KindFloat32:
		return 4
	case KindFloat64:
		return 8
	case KindText, KindPadding:
		return t.Count
	default:
		return 0
	}
}

var typeCodePattern = regexp.MustCompile(`^(\d+)([A-Za-z])$`)

// ParseTypeCode parses a compact type code such as "b", "2H" or "64s".
func ParseTypeCode(code string) (TypeTag, error) {
	if len(code) == 1 && isASCIILetter(code[0]) {
		return resolveTag(code, 1, code[0])
	}

	m := typeCodePattern.FindStringSubmatch(code)
	if m == nil {
		return TypeTag{}, fmt.Errorf("%w: %q", ErrMalformedTypeCode, code)
	}
	count, err := strconv.Atoi(m[1])
	if err != nil {
		return TypeTag{}, fmt.Errorf("%w: %q: %v", ErrMalformedTypeCode, code, err)
	}
	return resolveTag(code, count, m[2][0])
}

func resolveTag(code string, count int, letter byte) (TypeTag, error) {
	tag := TypeTag{Code: code, Count: count, Letter: letter}

	switch letter {
	case 's':
		tag.Kind = KindText
		return tag, nil
	case 'z':
		tag.Kind = KindPadding
		return tag, nil
	case 'H':
		switch count {
		case 1:
			tag.Kind = KindUint16
		case 2:
			tag.Kind = KindUint32
		}
	case 'b', 'B':
		tag.Kind = singleKind(count, KindByte)
	case 'h':
		tag.Kind = singleKind(count, KindInt16)
	case 'i':
		tag.Kind = singleKind(count, KindInt32)
	case 'f':
		tag.Kind = singleKind(count, KindFloat32)
	case 'd':
		tag.Kind = singleKind(count, KindFloat64)
	}

	if tag.Kind == KindInvalid {
		return TypeTag{}, fmt.Errorf("%w: %q", ErrUnknownTypeTag, code)
	}
	return tag, nil
}

// singleKind only accepts numeric letters without a repeat prefix.
func singleKind(count int, k Kind) Kind {
	if count != 1 {
		return KindInvalid
	}
	return k
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
