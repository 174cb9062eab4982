// Package testutil holds helpers shared by the package tests: numeric
// comparers and a builder for synthetic XTF buffers.
package testutil

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/twinfer/xtf-plugin/pkg/record"
	"github.com/twinfer/xtf-plugin/pkg/xtfschema"
)

// ConvertToInt64 converts various numeric types to int64 for comparison.
// Returns the int64 value and a boolean indicating success.
func ConvertToInt64(i any) (int64, bool) {
	switch v := i.(type) {
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
		return 0, false
	case float32:
		if v == float32(math.Trunc(float64(v))) {
			return int64(v), true
		}
		return 0, false
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func toFloat(i any) (float64, bool) {
	switch v := i.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	n, ok := ConvertToInt64(i)
	return float64(n), ok
}

// NumericComparer treats numbers of different Go types as equal when their
// values match, so decoded uint16 fields compare equal to JSON float64s.
var NumericComparer = cmp.FilterValues(func(x, y any) bool {
	_, xok := toFloat(x)
	_, yok := toFloat(y)
	return xok && yok
}, cmp.Comparer(func(x, y any) bool {
	xf, _ := toFloat(x)
	yf, _ := toFloat(y)
	if math.IsNaN(xf) && math.IsNaN(yf) {
		return true
	}
	return math.Abs(xf-yf) <= 1e-6*math.Max(1, math.Abs(xf))
}))

// FilterMapKeys recursively creates a new map from 'source' containing only keys present in 'reference'.
func FilterMapKeys(source map[string]any, reference map[string]any) map[string]any {
	result := make(map[string]any)
	for key, refVal := range reference {
		if srcVal, ok := source[key]; ok {
			if refSubMap, refIsMap := refVal.(map[string]any); refIsMap {
				if srcSubMap, srcIsMap := srcVal.(map[string]any); srcIsMap {
					result[key] = FilterMapKeys(srcSubMap, refSubMap)
				} else {
					result[key] = srcVal // Type mismatch, will be caught by cmp.Diff
				}
			} else {
				result[key] = srcVal
			}
		}
	}
	return result
}

// Ping describes one synthetic ping: header values and one value map per
// channel header. NumChansToFollow defaults to len(Channels) and
// MagicNumber to 0xFACE. Payload is appended after the channel headers.
type Ping struct {
	Header   map[string]any
	Channels []map[string]any
	Payload  []byte
}

// Builder assembles XTF buffers from value maps using record.Encode.
type Builder struct {
	t   testing.TB
	set *xtfschema.Set
	buf []byte
}

// NewBuilder returns a Builder for the default schema set.
func NewBuilder(t testing.TB) *Builder {
	return &Builder{t: t, set: xtfschema.Default()}
}

// Encode encodes one record and fails the test on error.
func (b *Builder) Encode(schema *xtfschema.Schema, values map[string]any) []byte {
	b.t.Helper()
	data, err := record.Encode(schema, values)
	require.NoError(b.t, err)
	return data
}

// FileHeader appends a file header.
func (b *Builder) FileHeader(values map[string]any) *Builder {
	b.t.Helper()
	b.buf = append(b.buf, b.Encode(b.set.FileHeader, values)...)
	return b
}

// ChannelInfo appends a channel info record.
func (b *Builder) ChannelInfo(values map[string]any) *Builder {
	b.t.Helper()
	b.buf = append(b.buf, b.Encode(b.set.ChannelInfo, values)...)
	return b
}

// Ping appends a ping header, its channel headers and payload.
func (b *Builder) Ping(p Ping) *Builder {
	b.t.Helper()
	header := map[string]any{
		"MagicNumber":      0xFACE,
		"NumChansToFollow": len(p.Channels),
	}
	for k, v := range p.Header {
		header[k] = v
	}
	b.buf = append(b.buf, b.Encode(b.set.PingHeader, header)...)
	for _, ch := range p.Channels {
		b.buf = append(b.buf, b.Encode(b.set.PingChannelHeader, ch)...)
	}
	b.buf = append(b.buf, p.Payload...)
	return b
}

// Raw appends arbitrary bytes.
func (b *Builder) Raw(data ...byte) *Builder {
	b.buf = append(b.buf, data...)
	return b
}

// Len returns the current buffer length.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Bytes returns a copy of the buffer.
func (b *Builder) Bytes() []byte {
	return append([]byte(nil), b.buf...)
}
