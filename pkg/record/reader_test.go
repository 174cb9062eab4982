package record

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_LittleEndian(t *testing.T) {
	buf := []byte{
		0x2A,                   // 0: u8
		0xCE, 0xFA,             // 1: u16 0xFACE (unaligned)
		0x78, 0x56, 0x34, 0x12, // 3: u32 0x12345678
		0xFE, 0xFF, // 7: s16 -2
		0xFF, 0xFF, 0xFF, 0x7F, // 9: s32 MaxInt32
	}
	f32 := make([]byte, 4)
	binary.LittleEndian.PutUint32(f32, math.Float32bits(3.5))
	buf = append(buf, f32...) // 13
	f64 := make([]byte, 8)
	binary.LittleEndian.PutUint64(f64, math.Float64bits(-1234.5))
	buf = append(buf, f64...) // 17

	r := NewReader(buf)
	assert.Equal(t, len(buf), r.Len())

	u8, err := r.Uint8(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x2A), u8)

	u16, err := r.Uint16(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFACE), u16)

	u32, err := r.Uint32(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), u32)

	s16, err := r.Int16(7)
	require.NoError(t, err)
	assert.Equal(t, int16(-2), s16)

	s32, err := r.Int32(9)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), s32)

	f, err := r.Float32(13)
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), f)

	d, err := r.Float64(17)
	require.NoError(t, err)
	assert.Equal(t, -1234.5, d)

	// Reads are positional, so going backwards works.
	u8, err = r.Uint8(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x2A), u8)
}

func TestReader_Bounds(t *testing.T) {
	buf := make([]byte, 10)
	r := NewReader(buf)

	reads := []struct {
		name string
		size int
		read func(off int) error
	}{
		{"u8", 1, func(off int) error { _, err := r.Uint8(off); return err }},
		{"u16", 2, func(off int) error { _, err := r.Uint16(off); return err }},
		{"u32", 4, func(off int) error { _, err := r.Uint32(off); return err }},
		{"s16", 2, func(off int) error { _, err := r.Int16(off); return err }},
		{"s32", 4, func(off int) error { _, err := r.Int32(off); return err }},
		{"f32", 4, func(off int) error { _, err := r.Float32(off); return err }},
		{"f64", 8, func(off int) error { _, err := r.Float64(off); return err }},
		{"text3", 3, func(off int) error { _, err := r.Text(off, 3); return err }},
	}

	for _, rd := range reads {
		t.Run(rd.name, func(t *testing.T) {
			for off := 0; off <= len(buf)+1; off++ {
				err := rd.read(off)
				if off+rd.size > len(buf) {
					assert.ErrorIs(t, err, ErrTruncatedRecord, "offset %d", off)
				} else {
					assert.NoError(t, err, "offset %d", off)
				}
			}
			assert.ErrorIs(t, rd.read(-1), ErrTruncatedRecord)
		})
	}
}

func TestReader_Text(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"trailing nulls", []byte("Sonar\x00\x00\x00"), "Sonar"},
		{"embedded nulls", []byte("So\x00nar\x00"), "Sonar"},
		{"all nulls", make([]byte, 16), ""},
		{"utf8", []byte("Kiel\xc3\xa9\x00"), "Kielé"},
		{"null inside multibyte sequence", []byte{0xC3, 0x00, 0xA9}, "é"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.raw)
			got, err := r.Text(0, len(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := r.Text(0, len(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestReader_TextInvalid(t *testing.T) {
	r := NewReader([]byte{'o', 'k', 0xFF, 0xFE, 0x00})
	_, err := r.Text(0, 5)
	assert.ErrorIs(t, err, ErrInvalidText)

	// Truncated multibyte sequence at the end of the field.
	r = NewReader([]byte{'a', 0xE2, 0x82})
	_, err = r.Text(0, 3)
	assert.ErrorIs(t, err, ErrInvalidText)
}

func TestReader_TextZeroLength(t *testing.T) {
	r := NewReader([]byte{1, 2})
	got, err := r.Text(2, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
