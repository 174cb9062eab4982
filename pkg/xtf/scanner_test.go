package xtf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferWithMagicAt(size int, offsets ...int) []byte {
	buf := make([]byte, size)
	for _, k := range offsets {
		buf[k] = 0xCE
		buf[k+1] = 0xFA
	}
	return buf
}

func TestFindNextPing_Unaligned(t *testing.T) {
	for _, k := range []int{0, 1, 7, 13, 254, 255, 510} {
		buf := bufferWithMagicAt(512, k)

		off, ok := FindNextPing(buf, 0)
		require.True(t, ok, "magic at %d", k)
		assert.Equal(t, k, off)

		_, ok = FindNextPing(buf, k+1)
		assert.False(t, ok, "scan past magic at %d", k)
	}
}

func TestFindNextPing_EdgeCases(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, ok := FindNextPing(nil, 0)
		assert.False(t, ok)
	})

	t.Run("single byte", func(t *testing.T) {
		_, ok := FindNextPing([]byte{0xCE}, 0)
		assert.False(t, ok)
	})

	t.Run("low byte at end", func(t *testing.T) {
		_, ok := FindNextPing([]byte{0, 0, 0xCE}, 0)
		assert.False(t, ok)
	})

	t.Run("start beyond end", func(t *testing.T) {
		_, ok := FindNextPing(bufferWithMagicAt(8, 2), 100)
		assert.False(t, ok)
	})

	t.Run("negative start", func(t *testing.T) {
		off, ok := FindNextPing(bufferWithMagicAt(8, 2), -5)
		require.True(t, ok)
		assert.Equal(t, 2, off)
	})

	t.Run("repeated low byte", func(t *testing.T) {
		off, ok := FindNextPing([]byte{0xCE, 0xCE, 0xFA}, 0)
		require.True(t, ok)
		assert.Equal(t, 1, off)
	})

	t.Run("big endian bytes do not match", func(t *testing.T) {
		_, ok := FindNextPing([]byte{0xFA, 0xCE, 0x00}, 0)
		assert.False(t, ok)
	})

	t.Run("successive matches", func(t *testing.T) {
		buf := bufferWithMagicAt(64, 3, 20, 41)
		var found []int
		for start := 0; ; {
			off, ok := FindNextPing(buf, start)
			if !ok {
				break
			}
			found = append(found, off)
			start = off + 1
		}
		assert.Equal(t, []int{3, 20, 41}, found)
	})
}

func TestScanner_Validators(t *testing.T) {
	buf := bufferWithMagicAt(64, 4, 30)
	buf[4+headerTypeOffset] = 0x03 // first match has a non-zero HeaderType

	s := NewScanner(MagicNumber, HeaderTypeValidator(0))
	off, ok := s.Next(buf, 0)
	require.True(t, ok)
	assert.Equal(t, 30, off)

	t.Run("header type past end of buffer", func(t *testing.T) {
		_, ok := s.Next([]byte{0xCE, 0xFA}, 0)
		assert.False(t, ok)
	})

	t.Run("custom validator", func(t *testing.T) {
		late := func(_ []byte, offset int) bool { return offset >= 10 }
		off, ok := NewScanner(MagicNumber, late).Next(bufferWithMagicAt(64, 4, 30), 0)
		require.True(t, ok)
		assert.Equal(t, 30, off)
	})

	t.Run("all validators", func(t *testing.T) {
		v := AllValidators(nil, HeaderTypeValidator(0), func(_ []byte, offset int) bool { return offset != 30 })
		_, ok := NewScanner(MagicNumber, v).Next(buf, 0)
		assert.False(t, ok)
	})

	t.Run("custom magic", func(t *testing.T) {
		off, ok := NewScanner(0x1234, nil).Next([]byte{0xCE, 0xFA, 0x34, 0x12}, 0)
		require.True(t, ok)
		assert.Equal(t, 2, off)
	})
}
