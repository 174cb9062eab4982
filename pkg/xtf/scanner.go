package xtf

import (
	"bytes"
	"encoding/binary"
)

// MagicNumber marks the first two bytes (little-endian) of every ping
// header.
const MagicNumber uint16 = 0xFACE

// headerTypeOffset is the position of the HeaderType byte inside a ping
// header.
const headerTypeOffset = 2

// PingValidator decides whether a magic number match at offset really
// starts a ping. A rejected match is skipped and scanning resumes at the
// next byte.
type PingValidator func(buf []byte, offset int) bool

// HeaderTypeValidator accepts matches whose HeaderType byte equals want.
func HeaderTypeValidator(want byte) PingValidator {
	return func(buf []byte, offset int) bool {
		i := offset + headerTypeOffset
		return i < len(buf) && buf[i] == want
	}
}

// AllValidators accepts a match only if every validator does. Nil entries
// are ignored.
func AllValidators(validators ...PingValidator) PingValidator {
	return func(buf []byte, offset int) bool {
		for _, v := range validators {
			if v != nil && !v(buf, offset) {
				return false
			}
		}
		return true
	}
}

// Scanner finds ping headers by their magic number.
type Scanner struct {
	magic     uint16
	validator PingValidator
}

// NewScanner returns a Scanner for magic. validator may be nil.
func NewScanner(magic uint16, validator PingValidator) *Scanner {
	return &Scanner{magic: magic, validator: validator}
}

// Next returns the first offset >= start holding the magic number, checking
// every byte position. It reports false once fewer than two bytes remain.
func (s *Scanner) Next(buf []byte, start int) (int, bool) {
	if start < 0 {
		start = 0
	}
	lo := byte(s.magic)
	for off := start; off+2 <= len(buf); off++ {
		i := bytes.IndexByte(buf[off:len(buf)-1], lo)
		if i < 0 {
			return 0, false
		}
		off += i
		if binary.LittleEndian.Uint16(buf[off:]) != s.magic {
			continue
		}
		if s.validator != nil && !s.validator(buf, off) {
			continue
		}
		return off, true
	}
	return 0, false
}

// FindNextPing scans buf from start for MagicNumber without validation.
func FindNextPing(buf []byte, start int) (int, bool) {
	return NewScanner(MagicNumber, nil).Next(buf, start)
}
