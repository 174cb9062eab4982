package record

import (
	"bytes"
	"fmt"
	"io"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Reader reads little-endian primitives at absolute offsets of an in-memory
// buffer. Every read is bounds checked against the whole buffer before the
// stream is touched.
//
// A Reader keeps a stream position and is not safe for concurrent use;
// create one per goroutine over the same buffer.
type Reader struct {
	buf    []byte
	stream *kaitai.Stream
}

// NewReader returns a Reader over buf.
func NewReader(buf []byte) *Reader {
	return &Reader{
		buf:    buf,
		stream: kaitai.NewStream(bytes.NewReader(buf)),
	}
}

// Len returns the buffer length.
func (r *Reader) Len() int {
	return len(r.buf)
}

func (r *Reader) seek(offset, size int) error {
	if offset < 0 || size < 0 || offset+size > len(r.buf) {
		return fmt.Errorf("%w: %d bytes at offset %d exceed buffer of %d bytes",
			ErrTruncatedRecord, size, offset, len(r.buf))
	}
	if _, err := r.stream.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("seeking to offset %d: %w", offset, err)
	}
	return nil
}

// Uint8 reads one byte at offset.
func (r *Reader) Uint8(offset int) (uint8, error) {
	if err := r.seek(offset, 1); err != nil {
		return 0, err
	}
	return r.stream.ReadU1()
}

// Uint16 reads a little-endian u16 at offset.
func (r *Reader) Uint16(offset int) (uint16, error) {
	if err := r.seek(offset, 2); err != nil {
		return 0, err
	}
	return r.stream.ReadU2le()
}

// Uint32 reads four bytes as one unsigned value. Schemas spell this "2H".
func (r *Reader) Uint32(offset int) (uint32, error) {
	if err := r.seek(offset, 4); err != nil {
		return 0, err
	}
	return r.stream.ReadU4le()
}

// Int16 reads a little-endian s16 at offset.
func (r *Reader) Int16(offset int) (int16, error) {
	if err := r.seek(offset, 2); err != nil {
		return 0, err
	}
	return r.stream.ReadS2le()
}

// Int32 reads a little-endian s32 at offset.
func (r *Reader) Int32(offset int) (int32, error) {
	if err := r.seek(offset, 4); err != nil {
		return 0, err
	}
	return r.stream.ReadS4le()
}

// Float32 reads a little-endian IEEE 754 single at offset.
func (r *Reader) Float32(offset int) (float32, error) {
	if err := r.seek(offset, 4); err != nil {
		return 0, err
	}
	return r.stream.ReadF4le()
}

// Float64 reads a little-endian IEEE 754 double at offset.
func (r *Reader) Float64(offset int) (float64, error) {
	if err := r.seek(offset, 8); err != nil {
		return 0, err
	}
	return r.stream.ReadF8le()
}

// Text reads n bytes, drops every NUL byte (embedded ones included) and
// requires the remainder to be valid UTF-8.
func (r *Reader) Text(offset, n int) (string, error) {
	if err := r.seek(offset, n); err != nil {
		return "", err
	}
	raw, err := r.stream.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return decodeText(raw)
}

func decodeText(raw []byte) (string, error) {
	stripped := bytes.ReplaceAll(raw, []byte{0}, nil)
	out, _, err := transform.Bytes(encoding.UTF8Validator, stripped)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidText, err)
	}
	return string(out), nil
}
