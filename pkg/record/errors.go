package record

import (
	"errors"
	"fmt"

	"github.com/twinfer/xtf-plugin/pkg/xtfschema"
)

var (
	// ErrTruncatedRecord is returned when a read would run past the buffer.
	ErrTruncatedRecord = errors.New("truncated record")
	// ErrInvalidText is returned when a text field is not valid UTF-8 after
	// null bytes are removed.
	ErrInvalidText = errors.New("invalid text")

	// Schema errors, re-exported so callers only need this package.
	ErrMalformedTypeCode = xtfschema.ErrMalformedTypeCode
	ErrUnknownTypeTag    = xtfschema.ErrUnknownTypeTag
	ErrEmptySchema       = xtfschema.ErrEmptySchema
)

// FieldError describes a single field that could not be read.
type FieldError struct {
	Record string
	Field  string
	Offset int // absolute
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s at offset %d: %v", e.Record, e.Field, e.Offset, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
