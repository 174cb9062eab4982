// Package record decodes fixed-layout binary records described by an
// xtfschema.Schema into named, typed values.
//
// Field failures are contained: a field that cannot be read decodes to an
// Absent value and its error is kept on the Record, while the remaining
// fields are still decoded. Schema defects (empty schema, malformed type
// code) abort the record.
package record

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/twinfer/xtf-plugin/pkg/xtfschema"
)

// Record is the result of applying a schema to a region of a buffer.
type Record struct {
	Schema   string
	Offset   int // absolute base offset
	End      int // base + last field offset + last field size
	Fields   map[string]Value
	Failures map[string]error // nil when every field was read
}

// Get returns the value of a field.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Uint returns an unsigned integer field. It reports false when the field
// is missing, unreadable or not an unsigned integer.
func (r *Record) Uint(name string) (uint64, bool) {
	return r.Fields[name].Uint()
}

// Len returns the number of bytes the record spans.
func (r *Record) Len() int {
	return r.End - r.Offset
}

// Unreadable returns the sorted names of fields that failed to decode.
func (r *Record) Unreadable() []string {
	if len(r.Failures) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Failures))
	for name := range r.Failures {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ToMap converts the field values to plain Go values. Absent fields map to
// nil.
func (r *Record) ToMap() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for name, v := range r.Fields {
		out[name] = v.Interface()
	}
	return out
}

// Decoder applies schemas to buffers.
type Decoder struct {
	logger *slog.Logger
}

type options struct {
	logger *slog.Logger
}

// Option configures a Decoder.
type Option func(*options)

// WithLogger sets the logger used to report unreadable fields.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
	}
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...Option) *Decoder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Decoder{logger: o.logger}
}

// Decode decodes one record of schema starting at base.
func Decode(schema *xtfschema.Schema, buf []byte, base int) (*Record, error) {
	return NewDecoder().DecodeReader(context.Background(), schema, NewReader(buf), base)
}

// Decode decodes one record of schema starting at base.
func (d *Decoder) Decode(ctx context.Context, schema *xtfschema.Schema, buf []byte, base int) (*Record, error) {
	return d.DecodeReader(ctx, schema, NewReader(buf), base)
}

// DecodeReader is Decode over an existing Reader, so callers decoding many
// records from one buffer can reuse it.
func (d *Decoder) DecodeReader(ctx context.Context, schema *xtfschema.Schema, r *Reader, base int) (*Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	tags, err := schema.Tags()
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Schema: schema.Name,
		Offset: base,
		Fields: make(map[string]Value, len(schema.Fields)),
	}

	for i, field := range schema.Fields {
		abs := base + field.Offset
		v, err := readField(r, tags[i], abs)
		if err == nil {
			rec.Fields[field.Name] = v
			continue
		}
		if tags[i].Kind == xtfschema.KindInvalid {
			return nil, fmt.Errorf("schema %s field %s: %w", schema.Name, field.Name, err)
		}

		ferr := &FieldError{Record: schema.Name, Field: field.Name, Offset: abs, Err: err}
		d.logger.WarnContext(ctx, "Unreadable field", "record", schema.Name, "field", field.Name, "offset", abs, "error", err)
		if rec.Failures == nil {
			rec.Failures = make(map[string]error)
		}
		rec.Failures[field.Name] = ferr
		rec.Fields[field.Name] = Value{}
	}

	last := len(schema.Fields) - 1
	rec.End = base + schema.Fields[last].Offset + tags[last].Size()
	return rec, nil
}

func readField(r *Reader, tag xtfschema.TypeTag, offset int) (Value, error) {
	switch tag.Kind {
	case xtfschema.KindByte:
		v, err := r.Uint8(offset)
		return Uint8Value(v), err
	case xtfschema.KindUint16:
		v, err := r.Uint16(offset)
		return Uint16Value(v), err
	case xtfschema.KindUint32:
		v, err := r.Uint32(offset)
		return Uint32Value(v), err
	case xtfschema.KindInt16:
		v, err := r.Int16(offset)
		return Int16Value(v), err
	case xtfschema.KindInt32:
		v, err := r.Int32(offset)
		return Int32Value(v), err
	case xtfschema.KindFloat32:
		v, err := r.Float32(offset)
		return Float32Value(v), err
	case xtfschema.KindFloat64:
		v, err := r.Float64(offset)
		return Float32Value(float32(v)), err
	case xtfschema.KindText:
		v, err := r.Text(offset, tag.Count)
		return TextValue(v), err
	case xtfschema.KindPadding:
		return Value{}, nil
	default:
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownTypeTag, tag.Code)
	}
}
