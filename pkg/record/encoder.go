package record

import (
	"bytes"
	"fmt"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
	"github.com/twinfer/xtf-plugin/pkg/xtfschema"
)

// Encode lays values out at the schema's field offsets and returns exactly
// the record length implied by the schema. Gaps, reserved fields and fields
// missing from values are zero filled; text is NUL padded.
//
// Values may be Go numbers, strings, json.Number or Value.
func Encode(schema *xtfschema.Schema, values map[string]any) ([]byte, error) {
	tags, err := schema.Tags()
	if err != nil {
		return nil, err
	}
	size, err := schema.Size()
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	w := kaitai.NewWriter(buf)
	pos := 0

	for i, field := range schema.Fields {
		tag := tags[i]
		if field.Offset < pos {
			return nil, fmt.Errorf("schema %s field %s at %d overlaps previous field ending at %d",
				schema.Name, field.Name, field.Offset, pos)
		}
		if err := w.WriteBytes(make([]byte, field.Offset-pos)); err != nil {
			return nil, err
		}

		data, present := values[field.Name]
		if v, ok := data.(Value); ok {
			data, present = v.Interface(), !v.IsAbsent()
		}
		if !present || data == nil || tag.Kind == xtfschema.KindPadding {
			err = w.WriteBytes(make([]byte, tag.Size()))
		} else {
			err = writeField(w, tag, data)
		}
		if err != nil {
			return nil, fmt.Errorf("schema %s field %s: %w", schema.Name, field.Name, err)
		}
		pos = field.Offset + tag.Size()
	}

	return buf.Bytes(), nil
}

func writeField(w *kaitai.Writer, tag xtfschema.TypeTag, data any) error {
	switch tag.Kind {
	case xtfschema.KindByte:
		v, err := toUint(data, 8)
		if err != nil {
			return err
		}
		return w.WriteU1(uint8(v))
	case xtfschema.KindUint16:
		v, err := toUint(data, 16)
		if err != nil {
			return err
		}
		return w.WriteU2le(uint16(v))
	case xtfschema.KindUint32:
		v, err := toUint(data, 32)
		if err != nil {
			return err
		}
		return w.WriteU4le(uint32(v))
	case xtfschema.KindInt16:
		v, err := toInt(data, 16)
		if err != nil {
			return err
		}
		return w.WriteS2le(int16(v))
	case xtfschema.KindInt32:
		v, err := toInt(data, 32)
		if err != nil {
			return err
		}
		return w.WriteS4le(int32(v))
	case xtfschema.KindFloat32:
		v, err := toFloat64(data)
		if err != nil {
			return err
		}
		return w.WriteF4le(float32(v))
	case xtfschema.KindFloat64:
		v, err := toFloat64(data)
		if err != nil {
			return err
		}
		return w.WriteF8le(v)
	case xtfschema.KindText:
		s, ok := data.(string)
		if !ok {
			return fmt.Errorf("cannot convert %T to text", data)
		}
		if len(s) > tag.Count {
			return fmt.Errorf("text of %d bytes exceeds field size %d", len(s), tag.Count)
		}
		padded := make([]byte, tag.Count)
		copy(padded, s)
		return w.WriteBytes(padded)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTypeTag, tag.Code)
	}
}
