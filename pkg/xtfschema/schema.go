// Package xtfschema describes XTF record layouts as data: ordered field
// descriptors with compact type codes, loaded from YAML.
package xtfschema

import (
	"fmt"
)

// Field describes one named value inside a record.
type Field struct {
	Name   string `yaml:"name" json:"name"`
	Type   string `yaml:"type" json:"type"`
	Offset int    `yaml:"offset" json:"offset"` // relative to the record base
}

// Schema is an ordered list of fields describing one record kind.
//
// The last field closes the record: the record length is the last field's
// offset plus its size, regardless of any other field.
type Schema struct {
	Name   string  `yaml:"name" json:"name"`
	Fields []Field `yaml:"fields" json:"fields"`

	tags []TypeTag // populated by Compile
}

// NewSchema builds and compiles a schema.
func NewSchema(name string, fields []Field) (*Schema, error) {
	s := &Schema{Name: name, Fields: fields}
	if err := s.Compile(); err != nil {
		return nil, err
	}
	return s, nil
}

// Compile parses every type code once and checks field ordering and
// naming. Compiled schemas skip per-decode type code parsing.
func (s *Schema) Compile() error {
	tags, err := parseTags(s)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(s.Fields))
	for i, f := range s.Fields {
		if i > 0 && f.Offset < s.Fields[i-1].Offset {
			return fmt.Errorf("schema %s: %w: %s at %d follows %s at %d",
				s.Name, ErrUnorderedFields, f.Name, f.Offset, s.Fields[i-1].Name, s.Fields[i-1].Offset)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema %s: %w: %s", s.Name, ErrDuplicateField, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	s.tags = tags
	return nil
}

// Tags returns the parsed type tag of every field, in field order. Tags
// cached by Compile are reused only while every field's type code still
// matches the compiled one.
func (s *Schema) Tags() ([]TypeTag, error) {
	if s.compiledTagsCurrent() {
		return s.tags, nil
	}
	return parseTags(s)
}

func (s *Schema) compiledTagsCurrent() bool {
	if s.tags == nil || len(s.tags) != len(s.Fields) {
		return false
	}
	for i, f := range s.Fields {
		if s.tags[i].Code != f.Type {
			return false
		}
	}
	return true
}

// Size returns the record length implied by the last field.
func (s *Schema) Size() (int, error) {
	tags, err := s.Tags()
	if err != nil {
		return 0, err
	}
	last := len(s.Fields) - 1
	return s.Fields[last].Offset + tags[last].Size(), nil
}

// Field returns the descriptor with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func parseTags(s *Schema) ([]TypeTag, error) {
	if len(s.Fields) == 0 {
		return nil, fmt.Errorf("schema %s: %w", s.Name, ErrEmptySchema)
	}
	tags := make([]TypeTag, len(s.Fields))
	for i, f := range s.Fields {
		tag, err := ParseTypeCode(f.Type)
		if err != nil {
			return nil, fmt.Errorf("schema %s field %s: %w", s.Name, f.Name, err)
		}
		tags[i] = tag
	}
	return tags, nil
}
