package xtfschema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeCode(t *testing.T) {
	tests := []struct {
		code  string
		kind  Kind
		count int
		size  int
	}{
		{"b", KindByte, 1, 1},
		{"B", KindByte, 1, 1},
		{"H", KindUint16, 1, 2},
		{"2H", KindUint32, 2, 4},
		{"h", KindInt16, 1, 2},
		{"i", KindInt32, 1, 4},
		{"f", KindFloat32, 1, 4},
		{"d", KindFloat64, 1, 8},
		{"1f", KindFloat32, 1, 4},
		{"64s", KindText, 64, 64},
		{"0s", KindText, 0, 0},
		{"12z", KindPadding, 12, 12},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			tag, err := ParseTypeCode(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, tag.Kind)
			assert.Equal(t, tt.count, tag.Count)
			assert.Equal(t, tt.size, tag.Size())
			assert.Equal(t, tt.code, tag.Code)
		})
	}
}

func TestParseTypeCode_Errors(t *testing.T) {
	malformed := []string{"", "x9", "s64", "64", "6 4s", "2HH", "-1s", "é"}
	for _, code := range malformed {
		t.Run("malformed_"+code, func(t *testing.T) {
			_, err := ParseTypeCode(code)
			assert.ErrorIs(t, err, ErrMalformedTypeCode)
		})
	}

	unknown := []string{"x", "9x", "3H", "12b", "2f", "Q"}
	for _, code := range unknown {
		t.Run("unknown_"+code, func(t *testing.T) {
			_, err := ParseTypeCode(code)
			assert.ErrorIs(t, err, ErrUnknownTypeTag)
		})
	}
}

func TestSchema_Size(t *testing.T) {
	s, err := NewSchema("trailing_text", []Field{
		{Name: "A", Type: "H", Offset: 0},
		{Name: "B", Type: "d", Offset: 2},
		{Name: "Note", Type: "64s", Offset: 10},
	})
	require.NoError(t, err)

	size, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, 74, size)
}

func TestSchema_SizeUsesLastFieldOnly(t *testing.T) {
	// A wide field declared before a narrow field at the same offset does not
	// extend the record.
	s, err := NewSchema("overlap", []Field{
		{Name: "Wide", Type: "32s", Offset: 0},
		{Name: "Narrow", Type: "b", Offset: 4},
	})
	require.NoError(t, err)

	size, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, 5, size)
}

func TestSchema_CompileErrors(t *testing.T) {
	_, err := NewSchema("empty", nil)
	assert.ErrorIs(t, err, ErrEmptySchema)

	_, err = NewSchema("bad", []Field{{Name: "A", Type: "x9", Offset: 0}})
	assert.ErrorIs(t, err, ErrMalformedTypeCode)

	_, err = NewSchema("unordered", []Field{
		{Name: "A", Type: "H", Offset: 4},
		{Name: "B", Type: "H", Offset: 2},
	})
	assert.ErrorIs(t, err, ErrUnorderedFields)

	_, err = NewSchema("dup", []Field{
		{Name: "A", Type: "H", Offset: 0},
		{Name: "A", Type: "H", Offset: 2},
	})
	assert.ErrorIs(t, err, ErrDuplicateField)
}

func TestSchema_TagsWithoutCompile(t *testing.T) {
	s := &Schema{Name: "raw", Fields: []Field{{Name: "A", Type: "f", Offset: 0}}}
	tags, err := s.Tags()
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, KindFloat32, tags[0].Kind)

	s.Fields[0].Type = "x9"
	_, err = s.Tags()
	assert.ErrorIs(t, err, ErrMalformedTypeCode)
}

func TestSchema_TagsAfterFieldEdit(t *testing.T) {
	s, err := NewSchema("edited", []Field{
		{Name: "A", Type: "H", Offset: 0},
		{Name: "B", Type: "f", Offset: 2},
	})
	require.NoError(t, err)

	size, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, 6, size)

	s.Fields[1].Type = "d"
	tags, err := s.Tags()
	require.NoError(t, err)
	assert.Equal(t, KindFloat64, tags[1].Kind)
	size, err = s.Size()
	require.NoError(t, err)
	assert.Equal(t, 10, size)

	s.Fields[0].Type = "x9"
	_, err = s.Tags()
	assert.ErrorIs(t, err, ErrMalformedTypeCode)
}

func TestDefaultSet(t *testing.T) {
	set := Default()
	require.NotNil(t, set)
	assert.Same(t, set, Default())

	assert.Equal(t, "NumberOfSonarChannels", set.ChannelCountField)
	assert.Equal(t, "NumChansToFollow", set.PingChannelCountField)

	sizes := map[*Schema]int{
		set.FileHeader:        256,
		set.ChannelInfo:       128,
		set.PingHeader:        256,
		set.PingChannelHeader: 64,
	}
	for s, want := range sizes {
		got, err := s.Size()
		require.NoError(t, err, s.Name)
		assert.Equal(t, want, got, s.Name)
	}

	f, ok := set.FileHeader.Field("NumberOfSonarChannels")
	require.True(t, ok)
	assert.Equal(t, 166, f.Offset)
	assert.Equal(t, "H", f.Type)

	magic, ok := set.PingHeader.Field("MagicNumber")
	require.True(t, ok)
	assert.Equal(t, 0, magic.Offset)
}

func TestLoadSetFile(t *testing.T) {
	content := `
file_header:
  fields:
    - {name: NumberOfSonarChannels, type: H, offset: 0}
channel_info:
  fields:
    - {name: Name, type: 4s, offset: 0}
ping_header:
  fields:
    - {name: MagicNumber, type: H, offset: 0}
    - {name: NumChansToFollow, type: H, offset: 2}
ping_channel_header:
  fields:
    - {name: ChannelNumber, type: H, offset: 0}
`
	path := filepath.Join(t.TempDir(), "set.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	set, err := LoadSetFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file_header", set.FileHeader.Name)
	assert.Equal(t, "ping_channel_header", set.PingChannelHeader.Name)
	assert.Equal(t, "NumberOfSonarChannels", set.ChannelCountField)

	size, err := set.PingHeader.Size()
	require.NoError(t, err)
	assert.Equal(t, 4, size)
}

func TestNewSetFromYAML_Errors(t *testing.T) {
	_, err := NewSetFromYAML([]byte("file_header: [unclosed"))
	assert.Error(t, err)

	_, err = NewSetFromYAML([]byte(`
file_header:
  fields: [{name: A, type: H, offset: 0}]
`))
	assert.ErrorContains(t, err, "missing channel_info")

	_, err = NewSetFromYAML([]byte(`
file_header:
  fields: [{name: A, type: H, offset: 0}]
channel_info:
  fields: [{name: A, type: H, offset: 0}]
ping_header:
  fields: [{name: NumChansToFollow, type: H, offset: 0}]
ping_channel_header:
  fields: [{name: A, type: H, offset: 0}]
`))
	assert.ErrorContains(t, err, "no NumberOfSonarChannels field")

	_, err = NewSetFromYAML([]byte(`
file_header:
  fields: [{name: NumberOfSonarChannels, type: H, offset: 0}]
channel_info:
  fields: [{name: A, type: 9x, offset: 0}]
ping_header:
  fields: [{name: NumChansToFollow, type: H, offset: 0}]
ping_channel_header:
  fields: [{name: A, type: H, offset: 0}]
`))
	assert.ErrorIs(t, err, ErrUnknownTypeTag)
}
