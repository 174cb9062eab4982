package xtf

import (
	"bytes"
	"fmt"

	"github.com/twinfer/xtf-plugin/pkg/record"
	"github.com/twinfer/xtf-plugin/pkg/xtfschema"
)

// Serialize builds an XTF buffer from the map layout produced by
// File.ToMap: a file header, its channel infos, then every ping header
// followed by its channel headers, back to back. Offsets in the input are
// ignored.
//
// Count fields and the magic number are filled in from the data when they
// are missing.
func Serialize(set *xtfschema.Set, data map[string]any) ([]byte, error) {
	if set == nil {
		set = xtfschema.Default()
	}

	header, err := asMap(data["file_header"], "file_header")
	if err != nil {
		return nil, err
	}
	channels, err := asList(data["channels"], "channels")
	if err != nil {
		return nil, err
	}
	pings, err := asList(data["pings"], "pings")
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	header = withDefault(header, set.ChannelCountField, len(channels))
	if err := appendRecord(&out, set.FileHeader, header); err != nil {
		return nil, err
	}

	for i, ch := range channels {
		values, err := asMap(ch, fmt.Sprintf("channels[%d]", i))
		if err != nil {
			return nil, err
		}
		if err := appendRecord(&out, set.ChannelInfo, values); err != nil {
			return nil, err
		}
	}

	for i, raw := range pings {
		ping, err := asMap(raw, fmt.Sprintf("pings[%d]", i))
		if err != nil {
			return nil, err
		}
		pingHeader, err := asMap(ping["header"], fmt.Sprintf("pings[%d].header", i))
		if err != nil {
			return nil, err
		}
		pingChannels, err := asList(ping["channels"], fmt.Sprintf("pings[%d].channels", i))
		if err != nil {
			return nil, err
		}

		pingHeader = withDefault(pingHeader, "MagicNumber", int(MagicNumber))
		pingHeader = withDefault(pingHeader, set.PingChannelCountField, len(pingChannels))
		if err := appendRecord(&out, set.PingHeader, pingHeader); err != nil {
			return nil, err
		}
		for j, ch := range pingChannels {
			values, err := asMap(ch, fmt.Sprintf("pings[%d].channels[%d]", i, j))
			if err != nil {
				return nil, err
			}
			if err := appendRecord(&out, set.PingChannelHeader, values); err != nil {
				return nil, err
			}
		}
	}

	return out.Bytes(), nil
}

func appendRecord(out *bytes.Buffer, schema *xtfschema.Schema, values map[string]any) error {
	data, err := record.Encode(schema, values)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", schema.Name, err)
	}
	out.Write(data)
	return nil
}

// withDefault returns values with key set to def when it is absent, without
// modifying the caller's map.
func withDefault(values map[string]any, key string, def any) map[string]any {
	if v, ok := values[key]; ok && v != nil {
		return values
	}
	cp := make(map[string]any, len(values)+1)
	for k, v := range values {
		cp[k] = v
	}
	cp[key] = def
	return cp
}

func asMap(v any, path string) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	default:
		return nil, fmt.Errorf("%s: expected object, got %T", path, v)
	}
}

func asList(v any, path string) ([]any, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return l, nil
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected array, got %T", path, v)
	}
}
