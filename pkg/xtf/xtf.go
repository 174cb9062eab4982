package xtf

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Global parser instance for convenience functions
var globalParser *Parser
var globalParserOnce sync.Once

// getGlobalParser returns a singleton parser instance
func getGlobalParser() *Parser {
	globalParserOnce.Do(func() {
		globalParser = NewParser()
	})
	return globalParser
}

// ParseBytes decodes an in-memory XTF buffer.
func ParseBytes(data []byte, opts ...Option) (*File, error) {
	return getGlobalParser().Parse(context.Background(), data, opts...)
}

// ParseBytesWithContext decodes an in-memory XTF buffer with a context.
func ParseBytesWithContext(ctx context.Context, data []byte, opts ...Option) (*File, error) {
	return getGlobalParser().Parse(ctx, data, opts...)
}

// ParseFile reads and decodes an XTF file.
func ParseFile(path string, opts ...Option) (*File, error) {
	return getGlobalParser().ParseFile(context.Background(), path, opts...)
}

// SerializeToJSON decodes data and renders the result as indented JSON.
func SerializeToJSON(data []byte, opts ...Option) ([]byte, error) {
	return getGlobalParser().SerializeToJSON(context.Background(), data, opts...)
}

// SerializeFromJSON builds an XTF buffer from JSON in the SerializeToJSON
// layout.
func SerializeFromJSON(jsonData []byte, opts ...Option) ([]byte, error) {
	return getGlobalParser().SerializeFromJSON(jsonData, opts...)
}

// ValidateSchema checks a schema set file.
func ValidateSchema(path string) error {
	return getGlobalParser().ValidateSchema(path)
}

// SerializeToJSON decodes data and renders the result as indented JSON.
func (p *Parser) SerializeToJSON(ctx context.Context, data []byte, opts ...Option) ([]byte, error) {
	file, err := p.Parse(ctx, data, opts...)
	if err != nil {
		return nil, err
	}
	jsonData, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling to JSON: %w", err)
	}
	return jsonData, nil
}

// SerializeFromJSON builds an XTF buffer from JSON in the SerializeToJSON
// layout.
func (p *Parser) SerializeFromJSON(jsonData []byte, opts ...Option) ([]byte, error) {
	o := p.options
	for _, opt := range opts {
		opt(&o)
	}
	set, err := p.resolveSet(o)
	if err != nil {
		return nil, fmt.Errorf("loading schema set: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("unmarshaling JSON: %w", err)
	}
	return Serialize(set, data)
}

// MarshalJSON renders the file in the ToMap layout, keeping the decoded
// value types so NaN floats become null.
func (f *File) MarshalJSON() ([]byte, error) {
	channels := make([]any, len(f.Channels))
	for i, ch := range f.Channels {
		channels[i] = ch.Fields
	}
	pings := make([]any, len(f.Pings))
	for i, p := range f.Pings {
		pingChannels := make([]any, len(p.Channels))
		for j, ch := range p.Channels {
			pingChannels[j] = ch.Fields
		}
		pings[i] = map[string]any{
			"index":    p.Index,
			"offset":   p.Offset,
			"header":   p.Header.Fields,
			"channels": pingChannels,
		}
	}

	m := f.ToMap()
	m["channels"] = channels
	m["pings"] = pings
	if f.Header != nil {
		m["file_header"] = f.Header.Fields
	}
	return json.Marshal(m)
}
