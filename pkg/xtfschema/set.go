package xtfschema

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed schemas/xtf.yaml
var defaultSetYAML []byte

const (
	defaultChannelCountField     = "NumberOfSonarChannels"
	defaultPingChannelCountField = "NumChansToFollow"
)

// Set groups the four record schemas of an XTF file together with the
// names of the fields that carry record counts.
type Set struct {
	Version               string  `yaml:"version"`
	ChannelCountField     string  `yaml:"channel_count_field"`
	PingChannelCountField string  `yaml:"ping_channel_count_field"`
	FileHeader            *Schema `yaml:"file_header"`
	ChannelInfo           *Schema `yaml:"channel_info"`
	PingHeader            *Schema `yaml:"ping_header"`
	PingChannelHeader     *Schema `yaml:"ping_channel_header"`
}

// NewSetFromYAML parses and compiles a schema set.
func NewSetFromYAML(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing schema set YAML: %w", err)
	}
	if set.ChannelCountField == "" {
		set.ChannelCountField = defaultChannelCountField
	}
	if set.PingChannelCountField == "" {
		set.PingChannelCountField = defaultPingChannelCountField
	}

	for _, entry := range []struct {
		key    string
		schema *Schema
	}{
		{"file_header", set.FileHeader},
		{"channel_info", set.ChannelInfo},
		{"ping_header", set.PingHeader},
		{"ping_channel_header", set.PingChannelHeader},
	} {
		if entry.schema == nil {
			return nil, fmt.Errorf("schema set: missing %s", entry.key)
		}
		if entry.schema.Name == "" {
			entry.schema.Name = entry.key
		}
		if err := entry.schema.Compile(); err != nil {
			return nil, err
		}
	}

	if _, ok := set.FileHeader.Field(set.ChannelCountField); !ok {
		return nil, fmt.Errorf("schema set: file_header has no %s field", set.ChannelCountField)
	}
	if _, ok := set.PingHeader.Field(set.PingChannelCountField); !ok {
		return nil, fmt.Errorf("schema set: ping_header has no %s field", set.PingChannelCountField)
	}
	return &set, nil
}

// LoadSetFile reads a schema set from disk.
func LoadSetFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema set file: %w", err)
	}
	return NewSetFromYAML(data)
}

var (
	defaultSet     *Set
	defaultSetOnce sync.Once
)

// Default returns the embedded XTF schema set. It is parsed once and must
// not be modified by callers.
func Default() *Set {
	defaultSetOnce.Do(func() {
		set, err := NewSetFromYAML(defaultSetYAML)
		if err != nil {
			panic(fmt.Sprintf("xtfschema: embedded schema set: %v", err))
		}
		defaultSet = set
	})
	return defaultSet
}
