package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/redpanda-data/benthos/v4/public/service"
	"github.com/twinfer/xtf-plugin/internal/cel"
	"github.com/twinfer/xtf-plugin/pkg/xtf"
	"github.com/twinfer/xtf-plugin/pkg/xtfschema"
)

const (
	modeFile  = "file"
	modePings = "pings"

	metaPingIndex  = "xtf_ping_index"
	metaPingOffset = "xtf_ping_offset"
)

// XTFProcessor is a Benthos processor that decodes XTF sonar buffers into
// structured messages and serializes them back.
type XTFProcessor struct {
	config       XTFConfig
	schemaMap    sync.Map // Cache for loaded schema sets
	parser       *xtf.Parser
	filter       *PingFilter
	logger       *service.Logger
	mParsed      *service.MetricCounter
	mSerialized  *service.MetricCounter
	mErrors      *service.MetricCounter
	mPings       *service.MetricCounter
	mUnreadable  *service.MetricCounter
	mCacheHits   *service.MetricCounter
	mCacheMisses *service.MetricCounter
}

// XTFConfig contains configuration parameters for the XTF processor.
type XTFConfig struct {
	SchemaPath      string `json:"schema_path" yaml:"schema_path"`
	IsParser        bool   `json:"is_parser" yaml:"is_parser"`
	Mode            string `json:"mode" yaml:"mode"`
	HeaderTypeCheck bool   `json:"header_type_check" yaml:"header_type_check"`
	PingValidator   string `json:"ping_validator" yaml:"ping_validator"`
	PingFilter      string `json:"ping_filter" yaml:"ping_filter"`
	Concurrency     int    `json:"concurrency" yaml:"concurrency"`
}

func init() {
	err := service.RegisterProcessor(
		"xtf",
		xtfProcessorConfig(),
		func(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
			return newXTFProcessorFromConfig(conf, mgr)
		},
	)
	if err != nil {
		panic(err)
	}
}

func main() {
	service.RunCLI(context.Background())
}

// xtfProcessorConfig returns a config spec for an xtf processor.
func xtfProcessorConfig() *service.ConfigSpec {
	return service.NewConfigSpec().
		Summary("Decodes eXtended Triton Format (XTF) sonar files into structured messages, or serializes them back.").
		Description("The whole message is treated as one XTF buffer. Record layouts come from the built-in XTF schema set unless schema_path points at a YAML schema set. Fields that cannot be decoded are reported under `unreadable` instead of failing the message.").
		Field(service.NewStringField("schema_path").
			Description("Path to a YAML schema set. Leave empty to use the built-in XTF layouts.").
			Default("").
			Example("./schemas/xtf.yaml")).
		Field(service.NewBoolField("is_parser").
			Description("Whether this processor decodes XTF to structured data (true) or serializes structured data to XTF (false).").
			Default(true)).
		Field(service.NewStringEnumField("mode", modeFile, modePings).
			Description("Emit one message for the whole file, or one message per ping with `xtf_ping_index` and `xtf_ping_offset` metadata.").
			Default(modeFile)).
		Field(service.NewBoolField("header_type_check").
			Description("Only accept magic numbers followed by a HeaderType byte of zero.").
			Default(false)).
		Field(service.NewStringField("ping_validator").
			Description("A CEL expression over `header_type`, `sub_channel`, `num_chans`, `offset`, `remaining` and `window` that must be true for a magic number match to be accepted as a ping.").
			Default("").
			Example("num_chans <= 6 && u2le(window, 14) >= 1990")).
		Field(service.NewStringField("ping_filter").
			Description("An expr-lang expression over `index`, `offset`, `header` and `channels`; pings for which it is false are dropped.").
			Default("").
			Example("header.PingNumber % 10 == 0")).
		Field(service.NewIntField("concurrency").
			Description("Number of pings whose channel headers are decoded in parallel.").
			Default(1)).
		Version("0.1.0")
}

// newXTFProcessorFromConfig creates a new XTFProcessor from a parsed config.
func newXTFProcessorFromConfig(conf *service.ParsedConfig, mgr *service.Resources) (*XTFProcessor, error) {
	var config XTFConfig
	var err error

	if config.SchemaPath, err = conf.FieldString("schema_path"); err != nil {
		return nil, err
	}
	if config.IsParser, err = conf.FieldBool("is_parser"); err != nil {
		return nil, err
	}
	if config.Mode, err = conf.FieldString("mode"); err != nil {
		return nil, err
	}
	if config.HeaderTypeCheck, err = conf.FieldBool("header_type_check"); err != nil {
		return nil, err
	}
	if config.PingValidator, err = conf.FieldString("ping_validator"); err != nil {
		return nil, err
	}
	if config.PingFilter, err = conf.FieldString("ping_filter"); err != nil {
		return nil, err
	}
	if config.Concurrency, err = conf.FieldInt("concurrency"); err != nil {
		return nil, err
	}

	return newXTFProcessor(config, mgr)
}

func newXTFProcessor(config XTFConfig, mgr *service.Resources) (*XTFProcessor, error) {
	if config.Mode != modeFile && config.Mode != modePings {
		return nil, fmt.Errorf("unknown mode %q", config.Mode)
	}
	if config.SchemaPath != "" {
		if _, err := os.Stat(config.SchemaPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("schema file not found at path: %s", config.SchemaPath)
		}
	}

	opts := []xtf.Option{
		xtf.WithLogger(newBenthosSlog(mgr.Logger()).With("processor", "xtf")),
		xtf.WithHeaderTypeCheck(config.HeaderTypeCheck),
		xtf.WithConcurrency(config.Concurrency),
	}
	if config.PingValidator != "" {
		validator, err := cel.NewPingValidator(config.PingValidator)
		if err != nil {
			return nil, err
		}
		opts = append(opts, xtf.WithPingValidator(validator))
	}

	var filter *PingFilter
	if config.PingFilter != "" {
		var err error
		if filter, err = NewPingFilter(config.PingFilter); err != nil {
			return nil, err
		}
	}

	metrics := mgr.Metrics()
	return &XTFProcessor{
		config:       config,
		parser:       xtf.NewParser(opts...),
		filter:       filter,
		logger:       mgr.Logger(),
		mParsed:      metrics.NewCounter("xtf_parsed_messages"),
		mSerialized:  metrics.NewCounter("xtf_serialized_messages"),
		mErrors:      metrics.NewCounter("xtf_processing_errors"),
		mPings:       metrics.NewCounter("xtf_pings_decoded"),
		mUnreadable:  metrics.NewCounter("xtf_unreadable_fields"),
		mCacheHits:   metrics.NewCounter("xtf_schema_cache_hits"),
		mCacheMisses: metrics.NewCounter("xtf_schema_cache_misses"),
	}, nil
}

// Process decodes or serializes a message.
func (k *XTFProcessor) Process(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	if k.config.IsParser {
		return k.parseBinary(ctx, msg)
	}
	return k.serializeToBinary(ctx, msg)
}

func (k *XTFProcessor) fail(msg *service.Message, err error) (service.MessageBatch, error) {
	k.logger.Errorf("%v", err)
	k.mErrors.Incr(1)
	msg.SetError(err)
	return service.MessageBatch{msg}, nil
}

// parseBinary decodes the message bytes as one XTF buffer.
func (k *XTFProcessor) parseBinary(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	binData, err := msg.AsBytes()
	if err != nil {
		return k.fail(msg, fmt.Errorf("failed to get binary data from message: %w", err))
	}
	if len(binData) == 0 {
		return k.fail(msg, fmt.Errorf("empty binary data provided"))
	}

	set, err := k.loadSchema(k.config.SchemaPath)
	if err != nil {
		return k.fail(msg, fmt.Errorf("failed to load schema: %w", err))
	}

	file, err := k.parser.Parse(ctx, binData, xtf.WithSchemaSet(set))
	if err != nil {
		return k.fail(msg, fmt.Errorf("failed to parse XTF data of size %d bytes: %w", len(binData), err))
	}

	unreadable := 0
	for _, u := range file.Unreadable() {
		unreadable += len(u.Fields)
	}
	if unreadable > 0 {
		k.logger.Warnf("%d fields could not be decoded from %d bytes of XTF data", unreadable, len(binData))
		k.mUnreadable.Incr(int64(unreadable))
	}

	pings, err := k.filterPings(file.Pings)
	if err != nil {
		return k.fail(msg, err)
	}

	k.logger.Debugf("Decoded %d pings (%d kept) from %d bytes", file.PingCount(), len(pings), len(binData))
	k.mParsed.Incr(1)
	k.mPings.Incr(int64(file.PingCount()))

	if k.config.Mode == modePings {
		batch := make(service.MessageBatch, 0, len(pings))
		for _, p := range pings {
			newMsg := copyMeta(msg, service.NewMessage(nil))
			newMsg.SetStructured(p.ToMap())
			newMsg.MetaSet(metaPingIndex, strconv.Itoa(p.Index))
			newMsg.MetaSet(metaPingOffset, strconv.Itoa(p.Offset))
			batch = append(batch, newMsg)
		}
		return batch, nil
	}

	result := file.ToMap()
	if k.filter != nil {
		kept := make([]any, len(pings))
		for i, p := range pings {
			kept[i] = p.ToMap()
		}
		result["pings"] = kept
	}

	newMsg := copyMeta(msg, service.NewMessage(nil))
	newMsg.SetStructured(result)
	return service.MessageBatch{newMsg}, nil
}

func (k *XTFProcessor) filterPings(pings []*xtf.Ping) ([]*xtf.Ping, error) {
	if k.filter == nil {
		return pings, nil
	}
	kept := make([]*xtf.Ping, 0, len(pings))
	for _, p := range pings {
		ok, err := k.filter.Match(p)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate ping filter on ping %d: %w", p.Index, err)
		}
		if ok {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

// serializeToBinary lays structured data out as an XTF buffer.
func (k *XTFProcessor) serializeToBinary(_ context.Context, msg *service.Message) (service.MessageBatch, error) {
	structData, err := msg.AsStructured()
	if err != nil {
		return k.fail(msg, fmt.Errorf("failed to get structured data from message: %w", err))
	}
	data, ok := structData.(map[string]any)
	if !ok {
		return k.fail(msg, fmt.Errorf("expected object, got %T", structData))
	}

	set, err := k.loadSchema(k.config.SchemaPath)
	if err != nil {
		return k.fail(msg, fmt.Errorf("failed to load schema: %w", err))
	}

	binData, err := xtf.Serialize(set, data)
	if err != nil {
		return k.fail(msg, fmt.Errorf("failed to serialize data: %w", err))
	}

	k.logger.Debugf("Successfully serialized data to %d bytes of XTF data", len(binData))
	k.mSerialized.Incr(1)

	return service.MessageBatch{copyMeta(msg, service.NewMessage(binData))}, nil
}

// loadSchema returns the schema set at path, or the built-in set for an
// empty path.
func (k *XTFProcessor) loadSchema(path string) (*xtfschema.Set, error) {
	if path == "" {
		return xtfschema.Default(), nil
	}
	if cached, ok := k.schemaMap.Load(path); ok {
		k.logger.Tracef("Schema cache hit for path: %s", path)
		k.mCacheHits.Incr(1)
		return cached.(*xtfschema.Set), nil
	}

	k.logger.Debugf("Loading schema set from path: %s", path)
	k.mCacheMisses.Incr(1)

	set, err := xtfschema.LoadSetFile(path)
	if err != nil {
		return nil, err
	}
	k.schemaMap.Store(path, set)
	return set, nil
}

func copyMeta(from, to *service.Message) *service.Message {
	_ = from.MetaWalk(func(key, value string) error {
		to.MetaSet(key, value)
		return nil
	})
	return to
}

// Close the processor resources
func (k *XTFProcessor) Close(ctx context.Context) error {
	k.logger.Debug("Closing XTF processor and clearing schema cache")
	k.schemaMap.Clear()
	k.parser.ClearCache()
	return nil
}
