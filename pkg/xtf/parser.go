package xtf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/twinfer/xtf-plugin/pkg/record"
	"github.com/twinfer/xtf-plugin/pkg/xtfschema"
)

// Parser decodes XTF buffers. It is safe for concurrent use; every Parse
// call works on its own state.
type Parser struct {
	schemaCache map[string]*xtfschema.Set
	cacheMutex  sync.RWMutex
	logger      *slog.Logger
	options     options
}

type options struct {
	logger          *slog.Logger
	set             *xtfschema.Set
	schemaPath      string
	magic           uint16
	validator       PingValidator
	headerTypeCheck bool
	concurrency     int
}

// Option configures a Parser or a single call.
type Option func(*options)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSchemaSet replaces the embedded XTF schema set.
func WithSchemaSet(set *xtfschema.Set) Option {
	return func(o *options) {
		o.set = set
	}
}

// WithSchemaPath loads the schema set from a YAML file. Loaded sets are
// cached per parser by path.
func WithSchemaPath(path string) Option {
	return func(o *options) {
		o.schemaPath = path
	}
}

// WithMagic overrides the ping magic number.
func WithMagic(magic uint16) Option {
	return func(o *options) {
		o.magic = magic
	}
}

// WithPingValidator rejects magic number matches that fail v.
func WithPingValidator(v PingValidator) Option {
	return func(o *options) {
		o.validator = v
	}
}

// WithHeaderTypeCheck only accepts magic number matches followed by a
// HeaderType byte of zero.
func WithHeaderTypeCheck(enabled bool) Option {
	return func(o *options) {
		o.headerTypeCheck = enabled
	}
}

// WithConcurrency decodes the channel headers of up to n pings in parallel
// once ping boundaries are known. n <= 1 keeps everything sequential.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

func defaultOptions() options {
	return options{
		logger:      slog.Default(),
		magic:       MagicNumber,
		concurrency: 1,
	}
}

// NewParser creates a new parser instance with the given options.
func NewParser(opts ...Option) *Parser {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Parser{
		schemaCache: make(map[string]*xtfschema.Set),
		logger:      o.logger,
		options:     o,
	}
}

// Parse decodes buf. Per-field failures are kept on the records; only
// schema defects and cancellation are returned as errors.
func (p *Parser) Parse(ctx context.Context, buf []byte, opts ...Option) (*File, error) {
	o := p.options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = p.logger
	}

	set, err := p.resolveSet(o)
	if err != nil {
		return nil, fmt.Errorf("loading schema set: %w", err)
	}

	validator := o.validator
	if o.headerTypeCheck {
		validator = AllValidators(HeaderTypeValidator(0), o.validator)
	}

	run := &pipeline{
		set:        set,
		buf:        buf,
		reader:     record.NewReader(buf),
		decoder:    record.NewDecoder(record.WithLogger(logger)),
		scanner:    NewScanner(o.magic, validator),
		logger:     logger,
		deferChans: o.concurrency > 1,
	}

	file, err := run.execute(ctx)
	if err != nil {
		return nil, err
	}
	if run.deferChans {
		if err := run.decodeChannelsConcurrently(ctx, file, o.concurrency); err != nil {
			return nil, err
		}
	}

	for _, u := range file.Unreadable() {
		logger.WarnContext(ctx, "Record has unreadable fields", "record", u.Record, "offset", u.Offset, "fields", u.Fields)
	}
	logger.InfoContext(ctx, "Decoded XTF buffer", "bytes", len(buf), "channels", len(file.Channels), "pings", file.PingCount())
	return file, nil
}

// ParseFile reads the whole file at path and parses it.
func (p *Parser) ParseFile(ctx context.Context, path string, opts ...Option) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading XTF file: %w", err)
	}
	return p.Parse(ctx, data, opts...)
}

func (p *Parser) resolveSet(o options) (*xtfschema.Set, error) {
	if o.schemaPath != "" {
		return p.loadSchema(o.schemaPath)
	}
	if o.set != nil {
		return o.set, nil
	}
	return xtfschema.Default(), nil
}

// loadSchema loads a schema set from disk with caching.
func (p *Parser) loadSchema(path string) (*xtfschema.Set, error) {
	p.cacheMutex.RLock()
	cached, exists := p.schemaCache[path]
	p.cacheMutex.RUnlock()
	if exists {
		return cached, nil
	}

	set, err := xtfschema.LoadSetFile(path)
	if err != nil {
		return nil, err
	}

	p.cacheMutex.Lock()
	p.schemaCache[path] = set
	p.cacheMutex.Unlock()
	return set, nil
}

// ClearCache clears the schema set cache.
func (p *Parser) ClearCache() {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	p.schemaCache = make(map[string]*xtfschema.Set)
}

// ValidateSchema loads a schema set file without parsing any data.
func (p *Parser) ValidateSchema(path string) error {
	_, err := p.loadSchema(path)
	return err
}
