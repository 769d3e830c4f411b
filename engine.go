package recordfilter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/recordfilter/filter"
	"github.com/hugr-lab/recordfilter/internal/serialize"
	"github.com/hugr-lab/recordfilter/records"
)

// Engine applies filter sets to records with a fixed configuration.
// An Engine is safe for concurrent use.
type Engine struct {
	evaluator     *filter.Evaluator
	logger        *slog.Logger
	skipUndefined bool
	decompressor  *serialize.Decompressor
	compressor    *serialize.Compressor
}

// New creates an Engine from config.
//
// Returns ErrInvalidConfig if LogLevel is outside the standard slog levels.
// The caller should call Close to release the payload codecs.
func New(config Config) (*Engine, error) {
	if err := validateLevel(config.LogLevel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	logger := newLogger(config.Logger, config.LogLevel)
	skipUndefined := true
	if config.SkipUndefined != nil {
		skipUndefined = *config.SkipUndefined
	}
	maxSize := config.MaxPayloadSize
	if maxSize == 0 {
		maxSize = DefaultMaxPayloadSize
	}

	decompressor, err := serialize.NewDecompressor(maxSize)
	if err != nil {
		return nil, err
	}
	compressor, err := serialize.NewCompressor()
	if err != nil {
		decompressor.Close()
		return nil, err
	}

	return &Engine{
		evaluator: filter.NewEvaluator(&filter.EvaluatorOptions{
			Logger:   logger,
			Now:      config.Now,
			Location: config.Location,
		}),
		logger:        logger,
		skipUndefined: skipUndefined,
		decompressor:  decompressor,
		compressor:    compressor,
	}, nil
}

// Close releases engine resources.
func (e *Engine) Close() {
	e.decompressor.Close()
	if err := e.compressor.Close(); err != nil {
		e.logger.Warn("Failed to close compressor", "error", err)
	}
}

// Evaluator returns the evaluator used by the engine.
func (e *Engine) Evaluator() *filter.Evaluator { return e.evaluator }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// SkipUndefined returns the configured missing-field disposition.
func (e *Engine) SkipUndefined() bool { return e.skipUndefined }

// Apply returns the records of c that pass every filter of fs, in input order.
func (e *Engine) Apply(fs filter.FilterSet, c filter.Collection) []filter.Record {
	return e.evaluator.Apply(fs, c, e.skipUndefined)
}

// Validate reports the filters of fs that evaluation would ignore.
func (e *Engine) Validate(fs filter.FilterSet) []filter.Issue {
	return filter.Validate(fs)
}

// ApplyPayload decodes a filter set and a record collection encoded in
// format and applies the filters.
func (e *Engine) ApplyPayload(filters, recs []byte, format Format) ([]filter.Record, error) {
	fs, err := e.DecodeFilterSet(filters, format)
	if err != nil {
		return nil, err
	}
	c, err := e.DecodeCollection(recs, format)
	if err != nil {
		return nil, err
	}
	return e.Apply(fs, c), nil
}

// DecodeCollection is DecodeCollection bounded by the engine payload limit.
func (e *Engine) DecodeCollection(data []byte, format Format) (filter.Collection, error) {
	return decodeCollection(data, format, e.decompressor.Decompress)
}

// Encode is Encode with the engine's reusable compressor.
func (e *Engine) Encode(v any, format Format) ([]byte, error) {
	return encode(v, format, func(data []byte) ([]byte, error) {
		return e.compressor.Compress(data), nil
	})
}

// DecodeFilterSet is DecodeFilterSet bounded by the engine payload limit.
func (e *Engine) DecodeFilterSet(data []byte, format Format) (filter.FilterSet, error) {
	defs, err := decodeDefinitions(data, format, e.decompressor.Decompress)
	if err != nil {
		return nil, err
	}
	return filter.BuildAll(defs), nil
}

// ApplyRecordBatch returns the rows of batch that pass every filter, with
// the batch schema. The caller must release the returned batch.
func (e *Engine) ApplyRecordBatch(ctx context.Context, fs filter.FilterSet, batch arrow.RecordBatch, mem memory.Allocator) (arrow.RecordBatch, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return records.FilterRecordBatch(ctx, e.evaluator, fs, batch, e.skipUndefined, mem)
}

// ApplyQuery runs query on db and returns the result rows that pass every
// filter. Column names are the record fields.
func (e *Engine) ApplyQuery(ctx context.Context, fs filter.FilterSet, db *sql.DB, query string, args ...any) ([]filter.Record, error) {
	rows, err := records.Query(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("query returned rows", "rows", len(rows))
	return e.Apply(fs, filter.Records(rows)), nil
}
