package app

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	// DuckDB driver for --query.
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/spf13/cobra"

	"github.com/hugr-lab/recordfilter"
	"github.com/hugr-lab/recordfilter/filter"
	"github.com/hugr-lab/recordfilter/internal/serialize"
	"github.com/hugr-lab/recordfilter/records"
)

func newApplyCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a filter set to records",
		Long: `Apply a filter set to records and print the matching records.

Records are read from one of:
  --records  a JSON, YAML or MessagePack file ("-" reads standard input)
  --arrow    an Arrow IPC stream file
  --query    a DuckDB SQL query (on --duckdb, in-memory by default)

Matching records are printed as JSON, YAML or MessagePack, optionally
zstd-compressed. With --arrow-out, filtered
Arrow batches are written as an IPC stream instead.`,
		Example: `  recordfilter apply --filters filters.yaml --records users.json
  recordfilter apply --filters filters.json --query "SELECT * FROM 'users.parquet'"
  cat users.yaml | recordfilter apply --filters f.json --records - --format yaml`,
		RunE: c.runApply,
	}

	f := cmd.Flags()
	f.String("filters", "", "Filter set file (.json, .yaml, .yml, .msgpack, optionally .zst)")
	f.String("records", "", "Records file, or - for standard input")
	f.String("format", "", "Records format, overriding the file extension (json, yaml, msgpack, +zstd)")
	f.String("arrow", "", "Arrow IPC stream file to filter")
	f.String("arrow-out", "", "Write filtered Arrow batches to this IPC stream file")
	f.String("query", "", "DuckDB SQL query whose rows are filtered")
	f.String("duckdb", "", "DuckDB database path for --query (default: in-memory)")
	f.String("output", "json", "Output format of matching records (json, yaml, msgpack, optionally +zstd)")
	addEngineFlags(cmd)

	_ = cmd.MarkFlagRequired("filters")
	cmd.MarkFlagsOneRequired("records", "arrow", "query")
	cmd.MarkFlagsMutuallyExclusive("records", "arrow", "query")
	return cmd
}

func (c *cli) runApply(cmd *cobra.Command, _ []string) error {
	config, err := c.engineConfig()
	if err != nil {
		return err
	}
	engine, err := recordfilter.New(config)
	if err != nil {
		return err
	}
	defer engine.Close()

	fs, err := loadFilterSet(engine, c.v.GetString("filters"))
	if err != nil {
		return err
	}
	c.logger.Debug("Loaded filter set", "filters", len(fs))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var matched []filter.Record
	switch {
	case c.v.GetString("arrow") != "":
		matched, err = c.applyArrow(ctx, engine, fs)
		if err != nil || matched == nil {
			return err
		}
	case c.v.GetString("query") != "":
		matched, err = c.applyQuery(ctx, engine, fs)
	default:
		matched, err = c.applyRecords(cmd.InOrStdin(), engine, fs)
	}
	if err != nil {
		return err
	}

	c.logger.Info("Applied filters", "filters", len(fs), "matched", len(matched))
	return writeEncoded(cmd.OutOrStdout(), c.v.GetString("output"), matched, engine.Encode)
}

// loadFilterSet reads a filter set file and decodes it within the engine
// payload limit.
func loadFilterSet(engine *recordfilter.Engine, path string) (filter.FilterSet, error) {
	format, err := recordfilter.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter set: %w", err)
	}
	return engine.DecodeFilterSet(data, format)
}

func (c *cli) applyRecords(stdin io.Reader, engine *recordfilter.Engine, fs filter.FilterSet) ([]filter.Record, error) {
	path := c.v.GetString("records")

	var (
		format recordfilter.Format
		err    error
	)
	if name := c.v.GetString("format"); name != "" || path == "-" {
		format, err = recordfilter.ParseFormat(name)
	} else {
		format, err = recordfilter.FormatFromPath(path)
	}
	if err != nil {
		return nil, err
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(bufio.NewReader(stdin))
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	collection, err := engine.DecodeCollection(data, format)
	if err != nil {
		return nil, err
	}
	return engine.Apply(fs, collection), nil
}

func (c *cli) applyQuery(ctx context.Context, engine *recordfilter.Engine, fs filter.FilterSet) ([]filter.Record, error) {
	db, err := sql.Open("duckdb", c.v.GetString("duckdb"))
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer db.Close()

	return engine.ApplyQuery(ctx, fs, db, c.v.GetString("query"))
}

// applyArrow filters an Arrow IPC stream file. When --arrow-out is set the
// filtered batches are written there and nil records are returned.
func (c *cli) applyArrow(ctx context.Context, engine *recordfilter.Engine, fs filter.FilterSet) ([]filter.Record, error) {
	mem := memory.DefaultAllocator

	in, err := os.Open(c.v.GetString("arrow"))
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow stream: %w", err)
	}
	defer in.Close()

	schema, batches, err := serialize.ReadBatches(in, mem)
	if err != nil {
		return nil, err
	}
	defer releaseAll(batches)

	filtered := make([]arrow.RecordBatch, 0, len(batches))
	defer func() { releaseAll(filtered) }()
	var rows int64
	for _, batch := range batches {
		out, err := engine.ApplyRecordBatch(ctx, fs, batch, mem)
		if err != nil {
			return nil, err
		}
		rows += out.NumRows()
		filtered = append(filtered, out)
	}

	if path := c.v.GetString("arrow-out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create arrow output: %w", err)
		}
		defer f.Close()
		if err := serialize.WriteBatches(f, schema, filtered, mem); err != nil {
			return nil, err
		}
		c.logger.Info("Wrote filtered batches", "path", path, "batches", len(filtered), "rows", rows)
		return nil, f.Close()
	}

	matched := make([]filter.Record, 0, rows)
	for _, out := range filtered {
		recs, err := records.FromRecordBatch(out)
		if err != nil {
			return nil, err
		}
		matched = append(matched, recs...)
	}
	return matched, nil
}

func releaseAll(batches []arrow.RecordBatch) {
	for _, b := range batches {
		b.Release()
	}
}
