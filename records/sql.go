package records

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"reflect"

	"github.com/hugr-lab/recordfilter/filter"
)

// Query runs query on db and returns its rows as records keyed by column
// name.
func Query(ctx context.Context, db *sql.DB, query string, args ...any) ([]filter.Record, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return FromRows(rows)
}

// FromRows reads the remaining rows of rows into records. It does not close
// rows.
func FromRows(rows *sql.Rows) ([]filter.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	out := []filter.Record{}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(out), err)
		}
		rec := make(filter.Record, len(cols))
		for i, name := range cols {
			rec[name] = sqlValue(values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return out, nil
}

// sqlValue converts driver values the filter engine cannot compare into
// plain Go values. HUGEINT and DECIMAL become float64, nested lists, structs
// and maps are converted element-wise.
func sqlValue(v any) any {
	switch x := v.(type) {
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case interface{ Float64() float64 }:
		return x.Float64()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = sqlValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = sqlValue(e)
		}
		return out
	}

	// Driver-defined map types such as duckdb.Map.
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Map {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = sqlValue(iter.Value().Interface())
		}
		return out
	}
	return v
}
