package records

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/recordfilter/filter"
)

// ctxCheckInterval is the number of rows evaluated between context checks.
const ctxCheckInterval = 4096

// FromRecordBatch converts every row of batch into a record keyed by column
// name. Null values are present in the record as nil.
//
// Column values convert as follows:
//   - booleans, integers and floats keep their Go type
//   - strings and binaries become string and []byte
//   - dates and timestamps become time.Time (UTC)
//   - decimals become float64
//   - lists become []any and structs become map[string]any
//   - dictionary columns yield their dictionary value
//   - geometry columns (geoarrow.wkb) become WKT strings
//   - anything else uses the Arrow string representation
func FromRecordBatch(batch arrow.RecordBatch) ([]filter.Record, error) {
	n := int(batch.NumRows())
	out := make([]filter.Record, n)
	for i := range out {
		out[i] = make(filter.Record, batch.NumCols())
	}

	schema := batch.Schema()
	for j, col := range batch.Columns() {
		field := schema.Field(j)
		geometry := IsGeometryField(field)
		for i := 0; i < n; i++ {
			v, err := valueAt(col, i)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", field.Name, i, err)
			}
			if geometry && v != nil {
				b, ok := v.([]byte)
				if !ok {
					return nil, fmt.Errorf("column %q row %d: geometry column is not binary", field.Name, i)
				}
				if v, err = GeometryWKT(b); err != nil {
					return nil, fmt.Errorf("column %q row %d: %w", field.Name, i, err)
				}
			}
			out[i][field.Name] = v
		}
	}
	return out, nil
}

// valueAt returns the Go value of arr at row i.
func valueAt(arr arrow.Array, i int) (any, error) {
	if arr.IsNull(i) {
		return nil, nil
	}

	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Int8:
		return a.Value(i), nil
	case *array.Int16:
		return a.Value(i), nil
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return a.Value(i), nil
	case *array.Uint16:
		return a.Value(i), nil
	case *array.Uint32:
		return a.Value(i), nil
	case *array.Uint64:
		return a.Value(i), nil
	case *array.Float32:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.StringView:
		return a.Value(i), nil
	case *array.Binary:
		return cloneBytes(a.Value(i)), nil
	case *array.LargeBinary:
		return cloneBytes(a.Value(i)), nil
	case *array.Date32:
		return a.Value(i).ToTime().UTC(), nil
	case *array.Date64:
		return a.Value(i).ToTime().UTC(), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC(), nil
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		return a.Value(i).ToFloat64(scale), nil
	case *array.List:
		start, end := a.ValueOffsets(i)
		return listValues(a.ListValues(), start, end)
	case *array.LargeList:
		start, end := a.ValueOffsets(i)
		return listValues(a.ListValues(), start, end)
	case *array.Struct:
		st := a.DataType().(*arrow.StructType)
		m := make(map[string]any, a.NumField())
		for j := 0; j < a.NumField(); j++ {
			v, err := valueAt(a.Field(j), i)
			if err != nil {
				return nil, err
			}
			m[st.Field(j).Name] = v
		}
		return m, nil
	case *array.Dictionary:
		return valueAt(a.Dictionary(), a.GetValueIndex(i))
	case array.ExtensionArray:
		return valueAt(a.Storage(), i)
	}
	return arr.ValueStr(i), nil
}

func listValues(values arrow.Array, start, end int64) ([]any, error) {
	out := make([]any, 0, end-start)
	for k := start; k < end; k++ {
		v, err := valueAt(values, int(k))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// FilterRecordBatch returns a batch with the schema of batch holding only
// the rows that pass every filter, in their original order. The caller owns
// the returned batch and must release it.
func FilterRecordBatch(
	ctx context.Context,
	eval *filter.Evaluator,
	fs filter.FilterSet,
	batch arrow.RecordBatch,
	skipUndefined bool,
	mem memory.Allocator,
) (arrow.RecordBatch, error) {
	rows, err := FromRecordBatch(batch)
	if err != nil {
		return nil, err
	}

	var ranges [][2]int64
	start := int64(-1)
	for i, rec := range rows {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := int64(i)
		if eval.Match(fs, rec, skipUndefined) {
			if start < 0 {
				start = row
			}
			continue
		}
		if start >= 0 {
			ranges = append(ranges, [2]int64{start, row})
			start = -1
		}
	}
	if start >= 0 {
		ranges = append(ranges, [2]int64{start, int64(len(rows))})
	}

	return selectRanges(batch, ranges, mem)
}

// selectRanges concatenates the [start, end) row ranges of batch.
func selectRanges(batch arrow.RecordBatch, ranges [][2]int64, mem memory.Allocator) (arrow.RecordBatch, error) {
	switch len(ranges) {
	case 0:
		return batch.NewSlice(0, 0), nil
	case 1:
		if ranges[0][0] == 0 && ranges[0][1] == batch.NumRows() {
			batch.Retain()
			return batch, nil
		}
		return batch.NewSlice(ranges[0][0], ranges[0][1]), nil
	}

	var total int64
	for _, r := range ranges {
		total += r[1] - r[0]
	}

	cols := make([]arrow.Array, 0, batch.NumCols())
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	for _, col := range batch.Columns() {
		parts := make([]arrow.Array, len(ranges))
		for k, r := range ranges {
			parts[k] = array.NewSlice(col, r[0], r[1])
		}
		merged, err := array.Concatenate(parts, mem)
		for _, p := range parts {
			p.Release()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to concatenate column: %w", err)
		}
		cols = append(cols, merged)
	}

	return array.NewRecordBatch(batch.Schema(), cols, total), nil
}
