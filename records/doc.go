// Package records adapts columnar and SQL data sources to filter records.
//
// Arrow record batches convert row by row into filter.Record values keyed
// by column name. FilterRecordBatch applies a filter set to a batch and
// returns a batch with the same schema holding only the matching rows:
//
//	eval := filter.NewEvaluator(nil)
//	out, err := records.FilterRecordBatch(ctx, eval, fs, batch, true, memory.DefaultAllocator)
//	if err != nil {
//	    return err
//	}
//	defer out.Release()
//
// Query runs a SQL query through database/sql (DuckDB in this module's tools
// and tests) and returns its rows as records.
//
// Geometry columns tagged with the geoarrow.wkb extension are exposed as
// WKT strings, so string filters can search them ("POINT", "POLYGON").
package records
