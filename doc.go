// Package recordfilter provides a declarative record-filtering engine and an
// Apache Arrow Flight service built on it.
//
// A filter set is an ordered list of criteria (field, type, value) combined
// with logical AND. Applying it to a collection of records returns the
// records that satisfy every criterion, in input order. Malformed or
// unknown criteria never fail the evaluation: they are logged and pass
// records through.
//
// The recordfilter package wraps the core filter package with:
//   - An Engine holding the logger, time zone and missing-field disposition
//   - Payload decoding from JSON, YAML and MessagePack, optionally
//     zstd-compressed
//   - Filtering of Arrow record batches and SQL query results
//   - Flight service registration on an existing grpc.Server
//
// # Quick Start
//
//	engine, err := recordfilter.New(recordfilter.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	fs, _ := recordfilter.DecodeFilterSet([]byte(`[
//	    {"field": "name", "type": "string", "value": "ali"},
//	    {"field": "created", "type": "dateRange", "value": "7days"}
//	]`), recordfilter.FormatJSON)
//
//	matched := engine.Apply(fs, filter.Records{
//	    {"name": "Alice", "created": "2024-03-14"},
//	    {"name": "Bob", "created": "2024-03-14"},
//	})
//
// # Filter Files
//
// LoadFilterSet reads .json, .yaml, .yml and .msgpack files, optionally
// compressed with zstd (.json.zst):
//
//	- field: status
//	  type: array
//	  value: [active, pending]
//	- field: owner
//	  type: childAttr
//	  data:
//	    child: {field: country, type: strict, value: NL}
//
// # Flight Service
//
// The package registers Flight service handlers on a user-provided
// grpc.Server but does NOT manage server lifecycle (start/stop/listen).
// Clients stream Arrow record batches through DoExchange with the filter
// command in the flight descriptor and receive the matching rows:
//
//	grpcServer := grpc.NewServer(recordfilter.ServerOptions(config)...)
//	recordfilter.NewServer(grpcServer, config)
//
// # Logging
//
// The package logs through the injected *slog.Logger, or slog.Default()
// when none is configured. Filter warnings never affect results.
//
// # Memory Management
//
// Arrow uses manual reference counting. Callers MUST call Release() on
// record batches returned by ApplyRecordBatch.
package recordfilter
