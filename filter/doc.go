// Package filter evaluates declarative filter criteria against collections
// of records.
//
// A filter set is an ordered list of criteria combined with AND semantics.
// Each criterion names a record field, a filter type and usually a value:
//
//	fs, err := filter.Parse([]byte(`[
//	    {"field": "name", "type": "string", "value": "app"},
//	    {"field": "tags", "type": "arrayIncludes", "value": "fruit"}
//	]`))
//	if err != nil {
//	    return err // malformed JSON
//	}
//	matched := filter.Apply(fs, filter.Records(records))
//
// # Filter Types
//
// Filters are a closed set of variants. Use a type switch to inspect them:
//
//	switch f := f.(type) {
//	case *filter.ValueFilter:
//	    // string, array, arrayIncludes*, min/max date and number,
//	    // strict, lax, existence, emptiness
//	case *filter.TruthFilter:
//	    // laxTrue, laxFalse
//	case *filter.DateRangeFilter, *filter.DateTimeRangeFilter:
//	    // calendar windows and explicit instants
//	case *filter.ChildFilter:
//	    // childAttr, childArrayAttr
//	case *filter.UnknownFilter:
//	    // ignored at evaluation time with a warning
//	}
//
// Kinds lists every recognized filter type.
//
// # Fail Open
//
// Evaluation never returns errors. A misconfigured filter passes every
// record: unknown types and child filters without a child are logged as
// warnings, unsupported date range keywords as errors, and unparseable
// custom bounds are skipped silently. The "_any" value disables a filter.
//
// # Missing Fields
//
// A record without the filtered field passes when skipUndefined is true
// (the default of Apply) and is excluded otherwise. existence and emptiness
// filters decide missing fields from their own flag.
//
// # Time
//
// Symbolic date ranges (today, yesterday, 7days, month, last_month) are
// anchored to local midnight of the evaluator's clock. Configure the clock
// and time zone with EvaluatorOptions.
package filter
