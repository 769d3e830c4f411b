package filter

import (
	"log/slog"
	"strings"
	"time"
)

// EvaluatorOptions configures an Evaluator.
type EvaluatorOptions struct {
	// Logger receives warnings for ignored filters and errors for
	// unsupported date ranges. Uses slog.Default() if nil.
	Logger *slog.Logger

	// Now returns the current time used to anchor symbolic date ranges.
	// Uses time.Now if nil.
	Now func() time.Time

	// Location is the time zone of "local midnight" and of date strings
	// without an offset. Uses time.Local if nil.
	Location *time.Location
}

// Evaluator applies filters to records.
// An Evaluator holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

// NewEvaluator creates an Evaluator. If opts is nil, defaults are used.
func NewEvaluator(opts *EvaluatorOptions) *Evaluator {
	if opts == nil {
		opts = &EvaluatorOptions{}
	}
	e := &Evaluator{
		logger: opts.Logger,
		now:    opts.Now,
		loc:    opts.Location,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	return e
}

// Apply returns the records of c that pass every filter, in input order,
// using the default Evaluator. Records missing a filtered field pass.
func Apply(filters FilterSet, c Collection) []Record {
	return NewEvaluator(nil).Apply(filters, c, true)
}

// Apply returns the records of c that pass every filter, in input order.
// skipUndefined decides whether a record missing a filtered field passes.
// An empty filter set matches every record.
func (e *Evaluator) Apply(filters FilterSet, c Collection, skipUndefined bool) []Record {
	if c == nil {
		return []Record{}
	}
	return e.applyRecords(filters, c.Records(), skipUndefined)
}

func (e *Evaluator) applyRecords(filters FilterSet, recs []Record, skipUndefined bool) []Record {
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if e.Match(filters, rec, skipUndefined) {
			out = append(out, rec)
		}
	}
	return out
}

// Match reports whether rec passes every filter, stopping at the first
// failing one.
func (e *Evaluator) Match(filters FilterSet, rec Record, skipUndefined bool) bool {
	for _, f := range filters {
		if !e.Check(f, rec, skipUndefined) {
			return false
		}
	}
	return true
}

// Check reports whether rec is not excluded by f.
func (e *Evaluator) Check(f Filter, rec Record, skipUndefined bool) bool {
	if f == nil || f.Field() == "" {
		return true
	}
	if !f.Kind().valueOptional() && !hasValue(f) {
		return true
	}

	value, present := rec[f.Field()]
	if !present {
		if vf, ok := f.(*ValueFilter); ok {
			switch vf.Kind() {
			case KindExistence:
				flag, ok := soleElement(vf.Value)
				return !ok || flag != true
			case KindEmptiness:
				// An absent field is empty: the resolved flag is the result.
				if flag, ok := soleElement(vf.Value); ok {
					return truthy(flag)
				}
				return true
			}
		}
		return skipUndefined
	}

	switch x := f.(type) {
	case *ValueFilter:
		return e.checkValue(x, value)
	case *TruthFilter:
		if x.Kind() == KindLaxFalse {
			return !truthy(value)
		}
		return truthy(value)
	case *DateRangeFilter:
		w, ok := e.ResolveDateRange(x)
		if !ok {
			return true
		}
		t, ok := toDate(value, e.loc)
		return ok && w.Contains(t)
	case *DateTimeRangeFilter:
		w, ok := e.ResolveDateTimeRange(x)
		if !ok {
			return true
		}
		t, ok := toDate(value, e.loc)
		return ok && w.Contains(t)
	case *ChildFilter:
		return e.checkChild(x, value, skipUndefined)
	case *UnknownFilter:
		e.logger.Warn("Filter type not implemented, ignoring filter",
			"field", x.Field(),
			"type", string(x.Kind()),
		)
		return true
	}
	return true
}

// hasValue reports whether a filter carries a value.
func hasValue(f Filter) bool {
	switch x := f.(type) {
	case *ValueFilter:
		return x.Value != nil
	case *DateRangeFilter:
		return x.Window != nil
	case *DateTimeRangeFilter:
		return x.Value != nil
	case *UnknownFilter:
		return x.Value != nil
	}
	return false
}

// checkValue evaluates value-carrying filter kinds against a present
// record value.
func (e *Evaluator) checkValue(f *ValueFilter, value any) bool {
	if _, ok := f.Value.(Unconstrained); ok {
		return true
	}

	switch f.Kind() {
	case KindString:
		var needle string
		switch v := f.Value.(type) {
		case Scalar:
			needle = stringify(v.V)
		case ManyOf:
			needle = stringify(v.Vs)
		}
		return strings.Contains(strings.ToLower(stringify(value)), strings.ToLower(needle))

	case KindArray:
		return contains(listOf(f.Value), value)

	case KindArrayIncludes:
		s, ok := f.Value.(Scalar)
		if !ok {
			return false
		}
		return includes(value, s.V)

	case KindArrayIncludesArray:
		for _, want := range listOf(f.Value) {
			if includes(value, want) {
				return true
			}
		}
		return false

	case KindArrayIncludesArrayStrict:
		for _, want := range listOf(f.Value) {
			if !includes(value, want) {
				return false
			}
		}
		return true

	case KindMinDate, KindMaxDate:
		s, ok := f.Value.(Scalar)
		if !ok {
			return true
		}
		bound, ok := toDate(s.V, e.loc)
		if !ok {
			return true
		}
		t, ok := toDate(value, e.loc)
		if !ok {
			return true
		}
		if f.Kind() == KindMinDate {
			return !bound.After(t)
		}
		return !bound.Before(t)

	case KindMinNum, KindMinNumber:
		s, ok := f.Value.(Scalar)
		if !ok {
			return true
		}
		return !less(value, s.V)

	case KindMaxNum, KindMaxNumber:
		s, ok := f.Value.(Scalar)
		if !ok {
			return true
		}
		return !less(s.V, value)

	case KindStrict:
		s, ok := f.Value.(Scalar)
		return ok && strictEqual(value, s.V)

	case KindLax:
		s, ok := f.Value.(Scalar)
		return ok && laxEqual(value, s.V, e.loc)

	case KindExistence:
		flag, ok := soleBool(f.Value)
		if !ok {
			return true
		}
		if flag {
			return value != ""
		}
		return value == nil || value == ""

	case KindEmptiness:
		flag, ok := soleBool(f.Value)
		if !ok {
			return true
		}
		return isEmpty(value) == flag
	}
	return true
}

// soleBool returns the flag of an existence or emptiness filter when it is
// a boolean.
func soleBool(v Value) (bool, bool) {
	flag, ok := soleElement(v)
	if !ok {
		return false, false
	}
	b, ok := flag.(bool)
	return b, ok
}

// contains reports whether list holds an element strictly equal to v.
func contains(list []any, v any) bool {
	for _, e := range list {
		if strictEqual(e, v) {
			return true
		}
	}
	return false
}

// includes reports whether the record value holds want: list values are
// searched for a strictly equal element, string values for a substring.
func includes(value any, want any) bool {
	if s, ok := value.(string); ok {
		return strings.Contains(s, stringify(want))
	}
	list, ok := asList(value)
	if !ok {
		return false
	}
	return contains(list, want)
}
