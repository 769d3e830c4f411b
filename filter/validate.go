package filter

import (
	"strconv"
	"time"
)

// Issue describes a filter that will not constrain records the way its
// author probably intended. Evaluation never fails on such filters; they
// pass records instead.
type Issue struct {
	// Path locates the filter: its index in the set, followed by ".child"
	// for each level of nesting.
	Path    string `json:"path" yaml:"path" msgpack:"path"`
	Field   string `json:"field,omitempty" yaml:"field,omitempty" msgpack:"field,omitempty"`
	Type    Kind   `json:"type" yaml:"type" msgpack:"type"`
	Message string `json:"message" yaml:"message" msgpack:"message"`
}

// Validate reports the filters of fs that are ignored or only partially
// applied at evaluation time. An empty result means every filter
// constrains records as written.
func Validate(fs FilterSet) []Issue {
	var issues []Issue
	for i, f := range fs {
		issues = validate(f, strconv.Itoa(i), issues)
	}
	return issues
}

func validate(f Filter, path string, issues []Issue) []Issue {
	if f == nil {
		return append(issues, Issue{Path: path, Message: "filter is nil"})
	}
	add := func(msg string) {
		issues = append(issues, Issue{Path: path, Field: f.Field(), Type: f.Kind(), Message: msg})
	}

	if f.Field() == "" {
		add("field is empty; filter passes every record")
	}
	if !f.Kind().valueOptional() && !hasValue(f) {
		add("value is missing; filter passes every record")
		return issues
	}

	switch x := f.(type) {
	case *UnknownFilter:
		add("unknown filter type; filter passes every record")
	case *ChildFilter:
		if x.Child == nil {
			add("child filter is missing; filter passes every record")
			break
		}
		issues = validate(x.Child, path+".child", issues)
	case *DateRangeFilter:
		switch w := x.Window.(type) {
		case SymbolicWindow:
			switch w.Name {
			case RangeToday, RangeYesterday, Range7Days, RangeMonth, RangeLastMonth:
			default:
				add("unsupported date range " + strconv.Quote(w.Name) + "; filter passes every record")
			}
		case CustomWindow:
			if !parseable(w.From) || !parseable(w.Until) {
				add("custom date range bounds cannot be parsed; filter passes every record")
			}
		}
	case *DateTimeRangeFilter:
		if _, ok := x.Value.(Unconstrained); !ok && (!parseable(x.From) || !parseable(x.Until)) {
			add("date time range bounds cannot be parsed; filter passes every record")
		}
	case *ValueFilter:
		switch x.Kind() {
		case KindExistence, KindEmptiness:
			if _, ok := x.Value.(Unconstrained); !ok {
				if _, ok := soleBool(x.Value); !ok {
					add("flag is not a boolean; filter passes present fields")
				}
			}
		case KindMinDate, KindMaxDate:
			if s, ok := x.Value.(Scalar); ok && !parseable(s.V) {
				add("date value cannot be parsed; filter passes every record")
			}
		case KindArrayIncludes:
			if _, ok := x.Value.(ManyOf); ok {
				add("value is a list; use arrayIncludesArray or arrayIncludesArrayStrict")
			}
		}
	}
	return issues
}

func parseable(v any) bool {
	_, ok := toDate(v, time.UTC)
	return ok
}
