package filter

// Kind identifies a filter type.
type Kind string

const (
	KindChildAttr                Kind = "childAttr"
	KindChildArrayAttr           Kind = "childArrayAttr"
	KindExistence                Kind = "existence"
	KindString                   Kind = "string"
	KindArray                    Kind = "array"
	KindMinDate                  Kind = "minDate"
	KindMaxDate                  Kind = "maxDate"
	KindDateRange                Kind = "dateRange"
	KindDateTimeRange            Kind = "dateTimeRange"
	KindMinNum                   Kind = "minNum"
	KindMinNumber                Kind = "minNumber"
	KindMaxNumber                Kind = "maxNumber"
	KindMaxNum                   Kind = "maxNum"
	KindStrict                   Kind = "strict"
	KindLaxTrue                  Kind = "laxTrue"
	KindLaxFalse                 Kind = "laxFalse"
	KindEmptiness                Kind = "emptiness"
	KindLax                      Kind = "lax"
	KindArrayIncludes            Kind = "arrayIncludes"
	KindArrayIncludesArray       Kind = "arrayIncludesArray"
	KindArrayIncludesArrayStrict Kind = "arrayIncludesArrayStrict"
)

var kinds = []Kind{
	KindChildAttr,
	KindChildArrayAttr,
	KindExistence,
	KindString,
	KindArray,
	KindMinDate,
	KindMaxDate,
	KindDateRange,
	KindDateTimeRange,
	KindMinNum,
	KindMinNumber,
	KindMaxNumber,
	KindMaxNum,
	KindStrict,
	KindLaxTrue,
	KindLaxFalse,
	KindEmptiness,
	KindLax,
	KindArrayIncludes,
	KindArrayIncludesArray,
	KindArrayIncludesArrayStrict,
}

// Kinds returns every recognized filter type, in a stable order.
// The returned slice is a copy and may be modified by the caller.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// Known reports whether k is one of the recognized filter types.
func (k Kind) Known() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// valueOptional reports whether a filter of kind k is evaluated even when
// it carries no value.
func (k Kind) valueOptional() bool {
	switch k {
	case KindLaxTrue, KindLaxFalse, KindChildAttr, KindChildArrayAttr:
		return true
	}
	return false
}

// Filter is the interface implemented by all filter variants.
// Use type switches to access variant payloads.
type Filter interface {
	// Kind returns the filter type.
	Kind() Kind

	// Field returns the record attribute the filter tests.
	// An empty field makes the filter pass every record.
	Field() string

	// filterMarker is a marker method to prevent external implementation.
	filterMarker()
}

// BaseFilter contains the fields shared by all filter variants.
type BaseFilter struct {
	FilterKind Kind
	FieldName  string
}

// Kind returns the filter type.
func (b *BaseFilter) Kind() Kind { return b.FilterKind }

// Field returns the tested record attribute.
func (b *BaseFilter) Field() string { return b.FieldName }

func (b *BaseFilter) filterMarker() {}

// ValueFilter compares a record field against a value.
// Used by string, array, arrayIncludes*, minDate, maxDate, min/max number,
// strict, lax, existence and emptiness filters.
type ValueFilter struct {
	BaseFilter
	Value Value
}

// TruthFilter tests a record field for truthiness (laxTrue, laxFalse).
type TruthFilter struct {
	BaseFilter
}

// DateRangeFilter tests a record date against a symbolic or custom window.
// A nil Window means the filter carries no value.
type DateRangeFilter struct {
	BaseFilter
	Window DateWindow
}

// DateTimeRangeFilter tests a record date against explicit instants.
type DateTimeRangeFilter struct {
	BaseFilter
	Value Value
	From  any
	Until any
}

// ChildFilter applies Child to a nested record (childAttr) or to each
// element of a nested record list (childArrayAttr).
// Child is nil when the definition had no nested filter.
type ChildFilter struct {
	BaseFilter
	Child Filter
}

// UnknownFilter carries a filter type that is not recognized.
// It passes every record. Value is nil when the definition had no value.
type UnknownFilter struct {
	BaseFilter
	Value Value
}

// FilterSet is an ordered list of filters combined with logical AND.
type FilterSet []Filter

// DateWindow is the interface implemented by date range window variants.
type DateWindow interface {
	windowMarker()
}

// Symbolic date range keywords.
const (
	RangeToday     = "today"
	RangeYesterday = "yesterday"
	Range7Days     = "7days"
	RangeMonth     = "month"
	RangeLastMonth = "last_month"
	RangeCustom    = "custom"
)

// SymbolicWindow is a date window named by a keyword such as "today".
// Unsupported keywords are kept so they can be reported at evaluation time.
type SymbolicWindow struct {
	Name string
}

// CustomWindow is a window between two caller-supplied dates.
// Until is widened to the end of its calendar day.
type CustomWindow struct {
	From  any
	Until any
}

// AnyWindow disables the date constraint.
type AnyWindow struct{}

func (SymbolicWindow) windowMarker() {}
func (CustomWindow) windowMarker()   {}
func (AnyWindow) windowMarker()      {}
