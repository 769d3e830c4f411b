package filter

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// numberOf converts Go numeric kinds to float64.
func numberOf(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

// toNumber converts a value to a number for ordering and lax equality.
// Booleans are 0 or 1, nil is 0, numeric strings are parsed and times are
// Unix milliseconds.
func toNumber(v any) (float64, bool) {
	if f, ok := numberOf(v); ok {
		return f, !math.IsNaN(f)
	}
	switch x := v.(type) {
	case nil:
		return 0, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case time.Time:
		return float64(x.UnixMilli()), true
	}
	return 0, false
}

// truthy reports whether v counts as true: false, nil, zero, NaN and the
// empty string are falsy, everything else is truthy.
func truthy(v any) bool {
	if f, ok := numberOf(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	return true
}

// isEmpty reports whether v is nil, the empty string or a zero-length list.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	if list, ok := asList(v); ok {
		return len(list) == 0
	}
	return false
}

// strictEqual compares values without coercion. All numeric kinds compare
// by value, times by instant. Lists and maps never equal anything.
func strictEqual(a, b any) bool {
	if fa, ok := numberOf(a); ok {
		fb, ok := numberOf(b)
		return ok && fa == fb
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	if a == nil || b == nil {
		return false
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// laxEqual compares values with coercion: nil equals only nil, numbers and
// numeric strings compare numerically, booleans compare as 0 or 1, and
// times compare with date strings and Unix milliseconds. Date strings
// without an offset are read in loc.
func laxEqual(a, b any, loc *time.Location) bool {
	if strictEqual(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if ta, ok := a.(time.Time); ok {
		return laxEqualTime(ta, b, loc)
	}
	if tb, ok := b.(time.Time); ok {
		return laxEqualTime(tb, a, loc)
	}
	if !isScalar(a) || !isScalar(b) {
		return false
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aStr && bStr {
		return false
	}
	fa, ok := toNumber(a)
	if !ok {
		return false
	}
	fb, ok := toNumber(b)
	return ok && fa == fb
}

func laxEqualTime(t time.Time, other any, loc *time.Location) bool {
	switch x := other.(type) {
	case string:
		o, ok := parseDate(x, loc)
		return ok && t.Equal(o)
	}
	if f, ok := numberOf(other); ok {
		return float64(t.UnixMilli()) == f
	}
	return false
}

func isScalar(v any) bool {
	if _, ok := numberOf(v); ok {
		return true
	}
	switch v.(type) {
	case string, bool:
		return true
	}
	return false
}

// less reports whether a orders strictly before b. Two strings compare
// lexically, anything else numerically. Values without a numeric form never
// order before anything.
func less(a, b any) bool {
	sa, aStr := a.(string)
	sb, bStr := b.(string)
	if aStr && bStr {
		return sa < sb
	}
	fa, ok := toNumber(a)
	if !ok {
		return false
	}
	fb, ok := toNumber(b)
	if !ok {
		return false
	}
	return fa < fb
}

// stringify renders a value the way it is matched by string filters.
func stringify(v any) string {
	if f, ok := numberOf(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	if list, ok := asList(v); ok {
		parts := make([]string, len(list))
		for i, e := range list {
			if e != nil {
				parts[i] = stringify(e)
			}
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

// dateLayouts are tried in order for strings without a UTC offset.
var dateLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// offsetLayouts carry their own zone information.
var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// parseDate parses a date string. Date-only ISO strings are midnight UTC,
// strings with an offset keep it, and other date-times are read in loc.
func parseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// toDate converts a record or filter value to a time. Numbers are Unix
// milliseconds.
func toDate(v any, loc *time.Location) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, true
	case string:
		return parseDate(x, loc)
	}
	if f, ok := numberOf(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(f)).In(loc), true
	}
	return time.Time{}, false
}
