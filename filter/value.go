package filter

import (
	"encoding/json"
	"reflect"
)

// AnySentinel is the reserved value that disables a constraint.
const AnySentinel = "_any"

// Value is the interface implemented by filter value variants.
// A nil Value means the filter carries no value.
type Value interface {
	valueMarker()
}

// Scalar is a single string, number, boolean, time or nil value.
type Scalar struct {
	V any
}

// ManyOf is a list of scalar values.
type ManyOf struct {
	Vs []any
}

// Unconstrained marks a filter whose value was the "_any" sentinel.
type Unconstrained struct{}

// NullValue is the Definition value of an explicit null, as opposed to an
// absent value. It builds into Scalar{V: nil}.
type NullValue struct{}

// MarshalJSON encodes NullValue as null.
func (NullValue) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalYAML encodes NullValue as null.
func (NullValue) MarshalYAML() (any, error) { return nil, nil }

// MarshalMsgpack encodes NullValue as nil.
func (NullValue) MarshalMsgpack() ([]byte, error) { return []byte{0xc0}, nil }

func (Scalar) valueMarker()        {}
func (ManyOf) valueMarker()        {}
func (Unconstrained) valueMarker() {}

// NewValue converts a loosely typed value into a Value.
// The "_any" sentinel, alone or as the first list element, becomes
// Unconstrained. Numbers are normalised to float64.
func NewValue(raw any) Value {
	if s, ok := raw.(string); ok && s == AnySentinel {
		return Unconstrained{}
	}
	if list, ok := asList(raw); ok {
		vs := make([]any, len(list))
		for i, v := range list {
			vs[i] = normalize(v)
		}
		if len(vs) > 0 {
			if s, ok := vs[0].(string); ok && s == AnySentinel {
				return Unconstrained{}
			}
		}
		return ManyOf{Vs: vs}
	}
	return Scalar{V: normalize(raw)}
}

// normalize converts numeric kinds and json.Number to float64 and
// recursively normalises lists and maps.
func normalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x
	case NullValue:
		return nil
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	case Record:
		out := make(Record, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	}
	if f, ok := numberOf(v); ok {
		return f
	}
	if list, ok := asList(v); ok {
		out := make([]any, len(list))
		for i, e := range list {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

// asList returns the elements of any slice or array value except byte slices.
func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// listOf returns the elements of a Scalar or ManyOf value.
// A scalar acts as a single-element list.
func listOf(v Value) []any {
	switch x := v.(type) {
	case ManyOf:
		return x.Vs
	case Scalar:
		return []any{x.V}
	}
	return nil
}

// soleElement returns the flag carried by existence and emptiness filters:
// a boolean scalar, or the sole element of a one-element list.
func soleElement(v Value) (any, bool) {
	switch x := v.(type) {
	case Scalar:
		if b, ok := x.V.(bool); ok {
			return b, true
		}
	case ManyOf:
		if len(x.Vs) == 1 {
			return x.Vs[0], true
		}
	}
	return nil, false
}
