package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Definition is the loosely typed form of a filter, as produced by forms,
// configuration files and RPC payloads. Build turns it into a Filter.
// A nil Value means the filter carries no value; NullValue is an explicit
// null.
type Definition struct {
	Field string          `json:"field,omitempty" yaml:"field,omitempty" msgpack:"field,omitempty"`
	Type  string          `json:"type" yaml:"type" msgpack:"type"`
	Value any             `json:"value,omitempty" yaml:"value,omitempty" msgpack:"value,omitempty"`
	Data  *DefinitionData `json:"data,omitempty" yaml:"data,omitempty" msgpack:"data,omitempty"`
}

// DefinitionData is the structured payload of dateRange (custom window),
// dateTimeRange (explicit window) and child filters.
type DefinitionData struct {
	From  any         `json:"from,omitempty" yaml:"from,omitempty" msgpack:"from,omitempty"`
	Until any         `json:"until,omitempty" yaml:"until,omitempty" msgpack:"until,omitempty"`
	Child *Definition `json:"child,omitempty" yaml:"child,omitempty" msgpack:"child,omitempty"`
}

// Build converts the definition into a typed Filter. Unrecognized types
// become an UnknownFilter; nothing is rejected.
func (d Definition) Build() Filter {
	base := BaseFilter{FilterKind: Kind(d.Type), FieldName: d.Field}

	switch base.FilterKind {
	case KindChildAttr, KindChildArrayAttr:
		f := &ChildFilter{BaseFilter: base}
		if d.Data != nil && d.Data.Child != nil {
			f.Child = d.Data.Child.Build()
		}
		return f
	case KindLaxTrue, KindLaxFalse:
		return &TruthFilter{BaseFilter: base}
	case KindDateRange:
		return &DateRangeFilter{BaseFilter: base, Window: d.window()}
	case KindDateTimeRange:
		f := &DateTimeRangeFilter{BaseFilter: base}
		if d.Value != nil {
			f.Value = NewValue(d.Value)
		}
		if d.Data != nil {
			f.From = normalize(d.Data.From)
			f.Until = normalize(d.Data.Until)
		}
		return f
	}

	if !base.FilterKind.Known() {
		f := &UnknownFilter{BaseFilter: base}
		if d.Value != nil {
			f.Value = NewValue(d.Value)
		}
		return f
	}
	f := &ValueFilter{BaseFilter: base}
	if d.Value != nil {
		f.Value = NewValue(d.Value)
	}
	return f
}

// window resolves the date window named by a dateRange definition.
func (d Definition) window() DateWindow {
	if d.Value == nil {
		return nil
	}
	switch v := NewValue(d.Value).(type) {
	case Unconstrained:
		return AnyWindow{}
	case Scalar:
		if name, ok := v.V.(string); ok {
			if name == RangeCustom {
				w := CustomWindow{}
				if d.Data != nil {
					w.From = normalize(d.Data.From)
					w.Until = normalize(d.Data.Until)
				}
				return w
			}
			return SymbolicWindow{Name: name}
		}
	}
	return SymbolicWindow{Name: stringify(normalize(d.Value))}
}

// SetExplicitNulls marks the values that raw, the decoded map form of d,
// holds as an explicit null. Decoders that cannot tell an absent value from
// a null one call it after decoding d.
func (d *Definition) SetExplicitNulls(raw map[string]any) {
	if v, ok := raw["value"]; ok && v == nil && d.Value == nil {
		d.Value = NullValue{}
	}
	data, _ := raw["data"].(map[string]any)
	if data == nil || d.Data == nil || d.Data.Child == nil {
		return
	}
	if child, ok := data["child"].(map[string]any); ok {
		d.Data.Child.SetExplicitNulls(child)
	}
}

// BuildAll converts definitions into a FilterSet, keeping their order.
func BuildAll(defs []Definition) FilterSet {
	fs := make(FilterSet, len(defs))
	for i, d := range defs {
		fs[i] = d.Build()
	}
	return fs
}

// Parse parses a JSON filter set: an array of filter definitions, or a
// single definition object.
//
// Error conditions:
//   - Invalid JSON syntax
//   - A definition that is not an object or has non-string field or type
//
// Unknown filter types are not errors; they parse into UnknownFilter.
func Parse(data []byte) (FilterSet, error) {
	defs, err := ParseDefinitions(data)
	if err != nil {
		return nil, err
	}
	return BuildAll(defs), nil
}

// ParseDefinitions parses a JSON filter set into definitions without
// building them.
func ParseDefinitions(data []byte) ([]Definition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Definition{}, nil
	}

	var raws []json.RawMessage
	if trimmed[0] == '{' {
		raws = []json.RawMessage{trimmed}
	} else if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("filter: invalid JSON: %w", err)
	}

	defs := make([]Definition, 0, len(raws))
	for i, raw := range raws {
		d, err := parseDefinition(raw)
		if err != nil {
			return nil, fmt.Errorf("filter: error parsing filter %d: %w", i, err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// rawDefinition is the intermediate structure for JSON parsing.
type rawDefinition struct {
	Field string          `json:"field"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
	Data  json.RawMessage `json:"data"`
}

// rawData is the JSON structure of the definition payload.
type rawData struct {
	From  json.RawMessage `json:"from"`
	Until json.RawMessage `json:"until"`
	Child json.RawMessage `json:"child"`
}

func parseDefinition(data json.RawMessage) (Definition, error) {
	var raw rawDefinition
	if err := json.Unmarshal(data, &raw); err != nil {
		return Definition{}, fmt.Errorf("invalid definition: %w", err)
	}

	value, err := parseAny(raw.Value)
	if err != nil {
		return Definition{}, fmt.Errorf("invalid value: %w", err)
	}
	if value == nil && len(raw.Value) > 0 {
		value = NullValue{}
	}
	d := Definition{Field: raw.Field, Type: raw.Type, Value: value}

	if isNullJSON(raw.Data) {
		return d, nil
	}
	var rd rawData
	if err := json.Unmarshal(raw.Data, &rd); err != nil {
		return Definition{}, fmt.Errorf("invalid data: %w", err)
	}
	d.Data = &DefinitionData{}
	if d.Data.From, err = parseAny(rd.From); err != nil {
		return Definition{}, fmt.Errorf("invalid data.from: %w", err)
	}
	if d.Data.Until, err = parseAny(rd.Until); err != nil {
		return Definition{}, fmt.Errorf("invalid data.until: %w", err)
	}
	if !isNullJSON(rd.Child) {
		child, err := parseDefinition(rd.Child)
		if err != nil {
			return Definition{}, fmt.Errorf("invalid data.child: %w", err)
		}
		d.Data.Child = &child
	}
	return d, nil
}

// parseAny decodes a raw JSON value. Absent and null values decode to nil.
func parseAny(raw json.RawMessage) (any, error) {
	if isNullJSON(raw) {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ParseCollection parses JSON records. An array yields Records; an object
// yields a Keyed collection in document key order.
func ParseCollection(data []byte) (Collection, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Records{}, nil
	}

	if trimmed[0] != '{' {
		var recs Records
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, fmt.Errorf("filter: invalid records JSON: %w", err)
		}
		return recs, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("filter: invalid records JSON: %w", err)
	}
	keyed := &Keyed{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("filter: invalid records JSON: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("filter: invalid records JSON: unexpected token %v", tok)
		}
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("filter: invalid record %q: %w", key, err)
		}
		keyed.Set(key, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("filter: invalid records JSON: %w", err)
	}
	return keyed, nil
}
