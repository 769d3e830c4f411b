package filter

import (
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func TestApplyEmptyFilterSet(t *testing.T) {
	recs := Records{{"a": 1.0}, {"b": "x"}, {}}

	got := Apply(nil, recs)
	if !reflect.DeepEqual(got, []Record(recs)) {
		t.Errorf("expected all records, got %v", got)
	}

	got = Apply(FilterSet{}, recs)
	if len(got) != 3 {
		t.Errorf("expected 3 records, got %d", len(got))
	}
}

func TestApplyNilCollection(t *testing.T) {
	got := Apply(mustParse(t, `[{"field":"a","type":"strict","value":1}]`), nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", got)
	}
}

func TestScenarioStringAndArray(t *testing.T) {
	e, _ := testEvaluator()
	fs := mustParse(t, `[
		{"field": "banana", "type": "string", "value": "App"},
		{"field": "computer", "type": "array", "value": ["weird", "apple"]}
	]`)
	recs := Records{
		{"banana": "apple", "computer": "weird"},
		{"banana": "weird", "computer": "apple"},
	}

	got := e.Apply(fs, recs, false)
	want := []Record{{"banana": "apple", "computer": "weird"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestScenarioMinDate(t *testing.T) {
	fs := mustParse(t, `{"field": "date", "type": "minDate", "value": "2021-01-01"}`)
	recs := Records{{"date": "2021-01-01"}, {"date": "2020-01-01"}}

	got := Apply(fs, recs)
	want := []Record{{"date": "2021-01-01"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestScenarioChildAttr(t *testing.T) {
	fs := mustParse(t, `[{
		"field": "child",
		"type": "childAttr",
		"data": {"child": {"field": "test", "type": "strict", "value": "foo"}}
	}]`)
	recs := Records{
		{"child": map[string]any{"test": "foo"}},
		{"child": map[string]any{"test": "apple"}},
	}

	got := Apply(fs, recs)
	want := []Record{{"child": map[string]any{"test": "foo"}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestScenarioSkipUndefined(t *testing.T) {
	e, _ := testEvaluator()
	fs := mustParse(t, `[{"field": "foo", "type": "string", "value": "bar"}]`)
	recs := Records{{"banana": "apple"}}

	if got := e.Apply(fs, recs, false); len(got) != 0 {
		t.Errorf("skipUndefined=false: expected no records, got %v", got)
	}
	if got := e.Apply(fs, recs, true); len(got) != 1 {
		t.Errorf("skipUndefined=true: expected 1 record, got %v", got)
	}
	if got := Apply(fs, recs); len(got) != 1 {
		t.Errorf("default: expected 1 record, got %v", got)
	}
}

func TestPassThrough(t *testing.T) {
	e, _ := testEvaluator()
	recs := Records{{"a": "x"}, {"a": "y"}}

	tests := []struct {
		name string
		f    Filter
	}{
		{"nil filter", nil},
		{"empty field", &ValueFilter{BaseFilter: BaseFilter{FilterKind: KindStrict}, Value: Scalar{V: "zzz"}}},
		{"no value", &ValueFilter{BaseFilter: BaseFilter{FilterKind: KindStrict, FieldName: "a"}}},
		{"date range without window", &DateRangeFilter{BaseFilter: BaseFilter{FilterKind: KindDateRange, FieldName: "a"}}},
		{"date time range without value", &DateTimeRangeFilter{BaseFilter: BaseFilter{FilterKind: KindDateTimeRange, FieldName: "a"}}},
		{"unknown type without value", Definition{Field: "a", Type: "fuzzy"}.Build()},
		{"unknown type on missing field", Definition{Field: "missing", Type: "fuzzy"}.Build()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Apply(FilterSet{tt.f}, recs, false)
			if len(got) != 2 {
				t.Errorf("expected filter to pass every record, got %v", got)
			}
		})
	}
}

func TestStringFilter(t *testing.T) {
	recs := Records{{"field": "Apple"}}
	for _, v := range []string{"pp", "App", "le", "APPLE", ""} {
		t.Run(v, func(t *testing.T) {
			fs := FilterSet{Definition{Field: "field", Type: "string", Value: v}.Build()}
			if got := Apply(fs, recs); len(got) != 1 {
				t.Errorf("expected %q to match Apple", v)
			}
		})
	}

	fs := FilterSet{Definition{Field: "field", Type: "string", Value: "pear"}.Build()}
	if got := Apply(fs, recs); len(got) != 0 {
		t.Errorf("expected pear not to match Apple")
	}

	fs = FilterSet{Definition{Field: "field", Type: "string", Value: 12}.Build()}
	if got := Apply(fs, Records{{"field": 3120.0}, {"field": "x12"}, {"field": 7}}); len(got) != 2 {
		t.Errorf("expected numbers to match as text, got %v", got)
	}
}

func TestArrayFilter(t *testing.T) {
	recs := Records{{"c": "red"}, {"c": "green"}, {"c": "blue"}, {"c": nil}}

	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"members", []any{"red", "blue"}, 2},
		{"any sentinel list", []any{"_any"}, 4},
		{"any sentinel first", []any{"_any", "red"}, 4},
		{"any sentinel scalar", "_any", 4},
		{"scalar acts as list", "green", 1},
		{"no members", []any{"pink"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := FilterSet{Definition{Field: "c", Type: "array", Value: tt.value}.Build()}
			if got := Apply(fs, recs); len(got) != tt.want {
				t.Errorf("expected %d records, got %d: %v", tt.want, len(got), got)
			}
		})
	}
}

func TestArrayIncludesFilters(t *testing.T) {
	recs := Records{
		{"tags": []any{"a", "b"}},
		{"tags": []string{"c"}},
		{"tags": "abc"},
		{"tags": 42.0},
	}

	tests := []struct {
		kind  Kind
		value any
		want  int
	}{
		{KindArrayIncludes, "a", 2},
		{KindArrayIncludes, "c", 2},
		{KindArrayIncludes, "_any", 4},
		{KindArrayIncludesArray, []any{"x", "b"}, 2},
		{KindArrayIncludesArray, []any{"c", "a"}, 3},
		{KindArrayIncludesArray, []any{"_any"}, 4},
		{KindArrayIncludesArrayStrict, []any{"a", "b"}, 2},
		{KindArrayIncludesArrayStrict, []any{"a", "x"}, 0},
		{KindArrayIncludesArrayStrict, []any{}, 4},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			fs := FilterSet{Definition{Field: "tags", Type: string(tt.kind), Value: tt.value}.Build()}
			if got := Apply(fs, recs); len(got) != tt.want {
				t.Errorf("%s %v: expected %d records, got %d: %v", tt.kind, tt.value, tt.want, len(got), got)
			}
		})
	}
}

func TestDateBounds(t *testing.T) {
	recs := Records{{"date": "2021-01-01"}, {"date": "2022-06-01T12:00:00Z"}, {"date": "not a date"}}

	fs := mustParse(t, `[{"field": "date", "type": "maxDate", "value": "2021-01-01"}]`)
	got := Apply(fs, recs)
	want := []Record{{"date": "2021-01-01"}, {"date": "not a date"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("maxDate: expected %v, got %v", want, got)
	}

	fs = mustParse(t, `[{"field": "date", "type": "minDate", "value": "garbage"}]`)
	if got := Apply(fs, recs); len(got) != 3 {
		t.Errorf("minDate with unparseable bound: expected every record, got %v", got)
	}
}

func TestNumberAliases(t *testing.T) {
	recs := Records{{"n": 3.0}, {"n": 5}, {"n": "7"}, {"n": int64(10)}, {"n": "abc"}}

	pairs := [][2]Kind{
		{KindMinNum, KindMinNumber},
		{KindMaxNum, KindMaxNumber},
	}
	for _, pair := range pairs {
		a := Apply(FilterSet{Definition{Field: "n", Type: string(pair[0]), Value: 5}.Build()}, recs)
		b := Apply(FilterSet{Definition{Field: "n", Type: string(pair[1]), Value: 5}.Build()}, recs)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s and %s differ: %v vs %v", pair[0], pair[1], a, b)
		}
	}

	got := Apply(FilterSet{Definition{Field: "n", Type: "minNum", Value: 5}.Build()}, recs)
	want := []Record{{"n": 5}, {"n": "7"}, {"n": int64(10)}, {"n": "abc"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("minNum: expected %v, got %v", want, got)
	}

	got = Apply(FilterSet{Definition{Field: "n", Type: "maxNumber", Value: 5}.Build()}, recs)
	want = []Record{{"n": 3.0}, {"n": 5}, {"n": "abc"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("maxNumber: expected %v, got %v", want, got)
	}
}

func TestStrictAndLax(t *testing.T) {
	recs := Records{{"v": 1.0}, {"v": "1"}, {"v": true}, {"v": int32(1)}, {"v": "one"}}

	got := Apply(FilterSet{Definition{Field: "v", Type: "strict", Value: 1}.Build()}, recs)
	want := []Record{{"v": 1.0}, {"v": int32(1)}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("strict: expected %v, got %v", want, got)
	}

	got = Apply(FilterSet{Definition{Field: "v", Type: "lax", Value: 1}.Build()}, recs)
	want = []Record{{"v": 1.0}, {"v": "1"}, {"v": true}, {"v": int32(1)}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lax: expected %v, got %v", want, got)
	}

	got = Apply(FilterSet{Definition{Field: "v", Type: "strict", Value: "_any"}.Build()}, recs)
	if len(got) != len(recs) {
		t.Errorf("strict _any: expected every record, got %v", got)
	}
}

func TestLaxDateInEvaluatorLocation(t *testing.T) {
	zone := time.FixedZone("UTC+5", 5*60*60)
	recs := Records{{"at": time.Date(2024, time.January, 1, 10, 0, 0, 0, zone)}}
	fs := FilterSet{Definition{Field: "at", Type: "lax", Value: "2024-01-01T10:00:00"}.Build()}

	e := NewEvaluator(&EvaluatorOptions{Location: zone})
	if got := e.Apply(fs, recs, false); len(got) != 1 {
		t.Errorf("lax in %s: expected a match, got %v", zone, got)
	}

	bounds := FilterSet{
		Definition{Field: "at", Type: "minDate", Value: "2024-01-01T10:00:00"}.Build(),
		Definition{Field: "at", Type: "maxDate", Value: "2024-01-01T10:00:00"}.Build(),
	}
	if got := e.Apply(bounds, recs, false); len(got) != 1 {
		t.Errorf("date bounds in %s: expected a match, got %v", zone, got)
	}

	utc := NewEvaluator(&EvaluatorOptions{Location: time.UTC})
	if got := utc.Apply(fs, recs, false); len(got) != 0 {
		t.Errorf("lax in UTC: expected no match, got %v", got)
	}
}

func TestExplicitNullValue(t *testing.T) {
	recs := Records{{"v": nil}, {"v": "x"}, {"v": 0.0}, {"v": ""}}

	got := Apply(mustParse(t, `[{"field": "v", "type": "strict", "value": null}]`), recs)
	if want := []Record{{"v": nil}}; !reflect.DeepEqual(got, want) {
		t.Errorf("strict null: expected %v, got %v", want, got)
	}

	got = Apply(mustParse(t, `[{"field": "v", "type": "lax", "value": null}]`), recs)
	if want := []Record{{"v": nil}}; !reflect.DeepEqual(got, want) {
		t.Errorf("lax null: expected %v, got %v", want, got)
	}

	got = Apply(mustParse(t, `[{"field": "v", "type": "strict"}]`), recs)
	if len(got) != len(recs) {
		t.Errorf("absent value: expected every record, got %v", got)
	}
}

func TestTruthFilters(t *testing.T) {
	e, _ := testEvaluator()
	recs := Records{{"v": true}, {"v": 0.0}, {"v": ""}, {"v": "x"}, {"v": nil}, {"v": []any{}}, {}}

	got := e.Apply(FilterSet{Definition{Field: "v", Type: "laxTrue"}.Build()}, recs, false)
	want := []Record{{"v": true}, {"v": "x"}, {"v": []any{}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("laxTrue: expected %v, got %v", want, got)
	}

	got = e.Apply(FilterSet{Definition{Field: "v", Type: "laxFalse"}.Build()}, recs, false)
	want = []Record{{"v": 0.0}, {"v": ""}, {"v": nil}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("laxFalse: expected %v, got %v", want, got)
	}
}

func TestExistenceFilter(t *testing.T) {
	e, _ := testEvaluator()
	recs := Records{{"f": "x"}, {"f": ""}, {"f": nil}, {}}

	tests := []struct {
		name  string
		value any
		want  []Record
	}{
		{"true", true, []Record{{"f": "x"}, {"f": nil}}},
		{"true in list", []any{true}, []Record{{"f": "x"}, {"f": nil}}},
		{"false", false, []Record{{"f": ""}, {"f": nil}, {}}},
		{"false in list", []any{false}, []Record{{"f": ""}, {"f": nil}, {}}},
		{"unresolved", "yes", []Record{{"f": "x"}, {"f": ""}, {"f": nil}, {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := FilterSet{Definition{Field: "f", Type: "existence", Value: tt.value}.Build()}
			// skipUndefined must not affect existence decisions on missing fields.
			for _, skip := range []bool{true, false} {
				got := e.Apply(fs, recs, skip)
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("skipUndefined=%v: expected %v, got %v", skip, tt.want, got)
				}
			}
		})
	}
}

func TestEmptinessFilter(t *testing.T) {
	e, _ := testEvaluator()
	recs := Records{{"f": "x"}, {"f": ""}, {"f": nil}, {"f": []any{}}, {"f": []any{1.0}}, {}}

	got := e.Apply(FilterSet{Definition{Field: "f", Type: "emptiness", Value: true}.Build()}, recs, false)
	want := []Record{{"f": ""}, {"f": nil}, {"f": []any{}}, {}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("emptiness true: expected %v, got %v", want, got)
	}

	got = e.Apply(FilterSet{Definition{Field: "f", Type: "emptiness", Value: []any{false}}.Build()}, recs, true)
	want = []Record{{"f": "x"}, {"f": []any{1.0}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("emptiness false: expected %v, got %v", want, got)
	}

	// An unresolved flag passes present fields and defers missing ones to
	// skipUndefined.
	fs := FilterSet{Definition{Field: "f", Type: "emptiness", Value: []any{true, false}}.Build()}
	if got := e.Apply(fs, recs, false); len(got) != 5 {
		t.Errorf("emptiness unresolved: expected 5 records, got %v", got)
	}
}

func TestChildArrayAttr(t *testing.T) {
	e, _ := testEvaluator()
	fs := mustParse(t, `[{
		"field": "items",
		"type": "childArrayAttr",
		"data": {"child": {"field": "name", "type": "strict", "value": "b"}}
	}]`)
	recs := Records{
		{"id": 1.0, "items": []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}}},
		{"id": 2.0, "items": []any{map[string]any{"name": "c"}}},
		{"id": 3.0, "items": []any{}},
		{"id": 4.0},
	}

	ids := func(rs []Record) []any {
		out := []any{}
		for _, r := range rs {
			out = append(out, r["id"])
		}
		return out
	}

	if got := ids(e.Apply(fs, recs, true)); !reflect.DeepEqual(got, []any{1.0, 3.0, 4.0}) {
		t.Errorf("skipUndefined=true: got ids %v", got)
	}
	if got := ids(e.Apply(fs, recs, false)); !reflect.DeepEqual(got, []any{1.0}) {
		t.Errorf("skipUndefined=false: got ids %v", got)
	}
}

func TestNestedChildFilters(t *testing.T) {
	fs := mustParse(t, `[{
		"field": "order",
		"type": "childAttr",
		"data": {"child": {
			"field": "lines",
			"type": "childArrayAttr",
			"data": {"child": {"field": "qty", "type": "minNum", "value": 10}}
		}}
	}]`)
	recs := Records{
		{"order": map[string]any{"lines": []any{map[string]any{"qty": 2.0}, map[string]any{"qty": 12.0}}}},
		{"order": map[string]any{"lines": []any{map[string]any{"qty": 1.0}}}},
	}

	got := NewEvaluator(nil).Apply(fs, recs, false)
	if len(got) != 1 || !reflect.DeepEqual(got[0], recs[0]) {
		t.Errorf("expected only the first record, got %v", got)
	}
}

func TestChildWithoutChildLogsPerRecord(t *testing.T) {
	for _, kind := range []string{"childAttr", "childArrayAttr"} {
		t.Run(kind, func(t *testing.T) {
			e, h := testEvaluator()
			fs := mustParse(t, `[{"field": "items", "type": "`+kind+`"}]`)
			recs := Records{{"items": []any{1.0}}, {"items": []any{}}}

			got := e.Apply(fs, recs, false)
			if !reflect.DeepEqual(got, []Record(recs)) {
				t.Errorf("expected every record unchanged, got %v", got)
			}
			if n := h.count(slog.LevelWarn); n != 2 {
				t.Errorf("expected 2 warnings, got %d", n)
			}
		})
	}
}

func TestUnknownTypeWarns(t *testing.T) {
	e, h := testEvaluator()
	fs := mustParse(t, `[{"field": "a", "type": "fuzzy", "value": "x"}]`)
	recs := Records{{"a": "1"}, {"a": "2"}}

	if got := e.Apply(fs, recs, false); len(got) != 2 {
		t.Errorf("expected unknown filter to pass, got %v", got)
	}
	if n := h.count(slog.LevelWarn); n != 2 {
		t.Errorf("expected 2 warnings, got %d", n)
	}

	// Missing fields follow skipUndefined before the type is inspected.
	if got := e.Apply(fs, Records{{}}, false); len(got) != 0 {
		t.Errorf("expected missing field to be excluded, got %v", got)
	}
	if n := h.count(slog.LevelWarn); n != 2 {
		t.Errorf("expected no further warnings, got %d", n)
	}
}

func TestKeyedCollection(t *testing.T) {
	k := NewKeyed(map[string]Record{
		"b": {"n": 2.0},
		"a": {"n": 1.0},
		"c": {"n": 3.0},
	})
	got := Apply(FilterSet{Definition{Field: "n", Type: "minNum", Value: 2}.Build()}, k)
	want := []Record{{"n": 2.0}, {"n": 3.0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if keys := k.Keys(); !reflect.DeepEqual(keys, []string{"a", "b", "c"}) {
		t.Errorf("unexpected key order %v", keys)
	}
}

func TestApplyProperties(t *testing.T) {
	recs := Records{
		{"name": "Apple", "n": 3.0, "tags": []any{"fruit"}},
		{"name": "apricot", "n": 8.0, "tags": []any{"fruit", "orange"}},
		{"name": "Carrot", "n": 5.0, "tags": []any{"vegetable", "orange"}},
		{"name": "pear", "tags": []any{}},
	}
	f1 := mustParse(t, `[{"field": "name", "type": "string", "value": "ap"}]`)
	f2 := mustParse(t, `[{"field": "n", "type": "minNum", "value": 4}]`)
	f3 := mustParse(t, `[{"field": "tags", "type": "arrayIncludes", "value": "orange"}]`)

	sets := []FilterSet{f1, f2, f3}
	for _, skip := range []bool{true, false} {
		e := NewEvaluator(nil)
		for i, a := range sets {
			// Idempotence.
			once := e.Apply(a, recs, skip)
			twice := e.Apply(a, Records(once), skip)
			if !reflect.DeepEqual(once, twice) {
				t.Errorf("set %d skip=%v: not idempotent", i, skip)
			}

			for j, b := range sets {
				combined := append(append(FilterSet{}, a...), b...)
				left := e.Apply(combined, recs, skip)
				right := e.Apply(a, Records(e.Apply(b, recs, skip)), skip)
				if !reflect.DeepEqual(left, right) {
					t.Errorf("sets %d,%d skip=%v: composition differs: %v vs %v", i, j, skip, left, right)
				}
			}
		}
	}
}
