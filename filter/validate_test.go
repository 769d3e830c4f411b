package filter

import (
	"testing"
)

func TestValidate(t *testing.T) {
	fs := mustParse(t, `[
		{"field": "name", "type": "string", "value": "app"},
		{"field": "", "type": "strict", "value": 1},
		{"field": "a", "type": "strict"},
		{"field": "a", "type": "fuzzy", "value": 1},
		{"field": "c", "type": "childArrayAttr"},
		{"field": "c", "type": "childAttr", "data": {"child": {"field": "x", "type": "nope", "value": 1}}},
		{"field": "d", "type": "dateRange", "value": "decade"},
		{"field": "d", "type": "dateRange", "value": "custom", "data": {"from": "x", "until": "2024-01-01"}},
		{"field": "d", "type": "dateTimeRange", "value": "x", "data": {"from": "2024-01-01"}},
		{"field": "e", "type": "existence", "value": "yes"},
		{"field": "d", "type": "minDate", "value": "soon"},
		{"field": "t", "type": "arrayIncludes", "value": ["a", "b"]},
		{"field": "d", "type": "dateTimeRange", "value": "_any"},
		{"field": "ok", "type": "laxTrue"}
	]`)

	issues := Validate(fs)

	wantPaths := []string{"1", "2", "3", "4", "5.child", "6", "7", "8", "9", "10", "11"}
	if len(issues) != len(wantPaths) {
		t.Fatalf("expected %d issues, got %d: %+v", len(wantPaths), len(issues), issues)
	}
	for i, want := range wantPaths {
		if issues[i].Path != want {
			t.Errorf("issue %d: expected path %s, got %s (%s)", i, want, issues[i].Path, issues[i].Message)
		}
		if issues[i].Message == "" {
			t.Errorf("issue %d: empty message", i)
		}
	}
	if issues[4].Type != "nope" || issues[4].Field != "x" {
		t.Errorf("expected nested issue to describe the child, got %+v", issues[4])
	}
}

func TestValidateClean(t *testing.T) {
	fs := mustParse(t, `[
		{"field": "d", "type": "dateRange", "value": "7days"},
		{"field": "d", "type": "dateRange", "value": "custom", "data": {"from": "2024-01-01", "until": "2024-02-01"}},
		{"field": "e", "type": "emptiness", "value": [false]},
		{"field": "n", "type": "minNumber", "value": 3}
	]`)
	if issues := Validate(fs); len(issues) != 0 {
		t.Errorf("expected no issues, got %+v", issues)
	}
	if issues := Validate(FilterSet{nil}); len(issues) != 1 {
		t.Errorf("expected an issue for nil filter, got %+v", issues)
	}
}
