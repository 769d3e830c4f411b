package filter

import (
	"sort"
)

// Record is a single item being filtered. Records are never modified.
type Record map[string]any

// Collection is an ordered source of records.
type Collection interface {
	Records() []Record
}

// Records is an ordered list of records.
type Records []Record

// Records returns the list itself.
func (r Records) Records() []Record { return r }

// Keyed is a keyed mapping of records with an explicit key order.
type Keyed struct {
	keys   []string
	values map[string]Record
}

// NewKeyed creates a keyed collection from m, ordered by key.
func NewKeyed(m map[string]Record) *Keyed {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Keyed{keys: keys, values: m}
}

// Set adds or replaces the record stored under key. New keys are appended
// to the iteration order.
func (k *Keyed) Set(key string, rec Record) {
	if k.values == nil {
		k.values = make(map[string]Record)
	}
	if _, exists := k.values[key]; !exists {
		k.keys = append(k.keys, key)
	}
	k.values[key] = rec
}

// Keys returns the keys in iteration order.
func (k *Keyed) Keys() []string {
	out := make([]string, len(k.keys))
	copy(out, k.keys)
	return out
}

// Records returns the records in key iteration order.
func (k *Keyed) Records() []Record {
	out := make([]Record, 0, len(k.keys))
	for _, key := range k.keys {
		out = append(out, k.values[key])
	}
	return out
}

// asRecord returns v as a record when it is a string-keyed map.
func asRecord(v any) (Record, bool) {
	switch x := v.(type) {
	case Record:
		return x, true
	case map[string]any:
		return Record(x), true
	case map[string]string:
		rec := make(Record, len(x))
		for k, s := range x {
			rec[k] = s
		}
		return rec, true
	}
	return nil, false
}

// nestedRecords turns a nested record-list field into records. Lists yield
// their elements and maps yield their values in key order. Elements that are
// not maps become empty records, so every field lookup on them misses.
func nestedRecords(v any) []Record {
	if c, ok := v.(Collection); ok {
		return c.Records()
	}
	if list, ok := asList(v); ok {
		out := make([]Record, len(list))
		for i, e := range list {
			rec, ok := asRecord(e)
			if !ok {
				rec = Record{}
			}
			out[i] = rec
		}
		return out
	}
	if m, ok := asRecord(v); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]Record, len(keys))
		for i, k := range keys {
			rec, ok := asRecord(m[k])
			if !ok {
				rec = Record{}
			}
			out[i] = rec
		}
		return out
	}
	return nil
}

// length returns the length of a list or string value.
func length(v any) int {
	if s, ok := v.(string); ok {
		return len(s)
	}
	if list, ok := asList(v); ok {
		return len(list)
	}
	return 0
}
