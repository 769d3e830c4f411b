// Package msgpack provides MessagePack encoding/decoding for filter payloads.
// Used by the Flight DoExchange command and the MessagePack payload format.
package msgpack

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/hugr-lab/recordfilter/filter"
)

// Decode deserializes MessagePack data into a Go value.
// The v parameter should be a pointer to the target structure.
//
// Example:
//
//	type Command struct {
//	    Filters       []filter.Definition `msgpack:"filters"`
//	    SkipUndefined bool                `msgpack:"skip_undefined"`
//	}
//
//	var cmd Command
//	err := msgpack.Decode(data, &cmd)
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty MessagePack data")
	}

	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode MessagePack: %w", err)
	}

	return nil
}

// RawMessage is a raw encoded MessagePack value, decoded later.
type RawMessage = msgpack.RawMessage

// Encode serializes a Go value into MessagePack format.
func Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	return data, nil
}

// IsMap reports whether data starts with a MessagePack map header.
func IsMap(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	c := data[0]
	return msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32
}

// DecodeDefinitions deserializes a filter set: an array of definitions or
// a single definition map. Empty or nil data yields no definitions.
// Explicit nil values are kept as filter.NullValue.
func DecodeDefinitions(data []byte) ([]filter.Definition, error) {
	if len(data) == 0 || data[0] == msgpcode.Nil {
		return []filter.Definition{}, nil
	}

	if IsMap(data) {
		var def filter.Definition
		if err := msgpack.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to decode MessagePack filter: %w", err)
		}
		var raw map[string]any
		if err := msgpack.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode MessagePack filter: %w", err)
		}
		def.SetExplicitNulls(raw)
		return []filter.Definition{def}, nil
	}

	var defs []filter.Definition
	if err := msgpack.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack filters: %w", err)
	}
	if defs == nil {
		return []filter.Definition{}, nil
	}
	var raws []map[string]any
	if err := msgpack.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack filters: %w", err)
	}
	for i := range defs {
		if i < len(raws) {
			defs[i].SetExplicitNulls(raws[i])
		}
	}
	return defs, nil
}

// DecodeCollection deserializes records. An array yields filter.Records;
// a map of records yields a filter.Keyed in encoded key order.
func DecodeCollection(data []byte) (filter.Collection, error) {
	if len(data) == 0 || data[0] == msgpcode.Nil {
		return filter.Records{}, nil
	}

	if !IsMap(data) {
		var recs filter.Records
		if err := msgpack.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("failed to decode MessagePack records: %w", err)
		}
		if recs == nil {
			recs = filter.Records{}
		}
		return recs, nil
	}

	dec := msgpack.NewDecoder(bytes.NewReader(data))
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack map: %w", err)
	}

	keyed := &filter.Keyed{}
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, fmt.Errorf("failed to decode MessagePack key %d: %w", i, err)
		}
		rec, err := dec.DecodeMap()
		if err != nil {
			return nil, fmt.Errorf("failed to decode MessagePack record %q: %w", key, err)
		}
		keyed.Set(key, filter.Record(rec))
	}
	return keyed, nil
}
