package flight

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hugr-lab/recordfilter/filter"
	"github.com/hugr-lab/recordfilter/internal/msgpack"
)

// Command is the filter request carried in the DoExchange flight descriptor
// and in validate_filters action bodies.
//
// Encoded as MessagePack or JSON:
//
//	{
//	  "filters": [{"field": "name", "type": "string", "value": "app"}],
//	  "skip_undefined": true
//	}
//
// A bare array of filter definitions is accepted as well.
type Command struct {
	Filters []filter.Definition `json:"filters" msgpack:"filters"`

	// SkipUndefined overrides the server default when set.
	SkipUndefined *bool `json:"skip_undefined,omitempty" msgpack:"skip_undefined,omitempty"`
}

// EncodeCommand serializes a command as MessagePack.
func EncodeCommand(cmd Command) ([]byte, error) {
	return msgpack.Encode(cmd)
}

// DecodeCommand parses a MessagePack or JSON command. Empty data is a
// command without filters.
func DecodeCommand(data []byte) (*Command, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &Command{}, nil
	}

	switch trimmed[0] {
	case '{':
		var raw struct {
			Filters       json.RawMessage `json:"filters"`
			SkipUndefined *bool           `json:"skip_undefined"`
		}
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON command: %w", err)
		}
		defs, err := filter.ParseDefinitions(raw.Filters)
		if err != nil {
			return nil, err
		}
		return &Command{Filters: defs, SkipUndefined: raw.SkipUndefined}, nil
	case '[':
		defs, err := filter.ParseDefinitions(trimmed)
		if err != nil {
			return nil, err
		}
		return &Command{Filters: defs}, nil
	}

	if !msgpack.IsMap(data) {
		defs, err := msgpack.DecodeDefinitions(data)
		if err != nil {
			return nil, err
		}
		return &Command{Filters: defs}, nil
	}
	var raw struct {
		Filters       msgpack.RawMessage `msgpack:"filters"`
		SkipUndefined *bool              `msgpack:"skip_undefined"`
	}
	if err := msgpack.Decode(data, &raw); err != nil {
		return nil, err
	}
	defs, err := msgpack.DecodeDefinitions(raw.Filters)
	if err != nil {
		return nil, err
	}
	return &Command{Filters: defs, SkipUndefined: raw.SkipUndefined}, nil
}

// FilterSet builds the command filters.
func (c *Command) FilterSet() filter.FilterSet {
	return filter.BuildAll(c.Filters)
}

// skip returns the missing-field disposition of the command.
func (c *Command) skip(def bool) bool {
	if c.SkipUndefined != nil {
		return *c.SkipUndefined
	}
	return def
}
