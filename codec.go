package recordfilter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hugr-lab/recordfilter/filter"
	"github.com/hugr-lab/recordfilter/internal/msgpack"
	"github.com/hugr-lab/recordfilter/internal/serialize"
)

// Format identifies the encoding of a filter set or record payload.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatMsgpack
	FormatJSONZstd
	FormatYAMLZstd
	FormatMsgpackZstd
)

var formatNames = map[Format]string{
	FormatJSON:        "json",
	FormatYAML:        "yaml",
	FormatMsgpack:     "msgpack",
	FormatJSONZstd:    "json+zstd",
	FormatYAMLZstd:    "yaml+zstd",
	FormatMsgpackZstd: "msgpack+zstd",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Compressed reports whether payloads of this format are zstd-compressed.
func (f Format) Compressed() bool {
	return f >= FormatJSONZstd && f <= FormatMsgpackZstd
}

// encoding returns the format without compression.
func (f Format) encoding() Format {
	if f.Compressed() {
		return f - FormatJSONZstd
	}
	return f
}

// ParseFormat parses a format name such as "json", "yml" or "msgpack+zstd".
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	compressed := false
	if base, ok := strings.CutSuffix(name, "+zstd"); ok {
		name, compressed = base, true
	}

	var f Format
	switch name {
	case "json", "":
		f = FormatJSON
	case "yaml", "yml":
		f = FormatYAML
	case "msgpack", "mpk":
		f = FormatMsgpack
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	if compressed {
		f += FormatJSONZstd
	}
	return f, nil
}

// FormatFromPath infers the format from a file extension. A trailing
// ".zst" or ".zstd" selects the compressed variant.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	compressed := ext == ".zst" || ext == ".zstd"
	if compressed {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))
	}

	name := strings.TrimPrefix(ext, ".")
	if name == "" {
		return 0, fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	if compressed {
		name += "+zstd"
	}
	return ParseFormat(name)
}

// DecodeFilterSet decodes and builds a filter set.
//
// JSON, YAML and MessagePack payloads hold an array of filter definitions or
// a single definition. Unknown filter types are not errors.
func DecodeFilterSet(data []byte, format Format) (filter.FilterSet, error) {
	defs, err := DecodeDefinitions(data, format)
	if err != nil {
		return nil, err
	}
	return filter.BuildAll(defs), nil
}

// DecodeDefinitions decodes filter definitions without building them.
func DecodeDefinitions(data []byte, format Format) ([]filter.Definition, error) {
	return decodeDefinitions(data, format, serialize.Decompress)
}

// DecodeCollection decodes records. Arrays become filter.Records, objects
// (maps of records) become a filter.Keyed in document order.
func DecodeCollection(data []byte, format Format) (filter.Collection, error) {
	return decodeCollection(data, format, serialize.Decompress)
}

// LoadFilterSet reads and decodes a filter set file. The format is inferred
// from the file extension (.json, .yaml, .yml, .msgpack, optionally
// followed by .zst).
func LoadFilterSet(path string) (filter.FilterSet, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter set: %w", err)
	}
	return DecodeFilterSet(data, format)
}

// LoadCollection reads and decodes a record file. The format is inferred
// as in LoadFilterSet.
func LoadCollection(path string) (filter.Collection, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return DecodeCollection(data, format)
}

// Encode serializes v in format. JSON is indented, and the compressed
// variants are zstd-compressed after encoding.
func Encode(v any, format Format) ([]byte, error) {
	return encode(v, format, serialize.Compress)
}

type (
	compressFunc   func([]byte) ([]byte, error)
	decompressFunc func([]byte) ([]byte, error)
)

func encode(v any, format Format, compress compressFunc) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format.encoding() {
	case FormatJSON:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(v); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	case FormatMsgpack:
		data, err = msgpack.Encode(v)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}
	if !format.Compressed() {
		return data, nil
	}
	return compress(data)
}

func decodeDefinitions(data []byte, format Format, decompress decompressFunc) ([]filter.Definition, error) {
	data, err := uncompressed(data, format, decompress)
	if err != nil {
		return nil, err
	}

	var defs []filter.Definition
	switch format.encoding() {
	case FormatJSON:
		defs, err = filter.ParseDefinitions(data)
	case FormatYAML:
		defs, err = yamlDefinitions(data)
	case FormatMsgpack:
		defs, err = msgpack.DecodeDefinitions(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: filter set: %w", ErrInvalidPayload, err)
	}
	return defs, nil
}

func decodeCollection(data []byte, format Format, decompress decompressFunc) (filter.Collection, error) {
	data, err := uncompressed(data, format, decompress)
	if err != nil {
		return nil, err
	}

	var c filter.Collection
	switch format.encoding() {
	case FormatJSON:
		c, err = filter.ParseCollection(data)
	case FormatYAML:
		c, err = yamlCollection(data)
	case FormatMsgpack:
		c, err = msgpack.DecodeCollection(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: records: %w", ErrInvalidPayload, err)
	}
	return c, nil
}

func uncompressed(data []byte, format Format, decompress decompressFunc) ([]byte, error) {
	if !format.Compressed() {
		return data, nil
	}
	out, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return out, nil
}

// yamlDefinitions decodes a YAML sequence of definitions or a single
// definition mapping.
func yamlDefinitions(data []byte) ([]filter.Definition, error) {
	root, err := yamlRoot(data)
	if err != nil || root == nil {
		return []filter.Definition{}, err
	}

	switch root.Kind {
	case yaml.MappingNode:
		def, err := yamlDefinition(root)
		if err != nil {
			return nil, err
		}
		return []filter.Definition{def}, nil
	case yaml.SequenceNode:
		defs := make([]filter.Definition, 0, len(root.Content))
		for i, n := range root.Content {
			def, err := yamlDefinition(n)
			if err != nil {
				return nil, fmt.Errorf("error parsing filter %d: %w", i, err)
			}
			defs = append(defs, def)
		}
		return defs, nil
	}
	return nil, fmt.Errorf("line %d: expected a filter or a list of filters", root.Line)
}

// yamlDefinition decodes one definition, keeping explicit null values.
func yamlDefinition(n *yaml.Node) (filter.Definition, error) {
	var def filter.Definition
	if err := n.Decode(&def); err != nil {
		return def, err
	}
	var raw map[string]any
	if err := n.Decode(&raw); err != nil {
		return def, err
	}
	def.SetExplicitNulls(raw)
	return def, nil
}

// yamlCollection decodes a YAML sequence of records or a mapping of keyed
// records, keeping document order.
func yamlCollection(data []byte) (filter.Collection, error) {
	root, err := yamlRoot(data)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return filter.Records{}, nil
	}

	switch root.Kind {
	case yaml.SequenceNode:
		var recs filter.Records
		if err := root.Decode(&recs); err != nil {
			return nil, err
		}
		return recs, nil
	case yaml.MappingNode:
		keyed := &filter.Keyed{}
		for i := 0; i+1 < len(root.Content); i += 2 {
			var rec filter.Record
			if err := root.Content[i+1].Decode(&rec); err != nil {
				return nil, fmt.Errorf("record %q: %w", root.Content[i].Value, err)
			}
			keyed.Set(root.Content[i].Value, rec)
		}
		return keyed, nil
	}
	return nil, fmt.Errorf("line %d: expected a list or a mapping of records", root.Line)
}

// yamlRoot returns the top-level node of data, or nil for an empty or null
// document.
func yamlRoot(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	return root, nil
}
