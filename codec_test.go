package recordfilter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/recordfilter"
	"github.com/hugr-lab/recordfilter/filter"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name string
		want recordfilter.Format
	}{
		{"json", recordfilter.FormatJSON},
		{"YAML", recordfilter.FormatYAML},
		{"yml", recordfilter.FormatYAML},
		{"msgpack", recordfilter.FormatMsgpack},
		{"json+zstd", recordfilter.FormatJSONZstd},
		{"yml+zstd", recordfilter.FormatYAMLZstd},
		{"mpk+zstd", recordfilter.FormatMsgpackZstd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := recordfilter.ParseFormat(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := recordfilter.ParseFormat("toml")
	assert.ErrorIs(t, err, recordfilter.ErrUnsupportedFormat)

	assert.Equal(t, "msgpack+zstd", recordfilter.FormatMsgpackZstd.String())
	assert.True(t, recordfilter.FormatYAMLZstd.Compressed())
	assert.False(t, recordfilter.FormatYAML.Compressed())
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want recordfilter.Format
	}{
		{"filters.json", recordfilter.FormatJSON},
		{"dir/filters.YAML", recordfilter.FormatYAML},
		{"records.msgpack", recordfilter.FormatMsgpack},
		{"records.json.zst", recordfilter.FormatJSONZstd},
		{"filters.yml.zstd", recordfilter.FormatYAMLZstd},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := recordfilter.FormatFromPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := recordfilter.FormatFromPath("filters")
	assert.ErrorIs(t, err, recordfilter.ErrUnsupportedFormat)
	_, err = recordfilter.FormatFromPath("filters.zst")
	assert.ErrorIs(t, err, recordfilter.ErrUnsupportedFormat)
}

func TestDecodeFilterSetYAML(t *testing.T) {
	t.Run("SingleMapping", func(t *testing.T) {
		fs, err := recordfilter.DecodeFilterSet([]byte("field: age\ntype: minNum\nvalue: 18\n"), recordfilter.FormatYAML)
		require.NoError(t, err)
		require.Len(t, fs, 1)
		assert.Equal(t, filter.KindMinNum, fs[0].Kind())
	})

	t.Run("NestedChild", func(t *testing.T) {
		fs, err := recordfilter.DecodeFilterSet([]byte(`
- field: owner
  type: childAttr
  data:
    child: {field: country, type: strict, value: NL}
`), recordfilter.FormatYAML)
		require.NoError(t, err)
		require.Len(t, fs, 1)

		child, ok := fs[0].(*filter.ChildFilter)
		require.True(t, ok)
		require.NotNil(t, child.Child)
		assert.Equal(t, "country", child.Child.Field())

		got := filter.Apply(fs, filter.Records{
			{"owner": map[string]any{"country": "NL"}},
			{"owner": map[string]any{"country": "DE"}},
		})
		assert.Len(t, got, 1)
	})

	t.Run("Empty", func(t *testing.T) {
		fs, err := recordfilter.DecodeFilterSet([]byte("# nothing\n"), recordfilter.FormatYAML)
		require.NoError(t, err)
		assert.Empty(t, fs)
	})

	t.Run("Scalar", func(t *testing.T) {
		_, err := recordfilter.DecodeFilterSet([]byte("42\n"), recordfilter.FormatYAML)
		assert.ErrorIs(t, err, recordfilter.ErrInvalidPayload)
	})
}

func TestDecodeFilterSetExplicitNull(t *testing.T) {
	fs, err := recordfilter.DecodeFilterSet([]byte(`
- {field: a, type: strict, value: null}
- {field: b, type: strict}
`), recordfilter.FormatYAML)
	require.NoError(t, err)
	require.Len(t, fs, 2)

	vf, ok := fs[0].(*filter.ValueFilter)
	require.True(t, ok)
	assert.Equal(t, filter.Scalar{V: nil}, vf.Value)

	vf, ok = fs[1].(*filter.ValueFilter)
	require.True(t, ok)
	assert.Nil(t, vf.Value)
}

func TestDecodeCollectionKeyedOrder(t *testing.T) {
	tests := []struct {
		name   string
		format recordfilter.Format
		data   string
	}{
		{"JSON", recordfilter.FormatJSON, `{"zeta": {"n": 1}, "alpha": {"n": 2}, "mid": {"n": 3}}`},
		{"YAML", recordfilter.FormatYAML, "zeta: {n: 1}\nalpha: {n: 2}\nmid: {n: 3}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := recordfilter.DecodeCollection([]byte(tt.data), tt.format)
			require.NoError(t, err)

			keyed, ok := c.(*filter.Keyed)
			require.True(t, ok, "expected keyed collection, got %T", c)
			assert.Equal(t, []string{"zeta", "alpha", "mid"}, keyed.Keys())
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	recs := filter.Records{{"id": 1.0, "name": "Alice"}, {"id": 2.0, "name": "Bob"}}
	engine := newEngine(t, recordfilter.Config{})

	for _, format := range []recordfilter.Format{
		recordfilter.FormatJSON,
		recordfilter.FormatYAML,
		recordfilter.FormatMsgpack,
		recordfilter.FormatJSONZstd,
		recordfilter.FormatYAMLZstd,
		recordfilter.FormatMsgpackZstd,
	} {
		t.Run(format.String(), func(t *testing.T) {
			data, err := recordfilter.Encode(recs, format)
			require.NoError(t, err)
			c, err := recordfilter.DecodeCollection(data, format)
			require.NoError(t, err)
			assert.Equal(t, []string{"Alice", "Bob"}, names(c))

			data, err = engine.Encode(recs, format)
			require.NoError(t, err)
			c, err = engine.DecodeCollection(data, format)
			require.NoError(t, err)
			assert.Equal(t, []string{"Alice", "Bob"}, names(c))
		})
	}

	_, err := recordfilter.Encode(recs, recordfilter.Format(99))
	assert.ErrorIs(t, err, recordfilter.ErrUnsupportedFormat)
}

func names(c filter.Collection) []string {
	var out []string
	for _, rec := range c.Records() {
		out = append(out, rec["name"].(string))
	}
	return out
}
