package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSource_CSV(t *testing.T) {
	src := CollectionSource(
		NewRecord("title", "A", "views", int64(3)),
		NewRecord("title", "B, quoted", "score", 1.5, "tags", []any{"x", "y"}, "draft", true),
	)

	out, err := EncodeSource(src, FormatCSV)
	require.NoError(t, err)

	want := "title,views,score,tags,draft\n" +
		"A,3,,,\n" +
		"\"B, quoted\",,1.5,\"[\"\"x\"\",\"\"y\"\"]\",true\n"
	assert.Equal(t, want, string(out))
}

func TestEncodeSource_CSVEmpty(t *testing.T) {
	out, err := EncodeSource(CollectionSource(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "\n", string(out))
}

func TestEncodeSource_YAMLKeepsOrder(t *testing.T) {
	src := SingleSource(NewRecord("zeta", "1", "alpha", int64(2), "nested", NewRecord("b", true, "a", nil)))

	out, err := EncodeSource(src, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "zeta: \"1\"\nalpha: 2\nnested:\n    b: true\n    a: null\n", string(out))
}

func TestEncodeSource_UnsupportedFormat(t *testing.T) {
	_, err := EncodeSource(CollectionSource(), Format("xml"))
	assert.Error(t, err)
}

func TestEncodeSource_RoundTrip(t *testing.T) {
	formats := []struct {
		format Format
		hint   string
	}{
		{FormatJSON, "out.json"},
		{FormatYAML, "out.yaml"},
	}

	src := CollectionSource(
		NewRecord("title", "A", "count", int64(1), "tags", []any{"x"}),
		NewRecord("title", "B", "count", int64(2), "meta", NewRecord("k", "v")),
	)
	want := marshalString(t, src)

	for _, f := range formats {
		t.Run(string(f.format), func(t *testing.T) {
			out, err := EncodeSource(src, f.format)
			require.NoError(t, err)

			back, err := Parse(context.Background(), out, f.hint)
			require.NoError(t, err)
			assert.True(t, back.Collection)
			assert.Equal(t, want, marshalString(t, back))
		})
	}
}

func TestRecord_SetKeepsPosition(t *testing.T) {
	rec := NewRecord("a", 1, "b", 2)
	rec.Set("a", 3)
	rec.Set("c", 4)

	assert.Equal(t, []string{"a", "b", "c"}, rec.Keys())
	v, _ := rec.Get("a")
	assert.Equal(t, 3, v)
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	var rec Record
	require.NoError(t, rec.UnmarshalJSON([]byte(`{"b":1,"a":{"y":2,"x":3}}`)))
	assert.Equal(t, `{"b":1,"a":{"y":2,"x":3}}`, marshalString(t, rec))

	assert.Error(t, rec.UnmarshalJSON([]byte(`[1]`)))
}

func TestRecord_CloneIsDeep(t *testing.T) {
	rec := NewRecord("meta", NewRecord("k", "v"))
	c := rec.Clone()

	inner, _ := c.Get("meta")
	nested := inner.(Record)
	nested.Set("k", "changed")
	c.Set("meta", nested)

	orig, _ := rec.Get("meta")
	v, _ := orig.(Record).Get("k")
	assert.Equal(t, "v", v)
}
