package job

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Getters(t *testing.T) {
	r := Record{
		"username":  "acme",
		"followers": json.Number("1200"),
		"floaty":    float64(33.9),
		"intish":    7,
		"strnum":    "1,024",
		"verified":  true,
		"private":   "true",
		"nil":       nil,
		"nested":    map[string]any{"depth": json.Number("2")},
		"list":      []any{map[string]any{"a": "b"}, "skip-me"},
		"when":      "2026-03-01T10:00:00Z",
		"unix":      json.Number("1700000000"),
		"blank":     "   ",
	}

	assert.Equal(t, "acme", r.String("username"))
	assert.Equal(t, "1200", r.String("followers"))
	assert.Equal(t, "", r.String("missing"))

	assert.Equal(t, int64(1200), r.Int("followers"))
	assert.Equal(t, int64(33), r.Int("floaty"))
	assert.Equal(t, int64(7), r.Int("intish"))
	assert.Equal(t, int64(1024), r.Int("strnum"))
	assert.Equal(t, int64(0), r.Int("username"))
	_, ok := r.IntOK("missing")
	assert.False(t, ok)

	assert.InDelta(t, 33.9, r.Float("floaty"), 1e-9)
	assert.InDelta(t, 1200, r.Float("followers"), 1e-9)

	assert.True(t, r.Bool("verified"))
	assert.True(t, r.Bool("private"))
	assert.False(t, r.Bool("missing"))

	assert.True(t, r.Has("username"))
	assert.False(t, r.Has("nil"))
	assert.False(t, r.Has("missing"))

	assert.Equal(t, int64(2), r.Map("nested").Int("depth"))
	assert.Empty(t, r.Map("username"))

	list := r.Records("list")
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].String("a"))
	assert.Nil(t, r.Records("username"))

	assert.Equal(t, "acme", r.FirstString("blank", "missing", "username"))

	when := r.Time("when")
	require.NotNil(t, when)
	assert.Equal(t, 2026, when.Year())
	unix := r.Time("unix")
	require.NotNil(t, unix)
	assert.Equal(t, int64(1700000000), unix.Unix())
	assert.Nil(t, r.Time("username"))
	assert.Nil(t, r.Time("missing"))
}

func TestRecord_RecordsFromGoValues(t *testing.T) {
	r := Record{"startUrls": []map[string]any{{"url": "https://acme.com"}}}
	got := r.Records("startUrls")
	require.Len(t, got, 1)
	assert.Equal(t, "https://acme.com", got[0].String("url"))
}
