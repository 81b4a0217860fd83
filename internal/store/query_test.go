package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	q, args, err := buildSelect("UserProblem", Query{
		Where: map[string]any{"status": "open", "published": true, "assigned_to": nil},
		Sort:  "-severity",
		Limit: 5,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT data FROM records WHERE kind = ? AND json_extract(data, '$.assigned_to') IS NULL"+
			" AND json_extract(data, '$.published') = ? AND json_extract(data, '$.status') = ?"+
			" ORDER BY json_extract(data, '$.severity') DESC, created_date DESC, id LIMIT ?",
		q)
	assert.Equal(t, []any{"UserProblem", 1, "open", 5}, args)
}

func TestBuildSelectDefaults(t *testing.T) {
	q, args, err := buildSelect("Owner", Query{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT data FROM records WHERE kind = ? ORDER BY created_date DESC, id", q)
	assert.Equal(t, []any{"Owner"}, args)
}

func TestQueryCacheKeyStable(t *testing.T) {
	a := Query{Where: map[string]any{"b": 1, "a": "x"}, Sort: "title"}
	b := Query{Where: map[string]any{"a": "x", "b": 1}, Sort: "title"}
	assert.Equal(t, a.cacheKey(), b.cacheKey())
	assert.NotEqual(t, a.cacheKey(), Query{Sort: "title"}.cacheKey())
}
