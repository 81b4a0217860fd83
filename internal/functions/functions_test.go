package functions

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(result string) InvokerFunc {
	return func(_ context.Context, name string, _ any) (json.RawMessage, error) {
		return json.RawMessage(`{"backend":"` + result + `","name":"` + name + `"}`), nil
	}
}

func TestRouterRoutesByName(t *testing.T) {
	r := NewRouter(named("remote"))
	r.Handle(GenerateExecutiveSummary, named("claude"))
	ctx := context.Background()

	out, err := r.Invoke(ctx, GenerateExecutiveSummary, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"backend":"claude","name":"generateExecutiveSummary"}`, string(out))

	out, err = r.Invoke(ctx, CalculatePriority, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"backend":"remote","name":"calculatePriority"}`, string(out))
}

func TestRouterWithoutFallback(t *testing.T) {
	r := NewRouter(nil)
	r.Handle("known", named("x"))

	_, err := r.Invoke(context.Background(), "unknown", nil)
	assert.ErrorIs(t, err, ErrUnknownFunction)

	_, err = r.Invoke(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestDecode(t *testing.T) {
	var p PriorityResult
	require.NoError(t, Decode(json.RawMessage(`{"data":{"priority":"high","score":0.8}}`), &p))
	assert.Equal(t, "high", p.Priority)
	require.NotNil(t, p.Score)
	assert.Equal(t, 0.8, *p.Score)

	var s SimilarResult
	require.NoError(t, Decode(json.RawMessage(`{"similar":[{"id":"a","title":"Login"}]}`), &s))
	require.Len(t, s.Similar, 1)
	assert.Equal(t, "Login", s.Similar[0].Title)

	assert.Error(t, Decode(json.RawMessage(`not json`), &p))
}

func TestDecodeOnlyUnwrapsSoleDataKey(t *testing.T) {
	var got map[string]any
	require.NoError(t, Decode(json.RawMessage(`{"data":{"id":"x"},"meta":{"page":1}}`), &got))
	assert.Contains(t, got, "meta")
	assert.Contains(t, got, "data")
}

func TestUnwrap(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(Unwrap(json.RawMessage(`{"data":{"a":1}}`))))
	assert.JSONEq(t, `{"a":1}`, string(Unwrap(json.RawMessage(`{"a":1}`))))
	assert.JSONEq(t, `{"data":1,"b":2}`, string(Unwrap(json.RawMessage(`{"data":1,"b":2}`))))
	assert.JSONEq(t, `[1,2]`, string(Unwrap(json.RawMessage(`[1,2]`))))
}
