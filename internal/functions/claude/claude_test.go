package claude

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propdesk/internal/functions"
)

func TestInvokeSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))

		var req map[string]any
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "claude-test", req["model"])
		assert.Contains(t, req["system"], "executive summaries")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": " Ticket volume fell 20%. "}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	inv := New("sk-test", "claude-test", anthropic.WithBaseURL(server.URL+"/v1"))
	out, err := inv.Invoke(context.Background(), functions.GenerateExecutiveSummary, map[string]int{"open": 3})
	require.NoError(t, err)

	var res functions.TextResult
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Equal(t, "Ticket volume fell 20%.", res.Text)
}

func TestInvokeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	inv := New("sk-test", "claude-test", anthropic.WithBaseURL(server.URL+"/v1"))
	_, err := inv.Invoke(context.Background(), functions.GenerateExecutiveSummary, nil)
	assert.Error(t, err)
}

func TestInvokeUnknownFunction(t *testing.T) {
	inv := New("sk-test", "claude-test")
	_, err := inv.Invoke(context.Background(), functions.CalculatePriority, nil)
	assert.ErrorIs(t, err, functions.ErrUnknownFunction)
}

func TestNames(t *testing.T) {
	assert.Contains(t, Names(), functions.GenerateExecutiveSummary)
}
