package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/propdesk/internal/functions"
	"github.com/vbonduro/propdesk/internal/logging"
)

func fastOptions() Options {
	opts := DefaultOptions()
	opts.Timeout = 5 * time.Second
	opts.RetryWait = time.Millisecond
	return opts
}

func TestInvokePostsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/calculatePriority", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"severity":"critical"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"priority":"high"}}`))
	}))
	defer srv.Close()

	inv := New(srv.URL, "secret", fastOptions(), logging.Discard())
	out, err := inv.Invoke(context.Background(), "calculatePriority", map[string]string{"severity": "critical"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"priority":"high"}}`, string(out))
}

func TestInvokeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	inv := New(srv.URL, "", fastOptions(), logging.Discard())
	out, err := inv.Invoke(context.Background(), "detectAnomalies", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(out))
	assert.Equal(t, int32(3), calls.Load())
}

func TestInvokeSideEffectsNotRetried(t *testing.T) {
	for _, name := range []string{functions.CreateGitHubIssue, functions.SendProblemNotification, "customAction"} {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer srv.Close()

			inv := New(srv.URL, "", fastOptions(), logging.Discard())
			_, err := inv.Invoke(context.Background(), name, map[string]string{"title": "Heating down"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "status 502")
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestInvokeSideEffectsNotRetriedAfterTimeout(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
	}))
	defer srv.Close()
	defer close(release)

	opts := fastOptions()
	opts.Timeout = 50 * time.Millisecond
	inv := New(srv.URL, "", opts, logging.Discard())
	_, err := inv.Invoke(context.Background(), functions.CreateGitHubIssue, map[string]string{"title": "Heating down"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvokeClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	inv := New(srv.URL, "", fastOptions(), logging.Discard())
	_, err := inv.Invoke(context.Background(), "findSimilarProblems", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvokeInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	inv := New(srv.URL, "", fastOptions(), logging.Discard())
	_, err := inv.Invoke(context.Background(), "x", nil)
	assert.Error(t, err)
}

func TestInvokeEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	inv := New(srv.URL, "", fastOptions(), logging.Discard())
	out, err := inv.Invoke(context.Background(), "sendProblemNotification", nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), out)
}
