// Package remote invokes functions hosted behind an HTTP endpoint:
// POST {baseURL}/{name} with the payload as JSON body.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vbonduro/propdesk/internal/functions"
)

// Invoker sends each call once, except calls to functions listed in
// Options.Retryable, which are retried on transport errors and 5xx.
type Invoker struct {
	client    *resty.Client
	retrying  *resty.Client
	retryable map[string]bool
	logger    *slog.Logger
}

type Options struct {
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
	// Retryable names the functions that have no side effects.
	Retryable []string
}

func DefaultOptions() Options {
	return Options{
		Timeout:    30 * time.Second,
		RetryCount: 2,
		RetryWait:  500 * time.Millisecond,
		Retryable: []string{
			functions.CalculatePriority,
			functions.FindSimilarProblems,
			functions.GenerateExecutiveSummary,
			functions.DetectAnomalies,
			functions.AnalyzeCostOptimization,
		},
	}
}

func New(baseURL, apiKey string, opts Options, logger *slog.Logger) *Invoker {
	retryable := make(map[string]bool, len(opts.Retryable))
	for _, name := range opts.Retryable {
		retryable[name] = true
	}
	return &Invoker{
		client: newClient(baseURL, apiKey, opts.Timeout),
		retrying: newClient(baseURL, apiKey, opts.Timeout).
			SetRetryCount(opts.RetryCount).
			SetRetryWaitTime(opts.RetryWait).
			SetRetryMaxWaitTime(4 * opts.RetryWait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			}),
		retryable: retryable,
		logger:    logger,
	}
}

func newClient(baseURL, apiKey string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return client
}

func (i *Invoker) Invoke(ctx context.Context, name string, payload any) (json.RawMessage, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	client := i.client
	if i.retryable[name] {
		client = i.retrying
	}
	start := time.Now()
	resp, err := client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/" + url.PathEscape(name))
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", name, err)
	}
	i.logger.Debug("function invoked",
		"function", name,
		"status", resp.StatusCode(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if resp.IsError() {
		return nil, fmt.Errorf("function %s returned status %d: %s", name, resp.StatusCode(), resp.Body())
	}

	body := resp.Body()
	if len(body) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("function %s returned invalid JSON", name)
	}
	return json.RawMessage(body), nil
}
