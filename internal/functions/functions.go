// Package functions invokes named remote functions. What a function computes
// is up to its backend; callers only shape the payload and decode the fields
// they document.
package functions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Names of the functions the application calls itself.
const (
	CalculatePriority        = "calculatePriority"
	FindSimilarProblems      = "findSimilarProblems"
	SendProblemNotification  = "sendProblemNotification"
	GenerateExecutiveSummary = "generateExecutiveSummary"
	DetectAnomalies          = "detectAnomalies"
	AnalyzeCostOptimization  = "analyzeCostOptimization"
	CreateGitHubIssue        = "createGitHubIssue"
)

var ErrUnknownFunction = errors.New("unknown function")

// Invoker calls a named function with a JSON payload and returns its JSON result.
type Invoker interface {
	Invoke(ctx context.Context, name string, payload any) (json.RawMessage, error)
}

// InvokerFunc adapts a plain func to Invoker.
type InvokerFunc func(ctx context.Context, name string, payload any) (json.RawMessage, error)

func (f InvokerFunc) Invoke(ctx context.Context, name string, payload any) (json.RawMessage, error) {
	return f(ctx, name, payload)
}

// Router sends each function to the backend registered for its name, or to
// the fallback when none is.
type Router struct {
	routes   map[string]Invoker
	fallback Invoker
}

func NewRouter(fallback Invoker) *Router {
	return &Router{routes: make(map[string]Invoker), fallback: fallback}
}

func (r *Router) Handle(name string, inv Invoker) {
	r.routes[name] = inv
}

func (r *Router) Invoke(ctx context.Context, name string, payload any) (json.RawMessage, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownFunction)
	}
	inv, ok := r.routes[name]
	if !ok {
		inv = r.fallback
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return inv.Invoke(ctx, name, payload)
}

// PriorityResult is the documented part of a calculatePriority response.
type PriorityResult struct {
	Priority string   `json:"priority"`
	Score    *float64 `json:"score,omitempty"`
}

// SimilarResult is the documented part of a findSimilarProblems response.
type SimilarResult struct {
	Similar []SimilarProblem `json:"similar"`
}

type SimilarProblem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity,omitempty"`
	SolutionID string  `json:"solution_id,omitempty"`
}

// TextResult is returned by text-generation functions.
type TextResult struct {
	Text string `json:"text"`
}

// Unwrap strips a {"data": ...} envelope. Only an object whose sole key is
// data counts as an envelope; anything else is returned as is.
func Unwrap(raw json.RawMessage) json.RawMessage {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil || len(env) != 1 {
		return raw
	}
	if data, ok := env["data"]; ok {
		return data
	}
	return raw
}

// Decode unwraps an optional {"data": ...} envelope and decodes the result into v.
func Decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(Unwrap(raw), v); err != nil {
		return fmt.Errorf("failed to decode function result: %w", err)
	}
	return nil
}
