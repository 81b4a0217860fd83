// Package wizard implements linear multi-step forms. Moving forward requires
// the current step to validate; moving back never does. Submitting from the
// last step hands the collected data to a submit func exactly once.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotLastStep = errors.New("wizard is not on its last step")
	ErrSubmitted   = errors.New("wizard already submitted")
)

// Step validates the part of T collected on one page. A nil Validate accepts
// anything.
type Step[T any] struct {
	Name     string
	Validate func(T) error
}

type SubmitFunc[T any] func(ctx context.Context, data T) error

type Wizard[T any] struct {
	mu        sync.Mutex
	steps     []Step[T]
	submit    SubmitFunc[T]
	current   int
	data      T
	submitted bool
}

func New[T any](steps []Step[T], submit SubmitFunc[T]) *Wizard[T] {
	if len(steps) == 0 {
		panic("wizard: at least one step is required")
	}
	return &Wizard[T]{steps: steps, submit: submit, current: 1}
}

// State is a snapshot for rendering.
type State[T any] struct {
	Step      int    `json:"step"`
	Steps     int    `json:"steps"`
	StepName  string `json:"step_name"`
	Data      T      `json:"data"`
	Submitted bool   `json:"submitted"`
}

func (w *Wizard[T]) State() State[T] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State[T]{
		Step:      w.current,
		Steps:     len(w.steps),
		StepName:  w.steps[w.current-1].Name,
		Data:      w.data,
		Submitted: w.submitted,
	}
}

// Step returns the current step, starting at 1.
func (w *Wizard[T]) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Update edits the collected data in place.
func (w *Wizard[T]) Update(fn func(*T)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitted {
		return ErrSubmitted
	}
	fn(&w.data)
	return nil
}

// Next advances one step if the current step validates. On failure the step
// is unchanged and the validation error is returned. Next on the last step is
// a no-op.
func (w *Wizard[T]) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitted {
		return ErrSubmitted
	}
	if err := w.validateCurrent(); err != nil {
		return err
	}
	if w.current < len(w.steps) {
		w.current++
	}
	return nil
}

// Back moves one step back without validating. Back on the first step is a no-op.
func (w *Wizard[T]) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitted {
		return
	}
	if w.current > 1 {
		w.current--
	}
}

// Submit validates the last step and calls the submit func. A failed submit
// can be retried; a successful one cannot.
func (w *Wizard[T]) Submit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitted {
		return ErrSubmitted
	}
	if w.current != len(w.steps) {
		return ErrNotLastStep
	}
	if err := w.validateCurrent(); err != nil {
		return err
	}
	if err := w.submit(ctx, w.data); err != nil {
		return fmt.Errorf("failed to submit: %w", err)
	}
	w.submitted = true
	return nil
}

// Reset discards all collected data and returns to the first step.
func (w *Wizard[T]) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	var zero T
	w.data = zero
	w.current = 1
	w.submitted = false
}

func (w *Wizard[T]) validateCurrent() error {
	step := w.steps[w.current-1]
	if step.Validate == nil {
		return nil
	}
	return step.Validate(w.data)
}
