package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type form struct {
	Name  string
	Email string
	Notes string
}

var errRequired = errors.New("required")

func newFormWizard(submit SubmitFunc[form]) *Wizard[form] {
	return New([]Step[form]{
		{Name: "name", Validate: func(f form) error {
			if f.Name == "" {
				return errRequired
			}
			return nil
		}},
		{Name: "notes"},
		{Name: "email", Validate: func(f form) error {
			if f.Email == "" {
				return errRequired
			}
			return nil
		}},
	}, submit)
}

type countingSubmit struct {
	calls int
	last  form
	err   error
}

func (c *countingSubmit) submit(_ context.Context, f form) error {
	c.calls++
	c.last = f
	return c.err
}

func TestNextBlockedByInvalidStep(t *testing.T) {
	w := newFormWizard((&countingSubmit{}).submit)

	err := w.Next()
	assert.ErrorIs(t, err, errRequired)
	assert.Equal(t, 1, w.Step())

	require.NoError(t, w.Update(func(f *form) { f.Name = "Anna" }))
	require.NoError(t, w.Next())
	assert.Equal(t, 2, w.Step())
}

func TestStepWithoutValidatorAlwaysAdvances(t *testing.T) {
	w := newFormWizard((&countingSubmit{}).submit)
	require.NoError(t, w.Update(func(f *form) { f.Name = "Anna" }))
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	assert.Equal(t, 3, w.Step())

	// Next on the last step stays put.
	require.NoError(t, w.Update(func(f *form) { f.Email = "a@example.com" }))
	require.NoError(t, w.Next())
	assert.Equal(t, 3, w.Step())
}

func TestBackIsUnguarded(t *testing.T) {
	w := newFormWizard((&countingSubmit{}).submit)
	w.Back()
	assert.Equal(t, 1, w.Step())

	require.NoError(t, w.Update(func(f *form) { f.Name = "Anna" }))
	require.NoError(t, w.Next())
	require.NoError(t, w.Update(func(f *form) { f.Name = "" }))
	w.Back()
	assert.Equal(t, 1, w.Step())
	assert.Equal(t, "", w.State().Data.Name)
}

func TestSubmitCallsOnce(t *testing.T) {
	sub := &countingSubmit{}
	w := newFormWizard(sub.submit)
	ctx := context.Background()

	assert.ErrorIs(t, w.Submit(ctx), ErrNotLastStep)

	require.NoError(t, w.Update(func(f *form) { f.Name = "Anna" }))
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())

	assert.ErrorIs(t, w.Submit(ctx), errRequired)
	assert.Equal(t, 0, sub.calls)

	require.NoError(t, w.Update(func(f *form) { f.Email = "a@example.com" }))
	require.NoError(t, w.Submit(ctx))
	assert.Equal(t, 1, sub.calls)
	assert.Equal(t, form{Name: "Anna", Email: "a@example.com"}, sub.last)

	assert.ErrorIs(t, w.Submit(ctx), ErrSubmitted)
	assert.ErrorIs(t, w.Next(), ErrSubmitted)
	assert.ErrorIs(t, w.Update(func(*form) {}), ErrSubmitted)
	assert.Equal(t, 1, sub.calls)
	assert.True(t, w.State().Submitted)
}

func TestSubmitFailureCanRetry(t *testing.T) {
	sub := &countingSubmit{err: errors.New("backend down")}
	w := New([]Step[form]{{Name: "only"}}, sub.submit)
	ctx := context.Background()

	err := w.Submit(ctx)
	assert.ErrorContains(t, err, "backend down")
	assert.False(t, w.State().Submitted)

	sub.err = nil
	require.NoError(t, w.Submit(ctx))
	assert.Equal(t, 2, sub.calls)
}

func TestReset(t *testing.T) {
	w := newFormWizard((&countingSubmit{}).submit)
	require.NoError(t, w.Update(func(f *form) { f.Name = "Anna" }))
	require.NoError(t, w.Next())
	w.Reset()

	st := w.State()
	assert.Equal(t, 1, st.Step)
	assert.Equal(t, 3, st.Steps)
	assert.Equal(t, "name", st.StepName)
	assert.Equal(t, form{}, st.Data)
}

func TestNewWithoutStepsPanics(t *testing.T) {
	assert.Panics(t, func() { New[form](nil, nil) })
}

func TestSessions(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewSessions(10*time.Minute, func() *Wizard[form] {
		return newFormWizard((&countingSubmit{}).submit)
	})
	s.now = func() time.Time { return clock }

	id, w := s.Start()
	require.NotEmpty(t, id)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Same(t, w, got)

	clock = clock.Add(9 * time.Minute)
	_, err = s.Get(id)
	require.NoError(t, err)

	// Get refreshed the session, so 9 more minutes keep it alive.
	clock = clock.Add(9 * time.Minute)
	_, err = s.Get(id)
	require.NoError(t, err)

	clock = clock.Add(11 * time.Minute)
	_, err = s.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, s.Len())

	id2, _ := s.Start()
	s.Remove(id2)
	_, err = s.Get(id2)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
