package support

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propdesk/internal/db"
	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/functions"
	"github.com/vbonduro/propdesk/internal/logging"
	"github.com/vbonduro/propdesk/internal/notify"
	"github.com/vbonduro/propdesk/internal/store"
	"github.com/vbonduro/propdesk/internal/validate"
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []notify.Message
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, msg)
	return r.err
}

func (r *recordingNotifier) messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.got...)
}

type stubFunctions struct {
	calls   []string
	results map[string]string
	err     error
}

func (s *stubFunctions) Invoke(_ context.Context, name string, _ any) (json.RawMessage, error) {
	s.calls = append(s.calls, name)
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.results[name]), nil
}

type fixture struct {
	svc      *Service
	cols     *store.Collections
	fns      *stubFunctions
	notifier *recordingNotifier
	clock    time.Time
}

var start = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	st := store.New(d, nil, logging.Discard())
	f := &fixture{
		cols: store.NewCollections(st),
		fns: &stubFunctions{results: map[string]string{
			functions.CalculatePriority:   `{"data":{"priority":"urgent","score":0.92}}`,
			functions.FindSimilarProblems: `{"similar":[{"id":"t-1","title":"Login fails","similarity":0.8}]}`,
		}},
		notifier: &recordingNotifier{},
		clock:    start,
	}
	st.SetClock(func() time.Time { return f.clock })
	f.svc = NewService(st, f.cols.Problems, f.cols.Solutions, f.cols.Features, f.fns, f.notifier, validate.New(), logging.Discard())
	f.svc.SetClock(func() time.Time { return f.clock })
	return f
}

func validDraft() ProblemDraft {
	return ProblemDraft{
		Basics:         Basics{Title: "Cannot export invoices", Description: "The export button spins forever."},
		Classification: Classification{Category: "bug", Module: "billing"},
		Impact:         Impact{Severity: domain.SeverityCritical},
	}
}

func TestReportProblemFullChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.ReportProblem(ctx, "tenant@example.com", validDraft())
	require.NoError(t, err)

	assert.Equal(t, []string{functions.CalculatePriority}, f.fns.calls)
	assert.Equal(t, domain.StatusOpen, p.Status)
	assert.Equal(t, "urgent", p.Priority)
	require.NotNil(t, p.PriorityScore)
	assert.InDelta(t, 0.92, *p.PriorityScore, 1e-9)
	assert.Equal(t, "tenant@example.com", p.UserEmail)
	assert.Equal(t, "tenant@example.com", p.CreatedBy)

	stored, err := f.svc.GetTicket(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "urgent", stored.Priority)

	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Critical)
	assert.Equal(t, "New ticket: Cannot export invoices", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "Priority: urgent")
}

func TestReportProblemInvalidDraftCreatesNothing(t *testing.T) {
	f := newFixture(t)
	draft := validDraft()
	draft.Title = "  "
	draft.Severity = "catastrophic"

	_, err := f.svc.ReportProblem(context.Background(), "", draft)
	var verr *validate.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)

	all, err := f.svc.ListTickets(context.Background(), TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, f.fns.calls)
}

func TestReportProblemPriorityFailureReturnsTicket(t *testing.T) {
	f := newFixture(t)
	f.fns.err = errors.New("function timed out")

	p, err := f.svc.ReportProblem(context.Background(), "a@example.com", validDraft())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to calculate priority")
	require.NotNil(t, p)
	assert.NotEmpty(t, p.ID)
	assert.Empty(t, p.Priority)
	assert.Empty(t, f.notifier.messages())
}

func TestReportProblemNotifyFailureReturnsTicket(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	p, err := f.svc.ReportProblem(context.Background(), "a@example.com", validDraft())
	require.Error(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "urgent", p.Priority)
}

func TestUpdateStatusResolutionTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.ReportProblem(ctx, "a@example.com", validDraft())
	require.NoError(t, err)

	f.clock = start.Add(26*time.Hour + 15*time.Minute)
	resolved, err := f.svc.UpdateStatus(ctx, p.ID, domain.StatusResolved)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.LoesungszeitStunden)
	assert.Equal(t, 26.3, *resolved.LoesungszeitStunden)
	assert.True(t, resolved.ResolvedAt.Equal(f.clock))

	// Closing a resolved ticket keeps the original resolution time.
	f.clock = f.clock.Add(48 * time.Hour)
	closed, err := f.svc.UpdateStatus(ctx, p.ID, domain.StatusClosed)
	require.NoError(t, err)
	assert.Equal(t, 26.3, *closed.LoesungszeitStunden)

	reopened, err := f.svc.UpdateStatus(ctx, p.ID, domain.StatusOpen)
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Nil(t, reopened.LoesungszeitStunden)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.ReportProblem(context.Background(), "", validDraft())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), p.ID, "done")
	var verr *validate.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Fields[0].Field)
}

func TestUpdateStatusMissingTicket(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateStatus(context.Background(), "nope", domain.StatusResolved)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAssignAndFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.ReportProblem(ctx, "", validDraft())
	require.NoError(t, err)
	other := validDraft()
	other.Severity = domain.SeverityLow
	_, err = f.svc.ReportProblem(ctx, "", other)
	require.NoError(t, err)

	_, err = f.svc.Assign(ctx, p.ID, "not-an-email")
	require.Error(t, err)

	assigned, err := f.svc.Assign(ctx, p.ID, "agent@example.com")
	require.NoError(t, err)
	assert.Equal(t, "agent@example.com", assigned.AssignedTo)

	mine, err := f.svc.ListTickets(ctx, TicketFilter{AssignedTo: "agent@example.com"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, p.ID, mine[0].ID)

	low, err := f.svc.ListTickets(ctx, TicketFilter{Severity: domain.SeverityLow, Status: domain.StatusOpen})
	require.NoError(t, err)
	assert.Len(t, low, 1)

	unassigned, err := f.svc.Assign(ctx, p.ID, "")
	require.NoError(t, err)
	assert.Empty(t, unassigned.AssignedTo)
}

func TestDeleteTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.ReportProblem(ctx, "", validDraft())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteTicket(ctx, p.ID))
	_, err = f.svc.GetTicket(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteTicketUnlinksFeatures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.ReportProblem(ctx, "", validDraft())
	require.NoError(t, err)
	other, err := f.svc.ReportProblem(ctx, "", validDraft())
	require.NoError(t, err)

	feat, err := f.cols.Features.Create(ctx, &domain.ProjectFeature{
		Title:           "Invoice export",
		Sprint:          "S1",
		VerknuepfteBugs: []string{p.ID, other.ID},
	})
	require.NoError(t, err)
	_, err = f.cols.Problems.Mutate(ctx, p.ID, func(v *domain.UserProblem) error {
		v.LinkedFeatureIDs = []string{feat.ID, "feature-gone"}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteTicket(ctx, p.ID))

	got, err := f.cols.Features.Get(ctx, feat.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, got.VerknuepfteBugs)
	_, err = f.svc.GetTicket(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteTicketNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.svc.DeleteTicket(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFindSimilar(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.FindSimilar(context.Background(), "Login", "fails on mobile")
	require.NoError(t, err)
	require.Len(t, res.Similar, 1)
	assert.Equal(t, "t-1", res.Similar[0].ID)

	_, err = f.svc.FindSimilar(context.Background(), "", "")
	var verr *validate.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestFindSimilarEmptyResult(t *testing.T) {
	f := newFixture(t)
	f.fns.results[functions.FindSimilarProblems] = `{}`
	res, err := f.svc.FindSimilar(context.Background(), "Login", "")
	require.NoError(t, err)
	assert.NotNil(t, res.Similar)
	assert.Empty(t, res.Similar)
}

func TestDashboardEmpty(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.Dashboard(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, d.Trend.Days, 14)
	assert.Equal(t, 0, d.Trend.Weekly.Current)
	assert.Equal(t, 0.0, d.Trend.Weekly.Percent)
	assert.Equal(t, 0, d.Performance.Total)
	assert.Empty(t, d.Modules.Modules)
}

func TestDashboardCountsTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.ReportProblem(ctx, "a@example.com", validDraft())
		require.NoError(t, err)
	}
	d, err := f.svc.Dashboard(ctx, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Performance.Total)
	assert.Equal(t, 3, d.Performance.CriticalOpen)
	require.NotEmpty(t, d.Modules.Modules)
	assert.Equal(t, "billing", d.Modules.Modules[0].Module)
}
