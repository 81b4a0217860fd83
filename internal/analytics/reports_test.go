package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/propdesk/internal/domain"
)

func ticket(created time.Time, mod, cat string, sev domain.Severity, status domain.TicketStatus) *domain.UserProblem {
	return &domain.UserProblem{
		Record:   domain.Record{CreatedDate: created},
		Module:   mod,
		Category: cat,
		Severity: sev,
		Status:   status,
	}
}

func TestTrendEmpty(t *testing.T) {
	r := Trend(nil, now)
	require.Len(t, r.Days, 14)
	require.Len(t, r.Months, 6)
	for _, b := range r.Days {
		assert.Zero(t, b.Count)
		assert.Zero(t, b.Splits[SplitCritical])
		assert.Zero(t, b.Splits[SplitSolved])
	}
	assert.Equal(t, 0, r.Weekly.Change)
	assert.Equal(t, 0.0, r.Weekly.Percent)
}

func TestTrendOnlyOldRecords(t *testing.T) {
	old := ticket(now.AddDate(0, 0, -30), "billing", "", domain.SeverityLow, domain.StatusOpen)
	r := Trend([]*domain.UserProblem{old}, now)
	for _, b := range r.Days {
		assert.Zero(t, b.Count)
	}
	assert.Equal(t, Delta{}, r.Weekly)
}

func TestTrendSplits(t *testing.T) {
	tickets := []*domain.UserProblem{
		ticket(now, "a", "", domain.SeverityCritical, domain.StatusOpen),
		ticket(now, "a", "", domain.SeverityLow, domain.StatusResolved),
		ticket(now.AddDate(0, 0, -8), "a", "", domain.SeverityLow, domain.StatusOpen),
	}
	r := Trend(tickets, now)
	last := r.Days[13]
	assert.Equal(t, 2, last.Count)
	assert.Equal(t, 1, last.Splits[SplitCritical])
	assert.Equal(t, 1, last.Splits[SplitSolved])
	assert.Equal(t, Delta{Current: 2, Previous: 1, Change: 1, Percent: 100}, r.Weekly)
}

func TestModuleAnalysis(t *testing.T) {
	h := 10.0
	resolved := ticket(now, "billing", "invoice", domain.SeverityCritical, domain.StatusResolved)
	resolved.LoesungszeitStunden = &h
	tickets := []*domain.UserProblem{
		ticket(now, "buildings", "ui", domain.SeverityLow, domain.StatusOpen),
		resolved,
		ticket(now, "billing", "invoice", domain.SeverityLow, domain.StatusOpen),
		ticket(now, "", "ui", domain.SeverityLow, domain.StatusOpen),
	}
	r := ModuleAnalysis(tickets, 5)
	require.Len(t, r.Modules, 2)
	assert.Equal(t, ModuleStats{Module: "billing", Total: 2, Critical: 1, CriticalShare: 50, Open: 1, AvgResolutionHours: 10}, r.Modules[0])
	assert.Equal(t, "buildings", r.Modules[1].Module)
	assert.Equal(t, 0.0, r.Modules[1].AvgResolutionHours)
	assert.Equal(t, []Count{{Key: "ui", Count: 2}, {Key: "invoice", Count: 2}}, r.TopCategories)
}

func TestModuleAnalysisEmpty(t *testing.T) {
	r := ModuleAnalysis(nil, 5)
	assert.Empty(t, r.Modules)
	assert.Empty(t, r.TopCategories)
}

func TestTimePatterns(t *testing.T) {
	mon9 := time.Date(2026, 3, 9, 9, 15, 0, 0, time.UTC)
	tickets := []*domain.UserProblem{
		ticket(mon9, "", "", "", ""),
		ticket(mon9.Add(time.Minute), "", "", "", ""),
		ticket(mon9.AddDate(0, 0, 1).Add(5*time.Hour), "", "", "", ""),
	}
	r := TimePatterns(tickets, time.UTC)
	assert.Equal(t, 2, r.ByWeekday[time.Monday])
	assert.Equal(t, 1, r.ByWeekday[time.Tuesday])
	assert.Equal(t, 2, r.ByHour[9])
	assert.Equal(t, "Monday", r.BusiestWeekday)
	assert.Equal(t, 9, r.BusiestHour)

	empty := TimePatterns(nil, time.UTC)
	assert.Equal(t, "", empty.BusiestWeekday)
	assert.Equal(t, 0, empty.BusiestHour)
}

func TestUserSegments(t *testing.T) {
	var tickets []*domain.UserProblem
	add := func(email string, n int) {
		for i := 0; i < n; i++ {
			tickets = append(tickets, &domain.UserProblem{UserEmail: email})
		}
	}
	add("heavy@example.com", 4)
	add("Heavy@Example.com ", 1)
	add("mid@example.com", 2)
	add("once@example.com", 1)
	add("", 3)

	r := UserSegments(tickets, 5)
	assert.Equal(t, 3, r.Reporters)
	assert.Equal(t, []Count{{Key: "heavy@example.com", Count: 5}}, r.PowerUsers)
	assert.Equal(t, 1, r.Regular)
	assert.Equal(t, 1, r.OneTime)
	assert.Len(t, r.TopReporters, 3)

	empty := UserSegments(nil, 5)
	assert.Zero(t, empty.Reporters)
	assert.Empty(t, empty.PowerUsers)
}

func TestPerformanceMetrics(t *testing.T) {
	h1, h2 := 4.0, 8.0
	resolvedAt := now.Add(-time.Hour)
	a := ticket(now.AddDate(0, 0, -2), "", "", domain.SeverityHigh, domain.StatusResolved)
	a.AssignedTo, a.LoesungszeitStunden, a.ResolvedAt = "ops@example.com", &h1, &resolvedAt
	b := ticket(now.AddDate(0, 0, -10), "", "", domain.SeverityLow, domain.StatusClosed)
	b.AssignedTo, b.LoesungszeitStunden = "dev@example.com", &h2
	c := ticket(now.AddDate(0, 0, -1), "", "", domain.SeverityCritical, domain.StatusOpen)
	c.AssignedTo = "dev@example.com"
	d := ticket(now.AddDate(0, 0, -1), "", "", domain.SeverityLow, domain.StatusWaiting)

	r := PerformanceMetrics([]*domain.UserProblem{a, b, c, d}, now)
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 2, r.Open)
	assert.Equal(t, 2, r.Resolved)
	assert.Equal(t, 50.0, r.ResolutionRate)
	assert.Equal(t, 6.0, r.AvgResolutionHours)
	assert.Equal(t, 3, r.CreatedLast7Days)
	assert.Equal(t, 1, r.ResolvedLast7Days)
	assert.Equal(t, 1, r.CriticalOpen)
	require.Len(t, r.Assignees, 2)
	assert.Equal(t, AssigneeStats{Assignee: "ops@example.com", Assigned: 1, Resolved: 1, AvgResolutionHours: 4}, r.Assignees[0])
	assert.Equal(t, AssigneeStats{Assignee: "dev@example.com", Assigned: 2, Resolved: 1, AvgResolutionHours: 8}, r.Assignees[1])
}

func TestPerformanceMetricsEmpty(t *testing.T) {
	r := PerformanceMetrics(nil, now)
	assert.Equal(t, 0.0, r.ResolutionRate)
	assert.Equal(t, 0.0, r.AvgResolutionHours)
	assert.NotNil(t, r.Assignees)
}

func TestSprintSummary(t *testing.T) {
	features := []*domain.ProjectFeature{
		{Sprint: "S1", Status: domain.FeatureDone, Progress: 100, StoryPoints: 5, VerknuepfteBugs: []string{"b1"}},
		{Sprint: "S1", Status: domain.FeatureInProgress, Progress: 40, StoryPoints: 3},
		{Sprint: "S2", Status: domain.FeatureBacklog},
	}
	got := SprintSummary(features)
	require.Len(t, got, 2)
	assert.Equal(t, SprintStats{
		Sprint: "S1", Features: 2, Done: 1, StoryPoints: 8, DonePoints: 5,
		AvgProgress: 70, Completion: 62.5, LinkedBugs: 1,
	}, got[0])
	assert.Equal(t, SprintStats{Sprint: "S2", Features: 1}, got[1])

	assert.Empty(t, SprintSummary(nil))
}
