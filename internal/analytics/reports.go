package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/vbonduro/propdesk/internal/domain"
)

const (
	SplitCritical = "critical"
	SplitSolved   = "solved"
)

func created(p *domain.UserProblem) time.Time { return p.CreatedDate }

func resolutionHours(p *domain.UserProblem) (float64, bool) {
	if p.LoesungszeitStunden == nil {
		return 0, false
	}
	return *p.LoesungszeitStunden, true
}

var ticketSplits = []Split[*domain.UserProblem]{
	{Name: SplitCritical, Match: func(p *domain.UserProblem) bool { return p.Severity == domain.SeverityCritical }},
	{Name: SplitSolved, Match: func(p *domain.UserProblem) bool { return p.Status.Done() }},
}

type TrendReport struct {
	Days   []Bucket `json:"days"`
	Months []Bucket `json:"months"`
	Weekly Delta    `json:"weekly"`
}

// Trend buckets tickets over the last 14 days and 6 months and compares this
// week with the previous one.
func Trend(tickets []*domain.UserProblem, now time.Time) TrendReport {
	return TrendReport{
		Days:   DailyBuckets(tickets, now, 14, created, ticketSplits...),
		Months: MonthlyBuckets(tickets, now, 6, created, ticketSplits...),
		Weekly: PeriodDelta(tickets, now, 7*24*time.Hour, created),
	}
}

type ModuleStats struct {
	Module             string  `json:"module"`
	Total              int     `json:"total"`
	Critical           int     `json:"critical"`
	CriticalShare      float64 `json:"critical_share"`
	Open               int     `json:"open"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

type ModuleReport struct {
	Modules       []ModuleStats `json:"modules"`
	TopCategories []Count       `json:"top_categories"`
}

// ModuleAnalysis reports the k modules with the most tickets, plus the top k
// categories.
func ModuleAnalysis(tickets []*domain.UserProblem, k int) ModuleReport {
	top := TopK(tickets, func(p *domain.UserProblem) string { return p.Module }, k)

	byModule := make(map[string][]*domain.UserProblem, len(top))
	for _, p := range tickets {
		byModule[p.Module] = append(byModule[p.Module], p)
	}

	modules := make([]ModuleStats, 0, len(top))
	for _, c := range top {
		group := byModule[c.Key]
		st := ModuleStats{Module: c.Key, Total: len(group)}
		for _, p := range group {
			if p.Severity == domain.SeverityCritical {
				st.Critical++
			}
			if !p.Status.Done() {
				st.Open++
			}
		}
		st.CriticalShare = Round1(Ratio(st.Critical, st.Total))
		st.AvgResolutionHours = Round1(AverageOf(group, resolutionHours))
		modules = append(modules, st)
	}

	return ModuleReport{
		Modules:       modules,
		TopCategories: TopK(tickets, func(p *domain.UserProblem) string { return p.Category }, k),
	}
}

type TimePatternReport struct {
	ByWeekday      [7]int  `json:"by_weekday"`
	ByHour         [24]int `json:"by_hour"`
	BusiestWeekday string  `json:"busiest_weekday"`
	BusiestHour    int     `json:"busiest_hour"`
}

// TimePatterns histograms ticket creation by weekday (Sunday first) and hour
// of day in loc. Busiest fields pick the earliest slot among ties and stay
// empty or zero when there are no tickets.
func TimePatterns(tickets []*domain.UserProblem, loc *time.Location) TimePatternReport {
	var r TimePatternReport
	total := 0
	for _, p := range tickets {
		if p.CreatedDate.IsZero() {
			continue
		}
		t := p.CreatedDate.In(loc)
		r.ByWeekday[t.Weekday()]++
		r.ByHour[t.Hour()]++
		total++
	}
	if total == 0 {
		return r
	}
	r.BusiestWeekday = time.Weekday(argmax(r.ByWeekday[:])).String()
	r.BusiestHour = argmax(r.ByHour[:])
	return r
}

func argmax(xs []int) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}

type SegmentReport struct {
	Reporters    int     `json:"reporters"`
	PowerUsers   []Count `json:"power_users"`
	Regular      int     `json:"regular"`
	OneTime      int     `json:"one_time"`
	TopReporters []Count `json:"top_reporters"`
}

// UserSegments groups reporters by how many tickets they filed. Power users
// filed at least powerThreshold tickets. Tickets without a reporter are ignored.
func UserSegments(tickets []*domain.UserProblem, powerThreshold int) SegmentReport {
	all := TopK(tickets, func(p *domain.UserProblem) string {
		return strings.ToLower(strings.TrimSpace(p.UserEmail))
	}, 0)

	r := SegmentReport{Reporters: len(all), PowerUsers: make([]Count, 0)}
	for _, c := range all {
		switch {
		case c.Count >= powerThreshold:
			r.PowerUsers = append(r.PowerUsers, c)
		case c.Count == 1:
			r.OneTime++
		default:
			r.Regular++
		}
	}
	r.TopReporters = all
	if len(all) > 5 {
		r.TopReporters = all[:5]
	}
	return r
}

type AssigneeStats struct {
	Assignee           string  `json:"assignee"`
	Assigned           int     `json:"assigned"`
	Resolved           int     `json:"resolved"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

type PerformanceReport struct {
	Total              int             `json:"total"`
	Open               int             `json:"open"`
	Resolved           int             `json:"resolved"`
	ResolutionRate     float64         `json:"resolution_rate"`
	AvgResolutionHours float64         `json:"avg_resolution_hours"`
	CreatedLast7Days   int             `json:"created_last_7_days"`
	ResolvedLast7Days  int             `json:"resolved_last_7_days"`
	CriticalOpen       int             `json:"critical_open"`
	Assignees          []AssigneeStats `json:"assignees"`
}

// PerformanceMetrics summarises throughput overall and per assignee.
func PerformanceMetrics(tickets []*domain.UserProblem, now time.Time) PerformanceReport {
	r := PerformanceReport{Total: len(tickets), Assignees: make([]AssigneeStats, 0)}
	weekAgo := now.Add(-7 * 24 * time.Hour)

	byAssignee := make(map[string][]*domain.UserProblem)
	var order []string
	for _, p := range tickets {
		if p.Status.Done() {
			r.Resolved++
			if p.ResolvedAt != nil && p.ResolvedAt.After(weekAgo) && !p.ResolvedAt.After(now) {
				r.ResolvedLast7Days++
			}
		} else {
			r.Open++
			if p.Severity == domain.SeverityCritical {
				r.CriticalOpen++
			}
		}
		if p.CreatedDate.After(weekAgo) && !p.CreatedDate.After(now) {
			r.CreatedLast7Days++
		}
		if p.AssignedTo != "" {
			if _, seen := byAssignee[p.AssignedTo]; !seen {
				order = append(order, p.AssignedTo)
			}
			byAssignee[p.AssignedTo] = append(byAssignee[p.AssignedTo], p)
		}
	}
	r.ResolutionRate = Round1(Ratio(r.Resolved, r.Total))
	r.AvgResolutionHours = Round1(AverageOf(tickets, resolutionHours))

	for _, a := range order {
		group := byAssignee[a]
		st := AssigneeStats{Assignee: a, Assigned: len(group)}
		for _, p := range group {
			if p.Status.Done() {
				st.Resolved++
			}
		}
		st.AvgResolutionHours = Round1(AverageOf(group, resolutionHours))
		r.Assignees = append(r.Assignees, st)
	}
	sort.SliceStable(r.Assignees, func(i, j int) bool {
		return r.Assignees[i].Resolved > r.Assignees[j].Resolved
	})
	return r
}

type SprintStats struct {
	Sprint      string  `json:"sprint"`
	Features    int     `json:"features"`
	Done        int     `json:"done"`
	StoryPoints int     `json:"story_points"`
	DonePoints  int     `json:"done_points"`
	AvgProgress float64 `json:"avg_progress"`
	Completion  float64 `json:"completion"`
	LinkedBugs  int     `json:"linked_bugs"`
}

// SprintSummary aggregates features per sprint in order of first appearance.
// Features without a sprint are grouped under "".
func SprintSummary(features []*domain.ProjectFeature) []SprintStats {
	out := make([]SprintStats, 0)
	index := make(map[string]int)
	progress := make(map[string][]float64)

	for _, f := range features {
		i, ok := index[f.Sprint]
		if !ok {
			i = len(out)
			index[f.Sprint] = i
			out = append(out, SprintStats{Sprint: f.Sprint})
		}
		st := &out[i]
		st.Features++
		st.StoryPoints += f.StoryPoints
		st.LinkedBugs += len(f.VerknuepfteBugs)
		if f.Status == domain.FeatureDone {
			st.Done++
			st.DonePoints += f.StoryPoints
		}
		progress[f.Sprint] = append(progress[f.Sprint], float64(f.Progress))
	}

	for i := range out {
		st := &out[i]
		st.AvgProgress = Round1(Average(progress[st.Sprint]))
		if st.StoryPoints > 0 {
			st.Completion = Round1(Ratio(st.DonePoints, st.StoryPoints))
		} else {
			st.Completion = Round1(Ratio(st.Done, st.Features))
		}
	}
	return out
}
