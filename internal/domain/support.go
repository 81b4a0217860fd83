package domain

import "time"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusWaiting    TicketStatus = "waiting"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusWaiting, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Done reports whether the status ends the ticket's resolution clock.
func (s TicketStatus) Done() bool {
	return s == StatusResolved || s == StatusClosed
}

// UserProblem is a support ticket.
type UserProblem struct {
	Record
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Category            string       `json:"category,omitempty"`
	Module              string       `json:"module,omitempty"`
	Severity            Severity     `json:"severity"`
	Status              TicketStatus `json:"status"`
	Priority            string       `json:"priority,omitempty"`
	PriorityScore       *float64     `json:"priority_score,omitempty"`
	AssignedTo          string       `json:"assigned_to,omitempty"`
	UserEmail           string       `json:"user_email,omitempty"`
	ResolvedAt          *time.Time   `json:"resolved_at,omitempty"`
	LoesungszeitStunden *float64     `json:"loesungszeit_stunden,omitempty"`
	Attachments         []string     `json:"attachments,omitempty"`
	LinkedFeatureIDs    []string     `json:"linked_feature_ids,omitempty"`
}

func (*UserProblem) Kind() Kind { return KindUserProblem }

// ProblemSolution is a knowledge-base article.
type ProblemSolution struct {
	Record
	Title           string   `json:"title"`
	Problem         string   `json:"problem,omitempty"`
	Category        string   `json:"category,omitempty"`
	Steps           []string `json:"steps,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Published       bool     `json:"published"`
	ViewCount       int      `json:"view_count"`
	HelpfulCount    int      `json:"helpful_count"`
	NotHelpfulCount int      `json:"not_helpful_count"`
	RelatedTicketID string   `json:"related_ticket_id,omitempty"`
}

func (*ProblemSolution) Kind() Kind { return KindProblemSolution }
