// Package support runs the ticket workflow and the knowledge base.
package support

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/vbonduro/propdesk/internal/analytics"
	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/functions"
	"github.com/vbonduro/propdesk/internal/notify"
	"github.com/vbonduro/propdesk/internal/store"
	"github.com/vbonduro/propdesk/internal/validate"
)

// txRunner is the subset of store.Store that Service requires.
type txRunner interface {
	InTx(ctx context.Context, lockIDs []string, fn func(tx *store.Tx) error) error
}

// ticketRepository is the subset of store.Collection[domain.UserProblem] that Service requires.
type ticketRepository interface {
	Filter(ctx context.Context, q store.Query) ([]*domain.UserProblem, error)
	Get(ctx context.Context, id string) (*domain.UserProblem, error)
	Create(ctx context.Context, p *domain.UserProblem) (*domain.UserProblem, error)
	Mutate(ctx context.Context, id string, fn func(*domain.UserProblem) error) (*domain.UserProblem, error)
	MutateIn(ctx context.Context, tx *store.Tx, id string, fn func(*domain.UserProblem) error) (*domain.UserProblem, error)
	DeleteIn(ctx context.Context, tx *store.Tx, id string) error
}

// featureRepository is the subset of store.Collection[domain.ProjectFeature] that Service requires.
type featureRepository interface {
	MutateIn(ctx context.Context, tx *store.Tx, id string, fn func(*domain.ProjectFeature) error) (*domain.ProjectFeature, error)
}

// solutionRepository is the subset of store.Collection[domain.ProblemSolution] that Service requires.
type solutionRepository interface {
	Filter(ctx context.Context, q store.Query) ([]*domain.ProblemSolution, error)
	Get(ctx context.Context, id string) (*domain.ProblemSolution, error)
	Create(ctx context.Context, s *domain.ProblemSolution) (*domain.ProblemSolution, error)
	Update(ctx context.Context, id string, patch map[string]any) (*domain.ProblemSolution, error)
	Mutate(ctx context.Context, id string, fn func(*domain.ProblemSolution) error) (*domain.ProblemSolution, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	tx        txRunner
	tickets   ticketRepository
	solutions solutionRepository
	features  featureRepository
	functions functions.Invoker
	notifier  notify.Notifier
	validator *validate.Validator
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(
	tx txRunner,
	tickets ticketRepository,
	solutions solutionRepository,
	features featureRepository,
	fns functions.Invoker,
	notifier notify.Notifier,
	validator *validate.Validator,
	logger *slog.Logger,
) *Service {
	return &Service{
		tx:        tx,
		tickets:   tickets,
		solutions: solutions,
		features:  features,
		functions: fns,
		notifier:  notifier,
		validator: validator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for resolution timestamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ProblemDraft is the input of a problem report, one embedded struct per
// wizard step.
type ProblemDraft struct {
	Basics
	Classification
	Impact
	Contact
}

type Basics struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"notblank"`
}

type Classification struct {
	Category string `json:"category" validate:"notblank"`
	Module   string `json:"module" validate:"notblank"`
}

type Impact struct {
	Severity domain.Severity `json:"severity" validate:"severity"`
}

type Contact struct {
	UserEmail   string   `json:"user_email" validate:"omitempty,email"`
	Attachments []string `json:"attachments,omitempty" validate:"omitempty,dive,url"`
}

// ReportProblem creates a ticket, asks calculatePriority to classify it, stores
// the priority, and sends a notification, in that order. The first failure
// stops the chain and is returned together with the ticket if it was created.
func (s *Service) ReportProblem(ctx context.Context, reporter string, draft ProblemDraft) (*domain.UserProblem, error) {
	if err := s.validator.Struct(draft); err != nil {
		return nil, err
	}
	email := draft.UserEmail
	if email == "" {
		email = reporter
	}

	p := &domain.UserProblem{
		Title:       strings.TrimSpace(draft.Title),
		Description: draft.Description,
		Category:    draft.Category,
		Module:      draft.Module,
		Severity:    draft.Severity,
		Status:      domain.StatusOpen,
		UserEmail:   email,
		Attachments: draft.Attachments,
	}
	p.CreatedBy = reporter

	created, err := s.tickets.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	s.logger.Info("ticket created", "ticket_id", created.ID, "severity", created.Severity)

	prioritized, err := s.classify(ctx, created)
	if err != nil {
		return created, err
	}

	if err := s.notifier.Notify(ctx, ticketMessage(prioritized)); err != nil {
		return prioritized, fmt.Errorf("failed to send ticket notification: %w", err)
	}
	return prioritized, nil
}

func (s *Service) classify(ctx context.Context, p *domain.UserProblem) (*domain.UserProblem, error) {
	raw, err := s.functions.Invoke(ctx, functions.CalculatePriority, p)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate priority: %w", err)
	}
	var res functions.PriorityResult
	if err := functions.Decode(raw, &res); err != nil {
		return nil, err
	}

	updated, err := s.tickets.Mutate(ctx, p.ID, func(t *domain.UserProblem) error {
		t.Priority = res.Priority
		t.PriorityScore = res.Score
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store priority: %w", err)
	}
	return updated, nil
}

func ticketMessage(p *domain.UserProblem) notify.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Severity: %s\n", p.Severity)
	if p.Priority != "" {
		fmt.Fprintf(&b, "Priority: %s\n", p.Priority)
	}
	if p.Module != "" {
		fmt.Fprintf(&b, "Module: %s\n", p.Module)
	}
	if p.UserEmail != "" {
		fmt.Fprintf(&b, "Reported by: %s\n", p.UserEmail)
	}
	b.WriteString("\n")
	b.WriteString(p.Description)

	return notify.Message{
		Subject:  "New ticket: " + p.Title,
		Body:     b.String(),
		Critical: p.Severity == domain.SeverityCritical,
	}
}

// TicketFilter narrows ListTickets. Empty fields match everything.
type TicketFilter struct {
	Status     domain.TicketStatus
	Severity   domain.Severity
	AssignedTo string
	Module     string
	Sort       string
	Limit      int
}

func (s *Service) ListTickets(ctx context.Context, f TicketFilter) ([]*domain.UserProblem, error) {
	where := make(map[string]any)
	if f.Status != "" {
		where["status"] = string(f.Status)
	}
	if f.Severity != "" {
		where["severity"] = string(f.Severity)
	}
	if f.AssignedTo != "" {
		where["assigned_to"] = f.AssignedTo
	}
	if f.Module != "" {
		where["module"] = f.Module
	}
	return s.tickets.Filter(ctx, store.Query{Where: where, Sort: f.Sort, Limit: f.Limit})
}

func (s *Service) GetTicket(ctx context.Context, id string) (*domain.UserProblem, error) {
	return s.tickets.Get(ctx, id)
}

// UpdateStatus moves a ticket to status. Entering resolved or closed stamps
// resolved_at and the resolution time in hours; reopening clears both.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.UserProblem, error) {
	if err := s.validator.Var("status", string(status), "ticket_status"); err != nil {
		return nil, err
	}
	return s.tickets.Mutate(ctx, id, func(p *domain.UserProblem) error {
		switch {
		case status.Done() && p.ResolvedAt == nil:
			now := s.now().UTC()
			hours := analytics.Round1(now.Sub(p.CreatedDate).Hours())
			p.ResolvedAt = &now
			p.LoesungszeitStunden = &hours
		case !status.Done():
			p.ResolvedAt = nil
			p.LoesungszeitStunden = nil
		}
		p.Status = status
		return nil
	})
}

// Assign sets the ticket's assignee. An empty email unassigns it.
func (s *Service) Assign(ctx context.Context, id, email string) (*domain.UserProblem, error) {
	if err := s.validator.Var("assigned_to", email, "omitempty,email"); err != nil {
		return nil, err
	}
	return s.tickets.Mutate(ctx, id, func(p *domain.UserProblem) error {
		p.AssignedTo = email
		return nil
	})
}

// DeleteTicket removes a ticket and its id from every linked feature.
func (s *Service) DeleteTicket(ctx context.Context, id string) error {
	p, err := s.tickets.Get(ctx, id)
	if err != nil {
		return err
	}
	lockIDs := append([]string{id}, p.LinkedFeatureIDs...)
	return s.tx.InTx(ctx, lockIDs, func(tx *store.Tx) error {
		current, err := s.tickets.MutateIn(ctx, tx, id, func(*domain.UserProblem) error { return store.ErrUnchanged })
		if err != nil {
			return err
		}
		for _, featureID := range current.LinkedFeatureIDs {
			if err := s.unlinkFeature(ctx, tx, featureID, id); err != nil {
				return err
			}
		}
		return s.tickets.DeleteIn(ctx, tx, id)
	})
}

func (s *Service) unlinkFeature(ctx context.Context, tx *store.Tx, featureID, ticketID string) error {
	_, err := s.features.MutateIn(ctx, tx, featureID, func(f *domain.ProjectFeature) error {
		if !slices.Contains(f.VerknuepfteBugs, ticketID) {
			return store.ErrUnchanged
		}
		f.VerknuepfteBugs = slices.DeleteFunc(f.VerknuepfteBugs, func(id string) bool { return id == ticketID })
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to unlink feature %s: %w", featureID, err)
	}
	if err != nil {
		s.logger.Warn("linked feature no longer exists", "feature_id", featureID, "ticket_id", ticketID)
	}
	return nil
}

// FindSimilar asks findSimilarProblems for tickets resembling a draft.
func (s *Service) FindSimilar(ctx context.Context, title, description string) (*functions.SimilarResult, error) {
	if err := s.validator.Var("title", title, "notblank"); err != nil {
		return nil, err
	}
	raw, err := s.functions.Invoke(ctx, functions.FindSimilarProblems, map[string]string{
		"title":       title,
		"description": description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find similar problems: %w", err)
	}
	res := &functions.SimilarResult{}
	if err := functions.Decode(raw, res); err != nil {
		return nil, err
	}
	if res.Similar == nil {
		res.Similar = make([]functions.SimilarProblem, 0)
	}
	return res, nil
}

type Dashboard struct {
	Trend       analytics.TrendReport       `json:"trend"`
	Modules     analytics.ModuleReport      `json:"modules"`
	TimePattern analytics.TimePatternReport `json:"time_patterns"`
	Segments    analytics.SegmentReport     `json:"segments"`
	Performance analytics.PerformanceReport `json:"performance"`
}

const (
	dashboardTopK      = 5
	powerUserThreshold = 5
)

// Dashboard runs every ticket report over the full ticket list.
func (s *Service) Dashboard(ctx context.Context, loc *time.Location) (*Dashboard, error) {
	tickets, err := s.tickets.Filter(ctx, store.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	now := s.now()
	return &Dashboard{
		Trend:       analytics.Trend(tickets, now),
		Modules:     analytics.ModuleAnalysis(tickets, dashboardTopK),
		TimePattern: analytics.TimePatterns(tickets, loc),
		Segments:    analytics.UserSegments(tickets, powerUserThreshold),
		Performance: analytics.PerformanceMetrics(tickets, now),
	}, nil
}
