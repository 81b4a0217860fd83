// Package project runs the internal roadmap board: features, sprints, and the
// links between features and bug tickets.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/vbonduro/propdesk/internal/analytics"
	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/store"
	"github.com/vbonduro/propdesk/internal/validate"
)

// txRunner is the subset of store.Store that Service requires.
type txRunner interface {
	InTx(ctx context.Context, lockIDs []string, fn func(tx *store.Tx) error) error
}

// featureRepository is the subset of store.Collection[domain.ProjectFeature] that Service requires.
type featureRepository interface {
	Filter(ctx context.Context, q store.Query) ([]*domain.ProjectFeature, error)
	Get(ctx context.Context, id string) (*domain.ProjectFeature, error)
	Create(ctx context.Context, f *domain.ProjectFeature) (*domain.ProjectFeature, error)
	UpdateFunc(ctx context.Context, id string, patch map[string]any, fn func(*domain.ProjectFeature) error) (*domain.ProjectFeature, error)
	Mutate(ctx context.Context, id string, fn func(*domain.ProjectFeature) error) (*domain.ProjectFeature, error)
	MutateIn(ctx context.Context, tx *store.Tx, id string, fn func(*domain.ProjectFeature) error) (*domain.ProjectFeature, error)
	DeleteIn(ctx context.Context, tx *store.Tx, id string) error
}

// ticketRepository is the subset of store.Collection[domain.UserProblem] that Service requires.
type ticketRepository interface {
	MutateIn(ctx context.Context, tx *store.Tx, id string, fn func(*domain.UserProblem) error) (*domain.UserProblem, error)
}

type Service struct {
	tx        txRunner
	features  featureRepository
	tickets   ticketRepository
	validator *validate.Validator
	logger    *slog.Logger
}

func NewService(tx txRunner, features featureRepository, tickets ticketRepository, validator *validate.Validator, logger *slog.Logger) *Service {
	return &Service{tx: tx, features: features, tickets: tickets, validator: validator, logger: logger}
}

type FeatureInput struct {
	Title       string               `json:"title" validate:"notblank,max=200"`
	Description string               `json:"description"`
	Status      domain.FeatureStatus `json:"status" validate:"omitempty,feature_status"`
	Priority    string               `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Progress    int                  `json:"progress"`
	Sprint      string               `json:"sprint"`
	StoryPoints int                  `json:"story_points" validate:"min=0"`
	Assignee    string               `json:"assignee" validate:"omitempty,email"`
}

func (s *Service) CreateFeature(ctx context.Context, createdBy string, in FeatureInput) (*domain.ProjectFeature, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	f := &domain.ProjectFeature{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Progress:    in.Progress,
		Sprint:      in.Sprint,
		StoryPoints: in.StoryPoints,
		Assignee:    in.Assignee,
	}
	if f.Status == "" {
		f.Status = domain.FeatureBacklog
	}
	normalizeProgress(f)
	f.CreatedBy = createdBy

	created, err := s.features.Create(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature: %w", err)
	}
	return created, nil
}

// UpdateFeature patches a feature. Linked bugs change only through LinkBug
// and UnlinkBug.
func (s *Service) UpdateFeature(ctx context.Context, id string, patch map[string]any) (*domain.ProjectFeature, error) {
	if _, ok := patch["verknuepfte_bugs"]; ok {
		return nil, validate.Field("verknuepfte_bugs", "verknuepfte_bugs is changed through the bug link endpoints")
	}
	if title, ok := patch["title"]; ok {
		if err := s.validator.Var("title", title, "notblank"); err != nil {
			return nil, err
		}
	}
	if status, ok := patch["status"]; ok {
		if err := s.validator.Var("status", status, "feature_status"); err != nil {
			return nil, err
		}
	}
	return s.features.UpdateFunc(ctx, id, patch, func(f *domain.ProjectFeature) error {
		normalizeProgress(f)
		return nil
	})
}

// UpdateProgress sets the progress percentage, clamped to 0..100. A done
// feature always stays at 100.
func (s *Service) UpdateProgress(ctx context.Context, id string, pct int) (*domain.ProjectFeature, error) {
	return s.features.Mutate(ctx, id, func(f *domain.ProjectFeature) error {
		f.Progress = pct
		normalizeProgress(f)
		return nil
	})
}

func normalizeProgress(f *domain.ProjectFeature) {
	f.Progress = min(max(f.Progress, 0), 100)
	if f.Status == domain.FeatureDone {
		f.Progress = 100
	}
}

func (s *Service) GetFeature(ctx context.Context, id string) (*domain.ProjectFeature, error) {
	return s.features.Get(ctx, id)
}

func (s *Service) ListFeatures(ctx context.Context, status domain.FeatureStatus) ([]*domain.ProjectFeature, error) {
	q := store.Query{}
	if status != "" {
		q.Where = map[string]any{"status": string(status)}
	}
	return s.features.Filter(ctx, q)
}

// DeleteFeature removes a feature and its id from every linked ticket.
func (s *Service) DeleteFeature(ctx context.Context, id string) error {
	f, err := s.features.Get(ctx, id)
	if err != nil {
		return err
	}
	lockIDs := append([]string{id}, f.VerknuepfteBugs...)
	return s.tx.InTx(ctx, lockIDs, func(tx *store.Tx) error {
		current, err := s.features.MutateIn(ctx, tx, id, func(*domain.ProjectFeature) error { return store.ErrUnchanged })
		if err != nil {
			return err
		}
		for _, ticketID := range current.VerknuepfteBugs {
			if err := s.unlinkTicket(ctx, tx, ticketID, id); err != nil {
				return err
			}
		}
		return s.features.DeleteIn(ctx, tx, id)
	})
}

type Sprint struct {
	Name     string                   `json:"name"`
	Features []*domain.ProjectFeature `json:"features"`
	Stats    analytics.SprintStats    `json:"stats"`
}

// FeaturesBySprint returns the features of one sprint with their totals.
func (s *Service) FeaturesBySprint(ctx context.Context, sprint string) (*Sprint, error) {
	features, err := s.features.Filter(ctx, store.Query{
		Where: map[string]any{"sprint": sprint},
		Sort:  "title",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load sprint %q: %w", sprint, err)
	}
	out := &Sprint{Name: sprint, Features: features, Stats: analytics.SprintStats{Sprint: sprint}}
	if summary := analytics.SprintSummary(features); len(summary) > 0 {
		out.Stats = summary[0]
	}
	return out, nil
}

// SprintSummary aggregates every feature by sprint.
func (s *Service) SprintSummary(ctx context.Context) ([]analytics.SprintStats, error) {
	features, err := s.features.Filter(ctx, store.Query{Sort: "created_date"})
	if err != nil {
		return nil, fmt.Errorf("failed to load features: %w", err)
	}
	return analytics.SprintSummary(features), nil
}

// LinkBug links a ticket to a feature on both sides in one transaction.
// Linking an already linked pair changes nothing.
func (s *Service) LinkBug(ctx context.Context, featureID, ticketID string) (*domain.ProjectFeature, error) {
	var out *domain.ProjectFeature
	err := s.tx.InTx(ctx, []string{featureID, ticketID}, func(tx *store.Tx) error {
		f, err := s.features.MutateIn(ctx, tx, featureID, func(f *domain.ProjectFeature) error {
			if slices.Contains(f.VerknuepfteBugs, ticketID) {
				return store.ErrUnchanged
			}
			f.VerknuepfteBugs = append(f.VerknuepfteBugs, ticketID)
			return nil
		})
		if err != nil {
			return err
		}
		_, err = s.tickets.MutateIn(ctx, tx, ticketID, func(p *domain.UserProblem) error {
			if slices.Contains(p.LinkedFeatureIDs, featureID) {
				return store.ErrUnchanged
			}
			p.LinkedFeatureIDs = append(p.LinkedFeatureIDs, featureID)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to link ticket %s: %w", ticketID, err)
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UnlinkBug removes the link on both sides. Unlinking a pair that is not
// linked changes nothing, and a ticket that no longer exists is ignored.
func (s *Service) UnlinkBug(ctx context.Context, featureID, ticketID string) (*domain.ProjectFeature, error) {
	var out *domain.ProjectFeature
	err := s.tx.InTx(ctx, []string{featureID, ticketID}, func(tx *store.Tx) error {
		f, err := s.features.MutateIn(ctx, tx, featureID, func(f *domain.ProjectFeature) error {
			if !slices.Contains(f.VerknuepfteBugs, ticketID) {
				return store.ErrUnchanged
			}
			f.VerknuepfteBugs = slices.DeleteFunc(f.VerknuepfteBugs, func(id string) bool { return id == ticketID })
			return nil
		})
		if err != nil {
			return err
		}
		if err := s.unlinkTicket(ctx, tx, ticketID, featureID); err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) unlinkTicket(ctx context.Context, tx *store.Tx, ticketID, featureID string) error {
	_, err := s.tickets.MutateIn(ctx, tx, ticketID, func(p *domain.UserProblem) error {
		if !slices.Contains(p.LinkedFeatureIDs, featureID) {
			return store.ErrUnchanged
		}
		p.LinkedFeatureIDs = slices.DeleteFunc(p.LinkedFeatureIDs, func(id string) bool { return id == featureID })
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to unlink ticket %s: %w", ticketID, err)
	}
	if err != nil {
		s.logger.Warn("linked ticket no longer exists", "ticket_id", ticketID, "feature_id", featureID)
	}
	return nil
}
