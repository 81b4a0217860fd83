package support

import (
	"context"
	"fmt"
	"strings"

	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/store"
	"github.com/vbonduro/propdesk/internal/validate"
)

// counterFields are maintained by ViewSolution and RateSolution only.
var counterFields = []string{"view_count", "helpful_count", "not_helpful_count"}

type SolutionInput struct {
	Title           string   `json:"title" validate:"notblank,max=200"`
	Problem         string   `json:"problem"`
	Category        string   `json:"category"`
	Steps           []string `json:"steps" validate:"omitempty,dive,notblank"`
	Tags            []string `json:"tags"`
	Published       bool     `json:"published"`
	RelatedTicketID string   `json:"related_ticket_id"`
}

func (s *Service) CreateSolution(ctx context.Context, createdBy string, in SolutionInput) (*domain.ProblemSolution, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	sol := &domain.ProblemSolution{
		Title:           strings.TrimSpace(in.Title),
		Problem:         in.Problem,
		Category:        in.Category,
		Steps:           in.Steps,
		Tags:            in.Tags,
		Published:       in.Published,
		RelatedTicketID: in.RelatedTicketID,
	}
	sol.CreatedBy = createdBy
	created, err := s.solutions.Create(ctx, sol)
	if err != nil {
		return nil, fmt.Errorf("failed to create solution: %w", err)
	}
	return created, nil
}

// UpdateSolution patches the editable fields of a solution.
func (s *Service) UpdateSolution(ctx context.Context, id string, patch map[string]any) (*domain.ProblemSolution, error) {
	for _, f := range counterFields {
		if _, ok := patch[f]; ok {
			return nil, validate.Field(f, f+" is maintained by the server")
		}
	}
	if title, ok := patch["title"]; ok {
		if err := s.validator.Var("title", title, "notblank"); err != nil {
			return nil, err
		}
	}
	return s.solutions.Update(ctx, id, patch)
}

func (s *Service) PublishSolution(ctx context.Context, id string, published bool) (*domain.ProblemSolution, error) {
	return s.solutions.Mutate(ctx, id, func(sol *domain.ProblemSolution) error {
		sol.Published = published
		return nil
	})
}

// ViewSolution returns the solution after counting the view.
func (s *Service) ViewSolution(ctx context.Context, id string) (*domain.ProblemSolution, error) {
	return s.solutions.Mutate(ctx, id, func(sol *domain.ProblemSolution) error {
		sol.ViewCount++
		return nil
	})
}

func (s *Service) RateSolution(ctx context.Context, id string, helpful bool) (*domain.ProblemSolution, error) {
	return s.solutions.Mutate(ctx, id, func(sol *domain.ProblemSolution) error {
		if helpful {
			sol.HelpfulCount++
		} else {
			sol.NotHelpfulCount++
		}
		return nil
	})
}

func (s *Service) GetSolution(ctx context.Context, id string) (*domain.ProblemSolution, error) {
	return s.solutions.Get(ctx, id)
}

func (s *Service) DeleteSolution(ctx context.Context, id string) error {
	return s.solutions.Delete(ctx, id)
}

// SearchSolutions returns published solutions whose title, problem text, or
// tags contain query, case-insensitively, most helpful first. An empty query
// returns every published solution.
func (s *Service) SearchSolutions(ctx context.Context, query string) ([]*domain.ProblemSolution, error) {
	published, err := s.solutions.Filter(ctx, store.Query{
		Where: map[string]any{"published": true},
		Sort:  "-helpful_count",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load solutions: %w", err)
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return published, nil
	}
	out := make([]*domain.ProblemSolution, 0)
	for _, sol := range published {
		if matches(sol, q) {
			out = append(out, sol)
		}
	}
	return out, nil
}

func matches(sol *domain.ProblemSolution, q string) bool {
	if strings.Contains(strings.ToLower(sol.Title), q) || strings.Contains(strings.ToLower(sol.Problem), q) {
		return true
	}
	for _, tag := range sol.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
