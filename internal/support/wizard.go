package support

import (
	"context"

	"github.com/vbonduro/propdesk/internal/wizard"
)

// NewReportWizard returns the four-step problem report form. Submitting it
// creates the ticket through ReportProblem. Only a failed create fails the
// submit; classification and notification errors are logged so a retry
// never files the same ticket twice.
func (s *Service) NewReportWizard() *wizard.Wizard[ProblemDraft] {
	steps := []wizard.Step[ProblemDraft]{
		{Name: "problem", Validate: func(d ProblemDraft) error { return s.validator.Struct(d.Basics) }},
		{Name: "classification", Validate: func(d ProblemDraft) error { return s.validator.Struct(d.Classification) }},
		{Name: "severity", Validate: func(d ProblemDraft) error { return s.validator.Struct(d.Impact) }},
		{Name: "contact", Validate: func(d ProblemDraft) error { return s.validator.Struct(d.Contact) }},
	}
	return wizard.New(steps, func(ctx context.Context, d ProblemDraft) error {
		p, err := s.ReportProblem(ctx, d.UserEmail, d)
		if p == nil {
			return err
		}
		if err != nil {
			s.logger.Warn("ticket follow-up failed", "ticket_id", p.ID, "error", err)
		}
		return nil
	})
}
