package web

import (
	"net/http"
	"time"

	"github.com/vbonduro/propdesk/internal/auth"
	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/support"
)

// reportResponse carries the ticket even when a follow-up step failed.
type reportResponse struct {
	Ticket *domain.UserProblem `json:"ticket"`
	Error  string              `json:"error,omitempty"`
}

func (s *Server) handleReportProblem(w http.ResponseWriter, r *http.Request) {
	var draft support.ProblemDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeReport(w, r, draft)
}

func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, draft support.ProblemDraft) {
	ticket, err := s.Support.ReportProblem(r.Context(), auth.Email(r.Context()), draft)
	if ticket == nil {
		s.writeError(w, r, err)
		return
	}
	resp := reportResponse{Ticket: ticket}
	if err != nil {
		s.logger.Warn("ticket created with follow-up failure", "ticket_id", ticket.ID, "error", err)
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	tickets, err := s.Support.ListTickets(r.Context(), support.TicketFilter{
		Status:     domain.TicketStatus(q.Get("status")),
		Severity:   domain.Severity(q.Get("severity")),
		AssignedTo: q.Get("assigned_to"),
		Module:     q.Get("module"),
		Sort:       q.Get("sort"),
		Limit:      limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.Support.GetTicket(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleUpdateTicketStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.TicketStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ticket, err := s.Support.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleAssignTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssignedTo string `json:"assigned_to"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ticket, err := s.Support.Assign(r.Context(), r.PathValue("id"), req.AssignedTo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	if err := s.Support.DeleteTicket(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFindSimilar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Support.FindSimilar(r.Context(), req.Title, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDashboard buckets time-of-day statistics in the zone named by the
// "tz" query parameter, UTC by default.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			s.writeError(w, r, badRequest("unknown time zone %q", tz))
			return
		}
		loc = l
	}
	dash, err := s.Support.Dashboard(r.Context(), loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleSearchSolutions(w http.ResponseWriter, r *http.Request) {
	sols, err := s.Support.SearchSolutions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sols)
}

func (s *Server) handleCreateSolution(w http.ResponseWriter, r *http.Request) {
	var in support.SolutionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	sol, err := s.Support.CreateSolution(r.Context(), auth.Email(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sol)
}

// handleViewSolution returns a solution and counts the view.
func (s *Server) handleViewSolution(w http.ResponseWriter, r *http.Request) {
	sol, err := s.Support.ViewSolution(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sol)
}

func (s *Server) handleUpdateSolution(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	sol, err := s.Support.UpdateSolution(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sol)
}

func (s *Server) handleDeleteSolution(w http.ResponseWriter, r *http.Request) {
	if err := s.Support.DeleteSolution(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePublishSolution publishes by default; {"published": false} withdraws.
func (s *Server) handlePublishSolution(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Published *bool `json:"published"`
	}{}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	published := req.Published == nil || *req.Published
	sol, err := s.Support.PublishSolution(r.Context(), r.PathValue("id"), published)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sol)
}

func (s *Server) handleRateSolution(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Helpful *bool `json:"helpful"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Helpful == nil {
		s.writeError(w, r, badRequest("helpful is required"))
		return
	}
	sol, err := s.Support.RateSolution(r.Context(), r.PathValue("id"), *req.Helpful)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sol)
}
