package web

import (
	"encoding/json"
	"net/http"

	"github.com/vbonduro/propdesk/internal/auth"
	"github.com/vbonduro/propdesk/internal/support"
	"github.com/vbonduro/propdesk/internal/wizard"
)

type wizardResponse struct {
	ID    string                             `json:"id"`
	State wizard.State[support.ProblemDraft] `json:"state"`
}

func (s *Server) handleStartWizard(w http.ResponseWriter, r *http.Request) {
	id, wz := s.Wizards.Start()
	writeJSON(w, http.StatusCreated, wizardResponse{ID: id, State: wz.State()})
}

func (s *Server) handleGetWizard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wz, err := s.Wizards.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wizardResponse{ID: id, State: wz.State()})
}

// handleUpdateWizard merges the JSON body into the collected draft. Fields
// absent from the body keep their values.
func (s *Server) handleUpdateWizard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wz, err := s.Wizards.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var probe support.ProblemDraft
	if err := json.Unmarshal(body, &probe); err != nil {
		s.writeError(w, r, badRequest("invalid draft: %v", err))
		return
	}
	err = wz.Update(func(d *support.ProblemDraft) {
		// Already checked against probe above.
		_ = json.Unmarshal(body, d)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wizardResponse{ID: id, State: wz.State()})
}

func (s *Server) handleWizardNext(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wz, err := s.Wizards.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := wz.Next(); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wizardResponse{ID: id, State: wz.State()})
}

func (s *Server) handleWizardBack(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wz, err := s.Wizards.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	wz.Back()
	writeJSON(w, http.StatusOK, wizardResponse{ID: id, State: wz.State()})
}

func (s *Server) handleWizardReset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wz, err := s.Wizards.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	wz.Reset()
	writeJSON(w, http.StatusOK, wizardResponse{ID: id, State: wz.State()})
}

// handleWizardSubmit files the ticket and ends the session. The reporter
// defaults to the signed-in user when the contact step left it empty.
func (s *Server) handleWizardSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wz, err := s.Wizards.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	email := auth.Email(r.Context())
	err = wz.Update(func(d *support.ProblemDraft) {
		if d.UserEmail == "" {
			d.UserEmail = email
		}
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := wz.Submit(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	state := wz.State()
	s.Wizards.Remove(id)
	writeJSON(w, http.StatusOK, wizardResponse{ID: id, State: state})
}

func (s *Server) handleCancelWizard(w http.ResponseWriter, r *http.Request) {
	s.Wizards.Remove(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}
