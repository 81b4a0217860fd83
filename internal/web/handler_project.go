package web

import (
	"net/http"

	"github.com/vbonduro/propdesk/internal/auth"
	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/project"
)

func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := s.Project.ListFeatures(r.Context(), domain.FeatureStatus(r.URL.Query().Get("status")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, features)
}

func (s *Server) handleCreateFeature(w http.ResponseWriter, r *http.Request) {
	var in project.FeatureInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.Project.CreateFeature(r.Context(), auth.Email(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleGetFeature(w http.ResponseWriter, r *http.Request) {
	f, err := s.Project.GetFeature(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleUpdateFeature(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.Project.UpdateFeature(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Progress *int `json:"progress"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Progress == nil {
		s.writeError(w, r, badRequest("progress is required"))
		return
	}
	f, err := s.Project.UpdateProgress(r.Context(), r.PathValue("id"), *req.Progress)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFeature(w http.ResponseWriter, r *http.Request) {
	if err := s.Project.DeleteFeature(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLinkBug(w http.ResponseWriter, r *http.Request) {
	f, err := s.Project.LinkBug(r.Context(), r.PathValue("id"), r.PathValue("ticketID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleUnlinkBug(w http.ResponseWriter, r *http.Request) {
	f, err := s.Project.UnlinkBug(r.Context(), r.PathValue("id"), r.PathValue("ticketID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleSprintSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Project.SprintSummary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetSprint(w http.ResponseWriter, r *http.Request) {
	sprint, err := s.Project.FeaturesBySprint(r.Context(), r.PathValue("sprint"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sprint)
}
