package web

import (
	"fmt"
	"net/http"

	"github.com/vbonduro/propdesk/internal/auth"
	"github.com/vbonduro/propdesk/internal/buildings"
	"github.com/vbonduro/propdesk/internal/domain"
)

func recordKind(r *http.Request) (domain.Kind, error) {
	raw := r.PathValue("kind")
	kind, ok := domain.ParseKind(raw)
	if !ok {
		return "", fmt.Errorf("%w: %s", buildings.ErrUnknownKind, raw)
	}
	return kind, nil
}

func (s *Server) handleListBuildings(w http.ResponseWriter, r *http.Request) {
	list, err := s.Buildings.ListBuildings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateBuilding(w http.ResponseWriter, r *http.Request) {
	var in buildings.BuildingInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.Buildings.CreateBuilding(r.Context(), auth.Email(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetBuilding(w http.ResponseWriter, r *http.Request) {
	b, err := s.Buildings.GetBuilding(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBuilding(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.Buildings.UpdateBuilding(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBuilding(w http.ResponseWriter, r *http.Request) {
	if err := s.Buildings.DeleteBuilding(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBuildingSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Buildings.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handlePatchSection(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.Buildings.PatchSection(r.Context(), r.PathValue("id"), r.PathValue("section"), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleListBuildingRecords(w http.ResponseWriter, r *http.Request) {
	kind, err := recordKind(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.Buildings.ListRecords(r.Context(), r.PathValue("id"), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateBuildingRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := recordKind(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.Buildings.CreateRecord(r.Context(), r.PathValue("id"), kind, data, auth.Email(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateBuildingRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := recordKind(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.Buildings.UpdateRecord(r.Context(), r.PathValue("id"), kind, r.PathValue("recordID"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteBuildingRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := recordKind(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Buildings.DeleteRecord(r.Context(), r.PathValue("id"), kind, r.PathValue("recordID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
