package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vbonduro/propdesk/internal/auth"
	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/store"
)

// adminKinds may only be created by admins, matching their dedicated routes.
var adminKinds = map[domain.Kind]bool{
	domain.KindProjectFeature:  true,
	domain.KindProblemSolution: true,
}

func (s *Server) collection(r *http.Request) (store.Generic, error) {
	raw := r.PathValue("kind")
	kind, ok := domain.ParseKind(raw)
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity kind %q", store.ErrNotFound, raw)
	}
	c, ok := s.Entities.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity kind %q", store.ErrNotFound, raw)
	}
	return c, nil
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	c, err := s.collection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := c.FilterRecords(r.Context(), store.Query{Sort: r.URL.Query().Get("sort"), Limit: limit})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type filterRequest struct {
	Where map[string]any `json:"where"`
	Sort  string         `json:"sort"`
	Limit int            `json:"limit"`
}

func (s *Server) handleFilterEntities(w http.ResponseWriter, r *http.Request) {
	c, err := s.collection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req filterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Limit < 0 {
		s.writeError(w, r, badRequest("invalid limit %d", req.Limit))
		return
	}
	records, err := c.FilterRecords(r.Context(), store.Query{Where: req.Where, Sort: req.Sort, Limit: req.Limit})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	c, err := s.collection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if adminKinds[c.Kind()] {
		auth.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.createEntity(w, r, c)
		})).ServeHTTP(w, r)
		return
	}
	s.createEntity(w, r, c)
}

func (s *Server) createEntity(w http.ResponseWriter, r *http.Request, c store.Generic) {
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := c.CreateRecord(r.Context(), data, auth.Email(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleBulkCreateEntities(w http.ResponseWriter, r *http.Request) {
	c, err := s.collection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := c.BulkCreateRecords(r.Context(), data, auth.Email(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	c, err := s.collection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	record, err := c.GetRecord(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleUpdateEntity(w http.ResponseWriter, r *http.Request) {
	c, err := s.collection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := c.UpdateRecord(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	c, err := s.collection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deleteEntity(r.Context(), c, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deleteEntity sends kinds with links or children through their service so
// the delete cleans those up too.
func (s *Server) deleteEntity(ctx context.Context, c store.Generic, id string) error {
	switch c.Kind() {
	case domain.KindBuilding:
		return s.Buildings.DeleteBuilding(ctx, id)
	case domain.KindProjectFeature:
		return s.Project.DeleteFeature(ctx, id)
	case domain.KindUserProblem:
		return s.Support.DeleteTicket(ctx, id)
	default:
		return c.Delete(ctx, id)
	}
}
