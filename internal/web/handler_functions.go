package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vbonduro/propdesk/internal/auth"
	"github.com/vbonduro/propdesk/internal/functions"
)

func (s *Server) handleInvokeFunction(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var payload json.RawMessage
	if r.ContentLength != 0 {
		data, err := readBody(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		payload = data
	}
	if payload == nil {
		payload = json.RawMessage("{}")
	}

	result, err := s.Functions.Invoke(r.Context(), name, payload)
	if err != nil {
		if errors.Is(err, functions.ErrUnknownFunction) {
			s.writeError(w, r, err)
			return
		}
		s.logger.Error("function failed", "function", name, "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "function " + name + " failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"data": functions.Unwrap(result)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}
