package web

import "net/http"

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Settings.Get())
}

// handleUpdateSettings replaces the settings; fields absent from the body
// keep their current values.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	next := s.Settings.Get()
	if err := decodeJSON(w, r, &next); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.Settings.Update(next)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
