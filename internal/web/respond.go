package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vbonduro/propdesk/internal/buildings"
	"github.com/vbonduro/propdesk/internal/filestore"
	"github.com/vbonduro/propdesk/internal/functions"
	"github.com/vbonduro/propdesk/internal/store"
	"github.com/vbonduro/propdesk/internal/validate"
	"github.com/vbonduro/propdesk/internal/wizard"
)

const maxJSONBody = 1 << 20 // 1 MB

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string                `json:"error"`
	Fields []validate.FieldError `json:"fields,omitempty"`
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	var verr *validate.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, filestore.ErrNotFound),
		errors.Is(err, wizard.ErrSessionNotFound),
		errors.Is(err, functions.ErrUnknownFunction):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, store.ErrInvalidField),
		errors.Is(err, store.ErrInvalidValue),
		errors.Is(err, store.ErrInvalidPatch),
		errors.Is(err, buildings.ErrUnknownSection),
		errors.Is(err, buildings.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrNotLastStep),
		errors.Is(err, wizard.ErrSubmitted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var verr *validate.ValidationError
	if errors.As(err, &verr) {
		body.Error = "validation failed"
		body.Fields = verr.Fields
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a single JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// readBody returns the raw request body, rejecting anything that is not JSON.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, badRequest("failed to read body: %v", err)
	}
	if !json.Valid(data) {
		return nil, badRequest("invalid JSON body")
	}
	return data, nil
}

// queryLimit parses the optional "limit" query parameter.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("invalid limit %q", raw)
	}
	return n, nil
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
