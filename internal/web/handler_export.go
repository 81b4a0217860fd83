package web

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/export"
	"github.com/vbonduro/propdesk/internal/support"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportTickets renders every ticket matching the query's filters into a
// buffer first so that a failed render still produces a JSON error.
func (s *Server) exportTickets(w http.ResponseWriter, r *http.Request, filename, contentType string, write func(io.Writer, []*domain.UserProblem) error) {
	q := r.URL.Query()
	tickets, err := s.Support.ListTickets(r.Context(), support.TicketFilter{
		Status:   domain.TicketStatus(q.Get("status")),
		Severity: domain.Severity(q.Get("severity")),
		Module:   q.Get("module"),
		Sort:     "created_date",
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, tickets); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("write export failed", "file", filename, "error", err)
	}
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.exportTickets(w, r, "tickets.csv", "text/csv; charset=utf-8", export.WriteCSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.exportTickets(w, r, "tickets.xlsx", xlsxContentType, export.WriteXLSX)
}
