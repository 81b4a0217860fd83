package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/propdesk/internal/auth"
	"github.com/vbonduro/propdesk/internal/buildings"
	"github.com/vbonduro/propdesk/internal/functions"
	"github.com/vbonduro/propdesk/internal/project"
	"github.com/vbonduro/propdesk/internal/settings"
	"github.com/vbonduro/propdesk/internal/store"
	"github.com/vbonduro/propdesk/internal/support"
	"github.com/vbonduro/propdesk/internal/upload"
	"github.com/vbonduro/propdesk/internal/wizard"
)

// Deps are the services the HTTP API exposes.
type Deps struct {
	Entities  store.Registry
	Functions functions.Invoker
	Tokens    *auth.Tokens
	Uploads   *upload.Service
	Support   *support.Service
	Wizards   *wizard.Sessions[support.ProblemDraft]
	Project   *project.Service
	Buildings *buildings.Service
	Settings  *settings.Store
}

type Server struct {
	Deps
	mux    *http.ServeMux
	logger *slog.Logger
}

func NewServer(deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		Deps:   deps,
		mux:    http.NewServeMux(),
		logger: logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.HandleFunc("GET /files/{key}", s.handleGetFile)

	s.handle("GET /api/auth/me", s.handleMe)

	s.handle("GET /api/entities/{kind}", s.handleListEntities)
	s.handle("POST /api/entities/{kind}", s.handleCreateEntity)
	s.handle("POST /api/entities/{kind}/filter", s.handleFilterEntities)
	s.admin("POST /api/entities/{kind}/bulk", s.handleBulkCreateEntities)
	s.handle("GET /api/entities/{kind}/{id}", s.handleGetEntity)
	s.admin("PATCH /api/entities/{kind}/{id}", s.handleUpdateEntity)
	s.admin("DELETE /api/entities/{kind}/{id}", s.handleDeleteEntity)

	s.handle("POST /api/functions/{name}", s.handleInvokeFunction)
	s.handle("POST /api/uploads", s.handleUpload)

	s.handle("GET /api/support/tickets", s.handleListTickets)
	s.handle("POST /api/support/tickets", s.handleReportProblem)
	s.handle("GET /api/support/tickets/{id}", s.handleGetTicket)
	s.handle("PATCH /api/support/tickets/{id}/status", s.handleUpdateTicketStatus)
	s.admin("PATCH /api/support/tickets/{id}/assign", s.handleAssignTicket)
	s.admin("DELETE /api/support/tickets/{id}", s.handleDeleteTicket)
	s.handle("POST /api/support/similar", s.handleFindSimilar)
	s.handle("GET /api/support/dashboard", s.handleDashboard)

	s.handle("GET /api/support/solutions", s.handleSearchSolutions)
	s.admin("POST /api/support/solutions", s.handleCreateSolution)
	s.handle("GET /api/support/solutions/{id}", s.handleViewSolution)
	s.admin("PATCH /api/support/solutions/{id}", s.handleUpdateSolution)
	s.admin("DELETE /api/support/solutions/{id}", s.handleDeleteSolution)
	s.admin("POST /api/support/solutions/{id}/publish", s.handlePublishSolution)
	s.handle("POST /api/support/solutions/{id}/rate", s.handleRateSolution)

	s.handle("POST /api/support/wizard", s.handleStartWizard)
	s.handle("GET /api/support/wizard/{id}", s.handleGetWizard)
	s.handle("PATCH /api/support/wizard/{id}", s.handleUpdateWizard)
	s.handle("POST /api/support/wizard/{id}/next", s.handleWizardNext)
	s.handle("POST /api/support/wizard/{id}/back", s.handleWizardBack)
	s.handle("POST /api/support/wizard/{id}/submit", s.handleWizardSubmit)
	s.handle("POST /api/support/wizard/{id}/reset", s.handleWizardReset)
	s.handle("DELETE /api/support/wizard/{id}", s.handleCancelWizard)

	s.handle("GET /api/project/features", s.handleListFeatures)
	s.admin("POST /api/project/features", s.handleCreateFeature)
	s.handle("GET /api/project/features/{id}", s.handleGetFeature)
	s.admin("PATCH /api/project/features/{id}", s.handleUpdateFeature)
	s.admin("PUT /api/project/features/{id}/progress", s.handleUpdateProgress)
	s.admin("DELETE /api/project/features/{id}", s.handleDeleteFeature)
	s.admin("POST /api/project/features/{id}/bugs/{ticketID}", s.handleLinkBug)
	s.admin("DELETE /api/project/features/{id}/bugs/{ticketID}", s.handleUnlinkBug)
	s.handle("GET /api/project/sprints", s.handleSprintSummary)
	s.handle("GET /api/project/sprints/{sprint}", s.handleGetSprint)

	s.handle("GET /api/buildings", s.handleListBuildings)
	s.handle("POST /api/buildings", s.handleCreateBuilding)
	s.handle("GET /api/buildings/{id}", s.handleGetBuilding)
	s.handle("PATCH /api/buildings/{id}", s.handleUpdateBuilding)
	s.admin("DELETE /api/buildings/{id}", s.handleDeleteBuilding)
	s.handle("GET /api/buildings/{id}/summary", s.handleBuildingSummary)
	s.handle("PATCH /api/buildings/{id}/sections/{section}", s.handlePatchSection)
	s.handle("GET /api/buildings/{id}/records/{kind}", s.handleListBuildingRecords)
	s.handle("POST /api/buildings/{id}/records/{kind}", s.handleCreateBuildingRecord)
	s.handle("PATCH /api/buildings/{id}/records/{kind}/{recordID}", s.handleUpdateBuildingRecord)
	s.handle("DELETE /api/buildings/{id}/records/{kind}/{recordID}", s.handleDeleteBuildingRecord)

	s.handle("GET /api/export/tickets.csv", s.handleExportCSV)
	s.handle("GET /api/export/tickets.xlsx", s.handleExportXLSX)

	s.handle("GET /api/settings", s.handleGetSettings)
	s.handle("PUT /api/settings", s.handleUpdateSettings)
}

// handle registers an endpoint that requires a valid bearer token.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.Tokens.Middleware(s.logger)(h))
}

// admin registers an endpoint that additionally requires the admin role.
func (s *Server) admin(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.Tokens.Middleware(s.logger)(auth.RequireAdmin(h)))
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
