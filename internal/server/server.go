// Package server exposes the check-in core and organizer surface over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	attendancerepo "attendance-control-plane/internal/attendance/repository"
	auditrepo "attendance-control-plane/internal/audit/repository"
	"attendance-control-plane/internal/checkin"
	organizerservice "attendance-control-plane/internal/organizer/service"
	"attendance-control-plane/internal/security"
	"attendance-control-plane/internal/server/middleware"
	sessionservice "attendance-control-plane/internal/session/service"
	"attendance-control-plane/internal/telemetry"
	otelx "attendance-control-plane/internal/telemetry/otel"
)

// HealthChecker verifies that a dependency is usable (e.g. the policy engine).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server wires the check-in arbiter and organizer services into HTTP handlers.
type Server struct {
	auth       *organizerservice.AuthService
	sessions   *sessionservice.Service
	arbiter    *checkin.Arbiter
	attendance attendancerepo.Repository
	denials    auditrepo.Repository
	tokens     *security.TokenProvider
	health     HealthChecker
	metrics    *otelx.CheckinMetrics
	emitter    telemetry.EventEmitter
}

// NewServer returns a Server with the given dependencies. metrics and emitter
// may be nil for a telemetry-free server (tests, workers).
func NewServer(
	auth *organizerservice.AuthService,
	sessions *sessionservice.Service,
	arbiter *checkin.Arbiter,
	attendance attendancerepo.Repository,
	denials auditrepo.Repository,
	tokens *security.TokenProvider,
	health HealthChecker,
	metrics *otelx.CheckinMetrics,
	emitter telemetry.EventEmitter,
) *Server {
	return &Server{
		auth:       auth,
		sessions:   sessions,
		arbiter:    arbiter,
		attendance: attendance,
		denials:    denials,
		tokens:     tokens,
		health:     health,
		metrics:    metrics,
		emitter:    emitter,
	}
}

// Router builds the HTTP routing tree. The checkin and session snapshot
// endpoints are public; session management requires a Bearer token.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkin", s.handleCheckin)
		r.Get("/sessions/{id}", s.handleSessionSnapshot)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.tokens))
			r.Get("/sessions", s.handleSessionList)
			r.Post("/sessions", s.handleSessionCreate)
			r.Post("/sessions/{id}/stop", s.handleSessionStop)
			r.Post("/sessions/{id}/rotate", s.handleTokenRotate)
			r.Get("/sessions/{id}/token", s.handleCurrentToken)
			r.Get("/sessions/{id}/attendance", s.handleAttendanceLog)
			r.Get("/sessions/{id}/denials", s.handleDenialLog)
		})
	})

	return otelhttp.NewHandler(r, "attendance-server")
}
