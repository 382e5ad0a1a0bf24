package opsserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chatbuddy/core/internal/conflict"
	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ParseOrigins splits a comma-separated CORS origin list, trimming spaces
// and defaulting to "*" for an empty or "*" input.
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// Server aggregates the dependencies the HTTP edge dispatches into. It
// never touches the components directly beyond the narrow method sets
// declared below, mirroring how the router treats a Handler.
type Server struct {
	Logger *slog.Logger

	Router interface {
		Route(ctx domain.Context, message, userID, sessionID string) domain.AgentResponse
	}
	Scheduler *scheduler.Scheduler
	Resolver  *conflict.Resolver
	Monitor   *conflict.Monitor

	DBCheck      func(ctx domain.Context) error
	CacheCheck   func(ctx domain.Context) error
	CORSOrigins  []string
	AdminRateMax int
}

// NewRouter builds the chi router: security headers, request id, access
// log and panic recovery on every route, plus a per-IP rate limit on the
// admin surface.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(Recoverer())
	r.Use(RequestID(s.Logger))
	r.Use(AccessLog())
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.CORSOrigins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
	}))

	r.Get("/healthz", s.HealthzHandler())
	r.Get("/readyz", s.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/v1/chat", s.ChatHandler())

	r.Group(func(r chi.Router) {
		adminMax := s.AdminRateMax
		if adminMax <= 0 {
			adminMax = 30
		}
		r.Use(httprate.LimitByIP(adminMax, time.Minute))
		r.Get("/admin/jobs/{job_id}/history", s.AdminJobHistoryHandler())
		r.Get("/admin/conflicts/stats", s.AdminConflictStatsHandler())
		r.Get("/admin/conflicts/history", s.AdminConflictHistoryHandler())
		r.Post("/admin/conflicts/scan", s.AdminConflictScanHandler())
	})

	return r
}
