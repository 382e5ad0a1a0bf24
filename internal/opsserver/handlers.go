package opsserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// chatRequest is the wire shape of a POST /v1/chat turn.
type chatRequest struct {
	Message   string `json:"message" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	SessionID string `json:"session_id"`
}

// ChatHandler decodes one chat turn and dispatches it to the router (C7).
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation_failed", "details": err.Error()})
			return
		}
		resp := s.Router.Route(r.Context(), req.Message, req.UserID, req.SessionID)
		writeJSON(w, http.StatusOK, resp)
	}
}

// HealthzHandler reports process liveness only; it never touches a
// collaborator.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes every configured external collaborator and
// aggregates the verdict, following the teacher's readiness-check shape.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		var checks []check
		probe := func(name string, fn func(context.Context) error) {
			if fn == nil {
				return
			}
			if err := fn(ctx); err != nil {
				checks = append(checks, check{Name: name, OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: name, OK: true})
			}
		}
		probe("cache", s.CacheCheck)
		probe("db", s.DBCheck)

		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"checks": checks})
	}
}

// AdminJobHistoryHandler returns the bounded run history for one scheduled
// job (C8).
func (s *Server) AdminJobHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "job_id")
		if s.Scheduler == nil {
			writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "runs": []any{}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "runs": s.Scheduler.History(jobID)})
	}
}

// AdminConflictStatsHandler returns the conflict resolver's live
// {total, by_type, resolved, resolution_rate} summary (C10).
func (s *Server) AdminConflictStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Resolver == nil {
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, s.Resolver.Stats())
	}
}

// AdminConflictHistoryHandler returns the conflict resolver's bounded
// resolution history, oldest first.
func (s *Server) AdminConflictHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Resolver == nil {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		writeJSON(w, http.StatusOK, s.Resolver.History())
	}
}

// conflictScanRequest is the wire shape of a manual C10 scan trigger,
// used by an operator reconciling two product snapshots on demand rather
// than waiting for the next scheduled sync.
type conflictScanRequest struct {
	Local  []map[string]any `json:"local"`
	Remote []map[string]any `json:"remote"`
}

// AdminConflictScanHandler runs one Monitor.Scan over operator-supplied
// local/remote product snapshots and returns the detected conflicts,
// resolutions, and whether the alert threshold was crossed.
func (s *Server) AdminConflictScanHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Monitor == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "conflict_monitor_unavailable"})
			return
		}
		var req conflictScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
			return
		}
		writeJSON(w, http.StatusOK, s.Monitor.Scan(req.Local, req.Remote))
	}
}
