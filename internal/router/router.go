// Package router implements the orchestration core (C7): classify →
// cache-lookup → handler dispatch → cache-store → audit, for every inbound
// turn.
package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/internal/observability"
	"github.com/chatbuddy/core/internal/responsecache"
	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
}

var tokenEncoding, tokenEncodingErr = tiktoken.GetEncoding("cl100k_base")

func approxTokenCount(text string) int {
	if tokenEncodingErr != nil || tokenEncoding == nil {
		// Rough fallback: ~4 characters per token.
		return len(text) / 4
	}
	return len(tokenEncoding.Encode(text, nil, nil))
}

// cannedRefusalText and cannedTimeoutText are the canned replies the router returns
// without ever invoking a handler.
const (
	cannedRefusalText = "Sajnálom, most túl sok kérést küldtél, kérlek próbáld meg egy kicsit később."
	cannedTimeoutText = "A válasz elkészítése túl sokáig tartott, kérlek fogalmazd meg újra a kérdésed."
)

// Router implements the C7 orchestration algorithm.
type Router struct {
	sessions    domain.SessionStore
	limiter     domain.RateLimiter
	classifier  domain.Classifier
	cache       domain.ResponseCache
	handlers    map[domain.HandlerKind]domain.Handler
	audit       domain.AuditLogger
	deps        domain.HandlerDeps
	handlerTimeout time.Duration
	rateLimitMax   int64
	rateLimitWindow time.Duration
}

// New builds a Router. handlers must contain an entry for every
// domain.HandlerKind; deps is the dependency bundle passed through to every
// handler invocation (persistence/webshop clients, security context).
func New(
	sessions domain.SessionStore,
	limiter domain.RateLimiter,
	classifier domain.Classifier,
	cache domain.ResponseCache,
	handlers map[domain.HandlerKind]domain.Handler,
	audit domain.AuditLogger,
	deps domain.HandlerDeps,
	handlerTimeout time.Duration,
	rateLimitMax int64,
	rateLimitWindow time.Duration,
) *Router {
	if handlerTimeout <= 0 {
		handlerTimeout = 30 * time.Second
	}
	return &Router{
		sessions:        sessions,
		limiter:         limiter,
		classifier:      classifier,
		cache:           cache,
		handlers:        handlers,
		audit:           audit,
		deps:            deps,
		handlerTimeout:  handlerTimeout,
		rateLimitMax:    rateLimitMax,
		rateLimitWindow: rateLimitWindow,
	}
}

// Route implements the 7-step turn algorithm. Exactly one audit record is
// written per call, regardless of exit path.
func (r *Router) Route(ctx domain.Context, message, userID, sessionID string) domain.AgentResponse {
	start := time.Now()

	// Step 1: resolve or create session.
	sess, found, err := r.sessions.GetSession(ctx, sessionID)
	if err != nil || !found {
		newID, cerr := r.sessions.CreateSession(ctx, userID, "", "", "")
		if cerr != nil {
			slog.Error("router failed to create session", slog.Any("error", cerr))
		} else {
			sess, _, _ = r.sessions.GetSession(ctx, newID)
		}
	}

	// Step 2: rate limit by user.
	limitResult, lerr := r.limiter.CheckLimit(ctx, userID, "user", r.rateLimitMax, r.rateLimitWindow)
	if lerr == nil && !limitResult.Allowed {
		resp := domain.AgentResponse{Text: cannedRefusalText, Confidence: 0, HandlerKind: domain.HandlerGeneral,
			Metadata: map[string]any{"error_type": "rate_limited"}}
		r.auditTurn(ctx, userID, sess.SessionID, resp.HandlerKind, time.Since(start), false, "rate_limited")
		observability.RouterTurnsTotal.WithLabelValues(string(resp.HandlerKind), "rate_limited").Inc()
		return resp
	}

	// Step 3: classify.
	decision := r.classifier.Classify(message)

	// Step 4: cache lookup.
	fingerprint := responsecache.Fingerprint(decision.Kind, message, userID, sess.Context)
	if r.cache != nil {
		cached, hit, cerr := r.cache.GetCachedAgentResponse(ctx, fingerprint)
		if cerr == nil && hit {
			r.auditTurn(ctx, userID, sess.SessionID, cached.HandlerKind, time.Since(start), true, "cache_hit")
			observability.RouterTurnsTotal.WithLabelValues(string(cached.HandlerKind), "cache_hit").Inc()
			return cached
		}
	}

	// Step 5: dispatch to handler within the turn's time budget.
	h, ok := r.handlers[decision.Kind]
	if !ok {
		resp := domain.AgentResponse{HandlerKind: decision.Kind, Confidence: 0,
			Metadata: map[string]any{"error_type": "no_handler_registered"}}
		r.auditTurn(ctx, userID, sess.SessionID, decision.Kind, time.Since(start), false, "no_handler")
		observability.RouterTurnsTotal.WithLabelValues(string(decision.Kind), "no_handler").Inc()
		return resp
	}

	deps := r.deps
	deps.UserContext = sess.Context

	resp, timedOut := r.invokeWithBudget(ctx, h, message, deps, decision.Kind)
	outcome := "handled"
	if timedOut {
		outcome = "timeout"
	} else if resp.Confidence == 0 {
		outcome = "handler_error"
	}

	// Step 6: cache successful responses.
	if !timedOut && resp.Confidence > 0 && r.cache != nil {
		if err := r.cache.CacheAgentResponse(ctx, fingerprint, resp); err != nil {
			slog.Warn("router failed to cache response", slog.Any("error", err))
		}
	}

	observability.RouterTurnsTotal.WithLabelValues(string(decision.Kind), outcome).Inc()
	observability.RouterTurnDuration.WithLabelValues(string(decision.Kind)).Observe(time.Since(start).Seconds())
	observability.RouterResponseTokens.WithLabelValues(string(decision.Kind)).Observe(float64(approxTokenCount(resp.Text)))

	// Step 7: audit the full turn.
	r.auditTurn(ctx, userID, sess.SessionID, decision.Kind, time.Since(start), false, outcome)
	return resp
}

// invokeWithBudget runs the handler in a goroutine bounded by
// r.handlerTimeout. On deadline exceeded it returns a canned timeout
// response that preserves the original handler_kind.
func (r *Router) invokeWithBudget(ctx domain.Context, h domain.Handler, message string, deps domain.HandlerDeps, kind domain.HandlerKind) (domain.AgentResponse, bool) {
	turnCtx, cancel := context.WithTimeout(ctx, r.handlerTimeout)
	defer cancel()

	result := make(chan domain.AgentResponse, 1)
	go func() {
		result <- h.Handle(turnCtx, message, deps)
	}()

	select {
	case resp := <-result:
		return resp, false
	case <-turnCtx.Done():
		return domain.AgentResponse{
			Text:        cannedTimeoutText,
			Confidence:  0,
			HandlerKind: kind,
			Metadata:    map[string]any{"error_type": "handler_timeout"},
		}, true
	}
}

func (r *Router) auditTurn(ctx domain.Context, userID, sessionID string, kind domain.HandlerKind, latency time.Duration, cacheHit bool, outcome string) {
	if r.audit == nil {
		return
	}
	r.audit.LogEvent(ctx, "turn_completed", domain.AuditInfo, userID, sessionID, "router", map[string]any{
		"handler_kind": string(kind),
		"latency_ms":   latency.Milliseconds(),
		"cache_hit":    cacheHit,
		"outcome":      outcome,
	})
}
