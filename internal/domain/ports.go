package domain

import "time"

// CachePool is the single connection-pooled key-value store behind every
// namespace (C1). Implementations serialize scalars/containers as JSON and
// opaque objects as binary, transparently compress payloads above a size
// threshold, and expire the payload and its metadata sidecar together.
type CachePool interface {
	Set(ctx Context, key string, value any, namespace string, ttl time.Duration) error
	Get(ctx Context, key string, namespace string, dest any) (bool, error)
	Delete(ctx Context, key string, namespace string) error
	Exists(ctx Context, key string, namespace string) (bool, error)
	Expire(ctx Context, key string, namespace string, ttl time.Duration) error
	Incr(ctx Context, key string, namespace string, amount int64) (int64, error)
}

// SessionStore is the C2 session CRUD surface.
type SessionStore interface {
	CreateSession(ctx Context, userID, deviceInfo, ip, userAgent string) (string, error)
	GetSession(ctx Context, sessionID string) (Session, bool, error)
	UpdateSession(ctx Context, s Session) error
	DeleteSession(ctx Context, sessionID string) error
	GetUserSessions(ctx Context, userID string) ([]Session, error)
}

// LimitResult is the outcome of one RateLimiter.CheckLimit call.
type LimitResult struct {
	Allowed  bool
	Count    int64
	ResetIn  time.Duration
}

// RateLimiter implements the fixed-window counter algorithm of C3.
type RateLimiter interface {
	CheckLimit(ctx Context, id, scope string, max int64, window time.Duration) (LimitResult, error)
}

// ResponseCache is the C4 namespace-dispatching memoization wrapper.
type ResponseCache interface {
	CacheAgentResponse(ctx Context, fingerprint string, resp AgentResponse) error
	GetCachedAgentResponse(ctx Context, fingerprint string) (AgentResponse, bool, error)
	CacheProductInfo(ctx Context, fingerprint string, value any) error
	GetCachedProductInfo(ctx Context, fingerprint string, dest any) (bool, error)
	CacheSearchResult(ctx Context, fingerprint string, value any) error
	GetCachedSearchResult(ctx Context, fingerprint string, dest any) (bool, error)
	CacheEmbedding(ctx Context, fingerprint string, value []float32) error
	GetCachedEmbedding(ctx Context, fingerprint string) ([]float32, bool, error)
}

// HandlerDeps bundles the dependency context a Handler receives (§4.5).
// The core never enumerates the narrow interfaces a handler calls back
// into; it only guarantees they are present (possibly nil in a given
// deployment) on this struct.
type HandlerDeps struct {
	UserContext       map[string]any
	PersistenceClient PersistenceClient
	WebshopClient     any
	SecurityContext   map[string]any
	AuditLogger       AuditLogger
}

// Descriptor is an opaque tool/system-prompt descriptor consumed by the
// external LLM layer; the router never inspects its contents.
type Descriptor struct {
	Name       string
	SystemPrompt string
	Tools      []ToolDescriptor
}

// ToolDescriptor is an opaque tool signature handed to the LLM layer.
type ToolDescriptor struct {
	Name        string
	Description string
	Schema      map[string]any
}

// Handler is the uniform capability every specialized responder exposes
// (§4.5 / Design Notes). It must never panic; internal failures become a
// zero-confidence AgentResponse with metadata.error_type set.
type Handler interface {
	Kind() HandlerKind
	Descriptor() Descriptor
	Handle(ctx Context, message string, deps HandlerDeps) AgentResponse
}

// Classifier is the C6 deterministic intent classifier.
type Classifier interface {
	Classify(message string) IntentDecision
}

// AuditLogger is the C12 structured event sink.
type AuditLogger interface {
	LogEvent(ctx Context, kind string, severity AuditSeverity, userID, sessionID, subsystem string, payload map[string]any)
	LogError(ctx Context, kind string, message string, userID, sessionID, subsystem string, payload map[string]any)
}

// PersistenceClient is the opaque handle to the external persistence store
// a handler may use. The core treats it as a narrow, mostly-opaque
// collaborator; only a health check is part of the stable contract so the
// ops surface can report readiness.
type PersistenceClient interface {
	Ping(ctx Context) error
}

// EventHandler processes one Event inside the event bus's single consumer
// goroutine; a panic or error is logged and does not stop the consumer.
type EventHandler func(ctx Context, evt Event) error

// JobExecFunc performs one scheduler job run and returns a result payload.
type JobExecFunc func(ctx Context) (map[string]any, error)

// WebshopSyncClient is the narrow, external webshop REST collaborator the
// ProductSync/InventorySync/PriceSync/OrderSync jobs call into (§1's scope
// excludes the client's own implementation). A nil client makes every sync
// job a documented no-op so the scheduler remains runnable without one
// configured.
type WebshopSyncClient interface {
	SyncProducts(ctx Context) (map[string]any, error)
	SyncInventory(ctx Context) (map[string]any, error)
	SyncPrices(ctx Context) (map[string]any, error)
	SyncOrders(ctx Context) (map[string]any, error)
}
