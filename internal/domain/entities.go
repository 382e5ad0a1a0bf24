// Package domain defines core entities and domain-specific errors for the
// chatbuddy orchestration fabric: sessions, cache entries, agent
// responses, jobs, events, conflicts, and abandoned carts (spec.md §3).
package domain

import (
	"context"
	"time"
)

// Context is a type alias to stdlib context.Context, kept for readability
// at call sites that pass it alongside domain values.
type Context = context.Context

// HandlerKind tags which specialized handler produced or should produce a
// response. Precedence among kinds during classification (marketing >
// recommendation > order > product > general) is enforced by the
// classifier, not by this type.
type HandlerKind string

// The five handler kinds.
const (
	HandlerProduct        HandlerKind = "product"
	HandlerOrder          HandlerKind = "order"
	HandlerRecommendation HandlerKind = "recommendation"
	HandlerMarketing      HandlerKind = "marketing"
	HandlerGeneral        HandlerKind = "general"
)

// Session is a user's conversational session, persisted through the cache
// pool under the "session" namespace.
type Session struct {
	SessionID    string         `json:"session_id"`
	UserID       string         `json:"user_id"`
	DeviceInfo   string         `json:"device_info,omitempty"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	LastActivity time.Time      `json:"last_activity"`
	ExpiresAt    time.Time      `json:"expires_at"`
	Context      map[string]any `json:"context,omitempty"`
}

// Active reports whether the session has not yet passed its TTL.
func (s Session) Active() bool {
	return time.Now().Before(s.ExpiresAt)
}

// AgentResponse is the immutable output of a handler invocation.
type AgentResponse struct {
	Text        string         `json:"text"`
	Confidence  float64        `json:"confidence"`
	HandlerKind HandlerKind    `json:"handler_kind"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// IntentDecision is the classifier's output.
type IntentDecision struct {
	Kind              HandlerKind    `json:"kind"`
	Confidence        float64        `json:"confidence"`
	MatchedKeywords   []string       `json:"matched_keywords,omitempty"`
	ExtractedEntities map[string]any `json:"extracted_entities,omitempty"`
}

// JobKind tags a scheduled background task variant.
type JobKind string

// The seven job kinds.
const (
	JobProductSync         JobKind = "ProductSync"
	JobInventorySync       JobKind = "InventorySync"
	JobPriceSync           JobKind = "PriceSync"
	JobOrderSync           JobKind = "OrderSync"
	JobFullSync            JobKind = "FullSync"
	JobAbandonedCartDetect JobKind = "AbandonedCartDetect"
	JobCleanup             JobKind = "Cleanup"
)

// JobConfig is a registered scheduler entry.
type JobConfig struct {
	JobID        string
	Kind         JobKind       `validate:"required"`
	Interval     time.Duration `validate:"required,gt=0"`
	Enabled      bool
	RetryCount   int           `validate:"gte=0"`
	RetryDelay   time.Duration `validate:"gte=0"`
	MaxExecution time.Duration `validate:"required,gt=0"`
}

// JobRun is one append-only history entry for a JobConfig.
type JobRun struct {
	RunID      string
	JobID      string
	Kind       JobKind
	StartedAt  time.Time
	FinishedAt time.Time
	Success    bool
	Attempts   int
	Result     map[string]any
	Error      string
}

// EventType tags a realtime domain event variant.
type EventType string

// Realtime event types.
const (
	EventProductUpdated   EventType = "ProductUpdated"
	EventInventoryChanged EventType = "InventoryChanged"
	EventPriceChanged     EventType = "PriceChanged"
	EventOrderCreated     EventType = "OrderCreated"
	EventJobCompleted     EventType = "JobCompleted"
	EventConflictDetected EventType = "ConflictDetected"
	EventCartAbandoned    EventType = "CartAbandoned"
)

// Event flows through the event bus exactly once per subscriber.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Payload   map[string]any
	Source    string
}

// ConflictType tags the kind of divergence a detector found.
type ConflictType string

// Conflict types.
const (
	ConflictPrice            ConflictType = "price_conflict"
	ConflictStock            ConflictType = "stock_conflict"
	ConflictDuplicate        ConflictType = "duplicate_product"
	ConflictCategoryMismatch ConflictType = "category_mismatch"
	ConflictDataIntegrity    ConflictType = "data_integrity"
)

// ResolutionStrategy tags how a conflict is resolved.
type ResolutionStrategy string

// Resolution strategies.
const (
	StrategyKeepLocal    ResolutionStrategy = "keep_local"
	StrategyKeepRemote   ResolutionStrategy = "keep_remote"
	StrategyMerge        ResolutionStrategy = "merge"
	StrategyManualReview ResolutionStrategy = "manual_review"
	StrategyAutoResolve  ResolutionStrategy = "auto_resolve"
)

// Severity of a detected conflict.
type Severity string

// Severity levels.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Conflict is a detected divergence between a local and remote record of
// the same entity.
type Conflict struct {
	ID                 string
	ConflictType       ConflictType
	LocalSnapshot      map[string]any
	RemoteSnapshot     map[string]any
	DetectedAt         time.Time
	Severity           Severity
	Description        string
	ResolutionStrategy ResolutionStrategy
}

// ResolutionRecord is the outcome of resolving one Conflict.
type ResolutionRecord struct {
	ConflictID     string
	ConflictType   ConflictType
	Strategy       ResolutionStrategy
	ResolutionData map[string]any
	ResolvedAt     time.Time
}

// CartItem is a single line item inside an AbandonedCart snapshot.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// AbandonedCart tracks a cart through the follow-up lifecycle.
type AbandonedCart struct {
	CartID        string     `json:"cart_id"`
	UserID        string     `json:"user_id"`
	TotalValue    float64    `json:"total_value"`
	Items         []CartItem `json:"items"`
	LastActivity  time.Time  `json:"last_activity"`
	AbandonedAt   time.Time  `json:"abandoned_at"`
	EmailSent     bool       `json:"email_sent"`
	SMSSent       bool       `json:"sms_sent"`
	FollowUpCount int        `json:"follow_up_count"`
	Recovered     bool       `json:"recovered"`
}

// AuditSeverity tags the severity of an audit record.
type AuditSeverity string

// Audit severities.
const (
	AuditInfo    AuditSeverity = "info"
	AuditWarning AuditSeverity = "warning"
	AuditError   AuditSeverity = "error"
)

// AuditRecord is one structured entry written by the audit logger.
type AuditRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      string         `json:"kind"`
	Severity  AuditSeverity  `json:"severity"`
	UserID    string         `json:"user_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Subsystem string         `json:"subsystem"`
	Payload   map[string]any `json:"payload,omitempty"`
	Message   string         `json:"message,omitempty"`
}
