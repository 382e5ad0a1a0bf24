// Package conflict implements the conflict resolver (C10): pure detectors
// over local/remote product snapshots, default resolution strategies, a
// bounded resolution history, and a monitor that scans parallel product
// lists and raises an alert when a scan surfaces too many conflicts.
package conflict

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/internal/observability"
	"github.com/oklog/ulid/v2"
)

const (
	priceTolerance = 0.01
	stockTolerance = 5
	minNameLength  = 2

	// DefaultAlertThreshold is raised when one scan detects at least this
	// many conflicts.
	DefaultAlertThreshold = 5

	historyCap = 10000
)

// Detector inspects a local/remote product pair and reports a Conflict if
// the pair diverges, or ok=false if it does not.
type Detector func(local, remote map[string]any) (domain.Conflict, bool)

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// PriceConflict triggers when |local.price - remote.price| > 0.01. A small
// epsilon absorbs float rounding, so 100.00 vs 100.01 stays within tolerance.
func PriceConflict(local, remote map[string]any) (domain.Conflict, bool) {
	lp, lok := asFloat(local["price"])
	rp, rok := asFloat(remote["price"])
	if !lok || !rok || math.Abs(lp-rp) <= priceTolerance+1e-9 {
		return domain.Conflict{}, false
	}
	return domain.Conflict{
		ConflictType:   domain.ConflictPrice,
		LocalSnapshot:  local,
		RemoteSnapshot: remote,
		Severity:       domain.SeverityMedium,
		Description:    fmt.Sprintf("price diverges: local=%.2f remote=%.2f", lp, rp),
	}, true
}

// StockConflict triggers when |local.stock - remote.stock| > 5.
func StockConflict(local, remote map[string]any) (domain.Conflict, bool) {
	ls, lok := asFloat(local["stock"])
	rs, rok := asFloat(remote["stock"])
	if !lok || !rok || math.Abs(ls-rs) <= stockTolerance {
		return domain.Conflict{}, false
	}
	return domain.Conflict{
		ConflictType:   domain.ConflictStock,
		LocalSnapshot:  local,
		RemoteSnapshot: remote,
		Severity:       domain.SeverityMedium,
		Description:    fmt.Sprintf("stock diverges: local=%.0f remote=%.0f", ls, rs),
	}, true
}

// DuplicateProduct triggers when the same SKU appears under distinct ids.
func DuplicateProduct(local, remote map[string]any) (domain.Conflict, bool) {
	lsku, rsku := asString(local["sku"]), asString(remote["sku"])
	lid, rid := asString(local["id"]), asString(remote["id"])
	if lsku == "" || lsku != rsku || lid == rid {
		return domain.Conflict{}, false
	}
	return domain.Conflict{
		ConflictType:   domain.ConflictDuplicate,
		LocalSnapshot:  local,
		RemoteSnapshot: remote,
		Severity:       domain.SeverityHigh,
		Description:    fmt.Sprintf("sku %s shared by ids %s and %s", lsku, lid, rid),
	}, true
}

// CategoryMismatch triggers when category_id differs between records.
func CategoryMismatch(local, remote map[string]any) (domain.Conflict, bool) {
	lc, rc := asString(local["category_id"]), asString(remote["category_id"])
	if lc == "" && rc == "" {
		return domain.Conflict{}, false
	}
	if lc == rc {
		return domain.Conflict{}, false
	}
	return domain.Conflict{
		ConflictType:   domain.ConflictCategoryMismatch,
		LocalSnapshot:  local,
		RemoteSnapshot: remote,
		Severity:       domain.SeverityLow,
		Description:    fmt.Sprintf("category_id diverges: local=%s remote=%s", lc, rc),
	}, true
}

// DataIntegrity triggers on price<=0, stock<0, or an empty/too-short name,
// checked against the remote record (the side a sync would otherwise adopt
// verbatim). A field absent from the remote record is not checked.
func DataIntegrity(local, remote map[string]any) (domain.Conflict, bool) {
	price, hasPrice := asFloat(remote["price"])
	stock, hasStock := asFloat(remote["stock"])
	rawName, hasName := remote["name"]
	name := strings.TrimSpace(asString(rawName))

	var reasons []string
	if hasPrice && price <= 0 {
		reasons = append(reasons, "price<=0")
	}
	if hasStock && stock < 0 {
		reasons = append(reasons, "stock<0")
	}
	if hasName && len(name) < minNameLength {
		reasons = append(reasons, "name empty or too short")
	}
	if len(reasons) == 0 {
		return domain.Conflict{}, false
	}
	return domain.Conflict{
		ConflictType:   domain.ConflictDataIntegrity,
		LocalSnapshot:  local,
		RemoteSnapshot: remote,
		Severity:       domain.SeverityCritical,
		Description:    strings.Join(reasons, ", "),
	}, true
}

// DefaultDetectors runs in this fixed order for every product pair.
func DefaultDetectors() []Detector {
	return []Detector{PriceConflict, StockConflict, DuplicateProduct, CategoryMismatch, DataIntegrity}
}

// defaultStrategy maps a conflict type to its default resolution strategy.
func defaultStrategy(t domain.ConflictType) domain.ResolutionStrategy {
	switch t {
	case domain.ConflictPrice:
		return domain.StrategyKeepRemote
	case domain.ConflictStock:
		return domain.StrategyMerge
	case domain.ConflictDuplicate:
		return domain.StrategyAutoResolve
	case domain.ConflictCategoryMismatch:
		return domain.StrategyKeepRemote
	case domain.ConflictDataIntegrity:
		return domain.StrategyManualReview
	default:
		return domain.StrategyManualReview
	}
}

// Resolver applies default resolution strategies and keeps a bounded
// history of resolutions.
type Resolver struct {
	mu      sync.Mutex
	history []domain.ResolutionRecord
}

// NewResolver builds a Resolver with an empty history.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve applies conflict's resolution strategy (or the type default if
// unset) and appends a ResolutionRecord to the bounded history.
func (r *Resolver) Resolve(c domain.Conflict) domain.ResolutionRecord {
	strategy := c.ResolutionStrategy
	if strategy == "" {
		strategy = defaultStrategy(c.ConflictType)
	}

	record := domain.ResolutionRecord{
		ConflictID:     ulid.Make().String(),
		ConflictType:   c.ConflictType,
		Strategy:       strategy,
		ResolutionData: resolutionData(c, strategy),
		ResolvedAt:     time.Now(),
	}

	r.mu.Lock()
	r.history = append(r.history, record)
	if len(r.history) > historyCap {
		r.history = r.history[len(r.history)-historyCap:]
	}
	r.mu.Unlock()

	observability.ConflictsResolvedTotal.WithLabelValues(string(strategy)).Inc()
	return record
}

func resolutionData(c domain.Conflict, strategy domain.ResolutionStrategy) map[string]any {
	switch strategy {
	case domain.StrategyKeepRemote:
		return map[string]any{"price": c.RemoteSnapshot["price"], "category_id": c.RemoteSnapshot["category_id"]}
	case domain.StrategyMerge:
		ls, _ := asFloat(c.LocalSnapshot["stock"])
		rs, _ := asFloat(c.RemoteSnapshot["stock"])
		return map[string]any{"stock": math.Max(ls, rs)}
	case domain.StrategyAutoResolve:
		lid := asString(c.LocalSnapshot["id"])
		rid := asString(c.RemoteSnapshot["id"])
		kept := lid
		if rid > lid {
			kept = rid
		}
		return map[string]any{"kept_id": kept}
	case domain.StrategyManualReview:
		return map[string]any{"reason": c.Description}
	default:
		return nil
	}
}

// Stats summarizes the live resolution history.
type Stats struct {
	Total          int                    `json:"total"`
	ByType         map[string]int         `json:"by_type"`
	Resolved       int                    `json:"resolved"`
	ResolutionRate float64                `json:"resolution_rate"`
}

// Stats computes {total, by_type, resolved, resolution_rate} from the live
// ring buffer only.
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{ByType: map[string]int{}}
	for _, rec := range r.history {
		stats.Total++
		stats.ByType[string(rec.ConflictType)]++
		if rec.Strategy != domain.StrategyManualReview {
			stats.Resolved++
		}
	}
	if stats.Total > 0 {
		stats.ResolutionRate = float64(stats.Resolved) / float64(stats.Total)
	}
	return stats
}

// History returns a copy of the resolution history, oldest first.
func (r *Resolver) History() []domain.ResolutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ResolutionRecord, len(r.history))
	copy(out, r.history)
	return out
}

// Publisher is the narrow event-bus surface the monitor notifies on
// detection.
type Publisher interface {
	Publish(event domain.Event)
}

// Monitor compares parallel local/remote product lists, runs every
// detector, auto-resolves non-manual conflicts, and raises an alert when a
// single scan detects at least AlertThreshold conflicts.
type Monitor struct {
	resolver       *Resolver
	publisher      Publisher
	detectors      []Detector
	alertThreshold int
}

// NewMonitor builds a Monitor. alertThreshold<=0 defaults to
// DefaultAlertThreshold.
func NewMonitor(resolver *Resolver, publisher Publisher, alertThreshold int) *Monitor {
	if alertThreshold <= 0 {
		alertThreshold = DefaultAlertThreshold
	}
	return &Monitor{
		resolver:       resolver,
		publisher:      publisher,
		detectors:      DefaultDetectors(),
		alertThreshold: alertThreshold,
	}
}

// ScanResult is the outcome of one Monitor.Scan call.
type ScanResult struct {
	Conflicts []domain.Conflict
	Resolved  []domain.ResolutionRecord
	Alert     bool
}

// Scan pairs local and remote products by id, runs every detector against
// each pair, resolves every non-manual-review conflict, and raises an
// alert if the scan found at least the alert threshold.
func (m *Monitor) Scan(local, remote []map[string]any) ScanResult {
	remoteByID := make(map[string]map[string]any, len(remote))
	for _, r := range remote {
		remoteByID[asString(r["id"])] = r
	}

	var result ScanResult
	for _, l := range local {
		id := asString(l["id"])
		r, ok := remoteByID[id]
		if !ok {
			continue
		}
		for _, detect := range m.detectors {
			c, found := detect(l, r)
			if !found {
				continue
			}
			c.DetectedAt = time.Now()
			result.Conflicts = append(result.Conflicts, c)
			observability.ConflictsDetectedTotal.WithLabelValues(string(c.ConflictType)).Inc()

			strategy := defaultStrategy(c.ConflictType)
			if strategy != domain.StrategyManualReview {
				c.ResolutionStrategy = strategy
				record := m.resolver.Resolve(c)
				result.Resolved = append(result.Resolved, record)
			} else {
				m.resolver.Resolve(c)
			}
		}
	}

	if len(result.Conflicts) >= m.alertThreshold {
		result.Alert = true
		if m.publisher != nil {
			m.publisher.Publish(domain.Event{
				ID:        ulid.Make().String(),
				Type:      domain.EventConflictDetected,
				Timestamp: time.Now(),
				Source:    "conflict.monitor",
				Payload: map[string]any{
					"count":     len(result.Conflicts),
					"threshold": m.alertThreshold,
				},
			})
		}
	}
	return result
}
