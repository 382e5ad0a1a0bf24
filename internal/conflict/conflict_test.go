package conflict

import (
	"testing"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestPriceConflict_ExactBoundaryNotTriggered(t *testing.T) {
	local := map[string]any{"id": "1", "price": 100.0}
	remote := map[string]any{"id": "1", "price": 100.01}
	_, found := PriceConflict(local, remote)
	require.False(t, found)
}

func TestPriceConflict_JustOverBoundaryTriggers(t *testing.T) {
	local := map[string]any{"id": "1", "price": 100.0}
	remote := map[string]any{"id": "1", "price": 100.02}
	c, found := PriceConflict(local, remote)
	require.True(t, found)
	require.Equal(t, domain.ConflictPrice, c.ConflictType)
}

func TestStockConflict_ExactBoundaryNotTriggered(t *testing.T) {
	local := map[string]any{"id": "1", "stock": 50.0}
	remote := map[string]any{"id": "1", "stock": 55.0}
	_, found := StockConflict(local, remote)
	require.False(t, found)
}

func TestStockConflict_JustOverBoundaryTriggers(t *testing.T) {
	local := map[string]any{"id": "1", "stock": 50.0}
	remote := map[string]any{"id": "1", "stock": 56.0}
	c, found := StockConflict(local, remote)
	require.True(t, found)
	require.Equal(t, domain.ConflictStock, c.ConflictType)
}

func TestDuplicateProduct_SameSKUDistinctIDs(t *testing.T) {
	local := map[string]any{"id": "1", "sku": "SKU-1"}
	remote := map[string]any{"id": "2", "sku": "SKU-1"}
	c, found := DuplicateProduct(local, remote)
	require.True(t, found)
	require.Equal(t, domain.ConflictDuplicate, c.ConflictType)
}

func TestDataIntegrity_ZeroPriceTriggers(t *testing.T) {
	local := map[string]any{"id": "1"}
	remote := map[string]any{"id": "1", "price": 0.0, "stock": 1.0, "name": "ok name"}
	c, found := DataIntegrity(local, remote)
	require.True(t, found)
	require.Equal(t, domain.ConflictDataIntegrity, c.ConflictType)
}

func TestResolver_Resolve_AppendsHistoryAndComputesStats(t *testing.T) {
	r := NewResolver()
	r.Resolve(domain.Conflict{ConflictType: domain.ConflictPrice, LocalSnapshot: map[string]any{}, RemoteSnapshot: map[string]any{"price": 110.0}})
	r.Resolve(domain.Conflict{ConflictType: domain.ConflictDataIntegrity, LocalSnapshot: map[string]any{}, RemoteSnapshot: map[string]any{}})

	stats := r.Stats()
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.Resolved)
	require.Equal(t, 0.5, stats.ResolutionRate)
}

func TestMonitor_Scan_DetectsAndResolvesPriceAndStock(t *testing.T) {
	resolver := NewResolver()
	monitor := NewMonitor(resolver, nil, DefaultAlertThreshold)

	local := []map[string]any{{"id": "1", "price": 100.0, "stock": 50.0}}
	remote := []map[string]any{{"id": "1", "price": 110.0, "stock": 30.0}}

	result := monitor.Scan(local, remote)
	require.Len(t, result.Conflicts, 2)
	require.Len(t, result.Resolved, 2)
	require.False(t, result.Alert)

	stats := resolver.Stats()
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1.0, stats.ResolutionRate)
}

type recordingPublisher struct {
	events []domain.Event
}

func (p *recordingPublisher) Publish(event domain.Event) {
	p.events = append(p.events, event)
}

func TestMonitor_Scan_RaisesAlertAtThreshold(t *testing.T) {
	resolver := NewResolver()
	pub := &recordingPublisher{}
	monitor := NewMonitor(resolver, pub, 2)

	local := []map[string]any{
		{"id": "1", "price": 100.0, "stock": 50.0},
		{"id": "2", "price": 200.0, "stock": 10.0},
	}
	remote := []map[string]any{
		{"id": "1", "price": 150.0, "stock": 50.0},
		{"id": "2", "price": 200.0, "stock": 200.0},
	}

	result := monitor.Scan(local, remote)
	require.True(t, result.Alert)
	require.Len(t, pub.events, 1)
	require.Equal(t, domain.EventConflictDetected, pub.events[0].Type)
}
