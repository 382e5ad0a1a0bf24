package app

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/chatbuddy/core/internal/config"
	"github.com/chatbuddy/core/internal/domain"
	"github.com/stretchr/testify/require"
)

func buildTestRoot(t *testing.T) *Root {
	t.Helper()
	cfg := config.Config{Testing: true, EventBusQueueCapacity: 100, AuditBufferSize: 16, ConflictHistoryLimit: 100}
	root, err := Build(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { root.Shutdown(context.Background()) })
	return root
}

func TestBuildJobExecs_SyncJobsAreNoopWithoutWebshopClient(t *testing.T) {
	root := buildTestRoot(t)
	execs := root.buildJobExecs()

	exec, ok := execs[domain.JobProductSync]
	require.True(t, ok)
	result, err := exec(context.Background())
	require.NoError(t, err)
	require.Contains(t, result, "skipped")
}

type stubWebshopSync struct{ calls []string }

func (s *stubWebshopSync) SyncProducts(ctx domain.Context) (map[string]any, error) {
	s.calls = append(s.calls, "products")
	return map[string]any{"synced": 1}, nil
}
func (s *stubWebshopSync) SyncInventory(ctx domain.Context) (map[string]any, error) {
	s.calls = append(s.calls, "inventory")
	return map[string]any{"synced": 1}, nil
}
func (s *stubWebshopSync) SyncPrices(ctx domain.Context) (map[string]any, error) {
	s.calls = append(s.calls, "prices")
	return map[string]any{"synced": 1}, nil
}
func (s *stubWebshopSync) SyncOrders(ctx domain.Context) (map[string]any, error) {
	s.calls = append(s.calls, "orders")
	return map[string]any{"synced": 1}, nil
}

func TestBuildJobExecs_FullSyncRunsAllFourInOrder(t *testing.T) {
	root := buildTestRoot(t)
	stub := &stubWebshopSync{}
	root.WebshopSync = stub
	execs := root.buildJobExecs()

	exec, ok := execs[domain.JobFullSync]
	require.True(t, ok)
	result, err := exec(context.Background())
	require.NoError(t, err)
	require.Contains(t, result, string(domain.JobProductSync))
	require.Contains(t, result, string(domain.JobInventorySync))
	require.Contains(t, result, string(domain.JobPriceSync))
	require.Contains(t, result, string(domain.JobOrderSync))
	require.Equal(t, []string{"products", "inventory", "prices", "orders"}, stub.calls)
}

func TestBuildJobExecs_AbandonedCartDetectRunsDetectionAndFollowUps(t *testing.T) {
	root := buildTestRoot(t)
	execs := root.buildJobExecs()

	exec, ok := execs[domain.JobAbandonedCartDetect]
	require.True(t, ok)
	result, err := exec(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result["detected"])
	require.Equal(t, 0, result["emails_sent"])
	require.Equal(t, 0, result["sms_sent"])
}

func TestDefaultJobConfigs_AbandonedCartAndCleanupEnabledByDefault(t *testing.T) {
	root := buildTestRoot(t)
	root.Config.JobAbandonedCartInterval = 15 * time.Minute
	root.Config.JobCleanupInterval = 24 * time.Hour
	root.Config.JobAbandonedCartEnabled = true
	root.Config.JobCleanupEnabled = true
	root.Config.JobMaxExecution = 5 * time.Minute
	root.Config.JobRetryDelay = 10 * time.Second

	configs := root.DefaultJobConfigs()
	byKind := map[domain.JobKind]domain.JobConfig{}
	for _, c := range configs {
		byKind[c.Kind] = c
	}
	require.True(t, byKind[domain.JobAbandonedCartDetect].Enabled)
	require.True(t, byKind[domain.JobCleanup].Enabled)
	require.False(t, byKind[domain.JobProductSync].Enabled)
}
