package app

import (
	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/internal/scheduler"
)

// buildJobExecs wires one domain.JobExecFunc per JobKind (§4.8). The four
// webshop sync executors delegate to WebshopSync when configured and are a
// documented no-op otherwise, so the scheduler stays runnable without an
// external webshop integration wired in.
func (r *Root) buildJobExecs() map[domain.JobKind]domain.JobExecFunc {
	syncExecs := map[domain.JobKind]domain.JobExecFunc{
		domain.JobProductSync:   r.syncExec(func(ctx domain.Context) (map[string]any, error) { return r.WebshopSync.SyncProducts(ctx) }),
		domain.JobInventorySync: r.syncExec(func(ctx domain.Context) (map[string]any, error) { return r.WebshopSync.SyncInventory(ctx) }),
		domain.JobPriceSync:     r.syncExec(func(ctx domain.Context) (map[string]any, error) { return r.WebshopSync.SyncPrices(ctx) }),
		domain.JobOrderSync:     r.syncExec(func(ctx domain.Context) (map[string]any, error) { return r.WebshopSync.SyncOrders(ctx) }),
	}

	execs := map[domain.JobKind]domain.JobExecFunc{
		domain.JobAbandonedCartDetect: func(ctx domain.Context) (map[string]any, error) {
			detected, err := r.Cart.DetectAbandoned(ctx)
			if err != nil {
				return nil, err
			}
			emails, sms, err := r.Cart.ProcessDueFollowUps(ctx)
			if err != nil {
				return map[string]any{"detected": len(detected)}, err
			}
			return map[string]any{"detected": len(detected), "emails_sent": emails, "sms_sent": sms}, nil
		},
		domain.JobCleanup: func(ctx domain.Context) (map[string]any, error) {
			purged, err := r.Cart.Cleanup(ctx)
			return map[string]any{"purged": purged}, err
		},
	}
	for kind, exec := range syncExecs {
		execs[kind] = exec
	}
	execs[domain.JobFullSync] = scheduler.FullSyncExec(syncExecs)
	return execs
}

// syncExec wraps call with the nil-WebshopSync no-op guard shared by the
// four sync job kinds.
func (r *Root) syncExec(call domain.JobExecFunc) domain.JobExecFunc {
	return func(ctx domain.Context) (map[string]any, error) {
		if r.WebshopSync == nil {
			return map[string]any{"skipped": "no webshop client configured"}, nil
		}
		return call(ctx)
	}
}

// DefaultJobConfigs returns the scheduler configs a cmd/ entry point starts
// with, built from the job-scheduler section of configuration. Sync jobs
// are disabled by default (no external webshop collaborator is wired in a
// bare deployment); AbandonedCartDetect and Cleanup are enabled.
func (r *Root) DefaultJobConfigs() []domain.JobConfig {
	cfg := r.Config
	return []domain.JobConfig{
		{JobID: "product-sync", Kind: domain.JobProductSync, Interval: cfg.JobSyncInterval, Enabled: cfg.JobProductSyncEnabled, RetryCount: cfg.JobRetryCount, RetryDelay: cfg.JobRetryDelay, MaxExecution: cfg.JobMaxExecution},
		{JobID: "inventory-sync", Kind: domain.JobInventorySync, Interval: cfg.JobSyncInterval, Enabled: cfg.JobInventorySyncEnabled, RetryCount: cfg.JobRetryCount, RetryDelay: cfg.JobRetryDelay, MaxExecution: cfg.JobMaxExecution},
		{JobID: "price-sync", Kind: domain.JobPriceSync, Interval: cfg.JobSyncInterval, Enabled: cfg.JobPriceSyncEnabled, RetryCount: cfg.JobRetryCount, RetryDelay: cfg.JobRetryDelay, MaxExecution: cfg.JobMaxExecution},
		{JobID: "order-sync", Kind: domain.JobOrderSync, Interval: cfg.JobSyncInterval, Enabled: cfg.JobOrderSyncEnabled, RetryCount: cfg.JobRetryCount, RetryDelay: cfg.JobRetryDelay, MaxExecution: cfg.JobMaxExecution},
		{JobID: "full-sync", Kind: domain.JobFullSync, Interval: cfg.JobFullSyncInterval, Enabled: cfg.JobFullSyncEnabled, RetryCount: cfg.JobRetryCount, RetryDelay: cfg.JobRetryDelay, MaxExecution: cfg.JobMaxExecution * 2},
		{JobID: "abandoned-cart-detect", Kind: domain.JobAbandonedCartDetect, Interval: cfg.JobAbandonedCartInterval, Enabled: cfg.JobAbandonedCartEnabled, RetryCount: cfg.JobRetryCount, RetryDelay: cfg.JobRetryDelay, MaxExecution: cfg.JobMaxExecution},
		{JobID: "cart-cleanup", Kind: domain.JobCleanup, Interval: cfg.JobCleanupInterval, Enabled: cfg.JobCleanupEnabled, RetryCount: cfg.JobRetryCount, RetryDelay: cfg.JobRetryDelay, MaxExecution: cfg.JobMaxExecution},
	}
}

