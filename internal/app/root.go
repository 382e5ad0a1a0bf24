// Package app is the composition root: it wires every component
// explicitly, with no package-level singletons, and exposes the handles a
// cmd/ entry point needs to serve requests and run background work.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chatbuddy/core/internal/audit"
	"github.com/chatbuddy/core/internal/cache"
	"github.com/chatbuddy/core/internal/cart"
	"github.com/chatbuddy/core/internal/classifier"
	"github.com/chatbuddy/core/internal/conflict"
	"github.com/chatbuddy/core/internal/config"
	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/internal/eventbus"
	"github.com/chatbuddy/core/internal/handler"
	"github.com/chatbuddy/core/internal/observability"
	"github.com/chatbuddy/core/internal/persistence/postgres"
	"github.com/chatbuddy/core/internal/ratelimiter"
	"github.com/chatbuddy/core/internal/responsecache"
	"github.com/chatbuddy/core/internal/router"
	"github.com/chatbuddy/core/internal/scheduler"
	"github.com/chatbuddy/core/internal/session"
)

// Root holds every wired component. Fields are exported so a cmd/ entry
// point can reach into them (ops surface, background loops) without the
// package re-exposing getters for everything.
type Root struct {
	Config config.Config
	Logger *slog.Logger

	Cache         domain.CachePool
	Sessions      domain.SessionStore
	RateLimiter   domain.RateLimiter
	ResponseCache domain.ResponseCache
	Classifier    domain.Classifier
	Router        *router.Router
	AuditLogger   *audit.Logger

	EventBus       *eventbus.Bus
	KafkaMirror    *eventbus.KafkaMirror
	Scheduler      *scheduler.Scheduler
	ConflictMonitor *conflict.Monitor
	ConflictResolver *conflict.Resolver
	Cart           *cart.Coordinator

	Persistence domain.PersistenceClient

	// WebshopSync is the optional external webshop REST collaborator behind
	// the four sync jobs (§1 scope excludes its implementation). Nil makes
	// those jobs documented no-ops.
	WebshopSync domain.WebshopSyncClient
}

// Build wires every component per the composition described in the design
// notes: cache pool first (the only shared mutable resource), then the
// components layered on top of it, then the event bus (started here) and
// the optional Postgres client, then the router, then the conflict
// monitor, cart coordinator and scheduler.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Root, error) {
	root := &Root{Config: cfg, Logger: logger}

	cachePool, err := buildCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("op=app.Build: %w", err)
	}
	root.Cache = cachePool

	root.Sessions = session.NewStore(cachePool, 30*60*1e9) // 30m, overwritten per-session from domain.Session fields
	root.RateLimiter = ratelimiter.NewLimiter(cachePool)
	root.ResponseCache = responsecache.NewCache(cachePool)
	root.Classifier = classifier.New()

	sink := audit.NewSlogSink(logger)
	root.AuditLogger = audit.NewLogger(sink, cfg.AuditBufferSize)

	root.EventBus = eventbus.NewBus(cfg.EventBusQueueCapacity)
	root.EventBus.Start()
	if len(cfg.KafkaBrokers) > 0 {
		mirror, err := eventbus.NewKafkaMirror(cfg.KafkaBrokers)
		if err != nil {
			logger.Warn("kafka mirror disabled", slog.Any("error", err))
		} else {
			root.KafkaMirror = mirror
			root.EventBus.SetMirror(mirror)
		}
	}

	if cfg.DBURL != "" && !cfg.Testing {
		pgClient, err := postgres.NewClient(ctx, cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("op=app.Build: %w", err)
		}
		root.Persistence = pgClient
	}

	handlers := map[domain.HandlerKind]domain.Handler{
		domain.HandlerProduct:        handler.NewProductHandler(nil),
		domain.HandlerOrder:          handler.NewOrderHandler(nil),
		domain.HandlerRecommendation: handler.NewRecommendationHandler(nil),
		domain.HandlerMarketing:      handler.NewMarketingHandler(nil),
		domain.HandlerGeneral:        handler.NewGeneralHandler(nil),
	}

	deps := domain.HandlerDeps{
		PersistenceClient: root.Persistence,
		AuditLogger:       root.AuditLogger,
	}

	root.Router = router.New(
		root.Sessions,
		root.RateLimiter,
		root.Classifier,
		root.ResponseCache,
		handlers,
		root.AuditLogger,
		deps,
		cfg.RouterHandlerTimeout,
		cfg.RateLimitUserMax,
		cfg.RateLimitUserWindow,
	)

	root.ConflictResolver = conflict.NewResolver()
	root.ConflictMonitor = conflict.NewMonitor(root.ConflictResolver, root.EventBus, cfg.ConflictAlertThreshold)

	root.Cart = cart.New(cachePool, noopCartSource{}, nil, nil, cart.Config{
		TimeoutMinutes:      cfg.AbandonedCartTimeoutMinutes,
		MinValueForFollowup: cfg.MinimumCartValueForFollowup,
		EmailDelayMinutes:   cfg.FollowUpEmailDelayMinutes,
		SMSDelayHours:       cfg.FollowUpSMSDelayHours,
	})

	root.Scheduler = scheduler.New(root.buildJobExecs(), root.EventBus, cfg.JobHistoryLimit)

	return root, nil
}

// noopCartSource is the default CartSource wired when no webshop
// integration is configured; it reports no active carts.
type noopCartSource struct{}

func (noopCartSource) ListActiveCarts(ctx domain.Context) ([]cart.CartSnapshot, error) {
	return nil, nil
}

func buildCache(cfg config.Config) (domain.CachePool, error) {
	if cfg.Testing {
		return cache.NewInMemory(cfg.CacheCompressionThreshold), nil
	}
	return cache.NewPool(cfg)
}

// Shutdown stops every background component, in reverse dependency order.
// Each Stop/Close call runs to completion; ctx is not consulted.
func (r *Root) Shutdown(ctx context.Context) {
	if r.Scheduler != nil {
		r.Scheduler.Stop()
	}
	if r.EventBus != nil {
		r.EventBus.Stop()
	}
	if r.KafkaMirror != nil {
		r.KafkaMirror.Close()
	}
	if r.AuditLogger != nil {
		r.AuditLogger.Close()
	}
	if pgClient, ok := r.Persistence.(*postgres.Client); ok && pgClient != nil {
		pgClient.Close()
	}
}
