// Package postgres provides the optional PostgreSQL-backed
// domain.PersistenceClient. The core's own state does not use it: sessions,
// caches and cart records live behind C1's cache namespacing, and job and
// conflict history are held in process memory by the scheduler and the
// conflict resolver. This client exists only so a handler's persistence
// collaborator and the ops
// surface's readiness check have something concrete to dial against.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/internal/observability"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pingBreakerFailures/Timeout bound how often a down database gets probed
// by the readiness endpoint; once open, Ping fails fast instead of waiting
// out the driver's own connect timeout on every scrape.
const (
	pingBreakerFailures = 3
	pingBreakerTimeout  = 30 * time.Second
)

// Client wraps a pgx pool and satisfies domain.PersistenceClient.
type Client struct {
	pool    *pgxpool.Pool
	breaker *observability.CircuitBreaker
}

// NewClient parses dsn, opens a traced connection pool, and returns a
// Client. The pool is not pinged here; call Ping to verify connectivity.
func NewClient(ctx context.Context, dsn string) (*Client, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("op=postgres.NewClient: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.Tracer = otelpgx.NewTracer(otelpgx.WithTrimSQLInSpanName())

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("op=postgres.NewClient: %w", err)
	}
	if err := otelpgx.RecordStats(pool); err != nil {
		slog.Warn("failed to record pgx stats", slog.Any("error", err))
	}
	return &Client{
		pool:    pool,
		breaker: observability.NewCircuitBreaker("postgres.Ping", pingBreakerFailures, pingBreakerTimeout, 0.5),
	}, nil
}

// Ping implements domain.PersistenceClient for the ops surface's
// readiness check. A tripped breaker fails fast rather than re-probing a
// database that has already timed out repeatedly.
func (c *Client) Ping(ctx domain.Context) error {
	if !c.breaker.CanExecute() {
		return fmt.Errorf("op=postgres.Ping: circuit open, state=%s", c.breaker.GetState())
	}
	if err := c.pool.Ping(ctx); err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("op=postgres.Ping: %w", err)
	}
	c.breaker.RecordSuccess()
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() {
	c.pool.Close()
}

var _ domain.PersistenceClient = (*Client)(nil)
