// Package cache implements the unified, connection-pooled cache layer (C1):
// typed namespaces, per-namespace TTL policy, transparent compression above a
// size threshold, and the sidecar metadata record every entry carries.
package cache

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chatbuddy/core/internal/config"
	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/internal/observability"
	"github.com/klauspost/compress/gzip"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "chatbuddy:v1"

// defaultTTLs is the namespace → TTL table. Values are optimized for
// recency versus memory pressure; session was brought down from a 24h
// original to 30m, embedding kept high because recomputation is expensive.
var defaultTTLs = map[string]time.Duration{
	"session":        30 * time.Minute,
	"agent_response": 15 * time.Minute,
	"product_info":   60 * time.Minute,
	"search_result":  10 * time.Minute,
	"embedding":      120 * time.Minute,
	"user_context":   30 * time.Minute,
	"rate_limit":     60 * time.Minute,
}

const fallbackTTL = 10 * time.Minute

// TTLFor returns the default TTL for a namespace, falling back to a
// conservative default when the namespace is not in the intelligent-TTL
// table (e.g. a job-scheduler or conflict-history namespace).
func TTLFor(namespace string) time.Duration {
	if ttl, ok := defaultTTLs[namespace]; ok {
		return ttl
	}
	return fallbackTTL
}

// entryMetadata is the sidecar record stored alongside every payload.
type entryMetadata struct {
	Type         string    `json:"type"`
	Compressed   bool      `json:"compressed"`
	CreatedAt    time.Time `json:"created_at"`
	OriginalSize int       `json:"original_size"`
	StoredSize   int       `json:"stored_size"`
}

// Pool is a Redis-backed implementation of domain.CachePool. A single
// instance serves every namespace; namespace only affects key prefixing,
// TTL defaults, and metrics labels.
type Pool struct {
	rdb                  *redis.Client
	compressionThreshold int

	mu          sync.Mutex
	responseEMA float64 // average response time in seconds, alpha=0.1
}

// NewPool dials Redis using cfg.RedisURL and returns a ready Pool. It does
// not block on a PING; callers that need a connectivity check should call
// HealthCheck.
func NewPool(cfg config.Config) (*Pool, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("op=cache.NewPool: parse redis url: %w", err)
	}
	opts.PoolSize = cfg.CacheMaxConns
	if cfg.CacheRetryOnTimeout {
		opts.MaxRetries = 3
	}

	rdb := redis.NewClient(opts)
	p := &Pool{
		rdb:                  rdb,
		compressionThreshold: cfg.CacheCompressionThreshold,
	}

	if cfg.CacheHealthCheckInterval > 0 {
		go p.runHealthCheckLoop(cfg.CacheHealthCheckInterval)
	}
	return p, nil
}

// NewPoolWithClient wires an already-constructed redis.Client, used by
// tests against miniredis.
func NewPoolWithClient(rdb *redis.Client, compressionThreshold int) *Pool {
	if compressionThreshold <= 0 {
		compressionThreshold = 1024
	}
	return &Pool{rdb: rdb, compressionThreshold: compressionThreshold}
}

func (p *Pool) runHealthCheckLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("cache pool health check failed", slog.Any("error", err))
		}
		cancel()
	}
}

// Close releases the underlying connection pool.
func (p *Pool) Close() error {
	return p.rdb.Close()
}

func dataKey(namespace, key string) string {
	sum := md5.Sum([]byte(key)) //nolint:gosec // cache key hashing, not security sensitive
	return fmt.Sprintf("%s:%s:%s", keyPrefix, namespace, hex.EncodeToString(sum[:]))
}

func metaKey(namespace, key string) string {
	return dataKey(namespace, key) + ":meta"
}

func (p *Pool) recordLatency(start time.Time, op string) {
	elapsed := time.Since(start)
	observability.CacheResponseTime.WithLabelValues(op).Observe(elapsed.Seconds())

	p.mu.Lock()
	if p.responseEMA == 0 {
		p.responseEMA = elapsed.Seconds()
	} else {
		p.responseEMA = 0.1*elapsed.Seconds() + 0.9*p.responseEMA
	}
	p.mu.Unlock()
}

// AvgResponseTime returns the exponential moving average (alpha=0.1) of
// recent operation latencies.
func (p *Pool) AvgResponseTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(p.responseEMA * float64(time.Second))
}

// Set serializes value (JSON for plain scalars/containers, opaque binary
// via gob-free JSON-of-struct otherwise), compresses it when the serialized
// size is at least compressionThreshold AND compression actually shrinks it,
// and writes payload plus a sidecar metadata record under the same TTL.
func (p *Pool) Set(ctx domain.Context, key string, value any, namespace string, ttl time.Duration) error {
	start := time.Now()
	defer p.recordLatency(start, "set")

	if ttl <= 0 {
		ttl = TTLFor(namespace)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
		return fmt.Errorf("op=cache.Set: marshal: %w", err)
	}

	stored, compressed := p.maybeCompress(raw, namespace)

	meta := entryMetadata{
		Type:         "json",
		Compressed:   compressed,
		CreatedAt:    time.Now(),
		OriginalSize: len(raw),
		StoredSize:   len(stored),
	}
	metaRaw, err := json.Marshal(meta)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
		return fmt.Errorf("op=cache.Set: marshal metadata: %w", err)
	}

	dk, mk := dataKey(namespace, key), metaKey(namespace, key)
	_, err = p.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, dk, stored, ttl)
		pipe.Set(ctx, mk, metaRaw, ttl)
		return nil
	})
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
		return fmt.Errorf("op=cache.Set: %w: %w", domain.ErrCacheTransport, err)
	}

	observability.CacheSetsTotal.WithLabelValues(namespace).Inc()
	return nil
}

func (p *Pool) maybeCompress(raw []byte, namespace string) ([]byte, bool) {
	if len(raw) < p.compressionThreshold {
		return raw, false
	}

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		slog.Warn("cache compression writer failed", slog.Any("error", err))
		return raw, false
	}
	if _, err := w.Write(raw); err != nil {
		slog.Warn("cache compression write failed", slog.Any("error", err))
		return raw, false
	}
	if err := w.Close(); err != nil {
		slog.Warn("cache compression close failed", slog.Any("error", err))
		return raw, false
	}

	compressed := buf.Bytes()
	if len(compressed) >= len(raw) {
		return raw, false
	}

	observability.CacheCompressionSavesTotal.WithLabelValues(namespace).Inc()
	observability.CacheBytesSavedTotal.WithLabelValues(namespace).Add(float64(len(raw) - len(compressed)))
	return compressed, true
}

// Get reads payload and metadata in a single pipelined round trip,
// decompresses per metadata.compressed, and deserializes into dest. A cache
// miss reports (false, nil), never an error.
func (p *Pool) Get(ctx domain.Context, key string, namespace string, dest any) (bool, error) {
	start := time.Now()
	defer p.recordLatency(start, "get")

	dk, mk := dataKey(namespace, key), metaKey(namespace, key)
	var dataCmd, metaCmd *redis.StringCmd
	_, err := p.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		dataCmd = pipe.Get(ctx, dk)
		metaCmd = pipe.Get(ctx, mk)
		return nil
	})
	// redis.Nil here may come from the metadata key alone (Incr counters
	// have none), so a miss is decided by the payload command below.
	if err != nil && err != redis.Nil {
		observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
		return false, fmt.Errorf("op=cache.Get: %w: %w", domain.ErrCacheTransport, err)
	}

	payload, perr := dataCmd.Bytes()
	if perr == redis.Nil {
		observability.CacheMissesTotal.WithLabelValues(namespace).Inc()
		return false, nil
	}
	if perr != nil {
		observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
		return false, fmt.Errorf("op=cache.Get: %w: %w", domain.ErrCacheTransport, perr)
	}

	var meta entryMetadata
	if metaRaw, merr := metaCmd.Bytes(); merr == nil {
		_ = json.Unmarshal(metaRaw, &meta)
	}

	if meta.Compressed {
		decoded, derr := decompress(payload)
		if derr != nil {
			observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
			return false, fmt.Errorf("op=cache.Get: decompress: %w", derr)
		}
		payload = decoded
	}

	if dest != nil {
		if err := json.Unmarshal(payload, dest); err != nil {
			observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
			return false, fmt.Errorf("op=cache.Get: unmarshal: %w", err)
		}
	}

	observability.CacheHitsTotal.WithLabelValues(namespace).Inc()
	return true, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Delete removes a key and its metadata sidecar.
func (p *Pool) Delete(ctx domain.Context, key string, namespace string) error {
	start := time.Now()
	defer p.recordLatency(start, "delete")

	dk, mk := dataKey(namespace, key), metaKey(namespace, key)
	if err := p.rdb.Del(ctx, dk, mk).Err(); err != nil {
		observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
		return fmt.Errorf("op=cache.Delete: %w: %w", domain.ErrCacheTransport, err)
	}
	observability.CacheDeletesTotal.WithLabelValues(namespace).Inc()
	return nil
}

// Exists reports whether key is present in namespace.
func (p *Pool) Exists(ctx domain.Context, key string, namespace string) (bool, error) {
	start := time.Now()
	defer p.recordLatency(start, "exists")

	n, err := p.rdb.Exists(ctx, dataKey(namespace, key)).Result()
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
		return false, fmt.Errorf("op=cache.Exists: %w: %w", domain.ErrCacheTransport, err)
	}
	return n > 0, nil
}

// Expire resets the TTL on an existing key and its metadata sidecar.
func (p *Pool) Expire(ctx domain.Context, key string, namespace string, ttl time.Duration) error {
	start := time.Now()
	defer p.recordLatency(start, "expire")

	dk, mk := dataKey(namespace, key), metaKey(namespace, key)
	_, err := p.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Expire(ctx, dk, ttl)
		pipe.Expire(ctx, mk, ttl)
		return nil
	})
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
		return fmt.Errorf("op=cache.Expire: %w: %w", domain.ErrCacheTransport, err)
	}
	return nil
}

// Incr atomically increments a counter key by amount, returning the new
// value. Used directly by the rate limiter (C3) as a fixed-window counter.
func (p *Pool) Incr(ctx domain.Context, key string, namespace string, amount int64) (int64, error) {
	start := time.Now()
	defer p.recordLatency(start, "incr")

	n, err := p.rdb.IncrBy(ctx, dataKey(namespace, key), amount).Result()
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
		return 0, fmt.Errorf("op=cache.Incr: %w: %w", domain.ErrCacheTransport, err)
	}
	observability.CacheSetsTotal.WithLabelValues(namespace).Inc()
	return n, nil
}

// HealthCheck performs an active PING and reports round-trip latency,
// mirroring the original connection pool's health endpoint.
func (p *Pool) HealthCheck(ctx domain.Context) (time.Duration, error) {
	start := time.Now()
	err := p.rdb.Ping(ctx).Err()
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, fmt.Errorf("op=cache.HealthCheck: %w: %w", domain.ErrCacheTransport, err)
	}
	return elapsed, nil
}

var _ domain.CachePool = (*Pool)(nil)
