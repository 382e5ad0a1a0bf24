package cache

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/internal/observability"
	"github.com/klauspost/compress/gzip"
)

// InMemory implements domain.CachePool without a Redis dependency. It keeps
// the same compression accounting and TTL semantics as Pool so that tests
// running with TESTING=true exercise meaningful behavior rather than a bare
// map. Not for production use: there is no shared state across processes.
type InMemory struct {
	mu                   sync.Mutex
	entries              map[string]inMemoryEntry
	compressionThreshold int
}

type inMemoryEntry struct {
	payload   []byte
	meta      entryMetadata
	expiresAt time.Time
}

// NewInMemory constructs an in-memory stand-in for Pool.
func NewInMemory(compressionThreshold int) *InMemory {
	if compressionThreshold <= 0 {
		compressionThreshold = 1024
	}
	return &InMemory{
		entries:              make(map[string]inMemoryEntry),
		compressionThreshold: compressionThreshold,
	}
}

func (m *InMemory) fullKey(namespace, key string) string {
	return dataKey(namespace, key)
}

func (m *InMemory) Set(ctx domain.Context, key string, value any, namespace string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = TTLFor(namespace)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
		return err
	}

	stored, compressed := m.maybeCompress(raw, namespace)

	m.mu.Lock()
	m.entries[m.fullKey(namespace, key)] = inMemoryEntry{
		payload: stored,
		meta: entryMetadata{
			Type:         "json",
			Compressed:   compressed,
			CreatedAt:    time.Now(),
			OriginalSize: len(raw),
			StoredSize:   len(stored),
		},
		expiresAt: time.Now().Add(ttl),
	}
	m.mu.Unlock()

	observability.CacheSetsTotal.WithLabelValues(namespace).Inc()
	return nil
}

func (m *InMemory) maybeCompress(raw []byte, namespace string) ([]byte, bool) {
	if len(raw) < m.compressionThreshold {
		return raw, false
	}
	compressed, err := gzipCompress(raw)
	if err != nil || len(compressed) >= len(raw) {
		return raw, false
	}
	observability.CacheCompressionSavesTotal.WithLabelValues(namespace).Inc()
	observability.CacheBytesSavedTotal.WithLabelValues(namespace).Add(float64(len(raw) - len(compressed)))
	return compressed, true
}

func gzipCompress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *InMemory) Get(ctx domain.Context, key string, namespace string, dest any) (bool, error) {
	m.mu.Lock()
	entry, ok := m.entries[m.fullKey(namespace, key)]
	if ok && time.Now().After(entry.expiresAt) {
		delete(m.entries, m.fullKey(namespace, key))
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		observability.CacheMissesTotal.WithLabelValues(namespace).Inc()
		return false, nil
	}

	payload := entry.payload
	if entry.meta.Compressed {
		decoded, err := decompress(payload)
		if err != nil {
			observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
			return false, err
		}
		payload = decoded
	}

	if dest != nil {
		if err := json.Unmarshal(payload, dest); err != nil {
			observability.CacheErrorsTotal.WithLabelValues(namespace).Inc()
			return false, err
		}
	}

	observability.CacheHitsTotal.WithLabelValues(namespace).Inc()
	return true, nil
}

func (m *InMemory) Delete(ctx domain.Context, key string, namespace string) error {
	m.mu.Lock()
	delete(m.entries, m.fullKey(namespace, key))
	m.mu.Unlock()
	observability.CacheDeletesTotal.WithLabelValues(namespace).Inc()
	return nil
}

func (m *InMemory) Exists(ctx domain.Context, key string, namespace string) (bool, error) {
	m.mu.Lock()
	entry, ok := m.entries[m.fullKey(namespace, key)]
	m.mu.Unlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return false, nil
	}
	return true, nil
}

func (m *InMemory) Expire(ctx domain.Context, key string, namespace string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fk := m.fullKey(namespace, key)
	entry, ok := m.entries[fk]
	if !ok {
		return nil
	}
	entry.expiresAt = time.Now().Add(ttl)
	m.entries[fk] = entry
	return nil
}

func (m *InMemory) Incr(ctx domain.Context, key string, namespace string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fk := m.fullKey(namespace, key)
	entry, ok := m.entries[fk]

	var current int64
	if ok {
		_ = json.Unmarshal(entry.payload, &current)
	}
	current += amount

	raw, _ := json.Marshal(current)
	expiresAt := time.Now().Add(TTLFor(namespace))
	if ok {
		expiresAt = entry.expiresAt
	}
	m.entries[fk] = inMemoryEntry{
		payload:   raw,
		meta:      entryMetadata{Type: "json", OriginalSize: len(raw), StoredSize: len(raw)},
		expiresAt: expiresAt,
	}

	observability.CacheSetsTotal.WithLabelValues(namespace).Inc()
	return current, nil
}

var _ domain.CachePool = (*InMemory)(nil)
