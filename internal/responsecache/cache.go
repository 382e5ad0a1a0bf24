// Package responsecache implements the thin, namespace-dispatching
// memoization wrapper (C4) over the unified cache pool.
package responsecache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/pkg/textx"
)

// Cache implements domain.ResponseCache.
type Cache struct {
	pool domain.CachePool
}

// NewCache builds a response cache over pool.
func NewCache(pool domain.CachePool) *Cache {
	return &Cache{pool: pool}
}

// Fingerprint computes a stable hash of (handlerKind, normalizedMessage,
// userID, relevantContext) suitable as a cache key. Context keys are
// sorted so two callers passing the same logical subset produce the same
// fingerprint regardless of map iteration order.
func Fingerprint(handlerKind domain.HandlerKind, message, userID string, relevantContext map[string]any) string {
	normalized := strings.ToLower(textx.NormalizeMessage(message))

	var sb strings.Builder
	sb.WriteString(string(handlerKind))
	sb.WriteByte('|')
	sb.WriteString(normalized)
	sb.WriteByte('|')
	sb.WriteString(userID)

	keys := make([]string, 0, len(relevantContext))
	for k := range relevantContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteByte('|')
		sb.WriteString(k)
		sb.WriteByte('=')
		fmt.Fprintf(&sb, "%v", relevantContext[k])
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) CacheAgentResponse(ctx domain.Context, fingerprint string, resp domain.AgentResponse) error {
	return c.pool.Set(ctx, fingerprint, resp, "agent_response", 0)
}

func (c *Cache) GetCachedAgentResponse(ctx domain.Context, fingerprint string) (domain.AgentResponse, bool, error) {
	var resp domain.AgentResponse
	found, err := c.pool.Get(ctx, fingerprint, "agent_response", &resp)
	return resp, found, err
}

func (c *Cache) CacheProductInfo(ctx domain.Context, fingerprint string, value any) error {
	return c.pool.Set(ctx, fingerprint, value, "product_info", 0)
}

func (c *Cache) GetCachedProductInfo(ctx domain.Context, fingerprint string, dest any) (bool, error) {
	return c.pool.Get(ctx, fingerprint, "product_info", dest)
}

func (c *Cache) CacheSearchResult(ctx domain.Context, fingerprint string, value any) error {
	return c.pool.Set(ctx, fingerprint, value, "search_result", 0)
}

func (c *Cache) GetCachedSearchResult(ctx domain.Context, fingerprint string, dest any) (bool, error) {
	return c.pool.Get(ctx, fingerprint, "search_result", dest)
}

func (c *Cache) CacheEmbedding(ctx domain.Context, fingerprint string, value []float32) error {
	return c.pool.Set(ctx, fingerprint, value, "embedding", 0)
}

func (c *Cache) GetCachedEmbedding(ctx domain.Context, fingerprint string) ([]float32, bool, error) {
	var value []float32
	found, err := c.pool.Get(ctx, fingerprint, "embedding", &value)
	return value, found, err
}

var _ domain.ResponseCache = (*Cache)(nil)
