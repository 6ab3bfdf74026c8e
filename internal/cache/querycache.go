package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/praxisnote/praxisnote/internal/metrics"
	"github.com/praxisnote/praxisnote/internal/model"
)

const resultLayer = "result"

// ResultKey builds the query-result cache key:
// query:{workspace_id}:{sha256(normalized_text)[0:16]}[:{client_id}]
func ResultKey(workspaceID, normalizedText, clientID string) string {
	hash := sha256.Sum256([]byte(normalizedText))
	key := "query:" + workspaceID + ":" + hex.EncodeToString(hash[:])[:16]
	if clientID != "" {
		key += ":" + clientID
	}
	return key
}

func workspaceIndexKey(workspaceID string) string {
	return "idx:query:" + workspaceID
}

func ownerIndexKey(workspaceID, ownerID string) string {
	return "idx:query:" + workspaceID + ":" + ownerID
}

// QueryCache is the tenant-scoped full-answer cache. Every live key is also
// tracked in workspace- and owner-level index sets so hashed keys can be
// evicted by owner without scanning. A nil QueryCache is a no-op.
type QueryCache struct {
	store Store
	ttl   time.Duration
}

func NewQueryCache(store Store, ttl time.Duration) *QueryCache {
	if store == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{store: store, ttl: ttl}
}

func (c *QueryCache) Get(ctx context.Context, key string) (*model.QueryResult, bool) {
	if c == nil {
		return nil, false
	}
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		logutil.GetLogger(ctx).Warn("query cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		metrics.CacheMisses.WithLabelValues(resultLayer).Inc()
		return nil, false
	}
	var result model.QueryResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		logutil.GetLogger(ctx).Warn("query cache entry corrupt", zap.Error(err))
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(resultLayer).Inc()
	return &result, true
}

// Put stores a result and indexes its key under the workspace and each
// owner the answer was derived from (citation sources plus the client
// scope). Failures are logged and swallowed: caching is an optimization.
func (c *QueryCache) Put(ctx context.Context, key, workspaceID string, ownerIDs []string, result *model.QueryResult) {
	if c == nil || result == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		logutil.GetLogger(ctx).Warn("query cache encode failed", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, string(data), c.ttl); err != nil {
		logutil.GetLogger(ctx).Warn("query cache write failed", zap.Error(err))
		return
	}
	// Index sets outlive the entries slightly so eviction can still find
	// recently expired keys; deleting a dead key is harmless.
	indexTTL := c.ttl * 2
	if err := c.store.SAdd(ctx, workspaceIndexKey(workspaceID), indexTTL, key); err != nil {
		logutil.GetLogger(ctx).Warn("query cache index write failed", zap.Error(err))
	}
	for _, ownerID := range ownerIDs {
		if ownerID == "" {
			continue
		}
		if err := c.store.SAdd(ctx, ownerIndexKey(workspaceID, ownerID), indexTTL, key); err != nil {
			logutil.GetLogger(ctx).Warn("query cache index write failed", zap.Error(err))
		}
	}
}

// TTL returns the configured entry lifetime.
func (c *QueryCache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}
