package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/praxisnote/praxisnote/internal/ai"
	"github.com/praxisnote/praxisnote/internal/cache"
	"github.com/praxisnote/praxisnote/internal/metrics"
	pkgerrors "github.com/praxisnote/praxisnote/internal/pkg/errors"
	"github.com/praxisnote/praxisnote/internal/resilience"
)

// ErrEmbeddingUnavailable is returned once retries are exhausted or the
// embedding endpoint's breaker is open.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

const (
	embedEndpoint = "embedding"
	embedLayer    = "embedding"
)

type cachedVector struct {
	Vector   []float32 `json:"v"`
	Provider string    `json:"p"`
}

// Client turns text into vectors through a remote provider, with an
// in-process LRU in front of a shared external cache. The external cache is
// workspace-agnostic: normalized text maps to the same vector for every
// tenant.
type Client struct {
	provider ai.IEmbedProvider
	model    string
	wrapper  *resilience.Wrapper
	store    cache.Store
	ttl      time.Duration
	lru      *expirable.LRU[string, []float32]
	maxChars int
}

type Options struct {
	Store         cache.Store // nil disables the shared cache
	TTL           time.Duration
	LRUSize       int // 0 disables the in-process front
	MaxInputChars int
}

func New(provider ai.IEmbedProvider, model string, wrapper *resilience.Wrapper, opts Options) *Client {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = 4000
	}
	c := &Client{
		provider: provider,
		model:    model,
		wrapper:  wrapper,
		store:    opts.Store,
		ttl:      opts.TTL,
		maxChars: opts.MaxInputChars,
	}
	if opts.LRUSize > 0 {
		c.lru = expirable.NewLRU[string, []float32](opts.LRUSize, nil, opts.TTL)
	}
	return c
}

// Embed returns the vector for one text. taskType is a provider hint
// (query vs document) and does not participate in the cache key.
func (c *Client) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts, serving what it can from cache and issuing a
// single provider call for the remainder.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	normalized := make([]string, len(texts))
	for i, text := range texts {
		norm := Normalize(text)
		if norm == "" {
			return nil, fmt.Errorf("%w: empty text", pkgerrors.ErrInvalid)
		}
		if len(norm) > c.maxChars {
			return nil, fmt.Errorf("%w: text exceeds %d chars", pkgerrors.ErrInvalid, c.maxChars)
		}
		normalized[i] = norm
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	for i, norm := range normalized {
		if vec, ok := c.lookup(ctx, norm); ok {
			metrics.CacheHits.WithLabelValues(embedLayer).Inc()
			out[i] = vec
			continue
		}
		metrics.CacheMisses.WithLabelValues(embedLayer).Inc()
		missIdx = append(missIdx, i)
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	missTexts := make([]string, 0, len(missIdx))
	for _, i := range missIdx {
		missTexts = append(missTexts, normalized[i])
	}
	vectors, err := resilience.Call(ctx, c.wrapper, embedEndpoint, func(ctx context.Context) ([][]float32, error) {
		return c.provider.Embed(ctx, c.model, missTexts, taskType)
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInvalid) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts", ErrEmbeddingUnavailable, len(vectors), len(missTexts))
	}
	for n, i := range missIdx {
		out[i] = vectors[n]
		c.save(ctx, normalized[i], vectors[n])
	}
	return out, nil
}

func (c *Client) lookup(ctx context.Context, normalized string) ([]float32, bool) {
	key := CacheKey(normalized)
	if c.lru != nil {
		if vec, ok := c.lru.Get(key); ok {
			return cloneVector(vec), true
		}
	}
	if c.store == nil {
		return nil, false
	}
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		logutil.GetLogger(ctx).Warn("embedding cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var cached cachedVector
	if err := json.Unmarshal([]byte(raw), &cached); err != nil || len(cached.Vector) == 0 {
		return nil, false
	}
	if c.lru != nil {
		c.lru.Add(key, cloneVector(cached.Vector))
	}
	return cached.Vector, true
}

func (c *Client) save(ctx context.Context, normalized string, vector []float32) {
	key := CacheKey(normalized)
	if c.lru != nil {
		c.lru.Add(key, cloneVector(vector))
	}
	if c.store == nil {
		return
	}
	data, err := json.Marshal(cachedVector{Vector: vector, Provider: c.provider.Name()})
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, string(data), c.ttl); err != nil {
		logutil.GetLogger(ctx).Warn("embedding cache write failed", zap.Error(err))
	}
}

func cloneVector(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
