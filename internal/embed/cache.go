package embed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Cached wraps an Embedder with an in-memory map and an optional SQLite
// store. Keys are CacheKey(model, text), so switching models never serves
// stale vectors.
type Cached struct {
	inner Embedder
	store *Store // nil: memory only
	log   *slog.Logger

	mu  sync.RWMutex
	mem map[string][]float32

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCached wraps inner. store may be nil.
func NewCached(inner Embedder, store *Store, log *slog.Logger) *Cached {
	if log == nil {
		log = slog.Default()
	}
	return &Cached{
		inner: inner,
		store: store,
		log:   log,
		mem:   make(map[string][]float32),
	}
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch serves what it can from the cache and sends only the misses
// to the wrapped provider, in one batch.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := c.inner.ModelName()
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		keys[i] = CacheKey(model, t)
		if vec := c.lookup(ctx, keys[i]); vec != nil {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	c.hits.Add(int64(len(texts) - len(missIdx)))
	c.misses.Add(int64(len(missIdx)))

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.save(ctx, keys[i], model, vecs[j])
	}
	return out, nil
}

func (c *Cached) lookup(ctx context.Context, key string) []float32 {
	c.mu.RLock()
	vec, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return cloneVector(vec)
	}
	if c.store == nil {
		return nil
	}

	vec, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("embedding cache read failed", "error", err)
		return nil
	}
	if vec == nil {
		return nil
	}
	c.mu.Lock()
	c.mem[key] = cloneVector(vec)
	c.mu.Unlock()
	return vec
}

func (c *Cached) save(ctx context.Context, key, model string, vec []float32) {
	c.mu.Lock()
	c.mem[key] = cloneVector(vec)
	c.mu.Unlock()
	if c.store == nil {
		return
	}
	if err := c.store.Put(ctx, key, model, vec); err != nil {
		c.log.Warn("embedding cache write failed", "error", err)
	}
}

// HitsMisses returns cumulative cache counters.
func (c *Cached) HitsMisses() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cached) Dimensions() int { return c.inner.Dimensions() }

func (c *Cached) ModelName() string { return c.inner.ModelName() }

func (c *Cached) Ping(ctx context.Context) error { return c.inner.Ping(ctx) }

// Close closes the wrapped provider and the store.
func (c *Cached) Close() error {
	err := c.inner.Close()
	if c.store != nil {
		if serr := c.store.Close(); err == nil {
			err = serr
		}
	}
	return err
}
