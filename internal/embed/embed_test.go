package embed

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm2(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashEmbedder(t *testing.T) {
	h := NewHashEmbedder(0)
	ctx := context.Background()

	assert.Equal(t, DefaultHashDimensions, h.Dimensions())

	a, err := h.Embed(ctx, "Planning a trip to the south of France with friends")
	require.NoError(t, err)
	again, err := h.Embed(ctx, "Planning a trip to the south of France with friends")
	require.NoError(t, err)
	assert.Equal(t, a, again, "embedding must be deterministic")
	assert.InDelta(t, 1.0, norm2(a), 1e-5)

	related, err := h.Embed(ctx, "Trip planning for friends visiting France")
	require.NoError(t, err)
	unrelated, err := h.Embed(ctx, "Quarterly revenue grew in the semiconductor division")
	require.NoError(t, err)
	assert.Greater(t, dot(a, related), dot(a, unrelated))

	empty, err := h.Embed(ctx, "the of and")
	require.NoError(t, err)
	assert.Zero(t, norm2(empty), "stopword-only text embeds to the zero vector")
}

func TestHashEmbedder_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEmbedder(8).Embed(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCacheKey_NormalizesText(t *testing.T) {
	// Full-width letters fold to ASCII under NFKC.
	assert.Equal(t, CacheKey("m", "ＡＢＣ"), CacheKey("m", "ABC"))
	assert.Equal(t, CacheKey("m", "  ABC\n"), CacheKey("m", "ABC"))
	assert.NotEqual(t, CacheKey("m1", "ABC"), CacheKey("m2", "ABC"))
}

func ollamaServer(t *testing.T, handler func(w http.ResponseWriter, req ollamaEmbedRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		require.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeEmbeddings(w http.ResponseWriter, n int) {
	resp := ollamaEmbedResponse{}
	for i := 0; i < n; i++ {
		resp.Embeddings = append(resp.Embeddings, []float64{float64(i + 1), 0, 1})
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func TestOllamaEmbedder_Batch(t *testing.T) {
	srv := ollamaServer(t, func(w http.ResponseWriter, req ollamaEmbedRequest) {
		assert.Equal(t, "all-minilm", req.Model)
		writeEmbeddings(w, len(req.Input))
	})

	o := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL}, nil)
	vecs, err := o.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{2, 0, 1}, vecs[1])
	assert.Equal(t, "ollama/all-minilm", o.ModelName())
	assert.NoError(t, o.Ping(context.Background()))
}

func TestOllamaEmbedder_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := ollamaServer(t, func(w http.ResponseWriter, req ollamaEmbedRequest) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		writeEmbeddings(w, len(req.Input))
	})

	o := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL}, nil)
	o.backoff = func(int) time.Duration { return time.Millisecond }

	vec, err := o.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOllamaEmbedder_GivesUpOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := ollamaServer(t, func(w http.ResponseWriter, _ ollamaEmbedRequest) {
		calls.Add(1)
		http.Error(w, "model not found", http.StatusNotFound)
	})

	o := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL}, nil)
	o.backoff = func(int) time.Duration { return time.Millisecond }

	_, err := o.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestOllamaEmbedder_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := ollamaServer(t, func(w http.ResponseWriter, _ ollamaEmbedRequest) {
		calls.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	o := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL}, nil)
	o.backoff = func(int) time.Duration { return time.Millisecond }

	_, err := o.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(MaxRetries+1), calls.Load())
}

// countingEmbedder returns a fixed vector per text and counts calls.
type countingEmbedder struct {
	calls atomic.Int32
	texts atomic.Int32
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.texts.Add(int32(len(texts)))
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int            { return 2 }
func (c *countingEmbedder) ModelName() string          { return "counting" }
func (c *countingEmbedder) Ping(context.Context) error { return nil }
func (c *countingEmbedder) Close() error               { return nil }

func TestCached_MemoryHits(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCached(inner, nil, nil)
	ctx := context.Background()

	_, err := c.EmbedBatch(ctx, []string{"one", "three"})
	require.NoError(t, err)
	vecs, err := c.EmbedBatch(ctx, []string{"three", "seven", "one"})
	require.NoError(t, err)

	assert.Equal(t, []float32{5, 1}, vecs[0])
	assert.Equal(t, []float32{5, 1}, vecs[1])
	assert.Equal(t, []float32{3, 1}, vecs[2])
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, int32(3), inner.texts.Load(), "only misses reach the provider")

	hits, misses := c.HitsMisses()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(3), misses)
}

func TestCached_ErrorsPropagate(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	c := NewCached(inner, nil, nil)
	_, err := c.Embed(context.Background(), "x")
	assert.EqualError(t, err, "down")
}

func TestCached_PersistsToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "embeddings.db")
	ctx := context.Background()

	store, err := OpenStore(path)
	require.NoError(t, err)
	first := &countingEmbedder{}
	c := NewCached(first, store, nil)
	_, err = c.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, c.Close())

	// A fresh process reads the same file.
	store, err = OpenStore(path)
	require.NoError(t, err)
	second := &countingEmbedder{}
	c = NewCached(second, store, nil)
	defer c.Close()

	vec, err := c.Embed(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1}, vec)
	assert.Zero(t, second.calls.Load())
}

func TestStore_GetMissing(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "e.db"))
	require.NoError(t, err)
	defer store.Close()

	vec, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, vec)
}

func TestInstrumented_RecordsCalls(t *testing.T) {
	stats := NewLatencyStats(time.Hour)
	inst := NewInstrumented(&countingEmbedder{}, stats)

	_, err := inst.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	_, err = inst.Embed(context.Background(), "d")
	require.NoError(t, err)

	snap := stats.Snapshot()
	assert.Equal(t, 2, snap.Count)
	assert.Equal(t, 4, snap.Texts)
	assert.Zero(t, snap.Errors)
}

func TestNew_Providers(t *testing.T) {
	ctx := context.Background()

	svc, err := New(ctx, Config{Provider: "hash", Dimensions: 64}, nil)
	require.NoError(t, err)
	assert.Equal(t, 64, svc.Dimensions())
	assert.Equal(t, "hash-bow", svc.ModelName())
	_, err = svc.Embed(ctx, "hello world")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Stats().Count)
	require.NoError(t, svc.Close())

	_, err = New(ctx, Config{Provider: "word2vec"}, nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestMeanPool(t *testing.T) {
	states := []float32{
		1, 0, // token 0
		3, 0, // token 1
		100, 100, // padding
	}
	got := meanPool(states, []int64{1, 1, 0}, 2)
	assert.InDelta(t, 1.0, float64(got[0]), 1e-6)
	assert.InDelta(t, 0.0, float64(got[1]), 1e-6)

	assert.Equal(t, []float32{0, 0}, meanPool(states, []int64{0, 0, 0}, 2))
}
