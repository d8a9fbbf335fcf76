package embed

import (
	"context"
	"time"
)

// Instrumented records the latency of every provider call.
type Instrumented struct {
	Embedder
	stats *LatencyStats
}

// NewInstrumented wraps inner, recording into stats.
func NewInstrumented(inner Embedder, stats *LatencyStats) *Instrumented {
	return &Instrumented{Embedder: inner, stats: stats}
}

func (i *Instrumented) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := i.Embedder.Embed(ctx, text)
	i.stats.Record(time.Since(start).Milliseconds(), 1, err != nil)
	return vec, err
}

func (i *Instrumented) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := i.Embedder.EmbedBatch(ctx, texts)
	i.stats.Record(time.Since(start).Milliseconds(), len(texts), err != nil)
	return vecs, err
}

// Stats returns the underlying recorder.
func (i *Instrumented) Stats() *LatencyStats {
	return i.stats
}
