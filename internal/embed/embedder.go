// Package embed turns text into vectors for relevance ranking.
//
// Providers:
//   - hash: deterministic feature hashing, offline, the default
//   - ollama: a local Ollama server's /api/embed endpoint
//   - gemini: Google's embedding models through google.golang.org/genai
//   - onnx: all-MiniLM-style sentence encoders run in-process (build tag "onnx")
//
// Any provider can be wrapped by Cached (memory plus optional SQLite) and
// Instrumented (latency stats).
package embed

import (
	"context"
	"errors"
	"math"
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts in one call where the provider allows it. The
	// result has one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName identifies the model; it is part of every cache key.
	ModelName() string

	// Ping checks the provider is usable without embedding real input.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

var (
	// ErrUnknownProvider is returned by New for an unrecognised provider name.
	ErrUnknownProvider = errors.New("unknown embedding provider")

	// ErrOnnxNotEnabled is returned when ONNX support was not compiled in.
	ErrOnnxNotEnabled = errors.New("onnx embedding support not enabled; rebuild with -tags onnx")
)

// l2Normalize scales v to unit length in place. Zero vectors are left alone.
func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
