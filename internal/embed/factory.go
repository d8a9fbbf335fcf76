package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Provider names accepted by New.
const (
	ProviderHash   = "hash"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderOnnx   = "onnx"
)

// Config selects and configures a provider.
type Config struct {
	Provider   string
	Model      string
	Dimensions int
	RatePerSec float64
	Timeout    time.Duration

	OllamaURL    string
	GeminiAPIKey string
	Onnx         OnnxConfig

	CachePath string        // SQLite file; "" keeps the cache in memory only
	StatsAge  time.Duration // Latency window
}

// Service is a ready-to-use embedder stack: provider, latency stats and
// cache, outermost last.
type Service struct {
	*Cached
	stats *LatencyStats
}

// Stats returns provider latency statistics. Cache hits are not calls and
// are not recorded.
func (s *Service) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// New builds the provider named by cfg.Provider, wrapped as
// Cached(Instrumented(provider)).
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}

	provider, err := newProvider(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var store *Store
	if cfg.CachePath != "" {
		store, err = OpenStore(cfg.CachePath)
		if err != nil {
			provider.Close()
			return nil, fmt.Errorf("open embedding cache: %w", err)
		}
	}

	stats := NewLatencyStats(cfg.StatsAge)
	svc := &Service{
		Cached: NewCached(NewInstrumented(provider, stats), store, log),
		stats:  stats,
	}
	log.Info("embedding provider ready",
		"provider", cfg.Provider,
		"model", provider.ModelName(),
		"dimensions", provider.Dimensions(),
		"cache", cfg.CachePath,
	)
	return svc, nil
}

func newProvider(ctx context.Context, cfg Config, log *slog.Logger) (Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderHash:
		return NewHashEmbedder(cfg.Dimensions), nil
	case ProviderOllama:
		return NewOllamaEmbedder(OllamaConfig{
			BaseURL:    cfg.OllamaURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
			RatePerSec: cfg.RatePerSec,
		}, log), nil
	case ProviderGemini:
		return NewGeminiEmbedder(ctx, GeminiConfig{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			RatePerSec: cfg.RatePerSec,
		}, log)
	case ProviderOnnx:
		oc := cfg.Onnx
		if oc.Dimensions == 0 {
			oc.Dimensions = cfg.Dimensions
		}
		return NewOnnxEmbedder(oc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
