package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docsift/internal/config"
	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/pipeline"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild_Defaults(t *testing.T) {
	cfg := config.Defaults()
	cfg.Embedding.CachePath = filepath.Join(t.TempDir(), "embeddings.db")

	st, err := Build(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, "hash-bow", st.Embedding.ModelName())

	out, _, err := st.Analyzer.Analyze(context.Background(),
		[]pipeline.Input{{Name: "a.txt", Data: []byte("Packing list\nBring a raincoat and boots.")}},
		doctree.Query{Persona: "Hiker", JobToBeDone: "Pack for rain"}, 3)
	require.NoError(t, err)
	assert.Len(t, out.ExtractedSections, 1)
}

func TestBuild_UnknownProvider(t *testing.T) {
	cfg := config.Defaults()
	cfg.Embedding.Provider = "word2vec"
	_, err := Build(context.Background(), cfg, quietLogger())
	assert.Error(t, err)
}

func TestEmbedConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Embedding.Provider = "ollama"
	cfg.Embedding.Model = "all-minilm"
	cfg.Embedding.Dimensions = 384
	cfg.Embedding.Timeout = config.Duration(3 * time.Second)
	cfg.Embedding.OnnxModelPath = "/models/minilm/model.onnx"

	ec := EmbedConfig(cfg)
	assert.Equal(t, "ollama", ec.Provider)
	assert.Equal(t, "all-minilm", ec.Model)
	assert.Equal(t, 3*time.Second, ec.Timeout)
	assert.Equal(t, "/models/minilm/model.onnx", ec.Onnx.ModelPath)
	assert.Equal(t, 384, ec.Onnx.Dimensions)
	assert.Equal(t, "http://localhost:11434", ec.OllamaURL)
}
