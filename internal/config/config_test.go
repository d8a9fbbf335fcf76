package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docsift.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DOCSIFT_CONFIG", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Rank.TopK)
	assert.Equal(t, 0.45, cfg.Outline.MinCutoff)
	assert.Equal(t, time.Hour, cfg.Server.JobTTL.Std())
	assert.Equal(t, []string{"eng"}, cfg.OCR.Languages)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
[server]
port = "9000"
job_ttl = "2h"

[rank]
top_k = 5

[embedding]
provider = "ollama"
model = "nomic-embed-text"
timeout = "5s"

[ocr]
enabled = true
languages = ["eng", "jpn"]
`)
	t.Setenv("DOCSIFT_CONFIG", path)
	t.Setenv("RANK_TOP_K", "7")
	t.Setenv("OCR_LANGUAGES", "eng, kor")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Server.JobTTL.Std())
	assert.Equal(t, 7, cfg.Rank.TopK, "environment wins over the file")
	assert.Equal(t, 500, cfg.Rank.BodyPrefixChars, "keys missing from the file keep defaults")
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout.Std())
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, []string{"eng", "kor"}, cfg.OCR.Languages)
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("DOCSIFT_CONFIG", writeConfig(t, "[server\nport = 1"))
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DOCSIFT_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_ClampsNonsense(t *testing.T) {
	t.Setenv("DOCSIFT_CONFIG", "")
	t.Setenv("WORKER_COUNT", "-1")
	t.Setenv("RANK_TOP_K", "0")
	t.Setenv("DOCUMENT_CONCURRENCY", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Server.WorkerCount)
	assert.Equal(t, 10, cfg.Rank.TopK)
	assert.Equal(t, 4, cfg.Pipeline.DocumentConcurrency)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"inverted cutoffs", func(c *Config) { c.Outline.MinCutoff, c.Outline.MaxCutoff = 0.8, 0.5 }, true},
		{"cutoff above one", func(c *Config) { c.Outline.MaxCutoff = 1.2 }, true},
		{"ocr confidence of one", func(c *Config) { c.Outline.MinOCRConfidence = 1 }, true},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "word2vec" }, true},
		{"gemini without key", func(c *Config) { c.Embedding.Provider = "gemini" }, true},
		{"gemini with key", func(c *Config) {
			c.Embedding.Provider = "gemini"
			c.Embedding.GeminiAPIKey = "k"
		}, false},
		{"onnx without model", func(c *Config) { c.Embedding.Provider = "onnx" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestValidateServer_RequiresAPIKey(t *testing.T) {
	cfg := Defaults()
	assert.EqualError(t, cfg.ValidateServer(), "DOCSIFT_API_KEY is required")
	cfg.Server.APIKey = "secret"
	assert.NoError(t, cfg.ValidateServer())
}
