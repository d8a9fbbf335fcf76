package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that reads "90s"-style strings from TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Server    Server    `toml:"server"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Outline   Outline   `toml:"outline"`
	Rank      Rank      `toml:"rank"`
	Embedding Embedding `toml:"embedding"`
	OCR       OCR       `toml:"ocr"`
	PDF       PDF       `toml:"pdf"`
}

type Server struct {
	Port   string `toml:"port"`
	APIKey string `toml:"api_key"`

	// Worker pool
	WorkerCount  int `toml:"worker_count"`
	MaxQueueSize int `toml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
	MaxFiles       int   `toml:"max_files"`

	// Job state
	JobTTL Duration `toml:"job_ttl"`
}

type Pipeline struct {
	DocumentConcurrency int `toml:"document_concurrency"`
}

type Outline struct {
	MinOCRConfidence float64 `toml:"min_ocr_confidence"`
	MinCutoff        float64 `toml:"min_cutoff"`
	MaxCutoff        float64 `toml:"max_cutoff"`
	OCRConfidenceCap float64 `toml:"ocr_confidence_cap"`
}

type Rank struct {
	TopK             int `toml:"top_k"`
	BodyPrefixChars  int `toml:"body_prefix_chars"`
	RefinedTextChars int `toml:"refined_text_chars"`
	EmbedBatchSize   int `toml:"embed_batch_size"`
	EmbedConcurrency int `toml:"embed_concurrency"`
}

type Embedding struct {
	Provider   string   `toml:"provider"` // hash, ollama, gemini, onnx
	Model      string   `toml:"model"`
	Dimensions int      `toml:"dimensions"`
	RatePerSec float64  `toml:"rate_per_sec"`
	Timeout    Duration `toml:"timeout"`
	CachePath  string   `toml:"cache_path"`
	StatsAge   Duration `toml:"stats_age"`

	OllamaURL    string `toml:"ollama_url"`
	GeminiAPIKey string `toml:"gemini_api_key"`

	OnnxRuntimeLib    string `toml:"onnx_runtime_lib"`
	OnnxModelPath     string `toml:"onnx_model_path"`
	OnnxTokenizerPath string `toml:"onnx_tokenizer_path"`
}

type OCR struct {
	Enabled   bool     `toml:"enabled"`
	Languages []string `toml:"languages"`
	DPI       int      `toml:"dpi"`
}

type PDF struct {
	FallbackPdftotext bool   `toml:"fallback_pdftotext"`
	RenderImages      bool   `toml:"render_images"`
	PdftoppmPath      string `toml:"pdftoppm_path"`
	RenderDPI         int    `toml:"render_dpi"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:           "8090",
			WorkerCount:    4,
			MaxQueueSize:   100,
			MaxUploadBytes: 52428800, // 50MB
			MaxFiles:       50,
			JobTTL:         Duration(time.Hour),
		},
		Pipeline: Pipeline{DocumentConcurrency: 4},
		Outline: Outline{
			MinOCRConfidence: 0.30,
			MinCutoff:        0.45,
			MaxCutoff:        0.75,
			OCRConfidenceCap: 0.8,
		},
		Rank: Rank{
			TopK:             10,
			BodyPrefixChars:  500,
			RefinedTextChars: 1000,
			EmbedBatchSize:   32,
			EmbedConcurrency: 4,
		},
		Embedding: Embedding{
			Provider:  "hash",
			Timeout:   Duration(30 * time.Second),
			StatsAge:  Duration(15 * time.Minute),
			OllamaURL: "http://localhost:11434",
		},
		OCR: OCR{
			Languages: []string{"eng"},
			DPI:       150,
		},
		PDF: PDF{
			FallbackPdftotext: true,
			RenderImages:      true,
			RenderDPI:         150,
		},
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// DOCSIFT_CONFIG (if set), then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("DOCSIFT_CONFIG"); path != "" {
		if err := cfg.readFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	cfg.clamp()
	return cfg, nil
}

// readFile overlays a TOML file. Keys missing from the file keep their
// current values.
func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Port = envOr("PORT", s.Port)
	s.APIKey = envOr("DOCSIFT_API_KEY", s.APIKey)
	s.WorkerCount = envInt("WORKER_COUNT", s.WorkerCount)
	s.MaxQueueSize = envInt("MAX_QUEUE_SIZE", s.MaxQueueSize)
	s.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", s.MaxUploadBytes)
	s.MaxFiles = envInt("MAX_FILES", s.MaxFiles)
	s.JobTTL = Duration(envDuration("JOB_TTL", s.JobTTL.Std()))

	c.Pipeline.DocumentConcurrency = envInt("DOCUMENT_CONCURRENCY", c.Pipeline.DocumentConcurrency)

	o := &c.Outline
	o.MinOCRConfidence = envFloat("OUTLINE_MIN_OCR_CONFIDENCE", o.MinOCRConfidence)
	o.MinCutoff = envFloat("OUTLINE_MIN_CUTOFF", o.MinCutoff)
	o.MaxCutoff = envFloat("OUTLINE_MAX_CUTOFF", o.MaxCutoff)

	r := &c.Rank
	r.TopK = envInt("RANK_TOP_K", r.TopK)
	r.BodyPrefixChars = envInt("RANK_BODY_PREFIX_CHARS", r.BodyPrefixChars)
	r.RefinedTextChars = envInt("RANK_REFINED_TEXT_CHARS", r.RefinedTextChars)
	r.EmbedBatchSize = envInt("EMBED_BATCH_SIZE", r.EmbedBatchSize)
	r.EmbedConcurrency = envInt("EMBED_CONCURRENCY", r.EmbedConcurrency)

	e := &c.Embedding
	e.Provider = envOr("EMBED_PROVIDER", e.Provider)
	e.Model = envOr("EMBED_MODEL", e.Model)
	e.Dimensions = envInt("EMBED_DIMENSIONS", e.Dimensions)
	e.RatePerSec = envFloat("EMBED_RATE_PER_SEC", e.RatePerSec)
	e.Timeout = Duration(envDuration("EMBED_TIMEOUT", e.Timeout.Std()))
	e.CachePath = envOr("EMBED_CACHE_PATH", e.CachePath)
	e.StatsAge = Duration(envDuration("EMBED_STATS_AGE", e.StatsAge.Std()))
	e.OllamaURL = envOr("OLLAMA_URL", e.OllamaURL)
	e.GeminiAPIKey = envOr("GEMINI_API_KEY", e.GeminiAPIKey)
	e.OnnxRuntimeLib = envOr("ONNX_RUNTIME_LIB", e.OnnxRuntimeLib)
	e.OnnxModelPath = envOr("ONNX_MODEL_PATH", e.OnnxModelPath)
	e.OnnxTokenizerPath = envOr("ONNX_TOKENIZER_PATH", e.OnnxTokenizerPath)

	c.OCR.Enabled = envBool("OCR_ENABLED", c.OCR.Enabled)
	if v := os.Getenv("OCR_LANGUAGES"); v != "" {
		c.OCR.Languages = splitList(v)
	}
	c.OCR.DPI = envInt("OCR_DPI", c.OCR.DPI)

	p := &c.PDF
	p.FallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", p.FallbackPdftotext)
	p.RenderImages = envBool("PDF_RENDER_IMAGES", p.RenderImages)
	p.PdftoppmPath = envOr("PDFTOPPM_PATH", p.PdftoppmPath)
	p.RenderDPI = envInt("PDF_RENDER_DPI", p.RenderDPI)
}

// clamp restores defaults for values that make no sense.
func (c *Config) clamp() {
	def := Defaults()
	if c.Server.WorkerCount <= 0 {
		c.Server.WorkerCount = def.Server.WorkerCount
	}
	if c.Server.MaxQueueSize <= 0 {
		c.Server.MaxQueueSize = def.Server.MaxQueueSize
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = def.Server.MaxUploadBytes
	}
	if c.Server.MaxFiles <= 0 {
		c.Server.MaxFiles = def.Server.MaxFiles
	}
	if c.Server.JobTTL <= 0 {
		c.Server.JobTTL = def.Server.JobTTL
	}
	if c.Pipeline.DocumentConcurrency <= 0 {
		c.Pipeline.DocumentConcurrency = def.Pipeline.DocumentConcurrency
	}
	if c.Rank.TopK <= 0 {
		c.Rank.TopK = def.Rank.TopK
	}
	if c.Rank.EmbedBatchSize <= 0 {
		c.Rank.EmbedBatchSize = def.Rank.EmbedBatchSize
	}
	if c.Rank.EmbedConcurrency <= 0 {
		c.Rank.EmbedConcurrency = def.Rank.EmbedConcurrency
	}
	if c.PDF.RenderDPI <= 0 {
		c.PDF.RenderDPI = def.PDF.RenderDPI
	}
	if len(c.OCR.Languages) == 0 {
		c.OCR.Languages = def.OCR.Languages
	}
}

// Validate checks settings every entry point needs.
func (c Config) Validate() error {
	o := c.Outline
	if o.MinCutoff < 0 || o.MaxCutoff > 1 || o.MinCutoff > o.MaxCutoff {
		return fmt.Errorf("outline cutoffs must satisfy 0 <= min_cutoff <= max_cutoff <= 1, got %.2f..%.2f", o.MinCutoff, o.MaxCutoff)
	}
	if o.MinOCRConfidence < 0 || o.MinOCRConfidence >= 1 {
		return fmt.Errorf("outline min_ocr_confidence must be in [0, 1), got %.2f", o.MinOCRConfidence)
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "", "hash", "ollama", "onnx":
	case "gemini":
		if c.Embedding.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if strings.EqualFold(c.Embedding.Provider, "onnx") && c.Embedding.OnnxModelPath == "" {
		return fmt.Errorf("ONNX_MODEL_PATH is required for the onnx provider")
	}
	return nil
}

// ValidateServer adds the checks only the HTTP server needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.APIKey == "" {
		return fmt.Errorf("DOCSIFT_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
