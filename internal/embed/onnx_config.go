package embed

import (
	"path/filepath"
	"strings"
)

// OnnxConfig locates a local sentence-transformer export.
type OnnxConfig struct {
	RuntimeLib    string // Path to libonnxruntime; "" uses the default search
	ModelPath     string // model.onnx
	TokenizerPath string // tokenizer.json
	ModelID       string // Cache identity; defaults to the model's directory name
	MaxSeqLen     int
	Dimensions    int
}

func (c *OnnxConfig) applyDefaults() {
	if c.MaxSeqLen <= 0 {
		c.MaxSeqLen = 256
	}
	if c.Dimensions <= 0 {
		c.Dimensions = 384
	}
}

func (c OnnxConfig) modelID() string {
	if c.ModelID != "" {
		return c.ModelID
	}
	if c.ModelPath == "" {
		return "local"
	}
	dir := filepath.Base(filepath.Dir(c.ModelPath))
	if dir == "." || dir == string(filepath.Separator) {
		return strings.TrimSuffix(filepath.Base(c.ModelPath), filepath.Ext(c.ModelPath))
	}
	return dir
}

// meanPool averages token states where mask is set and normalises the
// result. states is laid out [tokens][dims].
func meanPool(states []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var count float32
	for t, m := range mask {
		if m == 0 || (t+1)*dims > len(states) {
			continue
		}
		row := states[t*dims : (t+1)*dims]
		for d, v := range row {
			out[d] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for d := range out {
		out[d] /= count
	}
	return l2Normalize(out)
}
