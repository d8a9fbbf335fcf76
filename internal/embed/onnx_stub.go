//go:build !onnx

package embed

import "context"

// OnnxEmbedder is unavailable without the "onnx" build tag.
type OnnxEmbedder struct{}

// NewOnnxEmbedder always fails in builds without ONNX support.
func NewOnnxEmbedder(OnnxConfig) (*OnnxEmbedder, error) {
	return nil, ErrOnnxNotEnabled
}

func (*OnnxEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrOnnxNotEnabled
}

func (*OnnxEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, ErrOnnxNotEnabled
}

func (*OnnxEmbedder) Dimensions() int { return 0 }

func (*OnnxEmbedder) ModelName() string { return "onnx" }

func (*OnnxEmbedder) Ping(context.Context) error { return ErrOnnxNotEnabled }

func (*OnnxEmbedder) Close() error { return nil }
