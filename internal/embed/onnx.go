//go:build onnx

package embed

import (
	"context"
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// OnnxEmbedder runs a sentence-transformer (all-MiniLM-L6-v2 layout:
// input_ids, attention_mask, token_type_ids in; last_hidden_state out)
// in-process, mean-pooling token states into one unit vector.
type OnnxEmbedder struct {
	mu        sync.Mutex
	cfg       OnnxConfig
	tk        *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
	modelName string
}

// NewOnnxEmbedder loads the runtime, model and tokenizer.
func NewOnnxEmbedder(cfg OnnxConfig) (*OnnxEmbedder, error) {
	cfg.applyDefaults()
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("onnx: model and tokenizer paths are required")
	}
	if cfg.RuntimeLib != "" {
		ort.SetSharedLibraryPath(cfg.RuntimeLib)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
		}
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: load tokenizer: %w", err)
	}
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"}, nil)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}

	return &OnnxEmbedder{cfg: cfg, tk: tk, session: session, modelName: "onnx/" + cfg.modelID()}, nil
}

func (o *OnnxEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	enc, err := o.tk.EncodeSingle(NormalizeText(text), true)
	if err != nil {
		return nil, fmt.Errorf("onnx: tokenize: %w", err)
	}
	n := min(len(enc.Ids), o.cfg.MaxSeqLen)
	if n == 0 {
		return make([]float32, o.cfg.Dimensions), nil
	}
	ids := make([]int64, n)
	mask := make([]int64, n)
	types := make([]int64, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(enc.Ids[i])
		mask[i] = int64(enc.AttentionMask[i])
		if i < len(enc.TypeIds) {
			types[i] = int64(enc.TypeIds[i])
		}
	}

	shape := ort.NewShape(1, int64(n))
	idsT, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, err
	}
	defer idsT.Destroy()
	maskT, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, err
	}
	defer maskT.Destroy()
	typesT, err := ort.NewTensor(shape, types)
	if err != nil {
		return nil, err
	}
	defer typesT.Destroy()
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(n), int64(o.cfg.Dimensions)))
	if err != nil {
		return nil, err
	}
	defer out.Destroy()

	o.mu.Lock()
	err = o.session.Run([]ort.Value{idsT, maskT, typesT}, []ort.Value{out})
	o.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx: run: %w", err)
	}

	return meanPool(out.GetData(), mask, o.cfg.Dimensions), nil
}

func (o *OnnxEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := o.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (o *OnnxEmbedder) Dimensions() int { return o.cfg.Dimensions }

func (o *OnnxEmbedder) ModelName() string { return o.modelName }

func (o *OnnxEmbedder) Ping(ctx context.Context) error {
	_, err := o.Embed(ctx, "ping")
	return err
}

func (o *OnnxEmbedder) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	err := o.session.Destroy()
	o.session = nil
	return err
}
