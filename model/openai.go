package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"rax/types"
)

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint. SDK retries are turned off:
// failures surface to the caller as provider errors.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
	logger     *slog.Logger
}

func NewOpenAIEmbedder(cfg OpenAIConfig, opts ...option.RequestOption) *OpenAIEmbedder {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIEmbedder{
		client:     openai.NewClient(reqOpts...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     slog.Default(),
	}
}

func (e *OpenAIEmbedder) ModelID() string {
	return "openai:" + e.model
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	// only the text-embedding-3 family accepts a target dimension
	if e.dimensions > 0 && strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			e.logger.Error("[EMBEDDER] openai API error", "status", apiErr.StatusCode, "model", e.model)
		}
		return nil, types.ProviderError(e.ModelID(), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, types.ProviderError(e.ModelID(), fmt.Errorf("got %d embeddings for %d texts", len(resp.Data), len(texts)))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, types.ProviderError(e.ModelID(), fmt.Errorf("embedding index %d out of range", d.Index))
		}
		out[d.Index] = toFloat32(d.Embedding)
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, types.ProviderError(e.ModelID(), fmt.Errorf("missing embedding for input %d", i))
		}
	}
	return out, nil
}
