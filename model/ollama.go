package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rax/types"
)

// OllamaEmbedder creates embeddings through a local Ollama server.
type OllamaEmbedder struct {
	apiURL string
	model  string
	client *http.Client
	logger *slog.Logger
}

type OllamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type OllamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewOllamaEmbedder takes the server base URL, e.g. http://localhost:11434.
func NewOllamaEmbedder(baseURL, model string) *OllamaEmbedder {
	return &OllamaEmbedder{
		apiURL: strings.TrimRight(baseURL, "/") + "/api/embeddings",
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
	}
}

func (e *OllamaEmbedder) ModelID() string {
	return "ollama:" + e.model
}

// EmbedMany issues one request per text; the Ollama endpoint has no batch form.
func (e *OllamaEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(OllamaEmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, types.ProviderError(e.ModelID(), fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, types.ProviderError(e.ModelID(), fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		e.logger.Error("[EMBEDDER] ollama API error", "status", resp.StatusCode, "model", e.model)
		return nil, types.ProviderError(e.ModelID(), fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var ollamaResp OllamaEmbeddingResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return nil, types.ProviderError(e.ModelID(), fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if len(ollamaResp.Embedding) == 0 {
		return nil, types.ProviderError(e.ModelID(), fmt.Errorf("empty embedding returned"))
	}

	return toFloat32(normalize64(ollamaResp.Embedding)), nil
}
