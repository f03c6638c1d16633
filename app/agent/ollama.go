package agent

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

type GenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type GenerateResponse struct {
	Response string `json:"response"`
}

// OllamaSynthesizer answers through a local Ollama /api/generate endpoint.
type OllamaSynthesizer struct {
	apiURL  string
	model   string
	client  *http.Client
	prompts *PromptBuilder
	logger  *slog.Logger
}

func NewOllamaSynthesizer(baseURL, model string, maxContextTokens int) *OllamaSynthesizer {
	return &OllamaSynthesizer{
		apiURL:  strings.TrimRight(baseURL, "/") + "/api/generate",
		model:   model,
		client:  &http.Client{},
		prompts: NewPromptBuilder(maxContextTokens),
		logger:  slog.Default(),
	}
}

func (s *OllamaSynthesizer) Synthesize(ctx context.Context, question string, chunks []types.RetrievalResult) (string, error) {
	start := time.Now()
	defer func() {
		s.logger.Info("[LLM] answer took", "model", s.model, "took", time.Since(start))
	}()

	p := s.prompts.Build(question, chunks)
	reqBody, err := json.Marshal(GenerateRequest{
		Model:  s.model,
		System: p.System,
		Prompt: p.User,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	s.logger.Debug("[LLM] prompt size", "tokens", p.Tokens, "symbols", len(reqBody))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", types.ProviderError("ollama generate "+s.model, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.ProviderError("ollama generate "+s.model, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", types.ProviderError("ollama generate "+s.model,
			fmt.Errorf("status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(body, &genResp); err == nil && genResp.Response != "" {
		return genResp.Response, nil
	}

	// some servers stream regardless of the flag: join the fragments
	var sb strings.Builder
	decoder := json.NewDecoder(bytes.NewReader(body))
	for decoder.More() {
		var chunk GenerateResponse
		if err := decoder.Decode(&chunk); err != nil {
			return "", types.ProviderError("ollama generate "+s.model, fmt.Errorf("decode response: %w", err))
		}
		sb.WriteString(chunk.Response)
	}
	return sb.String(), nil
}
