package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"rax/types"
)

type OpenAIConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	MaxContextTokens int
}

// OpenAISynthesizer answers through the chat completions API.
type OpenAISynthesizer struct {
	client  openai.Client
	model   string
	prompts *PromptBuilder
	logger  *slog.Logger
}

func NewOpenAISynthesizer(cfg OpenAIConfig, opts ...option.RequestOption) *OpenAISynthesizer {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAISynthesizer{
		client:  openai.NewClient(reqOpts...),
		model:   cfg.Model,
		prompts: NewPromptBuilder(cfg.MaxContextTokens),
		logger:  slog.Default(),
	}
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, question string, chunks []types.RetrievalResult) (string, error) {
	start := time.Now()
	p := s.prompts.Build(question, chunks)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			s.logger.Error("[LLM] openai API error", "status", apiErr.StatusCode, "model", s.model)
		}
		return "", types.ProviderError("openai chat "+s.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", types.ProviderError("openai chat "+s.model, fmt.Errorf("completion has no choices"))
	}

	s.logger.Info("[LLM] answer generated", "model", s.model, "prompt_tokens", p.Tokens,
		"chunks", p.Chunks, "took", time.Since(start))
	return resp.Choices[0].Message.Content, nil
}
