package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agent-relay-gateway/internal/agent"
	"agent-relay-gateway/internal/config"
	"agent-relay-gateway/internal/models"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// LLMClient talks to any OpenAI-compatible chat completions endpoint.
type LLMClient struct {
	client openai.Client
	model  string
}

func NewLLMClient(cfg *config.LLMConfig) *LLMClient {
	return &LLMClient{
		client: openai.NewClient(clientOptions(cfg)...),
		model:  cfg.Model,
	}
}

func clientOptions(cfg *config.LLMConfig) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return opts
}

func (c *LLMClient) Generate(ctx context.Context, messages []models.ChatMessage) (*agent.Completion, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(messages))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	return &agent.Completion{
		Text:         resp.Choices[0].Message.Content,
		FinishReason: resp.Choices[0].FinishReason,
		Usage:        usage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens),
	}, nil
}

func (c *LLMClient) Stream(ctx context.Context, messages []models.ChatMessage, onDelta func(text string) error) (*agent.Completion, error) {
	params := c.params(messages)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var (
		text       strings.Builder
		completion agent.Completion
	)
	for stream.Next() {
		chunk := stream.Current()

		if chunk.Usage.TotalTokens > 0 {
			completion.Usage = usage(chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens, chunk.Usage.TotalTokens)
		}

		for _, choice := range chunk.Choices {
			if choice.FinishReason != "" {
				completion.FinishReason = choice.FinishReason
			}
			if choice.Delta.Content == "" {
				continue
			}
			text.WriteString(choice.Delta.Content)
			if err := onDelta(choice.Delta.Content); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("chat completion stream failed: %w", err)
	}

	completion.Text = text.String()
	return &completion, nil
}

func (c *LLMClient) params(messages []models.ChatMessage) openai.ChatCompletionNewParams {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			converted = append(converted, openai.SystemMessage(m.Content))
		case models.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			converted = append(converted, openai.UserMessage(m.Content))
		}
	}

	return openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: converted,
	}
}

func usage(prompt, completion, total int64) models.Usage {
	return models.Usage{InputTokens: prompt, OutputTokens: completion, TotalTokens: total}
}

// OpenAIEmbedder turns text into vectors for semantic recall.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

func NewOpenAIEmbedder(cfg *config.LLMConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(clientOptions(cfg)...),
		model:  cfg.EmbeddingModel,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response is empty")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
