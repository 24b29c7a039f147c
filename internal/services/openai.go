package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/lemans-dev/sdr-whatsapp/internal/config"
)

// ErrEmptyCompletion is returned when the model answers with no choices.
var ErrEmptyCompletion = errors.New("llm returned no choices")

// openAIClient is the part of *openai.Client the service calls.
type openAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIService wraps chat completions and embeddings with the configured model settings.
type OpenAIService struct {
	client         openAIClient
	model          string
	temperature    float32
	maxTokens      int
	embeddingModel string
	dimensions     int
}

// NewOpenAIService creates the LLM client. BaseURL overrides the API endpoint when set.
func NewOpenAIService(cfg config.OpenAIConfig, dimensions int) *OpenAIService {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newOpenAIService(openai.NewClientWithConfig(clientCfg), cfg, dimensions)
}

func newOpenAIService(client openAIClient, cfg config.OpenAIConfig, dimensions int) *OpenAIService {
	return &OpenAIService{
		client:         client,
		model:          cfg.Model,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
		embeddingModel: cfg.EmbeddingModel,
		dimensions:     dimensions,
	}
}

// ChatCompletion sends the conversation and returns the first choice's message.
// Tools are offered with tool_choice "auto".
func (s *OpenAIService) ChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, ErrEmptyCompletion
	}

	slog.Debug("llm_completion",
		"model", s.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", resp.Choices[0].FinishReason)

	return resp.Choices[0].Message, nil
}

// CreateEmbedding embeds a single text.
func (s *OpenAIService) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// CreateEmbeddings embeds texts in one request, preserving input order.
func (s *OpenAIService) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(s.embeddingModel),
		Dimensions: s.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
