// Package openai adapts an OpenAI-compatible API as the completion,
// rewrite, and embedding provider.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/okurganov/contextual-rag/internal/core/domain"
	"github.com/okurganov/contextual-rag/internal/infrastructure/llm"
)

type Client struct {
	client     *openai.Client
	genModel   string
	embedModel string
}

type Config struct {
	APIKey     string
	BaseURL    string
	GenModel   string
	EmbedModel string
}

func New(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		genModel:   cfg.GenModel,
		embedModel: cfg.EmbedModel,
	}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.genModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", wrapAPIError("complete", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) RewriteQuery(ctx context.Context, prompt string) (domain.Rewrite, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.genModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: llm.BuildRewritePrompt(prompt)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return domain.Rewrite{}, wrapAPIError("rewrite", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Rewrite{}, fmt.Errorf("empty rewrite response")
	}
	return llm.ParseRewrite(resp.Choices[0].Message.Content)
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          texts,
		Model:          openai.EmbeddingModel(c.embedModel),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, wrapAPIError("embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(resp.Data))
	}

	// Data may arrive out of order; the index field is authoritative.
	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func wrapAPIError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		wrapped := fmt.Errorf("api error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		if isRetryableStatus(apiErr.HTTPStatusCode) {
			return domain.WrapError(domain.ErrTemporary, operation, wrapped)
		}
		return fmt.Errorf("%s: %w", operation, wrapped)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		wrapped := fmt.Errorf("request error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
		if isRetryableStatus(reqErr.HTTPStatusCode) {
			return domain.WrapError(domain.ErrTemporary, operation, wrapped)
		}
		return fmt.Errorf("%s: %w", operation, wrapped)
	}

	// Transport failures (connection refused, timeouts) are worth retrying.
	return domain.WrapError(domain.ErrTemporary, operation, err)
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
