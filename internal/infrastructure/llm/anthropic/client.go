package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kirillkom/complaints-api/internal/core/domain"
	"github.com/kirillkom/complaints-api/internal/infrastructure/resilience"
)

const (
	defaultModel = "claude-3-5-haiku-latest"
	systemPrompt = "You are a customer support assistant that triages complaints."
)

type Client struct {
	client   *anthropic.Client
	model    anthropic.Model
	executor *resilience.Executor
}

type Options struct {
	BaseURL  string
	Executor *resilience.Executor
}

func New(apiKey, model string, options Options) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if options.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(options.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	if model == "" {
		model = defaultModel
	}
	return &Client{
		client:   &client,
		model:    anthropic.Model(model),
		executor: options.Executor,
	}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := resilience.Do(ctx, c.executor, "anthropic.messages", func(callCtx context.Context) (string, error) {
		resp, err := c.client.Messages.New(callCtx, anthropic.MessageNewParams{
			Model:     c.model,
			MaxTokens: 16,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return "", fmt.Errorf("anthropic messages: %w", err)
		}
		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		if sb.Len() == 0 {
			return "", fmt.Errorf("anthropic messages: no text content")
		}
		return strings.TrimSpace(sb.String()), nil
	}, classifyAnthropicError)
	if err != nil {
		if classifyAnthropicError(err).Retryable {
			return "", domain.WrapError(domain.ErrTemporary, "anthropic complete", err)
		}
		return "", err
	}
	return out, nil
}

func classifyAnthropicError(err error) resilience.ErrorClassification {
	var apiErr *anthropic.Error
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case errors.As(err, &apiErr):
		// 529 is the overloaded status.
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}
