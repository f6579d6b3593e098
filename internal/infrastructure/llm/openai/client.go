package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kirillkom/complaints-api/internal/core/domain"
	"github.com/kirillkom/complaints-api/internal/infrastructure/resilience"
)

const systemPrompt = "You are a customer support assistant that triages complaints."

type Client struct {
	client   *openai.Client
	model    openai.ChatModel
	executor *resilience.Executor
}

type Options struct {
	BaseURL  string
	Executor *resilience.Executor
}

func New(apiKey, model string, options Options) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are owned by the resilience executor.
		option.WithMaxRetries(0),
	}
	if options.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(options.BaseURL))
	}
	client := openai.NewClient(opts...)
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	return &Client{
		client:   &client,
		model:    openai.ChatModel(model),
		executor: options.Executor,
	}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := resilience.Do(ctx, c.executor, "openai.chat", func(callCtx context.Context) (string, error) {
		resp, err := c.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
			Model: c.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(0),
			MaxTokens:   openai.Int(16),
		})
		if err != nil {
			return "", fmt.Errorf("openai chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("openai chat completion: no choices")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}, classifyOpenAIError)
	if err != nil {
		if classifyOpenAIError(err).Retryable {
			return "", domain.WrapError(domain.ErrTemporary, "openai complete", err)
		}
		return "", err
	}
	return out, nil
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	var apiErr *openai.Error
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}
