package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/complaints-api/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	HTTPClient *http.Client
	Executor   *resilience.Executor
}

func New(baseURL, model string) *Client {
	return NewWithOptions(baseURL, model, Options{})
}

func NewWithOptions(baseURL, model string, options Options) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
		executor:   options.Executor,
	}
}

// Complete runs a deterministic, short generation and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Options: generateOptions{Temperature: 0, NumPredict: 16},
	}

	out, err := resilience.Do(ctx, c.executor, "ollama.generate", func(callCtx context.Context) (string, error) {
		reply, err := c.generate(callCtx, req)
		return strings.TrimSpace(reply), err
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama generate", err)
	}
	return out, nil
}
