package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/complaints-api/internal/core/domain"
	"github.com/kirillkom/complaints-api/internal/core/ports"
)

const DefaultTimeout = 10 * time.Second

// Outcomes reported to the recorder.
const (
	OutcomeMatched    = "matched"
	OutcomeNoMatch    = "no_match"
	OutcomeTimeout    = "timeout"
	OutcomeError      = "error"
	OutcomeEmptyInput = "empty_input"
)

type Recorder interface {
	ObserveClassification(backend, outcome string, duration time.Duration)
}

// LLMClassifier asks a text completion backend for one of the closed
// categories and reports domain.CategoryUnknown on any failure.
type LLMClassifier struct {
	backend  ports.Completer
	name     string
	timeout  time.Duration
	recorder Recorder
}

type Options struct {
	BackendName string
	Timeout     time.Duration
	Recorder    Recorder
}

func New(backend ports.Completer, options Options) *LLMClassifier {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	name := options.BackendName
	if name == "" {
		name = "unknown"
	}
	return &LLMClassifier{
		backend:  backend,
		name:     name,
		timeout:  timeout,
		recorder: options.Recorder,
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, text string) domain.Category {
	start := time.Now()
	category, err := c.classify(ctx, text)
	outcome := outcomeOf(err)
	if c.recorder != nil {
		c.recorder.ObserveClassification(c.name, outcome, time.Since(start))
	}
	if err != nil {
		slog.WarnContext(ctx, "category_classification_failed",
			"backend", c.name,
			"outcome", outcome,
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
			"error", err,
		)
		return domain.CategoryUnknown
	}
	return category
}

func (c *LLMClassifier) classify(ctx context.Context, text string) (domain.Category, error) {
	if c.backend == nil {
		return domain.CategoryUnknown, domain.WrapError(domain.ErrClassificationUnavailable, "classify category", errors.New("no backend configured"))
	}
	if text == "" {
		return domain.CategoryUnknown, domain.WrapError(domain.ErrClassificationUnavailable, "classify category", errEmptyInput)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reply, err := c.complete(callCtx, buildCategoryPrompt(text))
	if err != nil {
		return domain.CategoryUnknown, domain.WrapError(domain.ErrClassificationUnavailable, "classify category", err)
	}

	category, ok := domain.MatchCategory(reply)
	if !ok {
		return domain.CategoryUnknown, domain.WrapError(
			domain.ErrClassificationUnavailable,
			"classify category",
			fmt.Errorf("%w: %q", errNoMatch, truncate(reply, 200)),
		)
	}
	return category, nil
}

// complete stops waiting once the deadline passes even if the backend ignores ctx.
func (c *LLMClassifier) complete(ctx context.Context, prompt string) (string, error) {
	type result struct {
		reply string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := c.backend.Complete(ctx, prompt)
		done <- result{reply: reply, err: err}
	}()

	select {
	case res := <-done:
		return res.reply, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

var (
	errNoMatch    = errors.New("no category token in reply")
	errEmptyInput = errors.New("empty text")
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeMatched
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, errNoMatch):
		return OutcomeNoMatch
	case errors.Is(err, errEmptyInput):
		return OutcomeEmptyInput
	default:
		return OutcomeError
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
