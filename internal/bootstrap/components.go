package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/complaints-api/internal/config"
	"github.com/kirillkom/complaints-api/internal/core/ports"
	"github.com/kirillkom/complaints-api/internal/infrastructure/classifier"
	"github.com/kirillkom/complaints-api/internal/infrastructure/geo/ipapi"
	"github.com/kirillkom/complaints-api/internal/infrastructure/geo/rediscache"
	"github.com/kirillkom/complaints-api/internal/infrastructure/llm/anthropic"
	"github.com/kirillkom/complaints-api/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/complaints-api/internal/infrastructure/llm/openai"
	"github.com/kirillkom/complaints-api/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/complaints-api/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/complaints-api/internal/infrastructure/resilience"
	"github.com/kirillkom/complaints-api/internal/infrastructure/sentiment"
)

// Store is a complaint repository that can create its own schema.
type Store interface {
	ports.ComplaintRepository
	EnsureSchema(ctx context.Context) error
}

// OpenStore connects the configured backend and ensures the schema exists.
func OpenStore(ctx context.Context, cfg config.Config) (Store, func(), error) {
	var (
		store   Store
		closeDB func()
	)
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		db, err := sqlite.OpenDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		store, closeDB = sqlite.NewComplaintRepository(db), func() { _ = db.Close() }
	default:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		store, closeDB = postgres.NewComplaintRepository(db), func() { _ = db.Close() }
	}

	if err := store.EnsureSchema(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, closeDB, nil
}

func NewSentimentAnalyzer(cfg config.Config) (*sentiment.Analyzer, error) {
	if cfg.SentimentLexiconPath == "" {
		return sentiment.NewDefault(), nil
	}
	lex, err := sentiment.LoadLexicon(cfg.SentimentLexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load sentiment lexicon: %w", err)
	}
	return sentiment.New(lex), nil
}

func NewCategoryClassifier(cfg config.Config, executor *resilience.Executor, recorder classifier.Recorder) (*classifier.LLMClassifier, error) {
	var backend ports.Completer
	switch cfg.ClassifierBackend {
	case config.ClassifierOllama:
		backend = ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaModel, ollama.Options{Executor: executor})
	case config.ClassifierOpenAI:
		backend = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, openai.Options{BaseURL: cfg.OpenAIBaseURL, Executor: executor})
	case config.ClassifierAnthropic:
		backend = anthropic.New(cfg.AnthropicAPIKey, cfg.AnthropicModel, anthropic.Options{Executor: executor})
	default:
		return nil, fmt.Errorf("unsupported classifier backend %q", cfg.ClassifierBackend)
	}
	return classifier.New(backend, classifier.Options{
		BackendName: cfg.ClassifierBackend,
		Timeout:     cfg.ClassifierTimeout,
		Recorder:    recorder,
	}), nil
}

// NewGeoLocator builds the ip-api client, cached in Redis when REDIS_URL is set.
func NewGeoLocator(ctx context.Context, cfg config.Config, executor *resilience.Executor, recorder ipapi.Recorder) (*ipapi.Client, func(), error) {
	options := ipapi.Options{
		BaseURL:  cfg.GeoAPIURL,
		Timeout:  cfg.GeoTimeout,
		Executor: executor,
		Recorder: recorder,
	}
	closeFn := func() {}

	if cfg.RedisURL != "" {
		client, err := rediscache.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("init geo cache: %w", err)
		}
		options.Cache = rediscache.New(client, cfg.GeoCacheTTL)
		closeFn = func() { _ = client.Close() }
	}
	return ipapi.New(options), closeFn, nil
}
