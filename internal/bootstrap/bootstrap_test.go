package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/complaints-api/internal/config"
	"github.com/kirillkom/complaints-api/internal/core/domain"
)

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		StoreDriver:                config.StoreDriverSQLite,
		SQLitePath:                 filepath.Join(t.TempDir(), "complaints.db"),
		ClassifierBackend:          config.ClassifierOllama,
		OllamaURL:                  "http://127.0.0.1:1",
		OllamaModel:                "test",
		ResilienceRetryMaxAttempts: 1,
		GeoDispatch:                config.GeoDispatchLocal,
		GeoWorkers:                 1,
		GeoQueueSize:               4,
	}
}

func TestOpenStoreSQLiteEnsuresSchema(t *testing.T) {
	store, closeStore, err := OpenStore(context.Background(), sqliteConfig(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer closeStore()

	complaint := &domain.Complaint{Text: "card was charged twice", Sentiment: domain.SentimentNeutral, Category: domain.CategoryPayment}
	if err := store.Create(context.Background(), complaint); err != nil {
		t.Fatalf("create: %v", err)
	}
	if complaint.ID <= 0 || complaint.Status != domain.StatusOpen {
		t.Fatalf("unexpected complaint after create: %+v", complaint)
	}
}

func TestNewCategoryClassifierRejectsUnknownBackend(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.ClassifierBackend = "bard"
	_, err := NewCategoryClassifier(cfg, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "bard") {
		t.Fatalf("expected unsupported backend error, got %v", err)
	}
}

func TestNewSentimentAnalyzerMissingLexicon(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.SentimentLexiconPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewSentimentAnalyzer(cfg); err == nil {
		t.Fatal("expected error for missing lexicon file")
	}
}

func TestAppCreatesComplaintWithUnreachableClassifier(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.ClassifierTimeout = 200 * time.Millisecond

	app, err := New(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer app.Close(context.Background())

	complaint, err := app.IntakeUC.CreateComplaint(context.Background(), "The app is terrible", "")
	if err != nil {
		t.Fatalf("create complaint: %v", err)
	}
	if complaint.Category != domain.CategoryOther {
		t.Fatalf("expected fallback category other, got %s", complaint.Category)
	}
	if complaint.Sentiment != domain.SentimentNegative {
		t.Fatalf("expected negative sentiment, got %s", complaint.Sentiment)
	}
}

func TestCloserStackRunsInReverse(t *testing.T) {
	var order []string
	var stack closerStack
	stack.push(func(context.Context) error { order = append(order, "db"); return nil })
	stack.push(func(context.Context) error { order = append(order, "pool"); return errors.New("ignored") })
	stack.closeAll(context.Background())

	if strings.Join(order, ",") != "pool,db" {
		t.Fatalf("unexpected close order: %v", order)
	}
}
