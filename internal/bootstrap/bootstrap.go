package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/complaints-api/internal/config"
	"github.com/kirillkom/complaints-api/internal/core/ports"
	"github.com/kirillkom/complaints-api/internal/core/usecase"
	"github.com/kirillkom/complaints-api/internal/infrastructure/enrichment"
	"github.com/kirillkom/complaints-api/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/complaints-api/internal/infrastructure/queue/nats"
	"github.com/kirillkom/complaints-api/internal/infrastructure/resilience"
	"github.com/kirillkom/complaints-api/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Repo     ports.ComplaintRepository
	IntakeUC *usecase.IntakeUseCase
	TriageUC *usecase.TriageUseCase
	Metrics  *metrics.HTTPServerMetrics

	closers closerStack
}

// New wires the full intake pipeline: store, classifiers, geolocation
// dispatch and triage.
func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	var closers closerStack
	fail := func(err error) (*App, error) {
		closers.closeAll(context.Background())
		return nil, err
	}

	httpMetrics := metrics.NewHTTPServerMetrics(service)
	executor := resilience.NewExecutor(resilienceConfig(cfg, httpMetrics))

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers.push(func(context.Context) error { closeStore(); return nil })

	analyzer, err := NewSentimentAnalyzer(cfg)
	if err != nil {
		return fail(err)
	}
	categoryClassifier, err := NewCategoryClassifier(cfg, executor, httpMetrics)
	if err != nil {
		return fail(err)
	}

	handler, closeHandler, err := geoHandler(ctx, cfg, executor, httpMetrics)
	if err != nil {
		return fail(err)
	}
	closers.push(func(context.Context) error { closeHandler(); return nil })

	pool := enrichment.NewPool(handler, enrichment.Options{
		Workers:    cfg.GeoWorkers,
		QueueSize:  cfg.GeoQueueSize,
		JobTimeout: cfg.GeoTimeout + cfg.GeoTimeout/2,
		Recorder:   httpMetrics,
	})
	closers.push(pool.Close)

	return &App{
		Config:   cfg,
		Repo:     store,
		IntakeUC: usecase.NewIntakeUseCase(store, analyzer, categoryClassifier, pool, httpMetrics),
		TriageUC: usecase.NewTriageUseCase(store, xlsx.NewWriter()),
		Metrics:  httpMetrics,
		closers:  closers,
	}, nil
}

// Close drains background geolocation work, then releases connections.
func (a *App) Close(ctx context.Context) {
	a.closers.closeAll(ctx)
}

func geoHandler(
	ctx context.Context,
	cfg config.Config,
	executor *resilience.Executor,
	recorder *metrics.HTTPServerMetrics,
) (enrichment.Handler, func(), error) {
	switch cfg.GeoDispatch {
	case config.GeoDispatchNATS:
		queue, err := OpenQueue(cfg, executor)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("geo_dispatch_configured", "mode", cfg.GeoDispatch, "subject", cfg.NATSSubject)
		return enrichment.PublishHandler(queue), queue.Close, nil
	default:
		locator, closeLocator, err := NewGeoLocator(ctx, cfg, executor, recorder)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("geo_dispatch_configured", "mode", config.GeoDispatchLocal, "workers", cfg.GeoWorkers)
		return enrichment.LocalHandler(usecase.NewGeoEnrichUseCase(locator)), closeLocator, nil
	}
}

func OpenQueue(cfg config.Config, executor *resilience.Executor) (*nats.Queue, error) {
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		QueueGroup:         nats.DefaultQueueGroup,
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	return queue, nil
}

type breakerRecorder interface {
	RecordBreakerTransition(operation, state string)
}

func resilienceConfig(cfg config.Config, recorder breakerRecorder) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	rc.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if recorder != nil {
		rc.OnStateChange = func(operation, _, to string) {
			recorder.RecordBreakerTransition(operation, to)
		}
	}
	return rc
}

type closerStack []func(context.Context) error

func (s *closerStack) push(fn func(context.Context) error) {
	*s = append(*s, fn)
}

// closeAll runs closers in reverse registration order.
func (s closerStack) closeAll(ctx context.Context) {
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i](ctx); err != nil {
			slog.Warn("shutdown_step_failed", "error", err)
		}
	}
}

// Worker consumes complaint events from NATS and geolocates them.
type Worker struct {
	Config  config.Config
	Queue   *nats.Queue
	Enrich  *usecase.GeoEnrichUseCase
	Metrics *metrics.WorkerMetrics

	closers closerStack
}

func NewWorker(ctx context.Context, cfg config.Config, service string) (*Worker, error) {
	var closers closerStack
	fail := func(err error) (*Worker, error) {
		closers.closeAll(context.Background())
		return nil, err
	}

	workerMetrics := metrics.NewWorkerMetrics(service)
	executor := resilience.NewExecutor(resilienceConfig(cfg, workerMetrics))

	queue, err := OpenQueue(cfg, executor)
	if err != nil {
		return fail(err)
	}
	closers.push(func(context.Context) error { queue.Close(); return nil })

	locator, closeLocator, err := NewGeoLocator(ctx, cfg, executor, workerMetrics)
	if err != nil {
		return fail(err)
	}
	closers.push(func(context.Context) error { closeLocator(); return nil })

	return &Worker{
		Config:  cfg,
		Queue:   queue,
		Enrich:  usecase.NewGeoEnrichUseCase(locator),
		Metrics: workerMetrics,
		closers: closers,
	}, nil
}

func (w *Worker) Close(ctx context.Context) {
	w.closers.closeAll(ctx)
}
