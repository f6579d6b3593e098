package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/complaints-api/internal/bootstrap"
	"github.com/kirillkom/complaints-api/internal/config"
	"github.com/kirillkom/complaints-api/internal/core/domain"
	"github.com/kirillkom/complaints-api/internal/core/ports"
	"github.com/kirillkom/complaints-api/internal/observability/logging"
	"github.com/kirillkom/complaints-api/internal/observability/metrics"
)

const (
	serviceName  = "complaints-geo-worker"
	closeTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := bootstrap.NewWorker(ctx, cfg, serviceName)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	if err := consume(ctx, cfg, worker.Queue, worker.Enrich, worker.Metrics, worker.Close); err != nil {
		slog.Error("worker_failed", "error", err)
		os.Exit(1)
	}
	slog.Info("worker_stopped")
}

// consume serves worker metrics and processes complaint events until ctx
// ends or either side fails. release runs on every exit path.
func consume(
	ctx context.Context,
	cfg config.Config,
	events ports.EventSubscriber,
	enricher ports.GeoEnricher,
	workerMetrics *metrics.WorkerMetrics,
	release func(context.Context),
) error {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		release(closeCtx)
	}()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		defer cancel()
		slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
		return events.SubscribeComplaintCreated(gctx, func(handlerCtx context.Context, event domain.ComplaintCreatedEvent) error {
			if !event.CreatedAt.IsZero() {
				workerMetrics.ObserveQueueLag(time.Since(event.CreatedAt))
			}
			workerMetrics.StartEvent()
			started := time.Now()

			jobCtx, cancel := context.WithTimeout(handlerCtx, cfg.GeoTimeout+cfg.GeoTimeout/2)
			defer cancel()
			err := enricher.Enrich(jobCtx, event.Job())
			workerMetrics.FinishEvent(time.Since(started), err)
			return err
		})
	})
	return g.Wait()
}
