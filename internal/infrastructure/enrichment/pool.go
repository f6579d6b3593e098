package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

const (
	DefaultWorkers    = 4
	DefaultQueueSize  = 256
	DefaultJobTimeout = 10 * time.Second
)

// Dispatch outcomes reported to the recorder.
const (
	OutcomeQueued  = "queued"
	OutcomeDropped = "dropped"
)

type Handler func(ctx context.Context, job domain.GeoJob) error

type Recorder interface {
	RecordGeoDispatch(outcome string)
	SetGeoQueueDepth(depth int)
}

type Options struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	Recorder   Recorder
}

// Pool runs geolocation jobs on a fixed set of workers fed by a bounded
// queue. Dispatch never blocks; jobs beyond capacity are dropped.
type Pool struct {
	handler    Handler
	jobTimeout time.Duration
	recorder   Recorder

	jobs   chan domain.GeoJob
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

func NewPool(handler Handler, options Options) *Pool {
	workers := options.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	queueSize := options.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	jobTimeout := options.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		handler:    handler,
		jobTimeout: jobTimeout,
		recorder:   options.Recorder,
		jobs:       make(chan domain.GeoJob, queueSize),
		group:      &errgroup.Group{},
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < workers; i++ {
		p.group.Go(p.work)
	}
	return p
}

func (p *Pool) Dispatch(job domain.GeoJob) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.record(OutcomeDropped)
		return false
	}

	select {
	case p.jobs <- job:
		p.record(OutcomeQueued)
		return true
	default:
		p.record(OutcomeDropped)
		slog.Warn("geo_job_dropped", "complaint_id", job.ComplaintID, "queue_capacity", cap(p.jobs))
		return false
	}
}

// Close stops intake and waits for queued jobs to finish. If ctx expires
// first, in-flight jobs are cancelled.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- p.group.Wait() }()

	select {
	case err := <-done:
		p.cancel()
		return err
	case <-ctx.Done():
		p.cancel()
		<-done
		return fmt.Errorf("geo pool drain: %w", ctx.Err())
	}
}

func (p *Pool) work() error {
	for job := range p.jobs {
		if p.recorder != nil {
			p.recorder.SetGeoQueueDepth(len(p.jobs))
		}
		p.run(job)
	}
	return nil
}

func (p *Pool) run(job domain.GeoJob) {
	ctx, cancel := context.WithTimeout(p.ctx, p.jobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("geo_job_panic", "complaint_id", job.ComplaintID, "panic", fmt.Sprint(r))
		}
	}()

	if err := p.handler(ctx, job); err != nil {
		slog.Warn("geo_job_failed", "complaint_id", job.ComplaintID, "error", err)
	}
}

func (p *Pool) record(outcome string) {
	if p.recorder != nil {
		p.recorder.RecordGeoDispatch(outcome)
	}
}
