// Package worker drains the submission queue into the ingestion service.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/pkg/logger"
	"github.com/okian/sailrank/pkg/metrics"
)

// Ingester applies one submission: it writes the results and runs the
// rating update for the event.
type Ingester interface {
	Ingest(ctx context.Context, s model.Submission) (model.IngestStats, error)
}

// Queue defines how the worker receives submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Submission
}

// FailureHandler is told about every submission the ingester rejected.
type FailureHandler func(ctx context.Context, s model.Submission, err error)

// InMemoryWorker consumes submissions one at a time. Rating updates are
// order dependent, so the service runs exactly one.
type InMemoryWorker struct {
	queue     Queue
	ingester  Ingester
	name      string
	onFailure FailureHandler

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(queue Queue, ingester Ingester, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		ingester: ingester,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes submissions until ctx is cancelled, Shutdown is called or the
// queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "submission failed",
					logger.String("worker", w.name),
					logger.String("submission", s.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown stops the worker after the submission in flight.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, s model.Submission) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	stats, err := w.ingester.Ingest(ctx, s)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordSubmission("failed")
		if w.onFailure != nil {
			w.onFailure(ctx, s, err)
		}
		return fmt.Errorf("ingest %s: %w", s.ID, err)
	}

	metrics.RecordSubmission("processed")
	w.logger.Debug(ctx, "submission processed",
		logger.String("submission", s.ID),
		logger.String("event", stats.EventID),
		logger.Int("results_added", stats.ResultsAdded),
		logger.Int("results_updated", stats.ResultsUpdated),
	)
	return nil
}
