// Package queue buffers result submissions between the HTTP surface and the
// ingestion worker.
package queue

import (
	"context"
	"sync"

	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/pkg/metrics"
)

const defaultCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds s without blocking. It fails with ErrFull when the queue
	// is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, s model.Submission) error

	// Dequeue returns the channel submissions are delivered on. It is closed
	// once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan model.Submission

	Len(ctx context.Context) int

	Close() error
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	items    chan model.Submission
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan model.Submission, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a submission.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s model.Submission) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	select {
	case q.items <- s:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.items))
		return nil
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return ErrFull
	}
}

// Dequeue returns the delivery channel. Every caller shares it.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan model.Submission {
	return q.items
}

// Len returns the number of waiting submissions.
func (q *InMemoryQueue) Len(_ context.Context) int {
	n := len(q.items)
	metrics.UpdateQueueSize(n)
	return n
}

// Close stops accepting submissions. Already queued ones are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
