// Package queue buffers submitted competitions until a worker applies them.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/tagrank/internal/domain/model"
	"github.com/okian/tagrank/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue reports false when the competition was not accepted: the
	// queue is full, closed, or ctx is done.
	Enqueue(ctx context.Context, c model.Competition) bool

	// Dequeue returns a channel of pending competitions. It is closed once
	// the queue is closed and drained, or when ctx is done.
	Dequeue(ctx context.Context) <-chan model.Competition

	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	competitions chan model.Competition
	capacity     int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.competitions = make(chan model.Competition, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	q.publishSize()
	return q
}

// Capacity returns the configured bound.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

func (q *InMemoryQueue) Enqueue(ctx context.Context, c model.Competition) bool { //nolint:gocritic // hugeParam: sent by value over the channel
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.rejected("closed")
		return false
	}
	select {
	case q.competitions <- c:
		metrics.RecordQueueEnqueue()
		q.publishSize()
		return true
	case <-ctx.Done():
		q.rejected("context_cancelled")
		return false
	default:
		q.rejected("queue_full")
		return false
	}
}

func (q *InMemoryQueue) rejected(reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
}

// Dequeue forwards queued competitions until the queue closes or ctx is
// done. A competition held when ctx ends is dropped and counted.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Competition {
	out := make(chan model.Competition)
	go func() {
		defer close(out)
		for c := range q.competitions {
			select {
			case out <- c:
				metrics.RecordQueueDequeue()
				q.publishSize()
			case <-ctx.Done():
				metrics.RecordErrorByComponent("queue", "dropped")
				return
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) Len(_ context.Context) int {
	q.publishSize()
	return len(q.competitions)
}

func (q *InMemoryQueue) publishSize() {
	size := len(q.competitions)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Close stops accepting competitions. Already queued ones are still
// delivered to Dequeue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.competitions)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
