// Package ingest provides the bounded ingestion queue and the transport
// workers that feed it.
package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/Fadeefcom/Aggregator/shared"
	"go.uber.org/atomic"
)

// ErrQueueClosed is returned once the queue is closed for new writes.
var ErrQueueClosed = errors.New("ingestion queue is closed")

// DefaultQueueCapacity bounds the number of buffered ticks awaiting processing.
const DefaultQueueCapacity = 10_000

// Queue is a bounded multi-producer single-consumer tick buffer. Producers
// block when the queue is full, applying backpressure instead of dropping
// ticks; an accepted tick is never lost. Closing the queue fails subsequent
// writes while the reader drains what remains before seeing end of stream.
type Queue struct {
	items     chan shared.Tick
	done      chan struct{}
	closed    atomic.Bool
	closeMtx  sync.RWMutex
	closeOnce sync.Once
}

// NewQueue initializes a new bounded ingestion queue.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	return &Queue{
		items: make(chan shared.Tick, capacity),
		done:  make(chan struct{}),
	}
}

// Enqueue adds the provided tick, blocking while the queue is full. It fails
// with ErrQueueClosed once the queue is closed. The close lock is held for the
// duration of the send so Close cannot signal end of stream while a write it
// already admitted is still in flight.
func (q *Queue) Enqueue(ctx context.Context, tick shared.Tick) error {
	q.closeMtx.RLock()
	defer q.closeMtx.RUnlock()

	if q.closed.Load() {
		return ErrQueueClosed
	}

	select {
	case q.items <- tick:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryDequeue removes a buffered tick without blocking.
func (q *Queue) TryDequeue() (shared.Tick, bool) {
	select {
	case tick := <-q.items:
		return tick, true
	default:
		return shared.Tick{}, false
	}
}

// WaitForItem blocks until a tick is available or the provided context is
// cancelled. Once the queue is closed it keeps returning buffered ticks until
// none remain, then signals end of stream with ErrQueueClosed.
func (q *Queue) WaitForItem(ctx context.Context) (shared.Tick, error) {
	select {
	case tick := <-q.items:
		return tick, nil
	case <-q.done:
		select {
		case tick := <-q.items:
			return tick, nil
		default:
			return shared.Tick{}, ErrQueueClosed
		}
	case <-ctx.Done():
		return shared.Tick{}, ctx.Err()
	}
}

// Close stops the queue accepting new ticks. Buffered ticks remain readable.
// It waits for in-flight writes to land before signalling end of stream, an
// Enqueue that returned nil is always readable by the final drain.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.closeMtx.Lock()
		q.closed.Store(true)
		q.closeMtx.Unlock()

		close(q.done)
	})
}

// Len reports the number of buffered ticks.
func (q *Queue) Len() int {
	return len(q.items)
}
