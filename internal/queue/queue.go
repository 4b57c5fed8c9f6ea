// Package queue is the bounded hand-off between event producers and the
// transmitter.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Get once the queue is closed and empty.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded FIFO of encoded events. Put blocks while the queue
// is full, which is the only backpressure producers see.
type Queue struct {
	ch        chan []byte
	closeOnce sync.Once
}

// New allocates a Queue holding up to size events.
func New(size int) (*Queue, error) {
	if size <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", size)
	}
	return &Queue{ch: make(chan []byte, size)}, nil
}

// Close marks the end of input. Events already queued are still handed
// out by Get. Put must not be called after Close.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}

// Put enqueues event. It returns ctx.Err() if ctx ends first.
func (q *Queue) Put(ctx context.Context, event []byte) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get dequeues the oldest event, waiting until one is available or ctx
// ends. It returns ErrClosed when the queue is closed and drained.
func (q *Queue) Get(ctx context.Context) ([]byte, error) {
	select {
	case event, ok := <-q.ch:
		if !ok {
			return nil, ErrClosed
		}
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
