package server

import "context"

// Queue is the bounded FIFO between the acceptor and the worker. Push blocks
// while the queue is full, which is the server's only backpressure.
type Queue[T any] struct {
	items chan T
}

// NewQueue returns a queue holding at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{items: make(chan T, capacity)}
}

// Push enqueues item, blocking until there is room or ctx is done.
func (q *Queue[T]) Push(ctx context.Context, item T) error {
	select {
	case q.items <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop dequeues the oldest item, blocking until one is available. It returns
// false once ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (T, bool) {
	select {
	case item := <-q.items:
		return item, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// Drain removes and returns every item currently queued without blocking.
func (q *Queue[T]) Drain() []T {
	var out []T
	for {
		select {
		case item := <-q.items:
			out = append(out, item)
		default:
			return out
		}
	}
}
