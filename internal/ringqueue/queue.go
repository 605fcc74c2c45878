// SPDX-License-Identifier: EPL-2.0

// Package ringqueue provides the fixed-capacity hand-off queue between
// callers that enqueue load jobs and the worker that drains them.
//
// The queue is a buffered channel of owned values, so it is safe for any
// number of producers and consumers. Jobs are moved, never shared.
package ringqueue

import (
	"context"
	"errors"
)

// DefaultCapacity matches the number of in-flight load jobs a context keeps.
const DefaultCapacity = 16

var ErrClosed = errors.New("ring queue closed")

// Queue is a bounded FIFO of T.
type Queue[T any] struct {
	slots chan T
}

// New returns a queue holding up to capacity items. A capacity below one
// falls back to DefaultCapacity.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{slots: make(chan T, capacity)}
}

// Push enqueues v, waiting for a free slot until ctx is done.
func (q *Queue[T]) Push(ctx context.Context, v T) error {
	select {
	case q.slots <- v:
		return nil
	default:
	}

	select {
	case q.slots <- v:
		return nil
	case <-ctx.Done():
		return errors.Join(ErrClosed, ctx.Err())
	}
}

// TryPush enqueues v only if a slot is free.
func (q *Queue[T]) TryPush(v T) bool {
	select {
	case q.slots <- v:
		return true
	default:
		return false
	}
}

// TryPop dequeues the oldest item without waiting.
func (q *Queue[T]) TryPop() (T, bool) {
	select {
	case v := <-q.slots:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Drain removes and returns every queued item.
func (q *Queue[T]) Drain() []T {
	var out []T
	for {
		v, ok := q.TryPop()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func (q *Queue[T]) Len() int { return len(q.slots) }
func (q *Queue[T]) Cap() int { return cap(q.slots) }
