package hotkeys

import (
	"context"
	"sync/atomic"
)

// DefaultQueueSize bounds the number of actions waiting for the cycle engine.
const DefaultQueueSize = 16

// Queue is a bounded action queue that never blocks the producer: when it is
// full the oldest queued action is discarded to make room.
type Queue struct {
	ch      chan Action
	dropped atomic.Uint64
}

// NewQueue creates a queue holding at most size actions.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Action, size)}
}

// Push enqueues a, evicting the oldest entries while the queue is full. It
// reports whether anything was evicted.
func (q *Queue) Push(a Action) bool {
	evicted := false
	for {
		select {
		case q.ch <- a:
			return evicted
		default:
		}
		select {
		case <-q.ch:
			evicted = true
			q.dropped.Add(1)
		default:
		}
	}
}

// Pop blocks until an action is available or ctx is done.
func (q *Queue) Pop(ctx context.Context) (Action, error) {
	select {
	case a := <-q.ch:
		return a, nil
	case <-ctx.Done():
		return Action{}, ctx.Err()
	}
}

// C exposes the receive side for select loops.
func (q *Queue) C() <-chan Action {
	return q.ch
}

// Len returns the number of queued actions.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Dropped returns how many actions were evicted since creation.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
