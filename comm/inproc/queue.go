package inproc

import (
	"context"
	"errors"
	"sync"
)

// errConcurrentRead reports a second reader on a queue that already has
// one outstanding read, which is a usage error on inproc comms.
var errConcurrentRead = errors.New("inproc: concurrent read on the same queue")

// queue is a single-reader, single-writer, peekable FIFO. Get suspends
// until a value arrives; Put never blocks.
type queue struct {
	mu     sync.Mutex
	items  []any
	waiter chan any // non-nil while a reader is suspended
}

func newQueue() *queue {
	return &queue{}
}

// get removes and returns the next value, suspending until one is
// available or the context ends. Only one get may be outstanding.
func (q *queue) get(ctx context.Context) (any, error) {
	q.mu.Lock()
	if q.waiter != nil {
		q.mu.Unlock()
		return nil, errConcurrentRead
	}
	if len(q.items) > 0 {
		v := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()
		return v, nil
	}
	w := make(chan any, 1)
	q.waiter = w
	q.mu.Unlock()

	select {
	case v := <-w:
		return v, nil
	case <-ctx.Done():
		q.mu.Lock()
		if q.waiter == w {
			q.waiter = nil
			q.mu.Unlock()
			return nil, ctx.Err()
		}
		q.mu.Unlock()
		// A put raced with the cancellation and already handed us a
		// value; requeue it at the front so nothing is lost.
		select {
		case v := <-w:
			q.mu.Lock()
			q.items = append([]any{v}, q.items...)
			q.mu.Unlock()
		default:
		}
		return nil, ctx.Err()
	}
}

// put appends a value, waking a suspended reader if there is one.
func (q *queue) put(v any) {
	q.mu.Lock()
	if q.waiter != nil {
		w := q.waiter
		q.waiter = nil
		q.mu.Unlock()
		w <- v
		return
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
}

// peek returns the next value without removing it.
func (q *queue) peek() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}
