package llm

import (
	"context"

	"catchup-feed/internal/domain/entity"
)

// Queue is the in-memory fresh LLM queue (priority 1 in spec §4.6),
// implementing classify.LLMQueue. It strictly preempts the database-polled
// backlog queue: the worker only consults the backlog when Queue is empty
// at the start of a cycle.
type Queue struct {
	ch chan *entity.Item
}

// NewQueue builds a Queue with the given buffer capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan *entity.Item, capacity)}
}

// Enqueue blocks until the item is buffered or ctx is done.
func (q *Queue) Enqueue(ctx context.Context, item *entity.Item) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the queue's current depth, for metrics.
func (q *Queue) Len() int {
	return len(q.ch)
}
