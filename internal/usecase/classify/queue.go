package classify

import (
	"context"

	"catchup-feed/internal/domain/entity"
)

// Queue is the in-memory fresh classifier queue fed directly by the
// ingestion pipeline (C3) and drained by the classifier worker before it
// ever polls the database backlog (spec §4.3 step 6, §4.5). It implements
// ingest.ClassifierQueue.
type Queue struct {
	ch chan *entity.Item
}

// NewQueue builds a Queue with the given buffer capacity. Enqueue blocks
// once the buffer is full, which is the back-pressure mechanism spec §4.3
// and §5 require ("the ingestion queue blocks when full... no item is
// dropped due to queue pressure").
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
