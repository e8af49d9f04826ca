package classify

import "time"

// Config holds the reference tuning values for the classifier worker (spec
// §4.5).
type Config struct {
	// ContentChars bounds how much of an item's content feeds the
	// retrieval embedding, approximating "first ~512 tokens" (spec §4.5)
	// with a character budget the same way dedupe.Config.ParaphraseContentChars
	// approximates Stage C's "first 2000 chars".
	ContentChars int

	// BacklogBatchSize bounds one database poll when the fresh queue is
	// empty.
	BacklogBatchSize int

	// BacklogPollInterval is how long the worker idles between backlog
	// polls that return no rows.
	BacklogPollInterval time.Duration

	// MaxConsecutiveFailures is N in spec §4.5's "stop-due-to-repeated-
	// errors latch after N consecutive failures" (reference 10).
	MaxConsecutiveFailures int
}

// DefaultConfig returns the reference values named in spec §4.5.
func DefaultConfig() Config {
	return Config{
		ContentChars:            2000,
		BacklogBatchSize:        50,
		BacklogPollInterval:     5 * time.Second,
		MaxConsecutiveFailures:  10,
	}
}

// DefaultQueueCapacity is the fresh classifier queue's buffer size (spec
// §4.3.x: "capacity 10 000, blocking send").
const DefaultQueueCapacity = 10000
