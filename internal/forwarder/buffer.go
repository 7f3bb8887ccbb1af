package forwarder

import "sync"

// buffer is one mutex-guarded batch accumulator. Add never fails, but
// the backlog is capped at twice the high-water mark on both the ingest
// and the requeue path by dropping the oldest records.
type buffer[T any] struct {
	mu        sync.Mutex
	records   []T
	highWater int
}

func newBuffer[T any](highWater int) *buffer[T] {
	return &buffer[T]{
		records:   make([]T, 0, highWater),
		highWater: highWater,
	}
}

// add appends one record and reports whether the buffer reached its
// high-water mark. Past 2x high-water the backlog is cut back to the
// high-water mark; the second return is how many oldest records went.
func (b *buffer[T]) add(rec T) (full bool, dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, rec)
	if len(b.records) > 2*b.highWater {
		dropped = len(b.records) - b.highWater
		b.records = append(make([]T, 0, b.highWater), b.records[dropped:]...)
	}
	return len(b.records) >= b.highWater, dropped
}

// drain takes the current batch, leaving the buffer empty.
func (b *buffer[T]) drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) == 0 {
		return nil
	}
	batch := b.records
	b.records = make([]T, 0, b.highWater)
	return batch
}

// prepend puts a failed batch back in front of whatever arrived since
// the drain, preserving record order. Returns how many of the oldest
// records were dropped to stay under 2x high-water.
func (b *buffer[T]) prepend(batch []T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	merged := append(batch, b.records...)
	dropped := 0
	if limit := 2 * b.highWater; len(merged) > limit {
		dropped = len(merged) - b.highWater
		merged = merged[dropped:]
	}
	b.records = merged
	return dropped
}

func (b *buffer[T]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}
