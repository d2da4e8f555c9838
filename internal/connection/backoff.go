package connection

import (
	"sync"
	"time"
)

// Backoff produces exponentially growing reconnect delays.
// Each Next doubles the following delay up to the ceiling.
type Backoff struct {
	mu      sync.Mutex
	floor   time.Duration
	ceiling time.Duration
	current time.Duration
}

// NewBackoff creates a backoff starting at floor and capped at ceiling.
func NewBackoff(floor, ceiling time.Duration) *Backoff {
	if floor <= 0 {
		floor = time.Second
	}
	if ceiling < floor {
		ceiling = floor
	}
	return &Backoff{
		floor:   floor,
		ceiling: ceiling,
		current: floor,
	}
}

// Next returns the delay to wait now and advances the sequence.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.current
	b.current *= 2
	if b.current > b.ceiling {
		b.current = b.ceiling
	}
	return d
}

// Reset returns the delay to the floor.
func (b *Backoff) Reset() {
	b.mu.Lock()
	b.current = b.floor
	b.mu.Unlock()
}

// Peek returns the delay Next would return without advancing.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}
