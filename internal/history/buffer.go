// Package history keeps the rolling window of recent pitch judgments that
// drives live feedback and visualisation.
package history

import (
	"sync"

	"github.com/0xlemi/riyaz/internal/pitch"
)

// DefaultCapacity is the number of judgments kept per session
const DefaultCapacity = 100

// Buffer is a fixed-capacity FIFO of judgments. Appends come from a single
// writer (the session's processing loop); Snapshot may be called from any
// goroutine and always returns a copy.
type Buffer struct {
	mu    sync.RWMutex
	items []pitch.Judgment
	start int // index of the oldest entry
	size  int
}

// New creates an empty buffer. A capacity below 1 means DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{items: make([]pitch.Judgment, capacity)}
}

// Append adds j as the newest entry, evicting the oldest when full
func (b *Buffer) Append(j pitch.Judgment) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size < len(b.items) {
		b.items[(b.start+b.size)%len(b.items)] = j
		b.size++
		return
	}
	b.items[b.start] = j
	b.start = (b.start + 1) % len(b.items)
}

// Snapshot returns the entries oldest first
func (b *Buffer) Snapshot() []pitch.Judgment {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]pitch.Judgment, b.size)
	for i := range out {
		out[i] = b.items[(b.start+i)%len(b.items)]
	}
	return out
}

// Latest returns the newest entry
func (b *Buffer) Latest() (pitch.Judgment, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return pitch.Judgment{}, false
	}
	return b.items[(b.start+b.size-1)%len(b.items)], true
}

// Len returns the number of entries held
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Cap returns the buffer capacity
func (b *Buffer) Cap() int {
	return len(b.items)
}

// Reset empties the buffer
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.items)
	b.start = 0
	b.size = 0
}
