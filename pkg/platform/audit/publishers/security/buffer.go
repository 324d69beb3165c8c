package security

import (
	"sync"

	audit "cubby/pkg/platform/audit"
)

// RingBuffer is a bounded, thread-safe queue of security events. A full
// buffer overwrites the oldest entry: losing an old login-failure record is
// acceptable, blocking a login is not. The read position is derived from the
// write position and the live count, so only one index is tracked.
type RingBuffer struct {
	mu      sync.Mutex
	slots   []audit.SecurityEvent
	next    int // next write slot
	size    int // live events
	dropped int64
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 10000
	}
	return &RingBuffer{slots: make([]audit.SecurityEvent, capacity)}
}

// Enqueue adds an event. When the buffer is full the slot being written
// holds the oldest event, which is counted as dropped.
func (b *RingBuffer) Enqueue(event audit.SecurityEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.slots[b.next] = event
	b.next = (b.next + 1) % len(b.slots)
	if b.size == len(b.slots) {
		b.dropped++
		return
	}
	b.size++
}

// DequeueBatch removes up to n events, oldest first.
func (b *RingBuffer) DequeueBatch(n int) []audit.SecurityEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		return nil
	}
	if n > b.size {
		n = b.size
	}

	capacity := len(b.slots)
	oldest := (b.next - b.size + capacity) % capacity
	batch := make([]audit.SecurityEvent, n)
	for i := 0; i < n; i++ {
		batch[i] = b.slots[(oldest+i)%capacity]
	}
	b.size -= n
	return batch
}

// Len returns the number of buffered events.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Dropped returns the total number of events lost to overwrites.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
