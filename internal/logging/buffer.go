package logging

import (
	"sync"
	"time"
)

// LogEntry is a single log record kept in the ring buffer.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer is a fixed-size, thread-safe buffer of the most recent entries.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	head    int
	count   int
}

// NewRingBuffer creates a ring buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write appends entry, overwriting the oldest one when full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.head] = entry
	rb.head = (rb.head + 1) % len(rb.entries)
	if rb.count < len(rb.entries) {
		rb.count++
	}
}

// ReadAll returns every entry, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Tail(0)
}

// Tail returns the newest n entries, oldest first. n <= 0 means all.
func (rb *RingBuffer) Tail(n int) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return nil
	}
	if n <= 0 || n > rb.count {
		n = rb.count
	}

	size := len(rb.entries)
	start := (rb.head - n + size) % size
	result := make([]LogEntry, n)
	for i := range n {
		result[i] = rb.entries[(start+i)%size]
	}
	return result
}

// Count returns the number of buffered entries.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}
