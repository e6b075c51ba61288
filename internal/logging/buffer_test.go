package logging

import (
	"strconv"
	"testing"
)

func writeN(rb *RingBuffer, n int) {
	for i := range n {
		rb.Write(LogEntry{Message: strconv.Itoa(i)})
	}
}

func messages(entries []LogEntry) string {
	var s string
	for _, e := range entries {
		s += e.Message
	}
	return s
}

func TestRingBuffer(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		writes int
		tail   int
		want   string
	}{
		{"empty", 3, 0, 0, ""},
		{"partial", 5, 3, 0, "012"},
		{"wrapped", 3, 5, 0, "234"},
		{"tail partial", 5, 4, 2, "23"},
		{"tail wrapped", 3, 7, 2, "56"},
		{"tail larger than count", 5, 2, 10, "01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := NewRingBuffer(tt.size)
			writeN(rb, tt.writes)

			if got := messages(rb.Tail(tt.tail)); got != tt.want {
				t.Errorf("Tail(%d) = %q, want %q", tt.tail, got, tt.want)
			}
			wantCount := min(tt.writes, tt.size)
			if rb.Count() != wantCount {
				t.Errorf("Count() = %d, want %d", rb.Count(), wantCount)
			}
		})
	}
}
