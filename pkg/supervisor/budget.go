package supervisor

import "time"

// budget is a sliding-window restart counter keyed by scope.
// Eviction happens lazily on every allow call.
type budget struct {
	max       int
	window    time.Duration
	attempts  map[string][]time.Time
	exhausted map[string]bool
}

func newBudget(max int, window time.Duration) *budget {
	return &budget{
		max:       max,
		window:    window,
		attempts:  make(map[string][]time.Time),
		exhausted: make(map[string]bool),
	}
}

func (b *budget) evict(scope string, now time.Time) {
	cutoff := now.Add(-b.window)
	ts := b.attempts[scope]
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	if i == len(ts) {
		delete(b.attempts, scope)
		return
	}
	b.attempts[scope] = ts[i:]
}

// allow records a restart attempt for scope at now and reports whether it
// stays within budget. A scope that exceeds its budget once stays exhausted.
func (b *budget) allow(scope string, now time.Time) bool {
	if b.exhausted[scope] {
		return false
	}
	b.evict(scope, now)
	b.attempts[scope] = append(b.attempts[scope], now)
	if len(b.attempts[scope]) <= b.max {
		return true
	}
	b.exhausted[scope] = true
	return false
}

// count returns the attempts inside the window without mutating state.
func (b *budget) count(scope string, now time.Time) int {
	cutoff := now.Add(-b.window)
	n := 0
	for _, t := range b.attempts[scope] {
		if !t.Before(cutoff) {
			n++
		}
	}
	return n
}

func (b *budget) forget(scope string) {
	delete(b.attempts, scope)
	delete(b.exhausted, scope)
}
