package supervisor

import (
	"testing"
	"time"
)

func TestBudgetAllow(t *testing.T) {
	b := newBudget(2, 10*time.Second)
	base := time.Unix(1000, 0)

	if !b.allow("p", base) {
		t.Fatal("first attempt denied")
	}
	if !b.allow("p", base.Add(time.Second)) {
		t.Fatal("second attempt denied")
	}
	if b.allow("p", base.Add(2*time.Second)) {
		t.Fatal("third attempt allowed")
	}
	// Exhaustion is permanent, even after the window has passed.
	if b.allow("p", base.Add(time.Hour)) {
		t.Fatal("attempt allowed after exhaustion")
	}
	// Scopes are independent.
	if !b.allow("q", base) {
		t.Fatal("other scope denied")
	}
}

func TestBudgetEviction(t *testing.T) {
	b := newBudget(1, 10*time.Second)
	base := time.Unix(1000, 0)

	if !b.allow("p", base) {
		t.Fatal("first attempt denied")
	}
	if got := b.count("p", base.Add(10*time.Second)); got != 1 {
		t.Errorf("count at window edge = %d, want 1", got)
	}
	if got := b.count("p", base.Add(10*time.Second+time.Millisecond)); got != 0 {
		t.Errorf("count past window = %d, want 0", got)
	}
	if !b.allow("p", base.Add(11*time.Second)) {
		t.Fatal("attempt denied after window elapsed")
	}
	if b.allow("p", base.Add(12*time.Second)) {
		t.Fatal("attempt allowed over budget")
	}
}

func TestBudgetZeroRestarts(t *testing.T) {
	b := newBudget(0, time.Second)
	if b.allow("p", time.Unix(0, 0)) {
		t.Error("attempt allowed with max 0")
	}
}

func TestBudgetForget(t *testing.T) {
	b := newBudget(0, time.Second)
	now := time.Unix(0, 0)
	b.allow("p", now)
	b.forget("p")

	if got := b.count("p", now); got != 0 {
		t.Errorf("count after forget = %d", got)
	}
	if b.exhausted["p"] {
		t.Error("scope still exhausted after forget")
	}
}
