package supervisor

import (
	"log/slog"
	"sync"
)

type transition struct {
	name     string
	old, new State
	err      error
	removed  bool
}

// notifier delivers transitions and removals to the listeners from a single
// goroutine, in the order they were pushed. push never blocks.
type notifier struct {
	fn       StateListener
	onRemove RemoveListener
	logger   *slog.Logger

	mu     sync.Mutex
	queue  []transition
	signal chan struct{}
	stop   chan struct{}
	done   chan struct{}
}

func newNotifier(fn StateListener, onRemove RemoveListener, logger *slog.Logger) *notifier {
	n := &notifier{
		fn:       fn,
		onRemove: onRemove,
		logger:   logger,
		signal: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *notifier) push(t transition) {
	n.mu.Lock()
	n.queue = append(n.queue, t)
	n.mu.Unlock()
	select {
	case n.signal <- struct{}{}:
	default:
	}
}

func (n *notifier) run() {
	defer close(n.done)
	for {
		select {
		case <-n.signal:
			n.drain()
		case <-n.stop:
			n.drain()
			return
		}
	}
}

func (n *notifier) drain() {
	for {
		n.mu.Lock()
		batch := n.queue
		n.queue = nil
		n.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, t := range batch {
			n.deliver(t)
		}
	}
}

func (n *notifier) deliver(t transition) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("State listener panicked", "process", t.name, "panic", r)
		}
	}()
	switch {
	case t.removed:
		if n.onRemove != nil {
			n.onRemove(t.name)
		}
	case n.fn != nil:
		n.fn(t.name, t.old, t.new, t.err)
	}
}

// close delivers what is queued and stops the goroutine.
func (n *notifier) close() {
	close(n.stop)
	<-n.done
}
