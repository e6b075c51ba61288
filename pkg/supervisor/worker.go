package supervisor

import (
	"context"
	"runtime/debug"
)

// Handle is a live worker incarnation.
type Handle interface {
	// Done is closed when the worker has terminated.
	Done() <-chan struct{}
	// Err returns the exit cause. Only meaningful after Done is closed.
	Err() error
	// Terminate asks the worker to stop. It must not block.
	Terminate()
}

// Factory produces a new, independent Handle on every call.
type Factory interface {
	Spawn() (Handle, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func() (Handle, error)

// Spawn calls f.
func (f FactoryFunc) Spawn() (Handle, error) {
	return f()
}

// Alive reports whether h has not terminated yet.
func Alive(h Handle) bool {
	if h == nil {
		return false
	}
	select {
	case <-h.Done():
		return false
	default:
		return true
	}
}

// Func returns a Factory running fn in a new goroutine per incarnation.
// The context passed to fn is cancelled by Terminate. A panic inside fn
// terminates the incarnation with a *PanicError.
func Func(fn func(ctx context.Context) error) Factory {
	return FactoryFunc(func() (Handle, error) {
		return Go(fn), nil
	})
}

// Go starts fn in a goroutine and returns its Handle.
func Go(fn func(ctx context.Context) error) Handle {
	ctx, cancel := context.WithCancel(context.Background())
	g := &goroutine{
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go g.run(ctx, fn)
	return g
}

type goroutine struct {
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

func (g *goroutine) run(ctx context.Context, fn func(ctx context.Context) error) {
	defer close(g.done)
	defer g.cancel()
	defer func() {
		if r := recover(); r != nil {
			g.err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	g.err = fn(ctx)
}

func (g *goroutine) Done() <-chan struct{} { return g.done }

func (g *goroutine) Err() error {
	select {
	case <-g.done:
		return g.err
	default:
		return nil
	}
}

func (g *goroutine) Terminate() { g.cancel() }

// exited is a Handle that has already terminated with err.
type exited struct {
	err  error
	done chan struct{}
}

func newExited(err error) *exited {
	e := &exited{err: err, done: make(chan struct{})}
	close(e.done)
	return e
}

func (e *exited) Done() <-chan struct{} { return e.done }
func (e *exited) Err() error            { return e.err }
func (e *exited) Terminate()            {}
