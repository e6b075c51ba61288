package supervisor

import (
	"log/slog"
	"time"
)

// StateListener is called for every state transition, in order, from a
// single goroutine. err is the exit cause or the supervisor error that
// caused the transition, if any.
type StateListener func(name string, oldState, newState State, err error)

// RemoveListener is called once a process has been removed. It is delivered
// on the StateListener goroutine, after every transition of that process.
type RemoveListener func(name string)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStateListener registers a listener for state transitions.
func WithStateListener(fn StateListener) Option {
	return func(s *Supervisor) {
		s.listener = fn
	}
}

// WithRemoveListener registers a listener for removed processes.
func WithRemoveListener(fn RemoveListener) Option {
	return func(s *Supervisor) {
		s.onRemove = fn
	}
}

// WithClock replaces time.Now for budget accounting.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) {
		if now != nil {
			s.now = now
		}
	}
}

// WithShutdownTimeout overrides Config.ShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.cfg.ShutdownTimeout = d
		}
	}
}

// ProcessOption configures a single process.
type ProcessOption func(*descriptor)

// WithRestartPolicy sets the restart policy. Defaults to Permanent.
func WithRestartPolicy(p RestartPolicy) ProcessOption {
	return func(d *descriptor) {
		if p != "" {
			d.policy = p
		}
	}
}
