package supervisor

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Supervisor monitors a set of named processes and restarts them according
// to its Strategy and restart budget.
type Supervisor struct {
	cfg      Config
	logger   *slog.Logger
	listener StateListener
	onRemove RemoveListener
	now      func() time.Time

	mu      sync.RWMutex
	reg     *registry
	graph   *graph
	budget  *budget
	started bool
	closed  bool

	exits    chan exitReport
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	notifier *notifier
}

// New validates cfg and returns an idle Supervisor. Nothing is spawned
// until StartMonitoring is called.
func New(cfg Config, opts ...Option) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		cfg:    cfg.withDefaults(),
		logger: slog.Default(),
		now:    time.Now,
		reg:    newRegistry(),
		graph:  newGraph(),
		budget: newBudget(cfg.MaxRestarts, cfg.MaxTime),
		exits:  make(chan exitReport, 64),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.listener != nil || s.onRemove != nil {
		s.notifier = newNotifier(s.listener, s.onRemove, s.logger)
	}
	return s, nil
}

// Config returns the effective configuration.
func (s *Supervisor) Config() Config {
	return s.cfg
}

// AddProcess registers a process. Before StartMonitoring the process is
// pending and reports StateRunning; afterwards it is spawned before
// AddProcess returns.
func (s *Supervisor) AddProcess(name string, f Factory, opts ...ProcessOption) error {
	if name == "" || f == nil {
		return newError(ErrCodeInvalidConfig, name, "process needs a name and a factory", nil)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return newError(ErrCodeShutdown, name, "supervisor is shut down", nil)
	}
	if s.reg.get(name) != nil {
		s.mu.Unlock()
		return newError(ErrCodeDuplicateName, name, "process already registered", nil)
	}
	d := &descriptor{
		name:        name,
		factory:     f,
		policy:      Permanent,
		state:       StateRunning,
		pending:     true,
		incarnation: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	s.reg.add(d)
	s.graph.addNode(name, d.seq)
	started := s.started
	item := spawnItem{d: d, incarnation: d.incarnation}
	s.mu.Unlock()

	s.logger.Debug("Process registered", "process", name, "policy", d.policy)
	if started {
		s.spawn(item)
	}
	return nil
}

// AddDependency records that dependent depends on dependency.
func (s *Supervisor) AddDependency(dependent, dependency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{dependent, dependency} {
		if !s.graph.has(name) {
			return newError(ErrCodeUnknownProcess, name, "process not registered", nil)
		}
	}
	if !s.graph.addEdge(dependent, dependency) {
		return newError(ErrCodeCycleDetected, dependent,
			fmt.Sprintf("depending on %q would create a cycle", dependency), nil)
	}
	return nil
}

// StartMonitoring starts the decision loop and spawns every pending process
// in dependency order. It does not block. Calling it again has no effect.
func (s *Supervisor) StartMonitoring() {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	var items []spawnItem
	for _, name := range s.graph.order() {
		d := s.reg.get(name)
		if d.pending && d.state != StateStopped {
			items = append(items, spawnItem{d: d, incarnation: d.incarnation})
		}
	}
	s.wg.Add(2)
	s.mu.Unlock()

	s.logger.Info("Supervisor started",
		"strategy", s.cfg.Strategy,
		"max_restarts", s.cfg.MaxRestarts,
		"max_time", s.cfg.MaxTime,
		"budget_scope", s.cfg.BudgetScope,
		"processes", len(items))

	go s.loop()
	go func() {
		defer s.wg.Done()
		for _, item := range items {
			s.spawn(item)
		}
	}()
}

// StopProcess stops a process permanently. Stopping a stopped process is a no-op.
func (s *Supervisor) StopProcess(name string) error {
	s.mu.Lock()
	d := s.reg.get(name)
	if d == nil {
		s.mu.Unlock()
		return newError(ErrCodeUnknownProcess, name, "process not registered", nil)
	}
	if d.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	h := s.stopLocked(d, nil)
	s.mu.Unlock()

	s.logger.Info("Process stopped", "process", name)
	if h != nil {
		h.Terminate()
	}
	return nil
}

// RemoveProcess stops a process and forgets it together with its
// dependency edges and restart history, so the name can be added again.
func (s *Supervisor) RemoveProcess(name string) error {
	s.mu.Lock()
	d := s.reg.get(name)
	if d == nil {
		s.mu.Unlock()
		return newError(ErrCodeUnknownProcess, name, "process not registered", nil)
	}
	var h Handle
	if d.state != StateStopped {
		h = s.stopLocked(d, nil)
	}
	s.reg.remove(name)
	s.graph.removeNode(name)
	if s.cfg.BudgetScope == ScopeProcess {
		s.budget.forget(name)
	}
	if s.notifier != nil {
		s.notifier.push(transition{name: name, removed: true})
	}
	s.mu.Unlock()

	s.logger.Info("Process removed", "process", name)
	if h != nil {
		h.Terminate()
	}
	return nil
}

// stopLocked moves d to StateStopped and returns the handle to terminate.
func (s *Supervisor) stopLocked(d *descriptor, cause error) Handle {
	d.invalidate()
	d.pending = false
	h := d.handle
	s.setState(d, StateStopped, cause)
	if !Alive(h) {
		return nil
	}
	return h
}

// ProcessState returns the current state of name. ok is false if name was
// never added or has been removed.
func (s *Supervisor) ProcessState(name string) (state State, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.reg.get(name)
	if d == nil {
		return "", false
	}
	return d.state, true
}

// Info returns a snapshot of name.
func (s *Supervisor) Info(name string) (Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.reg.get(name)
	if d == nil {
		return Info{}, false
	}
	return s.infoLocked(d, s.now()), true
}

// Processes returns a snapshot of every process in registration order.
func (s *Supervisor) Processes() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := make([]Info, 0, len(s.reg.all()))
	for _, d := range s.reg.all() {
		out = append(out, s.infoLocked(d, now))
	}
	return out
}

func (s *Supervisor) infoLocked(d *descriptor, now time.Time) Info {
	return Info{
		Name:           d.name,
		State:          d.state,
		Policy:         d.policy,
		Dependencies:   s.graph.dependenciesOf(d.name),
		Restarts:       d.restarts,
		RecentRestarts: s.budget.count(s.scopeKey(d.name), now),
		Incarnation:    d.incarnation,
		InstanceID:     d.instanceID,
		StartedAt:      d.startedAt,
		LastError:      d.lastErr,
	}
}

// Dependencies returns the direct dependencies of name in registration order.
func (s *Supervisor) Dependencies(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.dependenciesOf(name)
}

// DependentsOf yields every process that transitively depends on name,
// dependencies before dependents. The sequence is evaluated lazily against
// a snapshot of the graph taken at call time.
func (s *Supervisor) DependentsOf(name string) iter.Seq[string] {
	s.mu.RLock()
	g := s.graph.clone()
	s.mu.RUnlock()
	return g.dependentsOf(name)
}

// Shutdown stops every process in reverse dependency order and waits for
// them to terminate, then stops the supervisor. It returns ctx.Err() if ctx
// expires first. Later calls return nil.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	order := s.graph.order()
	var handles []Handle
	for i := len(order) - 1; i >= 0; i-- {
		d := s.reg.get(order[i])
		if d.state == StateStopped {
			continue
		}
		if h := s.stopLocked(d, nil); h != nil {
			handles = append(handles, h)
		}
	}
	s.mu.Unlock()

	s.logger.Info("Shutting down supervisor", "processes", len(handles))

	var err error
	for _, h := range handles {
		h.Terminate()
		select {
		case <-h.Done():
		case <-ctx.Done():
			err = ctx.Err()
		}
		if err != nil {
			break
		}
	}

	s.cancel()
	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if s.notifier != nil {
		s.notifier.close()
	}
	if err != nil {
		s.logger.Warn("Supervisor shutdown incomplete", "error", err)
		return err
	}
	s.logger.Info("Supervisor stopped")
	return nil
}

// setState records a transition and queues it for the listener. Caller holds s.mu.
func (s *Supervisor) setState(d *descriptor, state State, err error) {
	old := d.state
	if old == state {
		return
	}
	d.state = state
	if s.notifier != nil {
		s.notifier.push(transition{name: d.name, old: old, new: state, err: err})
	}
}

func (s *Supervisor) scopeKey(name string) string {
	if s.cfg.BudgetScope == ScopeSupervisor {
		return ""
	}
	return name
}

// install makes h the live incarnation of d. Caller holds s.mu.
func (s *Supervisor) install(d *descriptor, h Handle) {
	d.pending = false
	d.handle = h
	d.instanceID = uuid.New().String()
	d.startedAt = s.now()
	d.detach = make(chan struct{})
	s.setState(d, StateRunning, nil)
	s.watch(d.name, d.incarnation, h, d.detach)
}
