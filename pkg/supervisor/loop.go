package supervisor

import (
	"fmt"
	"runtime/debug"
	"time"
)

// exitReport is sent by a monitor when its incarnation terminates.
type exitReport struct {
	name        string
	incarnation uint64
	err         error
}

// spawnItem is a spawn dispatched for one incarnation of d.
type spawnItem struct {
	d           *descriptor
	incarnation uint64
	old         Handle // previous incarnation, terminated before spawning
}

// watch starts the monitor goroutine for one incarnation. Caller holds s.mu.
func (s *Supervisor) watch(name string, incarnation uint64, h Handle, detach <-chan struct{}) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-h.Done():
		case <-detach:
			return
		case <-s.ctx.Done():
			return
		}
		select {
		case s.exits <- exitReport{name: name, incarnation: incarnation, err: h.Err()}:
		case <-detach:
		case <-s.ctx.Done():
		}
	}()
}

// loop is the single decision path: every exit is handled to completion
// before the next one is read.
func (s *Supervisor) loop() {
	defer s.wg.Done()
	for {
		select {
		case r := <-s.exits:
			s.handleExit(r)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Supervisor) handleExit(r exitReport) {
	s.mu.Lock()
	d := s.reg.get(r.name)
	if d == nil || d.incarnation != r.incarnation || d.state != StateRunning || s.closed {
		s.mu.Unlock()
		s.logger.Debug("Ignoring stale exit", "process", r.name, "incarnation", r.incarnation)
		return
	}
	d.lastErr = r.err
	d.handle = nil

	if d.policy == Temporary || (d.policy == Transient && r.err == nil) {
		d.invalidate()
		s.setState(d, StateStopped, r.err)
		s.mu.Unlock()
		s.logger.Info("Process exited, not restarting", "process", r.name, "policy", d.policy, "error", r.err)
		return
	}

	s.setState(d, StateFailed, r.err)
	s.logger.Warn("Process failed", "process", r.name, "error", r.err)

	names := s.plan(r.name)
	now := s.now()
	shared := true
	if s.cfg.BudgetScope == ScopeSupervisor {
		// One restart of the supervisor covers the whole cascade; a denial
		// applies to every name in it.
		shared = s.budget.allow("", now)
	}

	var batch []spawnItem
	var orphans []Handle
	for _, name := range names {
		cd := s.reg.get(name)
		allowed := shared
		if s.cfg.BudgetScope == ScopeProcess {
			allowed = s.budget.allow(name, now)
		}
		if !allowed {
			cause := newError(ErrCodeBudgetExhausted, name,
				fmt.Sprintf("more than %d restarts within %s", s.cfg.MaxRestarts, s.cfg.MaxTime), nil)
			if h := s.stopLocked(cd, cause); h != nil {
				orphans = append(orphans, h)
			}
			cd.lastErr = cause
			s.logger.Error("Restart budget exhausted, process stopped", "process", name,
				"max_restarts", s.cfg.MaxRestarts, "max_time", s.cfg.MaxTime)
			continue
		}
		old := cd.handle
		cd.invalidate()
		cd.restarts++
		s.setState(cd, StateRestarting, nil)
		batch = append(batch, spawnItem{d: cd, incarnation: cd.incarnation, old: old})
	}
	if len(batch) > 0 {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	for _, h := range orphans {
		h.Terminate()
	}
	if len(batch) > 0 {
		go s.respawn(batch)
	}
}

// respawn terminates the previous incarnations of the batch, last first,
// then spawns the new ones in order.
func (s *Supervisor) respawn(batch []spawnItem) {
	defer s.wg.Done()

	deadline := time.NewTimer(s.cfg.ShutdownTimeout)
	defer deadline.Stop()
	for i := len(batch) - 1; i >= 0; i-- {
		if h := batch[i].old; Alive(h) {
			h.Terminate()
		}
	}
	expired := false
	for i := len(batch) - 1; i >= 0 && !expired; i-- {
		h := batch[i].old
		if !Alive(h) {
			continue
		}
		select {
		case <-h.Done():
		case <-deadline.C:
			expired = true
			s.logger.Warn("Timed out waiting for process to terminate", "process", batch[i].d.name,
				"timeout", s.cfg.ShutdownTimeout)
		case <-s.ctx.Done():
			return
		}
	}

	for _, item := range batch {
		s.logger.Info("Restarting process", "process", item.d.name, "incarnation", item.incarnation)
		s.spawn(item)
	}
}

// current reports whether item is still the dispatched incarnation of its
// process. Caller holds s.mu.
func (s *Supervisor) current(item spawnItem) bool {
	d := item.d
	return !s.closed &&
		s.reg.get(d.name) == d &&
		d.incarnation == item.incarnation &&
		d.state != StateStopped
}

// spawn calls the factory outside the lock and installs the new handle if
// nothing superseded the dispatch meanwhile. A factory error installs an
// already terminated handle, so it is handled like any other failure.
func (s *Supervisor) spawn(item spawnItem) {
	s.mu.RLock()
	ok := s.current(item)
	s.mu.RUnlock()
	if !ok {
		return
	}

	h, err := safeSpawn(item.d.factory)
	if err != nil {
		s.logger.Warn("Failed to spawn process", "process", item.d.name, "error", err)
		h = newExited(newError(ErrCodeSpawnFailed, item.d.name, "factory failed", err))
	}

	s.mu.Lock()
	if !s.current(item) {
		s.mu.Unlock()
		h.Terminate()
		return
	}
	s.install(item.d, h)
	s.mu.Unlock()
	s.logger.Debug("Process running", "process", item.d.name, "incarnation", item.incarnation)
}

func safeSpawn(f Factory) (h Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	h, err = f.Spawn()
	if err == nil && h == nil {
		err = fmt.Errorf("factory returned no handle")
	}
	return h, err
}
