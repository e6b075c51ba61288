package config

import (
	"errors"
	"fmt"

	"github.com/smazurov/supervisor/internal/logging"
	"github.com/smazurov/supervisor/internal/process"
	"github.com/smazurov/supervisor/pkg/supervisor"
)

// Registry is the part of *supervisor.Supervisor that Apply and Reconcile need.
type Registry interface {
	AddProcess(name string, f supervisor.Factory, opts ...supervisor.ProcessOption) error
	AddDependency(dependent, dependency string) error
	RemoveProcess(name string) error
}

// factory builds the subprocess factory for p.
func (p ProcessConfig) factory() *process.Command {
	return &process.Command{
		Name:            p.Name,
		Command:         p.Command,
		Dir:             p.Dir,
		Env:             p.Env,
		Logger:          logging.GetLogger("process"),
		OutputLogger:    logging.GetLogger("process").With("process", p.Name),
		LogParser:       process.Parsers[p.LogParser],
		GracefulTimeout: p.GracefulTimeout.Std(),
	}
}

func (p ProcessConfig) options() []supervisor.ProcessOption {
	policy, _ := supervisor.ParseRestartPolicy(p.Restart)
	return []supervisor.ProcessOption{supervisor.WithRestartPolicy(policy)}
}

// Apply registers every process of f and then their dependencies.
func Apply(r Registry, f *File) error {
	for _, p := range f.Processes {
		if err := r.AddProcess(p.Name, p.factory(), p.options()...); err != nil {
			return err
		}
	}
	return addDependencies(r, f.Processes)
}

func addDependencies(r Registry, procs []ProcessConfig) error {
	for _, p := range procs {
		for _, dep := range p.DependsOn {
			if err := r.AddDependency(p.Name, dep); err != nil {
				return fmt.Errorf("process %q: %w", p.Name, err)
			}
		}
	}
	return nil
}

// Reconcile moves the supervisor from old to updated: removed processes
// are stopped and forgotten, changed ones are replaced, new ones are added.
// Dependency edges of every added or replaced process are re-created, as
// are edges from unchanged processes onto a replaced one.
func Reconcile(r Registry, old, updated *File) (Changes, error) {
	c := Diff(old, updated)
	if c.Empty() {
		return c, nil
	}

	var errs []error
	for _, name := range append(append([]string(nil), c.Removed...), c.Changed...) {
		if err := r.RemoveProcess(name); err != nil && !errors.Is(err, supervisor.ErrUnknownProcess) {
			errs = append(errs, err)
		}
	}

	touched := make(map[string]bool)
	for _, name := range append(append([]string(nil), c.Changed...), c.Added...) {
		touched[name] = true
	}

	var rewire []ProcessConfig
	for _, p := range updated.Processes {
		if !touched[p.Name] {
			continue
		}
		if err := r.AddProcess(p.Name, p.factory(), p.options()...); err != nil {
			errs = append(errs, err)
			continue
		}
		rewire = append(rewire, p)
	}
	for _, p := range updated.Processes {
		if touched[p.Name] {
			continue
		}
		// Edges onto a replaced process were dropped with it.
		var deps []string
		for _, dep := range p.DependsOn {
			if touched[dep] {
				deps = append(deps, dep)
			}
		}
		if len(deps) > 0 {
			rewire = append(rewire, ProcessConfig{Name: p.Name, DependsOn: deps})
		}
	}
	if err := addDependencies(r, rewire); err != nil {
		errs = append(errs, err)
	}
	return c, errors.Join(errs...)
}
