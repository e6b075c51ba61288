package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/smazurov/supervisor/internal/logging"
	"github.com/smazurov/supervisor/internal/process"
	"github.com/smazurov/supervisor/pkg/supervisor"
)

// Duration is a time.Duration written as "5s" in configuration files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// File is the supervision configuration file.
type File struct {
	Supervisor SupervisorConfig `toml:"supervisor" yaml:"supervisor"`
	Logging    logging.Config   `toml:"logging" yaml:"logging"`
	Processes  []ProcessConfig  `toml:"process" yaml:"process"`
}

// SupervisorConfig is the [supervisor] section.
type SupervisorConfig struct {
	MaxRestarts     *int     `toml:"max_restarts" yaml:"max_restarts"`
	MaxTime         Duration `toml:"max_time" yaml:"max_time"`
	Strategy        string   `toml:"strategy" yaml:"strategy"`
	BudgetScope     string   `toml:"budget_scope" yaml:"budget_scope"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ProcessConfig is one [[process]] entry.
type ProcessConfig struct {
	Name            string   `toml:"name" yaml:"name"`
	Command         string   `toml:"command" yaml:"command"`
	Restart         string   `toml:"restart" yaml:"restart"`
	DependsOn       []string `toml:"depends_on" yaml:"depends_on"`
	Dir             string   `toml:"dir" yaml:"dir"`
	Env             []string `toml:"env" yaml:"env"`
	LogParser       string   `toml:"log_parser" yaml:"log_parser"`
	GracefulTimeout Duration `toml:"graceful_timeout" yaml:"graceful_timeout"`
}

// Load reads and validates a supervision file. The format is chosen by
// extension: .yaml and .yml are YAML, anything else is TOML.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, isYAML(path))
}

// Parse decodes and validates a supervision file.
func Parse(data []byte, asYAML bool) (*File, error) {
	var f File
	if asYAML {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate reports every problem in the file at once.
func (f *File) Validate() error {
	var errs []error
	if _, err := f.SupervisorOptions(); err != nil {
		errs = append(errs, err)
	}

	names := make(map[string]bool, len(f.Processes))
	for i, p := range f.Processes {
		switch {
		case p.Name == "":
			errs = append(errs, fmt.Errorf("process #%d: name is required", i+1))
			continue
		case names[p.Name]:
			errs = append(errs, fmt.Errorf("process %q: defined more than once", p.Name))
		}
		names[p.Name] = true

		if p.Command == "" {
			errs = append(errs, fmt.Errorf("process %q: command is required", p.Name))
		}
		if _, err := supervisor.ParseRestartPolicy(p.Restart); err != nil {
			errs = append(errs, fmt.Errorf("process %q: %w", p.Name, err))
		}
		if _, ok := process.Parsers[p.LogParser]; !ok {
			errs = append(errs, fmt.Errorf("process %q: unknown log parser %q", p.Name, p.LogParser))
		}
	}

	for _, p := range f.Processes {
		for _, dep := range p.DependsOn {
			switch {
			case dep == p.Name:
				errs = append(errs, fmt.Errorf("process %q: depends on itself", p.Name))
			case !names[dep]:
				errs = append(errs, fmt.Errorf("process %q: depends on unknown process %q", p.Name, dep))
			}
		}
	}
	return errors.Join(errs...)
}

// SupervisorOptions converts the [supervisor] section, applying defaults
// for omitted values.
func (f *File) SupervisorOptions() (supervisor.Config, error) {
	cfg := supervisor.DefaultConfig()
	s := f.Supervisor
	if s.MaxRestarts != nil {
		cfg.MaxRestarts = *s.MaxRestarts
	}
	if s.MaxTime != 0 {
		cfg.MaxTime = s.MaxTime.Std()
	}
	if s.ShutdownTimeout != 0 {
		cfg.ShutdownTimeout = s.ShutdownTimeout.Std()
	}
	if s.Strategy != "" {
		st, err := supervisor.ParseStrategy(s.Strategy)
		if err != nil {
			return cfg, err
		}
		cfg.Strategy = st
	}
	if s.BudgetScope != "" {
		scope, err := supervisor.ParseBudgetScope(s.BudgetScope)
		if err != nil {
			return cfg, err
		}
		cfg.BudgetScope = scope
	}
	return cfg, cfg.Validate()
}

// Process returns the process named name.
func (f *File) Process(name string) (ProcessConfig, bool) {
	i := slices.IndexFunc(f.Processes, func(p ProcessConfig) bool { return p.Name == name })
	if i < 0 {
		return ProcessConfig{}, false
	}
	return f.Processes[i], true
}

// Equal reports whether two process definitions are identical.
func (p ProcessConfig) Equal(o ProcessConfig) bool {
	return p.Name == o.Name &&
		p.Command == o.Command &&
		p.Restart == o.Restart &&
		p.Dir == o.Dir &&
		p.LogParser == o.LogParser &&
		p.GracefulTimeout == o.GracefulTimeout &&
		slices.Equal(p.DependsOn, o.DependsOn) &&
		slices.Equal(p.Env, o.Env)
}

// Changes lists how the process set differs between two files.
type Changes struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// Diff compares the process definitions of old and updated, in file order.
func Diff(old, updated *File) Changes {
	var c Changes
	for _, p := range updated.Processes {
		prev, ok := old.Process(p.Name)
		switch {
		case !ok:
			c.Added = append(c.Added, p.Name)
		case !prev.Equal(p):
			c.Changed = append(c.Changed, p.Name)
		}
	}
	for _, p := range old.Processes {
		if _, ok := updated.Process(p.Name); !ok {
			c.Removed = append(c.Removed, p.Name)
		}
	}
	return c
}
