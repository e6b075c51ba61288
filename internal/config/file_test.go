package config

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/supervisor/pkg/supervisor"
)

const exampleTOML = `
[supervisor]
max_restarts = 2
max_time = "10s"
strategy = "rest_for_one"
budget_scope = "supervisor"

[logging]
level = "debug"

[logging.modules]
api = "warn"

[[process]]
name = "db"
command = "sh -c 'sleep 5; exit 1'"

[[process]]
name = "api"
command = "sleep 60"
restart = "transient"
depends_on = ["db"]
log_parser = "prefix"
graceful_timeout = "2s"
`

func TestParseTOML(t *testing.T) {
	f, err := Parse([]byte(exampleTOML), false)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cfg, err := f.SupervisorOptions()
	if err != nil {
		t.Fatal(err)
	}
	want := supervisor.Config{
		MaxRestarts:     2,
		MaxTime:         10 * time.Second,
		Strategy:        supervisor.RestForOne,
		BudgetScope:     supervisor.ScopeSupervisor,
		ShutdownTimeout: supervisor.DefaultShutdownTimeout,
	}
	if cfg != want {
		t.Errorf("SupervisorOptions() = %+v, want %+v", cfg, want)
	}

	if f.Logging.Level != "debug" || f.Logging.Modules["api"] != "warn" {
		t.Errorf("Logging = %+v", f.Logging)
	}
	api, ok := f.Process("api")
	if !ok {
		t.Fatal("api not found")
	}
	if api.Restart != "transient" || !slices.Equal(api.DependsOn, []string{"db"}) || api.GracefulTimeout.Std() != 2*time.Second {
		t.Errorf("api = %+v", api)
	}
}

func TestParseYAML(t *testing.T) {
	content := `
supervisor:
  max_restarts: 0
  max_time: 1m
process:
  - name: worker
    command: ./worker --queue jobs
    env: ["QUEUE=jobs"]
`
	f, err := Parse([]byte(content), true)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	cfg, _ := f.SupervisorOptions()
	if cfg.MaxRestarts != 0 || cfg.MaxTime != time.Minute || cfg.Strategy != supervisor.OneForOne {
		t.Errorf("SupervisorOptions() = %+v", cfg)
	}
	if len(f.Processes) != 1 || f.Processes[0].Env[0] != "QUEUE=jobs" {
		t.Errorf("Processes = %+v", f.Processes)
	}
}

func TestDefaultsWhenSectionOmitted(t *testing.T) {
	f, err := Parse([]byte("[[process]]\nname = \"a\"\ncommand = \"true\"\n"), false)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := f.SupervisorOptions()
	if err != nil {
		t.Fatal(err)
	}
	if cfg != supervisor.DefaultConfig() {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing name", "[[process]]\ncommand = \"true\"", "name is required"},
		{"missing command", "[[process]]\nname = \"a\"", "command is required"},
		{"duplicate", "[[process]]\nname = \"a\"\ncommand = \"true\"\n[[process]]\nname = \"a\"\ncommand = \"true\"", "more than once"},
		{"unknown dependency", "[[process]]\nname = \"a\"\ncommand = \"true\"\ndepends_on = [\"b\"]", "unknown process \"b\""},
		{"self dependency", "[[process]]\nname = \"a\"\ncommand = \"true\"\ndepends_on = [\"a\"]", "depends on itself"},
		{"bad policy", "[[process]]\nname = \"a\"\ncommand = \"true\"\nrestart = \"sometimes\"", "unknown restart policy"},
		{"bad parser", "[[process]]\nname = \"a\"\ncommand = \"true\"\nlog_parser = \"xml\"", "unknown log parser"},
		{"bad strategy", "[supervisor]\nstrategy = \"all_for_none\"", "unknown restart strategy"},
		{"negative restarts", "[supervisor]\nmax_restarts = -1", "max_restarts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), false)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestValidateInvalidConfigIsTyped(t *testing.T) {
	_, err := Parse([]byte("[supervisor]\nmax_restarts = -1"), false)
	if !errors.Is(err, supervisor.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestDiff(t *testing.T) {
	old := &File{Processes: []ProcessConfig{
		{Name: "a", Command: "true"},
		{Name: "b", Command: "true"},
		{Name: "c", Command: "true", DependsOn: []string{"a"}},
	}}
	updated := &File{Processes: []ProcessConfig{
		{Name: "a", Command: "true"},
		{Name: "c", Command: "true", DependsOn: []string{"a", "d"}},
		{Name: "d", Command: "sleep 1"},
	}}

	c := Diff(old, updated)
	if !slices.Equal(c.Added, []string{"d"}) || !slices.Equal(c.Removed, []string{"b"}) || !slices.Equal(c.Changed, []string{"c"}) {
		t.Errorf("Diff() = %+v", c)
	}
	if !Diff(old, old).Empty() {
		t.Error("Diff of identical files is not empty")
	}
}
