package process

import (
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/supervisor/pkg/supervisor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCommand(command string) *Command {
	return &Command{
		Name:            "test",
		Command:         command,
		Logger:          testLogger(),
		GracefulTimeout: 100 * time.Millisecond,
		KillTimeout:     100 * time.Millisecond,
	}
}

func waitDone(t *testing.T, h supervisor.Handle, timeout time.Duration) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(timeout):
		t.Fatal("timeout waiting for process to exit")
	}
}

func TestCloseOnNormalExit(t *testing.T) {
	p, err := testCommand(`sh -c "exit 0"`).Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, p, time.Second)

	if p.Err() != nil {
		t.Errorf("Err() = %v, want nil", p.Err())
	}
	if p.ExitCode() != 0 {
		t.Errorf("ExitCode() = %d, want 0", p.ExitCode())
	}
}

func TestExitWithError(t *testing.T) {
	h, err := testCommand(`sh -c "exit 3"`).Spawn()
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	waitDone(t, h, time.Second)

	var exitErr *exec.ExitError
	if !errors.As(h.Err(), &exitErr) || exitErr.ExitCode() != 3 {
		t.Errorf("Err() = %v, want exit status 3", h.Err())
	}
	if p := h.(*Process); p.ExitCode() != 3 {
		t.Errorf("ExitCode() = %d, want 3", p.ExitCode())
	}
}

func TestGracefulTerminate(t *testing.T) {
	cmd := testCommand(`sh -c "trap 'exit 0' INT TERM; while :; do sleep 0.1; done"`)
	cmd.GracefulTimeout = 500 * time.Millisecond
	p, err := cmd.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if p.ExitCode() != -1 {
		t.Fatalf("ExitCode() = %d while running, want -1", p.ExitCode())
	}
	p.Terminate()
	p.Terminate()
	waitDone(t, p, time.Second)

	if p.ExitCode() != 0 {
		t.Errorf("ExitCode() = %d, want 0", p.ExitCode())
	}
}

func TestForceKillOnTimeout(t *testing.T) {
	cmd := testCommand(`sh -c "trap '' INT; sleep 10"`)
	cmd.GracefulTimeout = 50 * time.Millisecond
	cmd.KillTimeout = 500 * time.Millisecond
	p, err := cmd.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	done := make(chan int, 1)
	go func() { done <- p.Stop() }()
	select {
	case code := <-done:
		if code != killedExitCode {
			t.Errorf("exit code = %d, want %d", code, killedExitCode)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for kill")
	}
}

func TestTerminateAfterExit(t *testing.T) {
	p, err := testCommand("true").Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, p, time.Second)
	p.Terminate()
	if got := p.Stop(); got != 0 {
		t.Errorf("Stop() = %d, want 0", got)
	}
}

func TestSpawnErrors(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"unclosed quote", `sh -c "echo`},
		{"missing binary", "/nonexistent/binary --flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := testCommand(tt.command).Spawn()
			if err == nil {
				t.Fatalf("Spawn(%q) succeeded", tt.command)
			}
			if h != nil {
				t.Errorf("Spawn returned a handle with error %v", err)
			}
		})
	}
}

func TestEachSpawnIsIndependent(t *testing.T) {
	cmd := testCommand(`sh -c "sleep 10"`)
	first, err := cmd.Start()
	if err != nil {
		t.Fatal(err)
	}
	second, err := cmd.Start()
	if err != nil {
		t.Fatal(err)
	}
	defer second.Stop()

	if first.PID() == second.PID() {
		t.Fatal("spawns share a pid")
	}
	first.Stop()
	if !supervisor.Alive(second) {
		t.Error("stopping one incarnation terminated the other")
	}
}

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) HandleLine(source, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, source+":"+line)
}

func TestOutputHandler(t *testing.T) {
	rec := &lineRecorder{}
	cmd := testCommand(`sh -c "echo line1; echo line2 1>&2"`)
	cmd.OutputHandler = rec
	cmd.LogParser = LevelPrefixParser

	p, err := cmd.Start()
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, p, time.Second)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	slices.Sort(rec.lines)
	if !slices.Equal(rec.lines, []string{"stderr:line2", "stdout:line1"}) {
		t.Errorf("lines = %v", rec.lines)
	}
}

type lineCounter struct {
	n atomic.Int64
}

func (c *lineCounter) HandleLine(string, string) { c.n.Add(1) }

func TestLargeOutputIsDrainedBeforeDone(t *testing.T) {
	counter := &lineCounter{}
	cmd := testCommand("seq 1 200000")
	cmd.OutputHandler = counter

	p, err := cmd.Start()
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, p, 10*time.Second)

	if got := counter.n.Load(); got != 200000 {
		t.Errorf("got %d lines, want 200000", got)
	}
	if p.Err() != nil {
		t.Errorf("Err() = %v, want nil", p.Err())
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"echo hello", []string{"echo", "hello"}, false},
		{`sh -c "echo a b"`, []string{"sh", "-c", "echo a b"}, false},
		{`sh -c 'echo "quoted"'`, []string{"sh", "-c", `echo "quoted"`}, false},
		{`echo hello\ world`, []string{"echo", "hello world"}, false},
		{"  spaced \t out  ", []string{"spaced", "out"}, false},
		{`printf ""`, []string{"printf", ""}, false},
		{"", nil, false},
		{`echo "open`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseCommand(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCommand(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("parseCommand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelPrefixParser(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"ERROR: disk full", "error", "disk full"},
		{"[warn] slow query", "warn", "slow query"},
		{"Warning: deprecated flag", "warning", "deprecated flag"},
		{"level=debug cache miss", "debug", "cache miss"},
		{"listening on :8080", "info", "listening on :8080"},
		{"errors are fine here", "info", "errors are fine here"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			level, msg := LevelPrefixParser(tt.line)
			if level != tt.wantLevel || msg != tt.wantMsg {
				t.Errorf("LevelPrefixParser(%q) = %q, %q; want %q, %q", tt.line, level, msg, tt.wantLevel, tt.wantMsg)
			}
		})
	}
}

func TestSupervisedCommandRestarts(t *testing.T) {
	sup, err := supervisor.New(supervisor.Config{MaxRestarts: 2, MaxTime: time.Minute},
		supervisor.WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	defer sup.Shutdown(t.Context())

	if err := sup.AddProcess("flaky", testCommand(`sh -c "exit 1"`)); err != nil {
		t.Fatal(err)
	}
	sup.StartMonitoring()

	deadline := time.Now().Add(3 * time.Second)
	for {
		if st, _ := sup.ProcessState("flaky"); st == supervisor.StateStopped {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("flaky command was never stopped")
		}
		time.Sleep(10 * time.Millisecond)
	}
	info, _ := sup.Info("flaky")
	if info.Restarts != 2 {
		t.Errorf("Restarts = %d, want 2", info.Restarts)
	}
}
