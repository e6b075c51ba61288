package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/supervisor/internal/logging"
	"github.com/smazurov/supervisor/pkg/supervisor"
)

const (
	defaultGracefulTimeout = 5 * time.Second
	defaultKillTimeout     = 5 * time.Second
	killedExitCode         = 137
)

// OutputHandler receives output lines from the subprocess.
type OutputHandler interface {
	HandleLine(source, line string)
}

// LogParser extracts a log level and message from a line of process output.
type LogParser func(line string) (level, msg string)

// Command is a supervisor.Factory that starts a fresh subprocess on every
// Spawn. The zero timeouts fall back to five seconds each.
type Command struct {
	Name    string
	Command string
	Dir     string
	Env     []string // appended to the supervisor's environment

	Logger        logging.Logger
	OutputLogger  logging.Logger // receives process output, defaults to Logger
	LogParser     LogParser      // nil logs every line at info
	OutputHandler OutputHandler

	GracefulTimeout time.Duration // SIGINT to SIGKILL
	KillTimeout     time.Duration // SIGKILL to giving up
}

var _ supervisor.Factory = (*Command)(nil)

// Spawn starts the subprocess and returns its handle.
func (c *Command) Spawn() (supervisor.Handle, error) {
	p, err := c.Start()
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Start starts the subprocess.
func (c *Command) Start() (*Process, error) {
	args, err := parseCommand(c.Command)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", c.Command, err)
	}
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	// Own process group so signals reach children of shell wrappers.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", args[0], err)
	}

	p := &Process{
		name:            c.Name,
		cmd:             cmd,
		logger:          c.logger(),
		done:            make(chan struct{}),
		gracefulTimeout: orDefault(c.GracefulTimeout, defaultGracefulTimeout),
		killTimeout:     orDefault(c.KillTimeout, defaultKillTimeout),
		startedAt:       time.Now(),
	}
	p.logger.Info("Process started", "process", c.Name, "pid", cmd.Process.Pid, "command", c.Command)

	var output sync.WaitGroup
	output.Add(2)
	go func() {
		defer output.Done()
		c.streamOutput(p, stdout, "stdout")
	}()
	go func() {
		defer output.Done()
		c.streamOutput(p, stderr, "stderr")
	}()
	// Wait closes the pipes, so it must not run before both readers hit EOF.
	go func() {
		output.Wait()
		err := cmd.Wait()
		p.exit(err)
	}()

	return p, nil
}

func (c *Command) logger() logging.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.GetLogger("process")
}

// streamOutput logs every line of reader through the output logger.
func (c *Command) streamOutput(p *Process, reader io.Reader, source string) {
	logger := c.OutputLogger
	if logger == nil {
		logger = p.logger
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()
		if c.OutputHandler != nil {
			c.OutputHandler.HandleLine(source, line)
		}

		level, msg := "info", line
		if c.LogParser != nil {
			level, msg = c.LogParser(line)
		}
		args := []any{"process", c.Name, "source", source}
		switch level {
		case "fatal", "error":
			logger.Error(msg, args...)
		case "warn", "warning":
			logger.Warn(msg, args...)
		case "debug", "trace":
			logger.Debug(msg, args...)
		default:
			logger.Info(msg, args...)
		}
	}
	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading output", "process", c.Name, "source", source, "error", err)
	}
}

// Process is a running subprocess. It implements supervisor.Handle.
type Process struct {
	name            string
	cmd             *exec.Cmd
	logger          logging.Logger
	gracefulTimeout time.Duration
	killTimeout     time.Duration
	startedAt       time.Time

	done     chan struct{}
	err      error
	exitCode int
	stopOnce sync.Once
}

func (p *Process) exit(err error) {
	p.err = err
	p.exitCode = exitCodeFromError(err)
	if err != nil && p.exitCode == 1 {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			p.logger.Error("Process exited with error", "process", p.name, "error", err)
		}
	}
	p.logger.Info("Process exited", "process", p.name, "exit_code", p.exitCode)
	close(p.done)
}

// Done is closed once the subprocess has exited and its output is drained.
func (p *Process) Done() <-chan struct{} { return p.done }

// Err returns the error from waiting on the subprocess, nil for exit code 0.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// ExitCode returns the exit code, or -1 while the process is running.
func (p *Process) ExitCode() int {
	select {
	case <-p.done:
		return p.exitCode
	default:
		return -1
	}
}

// PID returns the operating system process id.
func (p *Process) PID() int { return p.cmd.Process.Pid }

// StartedAt returns when the subprocess was started.
func (p *Process) StartedAt() time.Time { return p.startedAt }

// Terminate sends SIGINT to the process group and escalates to SIGKILL
// after the graceful timeout. It returns immediately.
func (p *Process) Terminate() {
	p.stopOnce.Do(func() {
		go p.stop()
	})
}

// Stop terminates the process and waits for it to exit.
func (p *Process) Stop() int {
	p.Terminate()
	<-p.done
	return p.exitCode
}

func (p *Process) stop() {
	select {
	case <-p.done:
		return
	default:
	}

	p.logger.Info("Sending SIGINT to process", "process", p.name, "pid", p.PID())
	if err := p.signal(syscall.SIGINT); err != nil {
		p.logger.Warn("Failed to send SIGINT", "process", p.name, "error", err)
	}

	select {
	case <-p.done:
		return
	case <-time.After(p.gracefulTimeout):
	}

	p.logger.Warn("Graceful shutdown timeout, forcing kill", "process", p.name, "timeout", p.gracefulTimeout)
	if err := p.signal(syscall.SIGKILL); err != nil {
		p.logger.Error("Failed to kill process", "process", p.name, "error", err)
	}
	select {
	case <-p.done:
	case <-time.After(p.killTimeout):
		p.logger.Error("Process did not exit after kill signal", "process", p.name, "pid", p.PID())
	}
}

// signal delivers sig to the whole process group.
func (p *Process) signal(sig syscall.Signal) error {
	err := syscall.Kill(-p.PID(), sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// exitCodeFromError maps a Wait error to an exit code: 0 for nil, the
// status for ExitError (137 when killed) and 1 otherwise.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			if ws.Signal() == syscall.SIGKILL {
				return killedExitCode
			}
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// parseCommand splits a command line into arguments, honouring single and
// double quotes and backslash escapes.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)
	hasArg := false

	runes := []rune(strings.TrimSpace(command))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
				hasArg = true
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case (r == ' ' || r == '\t') && !inQuote:
			if hasArg {
				args = append(args, current.String())
				current.Reset()
				hasArg = false
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
			hasArg = true
		default:
			current.WriteRune(r)
			hasArg = true
		}
	}

	if inQuote {
		return nil, errors.New("unclosed quote in command")
	}
	if hasArg {
		args = append(args, current.String())
	}
	return args, nil
}
