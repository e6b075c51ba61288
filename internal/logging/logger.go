package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	defaultBufferSize = 1000
	journalIdentifier = "supervisor"
)

// Logger is satisfied by *slog.Logger. Packages that only emit logs accept
// this instead of the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level" yaml:"level"`
	Format  string            `toml:"format" yaml:"format"`
	Modules map[string]string `toml:"modules" yaml:"modules"`
}

var (
	mutex          sync.RWMutex
	globalConfig   Config
	isInitialized  bool
	globalLevelVar = &slog.LevelVar{}
	moduleLoggers  = make(map[string]*slog.Logger)
	moduleLevels   = make(map[string]*slog.LevelVar)
	logBuffer      = NewRingBuffer(defaultBufferSize)
	logCallback    LogCallback
	output         io.Writer = os.Stdout
)

// Initialize sets up the logging system. Loggers handed out earlier keep
// working and pick up the new levels and handler chain.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true
	globalLevelVar.Set(levelOr(config.Level, slog.LevelInfo))

	for module, levelVar := range moduleLevels {
		levelVar.Set(moduleLevel(config, module))
		moduleLoggers[module] = slog.New(createHandler(config.Format, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(createHandler(config.Format, globalLevelVar)))
}

// SetLevels applies the levels of config to every logger without touching
// the output format. Used when the configuration file is reloaded.
func SetLevels(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig.Level = config.Level
	globalConfig.Modules = config.Modules
	globalLevelVar.Set(levelOr(config.Level, slog.LevelInfo))
	for module, levelVar := range moduleLevels {
		levelVar.Set(moduleLevel(globalConfig, module))
	}
}

// GetLogger returns the logger for module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	logger, ok := moduleLoggers[module]
	mutex.RUnlock()
	if ok {
		return logger
	}

	mutex.Lock()
	defer mutex.Unlock()
	if logger, ok := moduleLoggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	format := "text"
	if isInitialized {
		levelVar.Set(moduleLevel(globalConfig, module))
		format = globalConfig.Format
	}

	logger = slog.New(createHandler(format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevels[module] = levelVar
	return logger
}

// GetBuffer returns the ring buffer holding recent log entries.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// SetLogCallback sets a function called for every buffered log entry.
func SetLogCallback(callback LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = callback
}

func currentSinks() (*RingBuffer, LogCallback) {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer, logCallback
}

func moduleLevel(config Config, module string) slog.Level {
	level := levelOr(config.Level, slog.LevelInfo)
	if s, ok := config.Modules[module]; ok {
		level = levelOr(s, level)
	}
	return level
}

// createHandler builds the handler chain: stdout (when connected), the
// systemd journal (when available) and the ring buffer.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdoutHandler slog.Handler
	if format == "json" {
		stdoutHandler = slog.NewJSONHandler(output, opts)
	} else {
		stdoutHandler = slog.NewTextHandler(output, opts)
	}

	var handlers []slog.Handler
	if isStdoutAvailable() {
		handlers = append(handlers, stdoutHandler)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(journalIdentifier, level))
	}
	handlers = append(handlers, NewBufferHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// isStdoutAvailable reports whether stdout goes somewhere other than /dev/null.
func isStdoutAvailable() bool {
	f, ok := output.(*os.File)
	if !ok {
		return output != nil
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&os.ModeCharDevice != 0 || mode&os.ModeNamedPipe != 0 || mode&os.ModeSocket != 0 || mode.IsRegular()
}

// ParseLevel converts a level name to slog.Level.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

func levelOr(level string, fallback slog.Level) slog.Level {
	if l, ok := ParseLevel(level); ok {
		return l
	}
	return fallback
}
