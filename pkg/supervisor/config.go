package supervisor

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultMaxRestarts     = 3
	DefaultMaxTime         = 5 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Config holds the supervisor settings. It is immutable once New returns.
type Config struct {
	// MaxRestarts is the number of restarts allowed within MaxTime.
	MaxRestarts int
	// MaxTime is the length of the sliding restart window. Must be > 0.
	MaxTime time.Duration
	// Strategy selects the restart cascade. Empty means OneForOne.
	Strategy Strategy
	// BudgetScope selects what restarts are counted against. Empty means ScopeProcess.
	BudgetScope BudgetScope
	// ShutdownTimeout bounds how long a terminated worker is waited for.
	// Zero means DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with the default budget and OneForOne.
func DefaultConfig() Config {
	return Config{
		MaxRestarts:     DefaultMaxRestarts,
		MaxTime:         DefaultMaxTime,
		Strategy:        OneForOne,
		BudgetScope:     ScopeProcess,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// withDefaults fills zero-valued optional fields.
func (c Config) withDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = OneForOne
	}
	if c.BudgetScope == "" {
		c.BudgetScope = ScopeProcess
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	return c
}

// Validate reports the first invalid field as an ErrInvalidConfig error.
func (c Config) Validate() error {
	if c.MaxRestarts < 0 {
		return newError(ErrCodeInvalidConfig, "", fmt.Sprintf("max_restarts must be >= 0, got %d", c.MaxRestarts), nil)
	}
	if c.MaxTime <= 0 {
		return newError(ErrCodeInvalidConfig, "", fmt.Sprintf("max_time must be > 0, got %s", c.MaxTime), nil)
	}
	if c.ShutdownTimeout < 0 {
		return newError(ErrCodeInvalidConfig, "", fmt.Sprintf("shutdown_timeout must be >= 0, got %s", c.ShutdownTimeout), nil)
	}
	if c.Strategy != "" {
		if _, err := ParseStrategy(string(c.Strategy)); err != nil {
			return newError(ErrCodeInvalidConfig, "", "invalid strategy", err)
		}
	}
	if c.BudgetScope != "" {
		if _, err := ParseBudgetScope(string(c.BudgetScope)); err != nil {
			return newError(ErrCodeInvalidConfig, "", "invalid budget scope", err)
		}
	}
	return nil
}
