package supervisor

import (
	"fmt"
	"time"
)

// State represents the supervision state of a process.
type State string

// Process states.
const (
	StateRunning    State = "running"    // Live and monitored
	StateFailed     State = "failed"     // Terminated, restart decision pending
	StateRestarting State = "restarting" // Respawn dispatched
	StateStopped    State = "stopped"    // Terminal, never restarted
)

// Strategy selects which processes are restarted when one fails.
type Strategy string

// Restart strategies.
const (
	OneForOne  Strategy = "one_for_one"
	OneForAll  Strategy = "one_for_all"
	RestForOne Strategy = "rest_for_one"
)

// ParseStrategy converts a strategy name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case OneForOne, OneForAll, RestForOne:
		return st, nil
	default:
		return "", fmt.Errorf("unknown restart strategy %q", s)
	}
}

// RestartPolicy determines whether a terminated process counts as failed.
type RestartPolicy string

// Restart policies.
const (
	// Permanent processes are restarted after any termination.
	Permanent RestartPolicy = "permanent"
	// Transient processes are restarted only after an abnormal termination.
	Transient RestartPolicy = "transient"
	// Temporary processes are never restarted.
	Temporary RestartPolicy = "temporary"
)

// ParseRestartPolicy converts a policy name to a RestartPolicy.
// An empty string yields Permanent.
func ParseRestartPolicy(s string) (RestartPolicy, error) {
	switch p := RestartPolicy(s); p {
	case "":
		return Permanent, nil
	case Permanent, Transient, Temporary:
		return p, nil
	default:
		return "", fmt.Errorf("unknown restart policy %q", s)
	}
}

// BudgetScope selects what a restart budget is counted against.
type BudgetScope string

// Budget scopes.
const (
	// ScopeProcess gives every process its own restart budget.
	ScopeProcess BudgetScope = "process"
	// ScopeSupervisor shares a single budget between all processes. A
	// failure and the restarts it cascades to count as one restart of the
	// supervisor, and once that budget is exceeded every process in the
	// cascade is over it, so all of them move to StateStopped.
	ScopeSupervisor BudgetScope = "supervisor"
)

// ParseBudgetScope converts a scope name to a BudgetScope.
// An empty string yields ScopeProcess.
func ParseBudgetScope(s string) (BudgetScope, error) {
	switch b := BudgetScope(s); b {
	case "":
		return ScopeProcess, nil
	case ScopeProcess, ScopeSupervisor:
		return b, nil
	default:
		return "", fmt.Errorf("unknown budget scope %q", s)
	}
}

// Info is a point-in-time snapshot of a supervised process.
type Info struct {
	Name           string
	State          State
	Policy         RestartPolicy
	Dependencies   []string
	Restarts       int // restarts dispatched since registration
	RecentRestarts int // restarts inside the current budget window
	Incarnation    uint64
	InstanceID     string
	StartedAt      time.Time
	LastError      error
}
