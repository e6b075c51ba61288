package events

// Event type identifiers for kelindar/event.
const (
	TypeProcessStateChanged uint32 = iota + 1
	TypeBudgetExhausted
	TypeConfigReloaded
	TypeLogEntry
)

// Event is implemented by everything published on the bus.
type Event interface {
	Type() uint32
}

// ProcessStateChangedEvent is published for every supervision state transition.
type ProcessStateChangedEvent struct {
	Process   string `json:"process" example:"db" doc:"Process name"`
	From      string `json:"from" example:"running" doc:"Previous state"`
	To        string `json:"to" example:"failed" doc:"New state"`
	Error     string `json:"error,omitempty" example:"exit status 1" doc:"Cause of the transition, if any"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Transition time"`
}

// Type implements Event.
func (e ProcessStateChangedEvent) Type() uint32 { return TypeProcessStateChanged }

// BudgetExhaustedEvent is published when a process is stopped because it
// exceeded its restart budget.
type BudgetExhaustedEvent struct {
	Process     string `json:"process" example:"db" doc:"Process name"`
	MaxRestarts int    `json:"max_restarts" example:"3" doc:"Restarts allowed within the window"`
	MaxTime     string `json:"max_time" example:"5s" doc:"Length of the restart window"`
	Timestamp   string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Time the process was stopped"`
}

// Type implements Event.
func (e BudgetExhaustedEvent) Type() uint32 { return TypeBudgetExhausted }

// ConfigReloadedEvent is published after the process file was reloaded and applied.
type ConfigReloadedEvent struct {
	Added     []string `json:"added" doc:"Processes added"`
	Removed   []string `json:"removed" doc:"Processes removed"`
	Changed   []string `json:"changed" doc:"Processes replaced with a new definition"`
	Error     string   `json:"error,omitempty" doc:"Error applying the new configuration"`
	Timestamp string   `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Reload time"`
}

// Type implements Event.
func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }

// LogEntryEvent carries a log record for streaming clients.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Log time"`
	Level      string         `json:"level" example:"warn" doc:"Log level"`
	Module     string         `json:"module" example:"supervisor" doc:"Logging module"`
	Message    string         `json:"message" example:"Process failed" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// Type implements Event.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
