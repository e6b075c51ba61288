package events

import (
	"errors"
	"time"

	"github.com/smazurov/supervisor/pkg/supervisor"
)

// StateListener returns a supervisor.StateListener that publishes every
// transition on bus, plus a BudgetExhaustedEvent when a process is stopped
// for exceeding its restart budget.
func StateListener(bus *Bus, cfg supervisor.Config) supervisor.StateListener {
	return func(name string, oldState, newState supervisor.State, err error) {
		ts := time.Now().UTC().Format(time.RFC3339)
		ev := ProcessStateChangedEvent{
			Process:   name,
			From:      string(oldState),
			To:        string(newState),
			Timestamp: ts,
		}
		if err != nil {
			ev.Error = err.Error()
		}
		bus.Publish(ev)

		if newState == supervisor.StateStopped && errors.Is(err, supervisor.ErrRestartBudgetExhausted) {
			bus.Publish(BudgetExhaustedEvent{
				Process:     name,
				MaxRestarts: cfg.MaxRestarts,
				MaxTime:     cfg.MaxTime.String(),
				Timestamp:   ts,
			})
		}
	}
}
