// Package metrics provides Prometheus metrics for process supervision.
package metrics

import (
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/supervisor/pkg/supervisor"
)

var (
	restartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "supervisor",
		Name:      "restarts_total",
		Help:      "Respawns dispatched per process",
	}, []string{"process"})

	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "supervisor",
		Name:      "failures_total",
		Help:      "Detected process failures",
	}, []string{"process"})

	budgetExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "supervisor",
		Name:      "budget_exhausted_total",
		Help:      "Times a process was stopped for exceeding its restart budget",
	}, []string{"process"})

	processState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "supervisor",
		Name:      "process_state",
		Help:      "Current supervision state, 1 for the active state",
	}, []string{"process", "state"})

	// Last state seen per process, so the previous gauge can be cleared.
	states   = make(map[string]supervisor.State)
	statesMu sync.Mutex
)

var allStates = []supervisor.State{
	supervisor.StateRunning,
	supervisor.StateFailed,
	supervisor.StateRestarting,
	supervisor.StateStopped,
}

// Observe records a state transition. Its signature matches
// supervisor.StateListener.
func Observe(name string, oldState, newState supervisor.State, err error) {
	switch newState {
	case supervisor.StateFailed:
		failuresTotal.WithLabelValues(name).Inc()
	case supervisor.StateRestarting:
		restartsTotal.WithLabelValues(name).Inc()
	case supervisor.StateStopped:
		if errors.Is(err, supervisor.ErrRestartBudgetExhausted) {
			budgetExhaustedTotal.WithLabelValues(name).Inc()
		}
	}
	SetState(name, newState)
}

// SetState marks state as the current state of a process.
func SetState(name string, state supervisor.State) {
	statesMu.Lock()
	defer statesMu.Unlock()
	if prev, ok := states[name]; ok && prev != state {
		processState.WithLabelValues(name, string(prev)).Set(0)
	} else if !ok {
		for _, s := range allStates {
			processState.WithLabelValues(name, string(s)).Set(0)
		}
	}
	processState.WithLabelValues(name, string(state)).Set(1)
	states[name] = state
}

// DeleteProcess removes every series of a process.
func DeleteProcess(name string) {
	restartsTotal.DeleteLabelValues(name)
	failuresTotal.DeleteLabelValues(name)
	budgetExhaustedTotal.DeleteLabelValues(name)
	for _, s := range allStates {
		processState.DeleteLabelValues(name, string(s))
	}

	statesMu.Lock()
	delete(states, name)
	statesMu.Unlock()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
