package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/smazurov/supervisor/pkg/supervisor"
)

func TestObserveCounters(t *testing.T) {
	const name = "observe-counters"
	DeleteProcess(name)
	t.Cleanup(func() { DeleteProcess(name) })

	Observe(name, supervisor.StateRunning, supervisor.StateFailed, nil)
	Observe(name, supervisor.StateFailed, supervisor.StateRestarting, nil)
	Observe(name, supervisor.StateRestarting, supervisor.StateRunning, nil)
	Observe(name, supervisor.StateRunning, supervisor.StateFailed, nil)
	Observe(name, supervisor.StateFailed, supervisor.StateStopped, supervisor.ErrRestartBudgetExhausted)

	if got := testutil.ToFloat64(failuresTotal.WithLabelValues(name)); got != 2 {
		t.Errorf("failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(restartsTotal.WithLabelValues(name)); got != 1 {
		t.Errorf("restarts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(budgetExhaustedTotal.WithLabelValues(name)); got != 1 {
		t.Errorf("budget exhausted = %v, want 1", got)
	}
}

func TestStoppedWithoutBudgetError(t *testing.T) {
	const name = "plain-stop"
	DeleteProcess(name)
	t.Cleanup(func() { DeleteProcess(name) })

	Observe(name, supervisor.StateRunning, supervisor.StateStopped, nil)

	if got := testutil.ToFloat64(budgetExhaustedTotal.WithLabelValues(name)); got != 0 {
		t.Errorf("budget exhausted = %v, want 0", got)
	}
}

func TestStateGauge(t *testing.T) {
	const name = "state-gauge"
	DeleteProcess(name)
	t.Cleanup(func() { DeleteProcess(name) })

	SetState(name, supervisor.StateRunning)
	SetState(name, supervisor.StateFailed)

	tests := []struct {
		state supervisor.State
		want  float64
	}{
		{supervisor.StateRunning, 0},
		{supervisor.StateFailed, 1},
		{supervisor.StateRestarting, 0},
		{supervisor.StateStopped, 0},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(processState.WithLabelValues(name, string(tt.state)))
		if got != tt.want {
			t.Errorf("state %s = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestDeleteProcess(t *testing.T) {
	const name = "deleted"
	Observe(name, supervisor.StateRunning, supervisor.StateFailed, nil)
	DeleteProcess(name)

	if body := scrape(t); strings.Contains(body, `process="deleted"`) {
		t.Errorf("series for %s still exported", name)
	}
}

func TestRemovedProcessSeriesStayDeleted(t *testing.T) {
	const name = "removed-late"
	sup, err := supervisor.New(supervisor.DefaultConfig(),
		supervisor.WithStateListener(Observe),
		supervisor.WithRemoveListener(DeleteProcess))
	if err != nil {
		t.Fatal(err)
	}
	worker := supervisor.Func(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	if err := sup.AddProcess(name, worker); err != nil {
		t.Fatal(err)
	}
	sup.StartMonitoring()
	if err := sup.RemoveProcess(name); err != nil {
		t.Fatal(err)
	}

	// Shutdown delivers every queued transition before returning.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}

	if body := scrape(t); strings.Contains(body, `process="removed-late"`) {
		t.Errorf("series for %s re-created after removal", name)
	}
}

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestHandlerExposesMetrics(t *testing.T) {
	const name = "exposed"
	t.Cleanup(func() { DeleteProcess(name) })
	Observe(name, supervisor.StateRunning, supervisor.StateFailed, nil)

	body := scrape(t)
	for _, want := range []string{
		`supervisor_failures_total{process="exposed"} 1`,
		`supervisor_process_state{process="exposed",state="failed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
