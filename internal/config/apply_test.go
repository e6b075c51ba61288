package config

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/smazurov/supervisor/pkg/supervisor"
)

func newSupervisor(t *testing.T) *supervisor.Supervisor {
	t.Helper()
	sup, err := supervisor.New(supervisor.DefaultConfig(),
		supervisor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Shutdown(ctx)
	})
	return sup
}

func mustParse(t *testing.T, content string) *File {
	t.Helper()
	f, err := Parse([]byte(content), false)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return f
}

func TestApply(t *testing.T) {
	sup := newSupervisor(t)
	f := mustParse(t, `
[[process]]
name = "api"
command = "sleep 60"
depends_on = ["db"]

[[process]]
name = "db"
command = "sleep 60"
restart = "temporary"
`)

	if err := Apply(sup, f); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if deps := sup.Dependencies("api"); !slices.Equal(deps, []string{"db"}) {
		t.Errorf("Dependencies(api) = %v", deps)
	}
	info, ok := sup.Info("db")
	if !ok || info.Policy != supervisor.Temporary {
		t.Errorf("Info(db) = %+v", info)
	}
}

func TestReconcile(t *testing.T) {
	sup := newSupervisor(t)
	old := mustParse(t, `
[[process]]
name = "db"
command = "sleep 60"

[[process]]
name = "api"
command = "sleep 60"
depends_on = ["db"]

[[process]]
name = "cron"
command = "sleep 60"
`)
	if err := Apply(sup, old); err != nil {
		t.Fatal(err)
	}

	updated := mustParse(t, `
[[process]]
name = "db"
command = "sleep 61"

[[process]]
name = "api"
command = "sleep 60"
depends_on = ["db"]

[[process]]
name = "cache"
command = "sleep 60"
`)
	c, err := Reconcile(sup, old, updated)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !slices.Equal(c.Added, []string{"cache"}) || !slices.Equal(c.Removed, []string{"cron"}) || !slices.Equal(c.Changed, []string{"db"}) {
		t.Errorf("changes = %+v", c)
	}

	if _, ok := sup.ProcessState("cron"); ok {
		t.Error("cron still registered")
	}
	if _, ok := sup.ProcessState("cache"); !ok {
		t.Error("cache not registered")
	}
	if deps := sup.Dependencies("api"); !slices.Equal(deps, []string{"db"}) {
		t.Errorf("api lost its dependency on the replaced db: %v", deps)
	}
}
