package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"golang.org/x/sync/errgroup"

	"github.com/smazurov/supervisor/cmd"
	"github.com/smazurov/supervisor/internal/api"
	"github.com/smazurov/supervisor/internal/config"
	"github.com/smazurov/supervisor/internal/events"
	"github.com/smazurov/supervisor/internal/logging"
	"github.com/smazurov/supervisor/internal/metrics"
	"github.com/smazurov/supervisor/internal/version"
	"github.com/smazurov/supervisor/pkg/supervisor"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"supervisor.toml"`

	// Server settings
	Port       string `help:"Address to listen on" short:"p" default:":8095" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigin string `help:"Allowed CORS origin" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`
	Watch      bool   `help:"Reload process definitions when the configuration file changes" default:"true" toml:"server.watch" env:"SERVER_WATCH"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSupervisor string `help:"Supervisor logging level" default:"" toml:"logging.modules.supervisor" env:"LOGGING_SUPERVISOR"`
	LoggingProcess    string `help:"Process output logging level" default:"" toml:"logging.modules.process" env:"LOGGING_PROCESS"`
	LoggingAPI        string `help:"API logging level" default:"" toml:"logging.modules.api" env:"LOGGING_API"`
}

func (o *Options) loggingConfig() logging.Config {
	modules := make(map[string]string)
	for module, level := range map[string]string{
		"supervisor": o.LoggingSupervisor,
		"process":    o.LoggingProcess,
		"api":        o.LoggingAPI,
		"http":       o.LoggingAPI,
	} {
		if level != "" {
			modules[module] = level
		}
	}
	return logging.Config{
		Level:   o.LoggingLevel,
		Format:  o.LoggingFormat,
		Modules: modules,
	}
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadOptions(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		hooks.OnStart(func() {
			defer close(done)
			if err := run(ctx, opts, logger); err != nil {
				logger.Error("Supervisor exited with error", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			cancel()
			<-done
		})
	})

	cli.Root().Use = "supervisor"
	cli.Root().Version = version.String()
	cli.Root().AddCommand(cmd.CreateCheckCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}

// run supervises the processes of the configuration file and serves the
// API until ctx is canceled.
func run(ctx context.Context, opts *Options, logger *slog.Logger) error {
	file, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	cfg, err := file.SupervisorOptions()
	if err != nil {
		return err
	}

	eventBus := events.New()
	logging.SetLogCallback(func(entry logging.LogEntry) {
		eventBus.Publish(api.LogEvent(entry))
	})
	defer logging.SetLogCallback(nil)

	publish := events.StateListener(eventBus, cfg)
	sup, err := supervisor.New(cfg,
		supervisor.WithLogger(logging.GetLogger("supervisor")),
		supervisor.WithStateListener(func(name string, oldState, newState supervisor.State, err error) {
			metrics.Observe(name, oldState, newState, err)
			publish(name, oldState, newState, err)
		}),
		supervisor.WithRemoveListener(metrics.DeleteProcess),
	)
	if err != nil {
		return err
	}
	if err := config.Apply(sup, file); err != nil {
		return err
	}

	logger.Info("Starting supervision",
		"processes", len(file.Processes),
		"strategy", cfg.Strategy,
		"max_restarts", cfg.MaxRestarts,
		"max_time", cfg.MaxTime,
		"budget_scope", cfg.BudgetScope)
	sup.StartMonitoring()

	server := api.NewServer(&api.Options{
		AuthUsername:      opts.AuthUsername,
		AuthPassword:      opts.AuthPassword,
		CORSOrigin:        opts.CORSOrigin,
		Supervisor:        sup,
		EventBus:          eventBus,
		PrometheusHandler: metrics.Handler(),
		ShutdownTimeout:   cfg.ShutdownTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, opts.Port)
	})

	if opts.Watch {
		r := &reloader{
			sup:      sup,
			current:  file,
			eventBus: eventBus,
			logger:   logging.GetLogger("config"),
		}
		watcher := config.NewWatcher(opts.Config, config.Load, r.logger)
		watcher.OnReload(r.apply)
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	// Every handle gets ShutdownTimeout, plus slack for the decision loop.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout+time.Second)
	defer cancel()
	if err := sup.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to stop all processes", "error", err)
		return errors.Join(runErr, err)
	}
	logger.Info("All processes stopped")
	return runErr
}

// reloader applies configuration file changes to a running supervisor.
// Reload handlers run on the watcher goroutine, one at a time.
type reloader struct {
	sup      *supervisor.Supervisor
	current  *config.File
	eventBus *events.Bus
	logger   *slog.Logger
}

func (r *reloader) apply(updated *config.File) {
	oldCfg, _ := r.current.SupervisorOptions()
	if newCfg, _ := updated.SupervisorOptions(); newCfg != oldCfg {
		r.logger.Warn("Supervisor settings changed, restart to apply them")
	}
	if updated.Logging.Level != "" {
		logging.SetLevels(updated.Logging)
	}

	changes, err := config.Reconcile(r.sup, r.current, updated)
	r.current = updated

	ev := events.ConfigReloadedEvent{
		Added:     changes.Added,
		Removed:   changes.Removed,
		Changed:   changes.Changed,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		ev.Error = err.Error()
		r.logger.Error("Failed to apply configuration", "error", err)
	} else if !changes.Empty() {
		r.logger.Info("Configuration applied",
			"added", changes.Added,
			"removed", changes.Removed,
			"changed", changes.Changed)
	}
	r.eventBus.Publish(ev)
}
