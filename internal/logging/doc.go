// Package logging provides structured logging with per-module levels.
//
// # Output
//
// Records are routed automatically:
//   - stdout when a terminal, pipe or file is connected
//   - the systemd journal when journald is reachable
//   - an in-memory ring buffer, served by the HTTP API
//
// # Usage
//
// Initialize once at startup, then ask for loggers by module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text", // or json
//		Modules: map[string]string{
//			"supervisor": "debug",
//			"api":        "warn",
//		},
//	})
//
//	logger := logging.GetLogger("process").With("process", name)
//	logger.Info("Process started", "pid", pid)
//
// Loggers obtained before Initialize are cached and pick up the configured
// levels afterwards. SetLevels changes levels at runtime, for example after
// the configuration file was reloaded.
//
// # Journal
//
// Entries are tagged with SYSLOG_IDENTIFIER=supervisor and every attribute
// becomes an upper-case field:
//
//	journalctl -t supervisor -f
//	journalctl -t supervisor MODULE=supervisor PROCESS=db
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	supervisor = "debug"
//	api = "warn"
package logging
