// Package supervisor provides Erlang/OTP style supervision for in-process workers.
//
// A Supervisor owns a set of named processes. Each process is created by a
// Factory, which produces a live Handle every time it is called. The
// supervisor watches every handle and, when one terminates, decides which
// processes to restart according to the configured Strategy:
//   - OneForOne: only the failed process is restarted
//   - OneForAll: every process that is not stopped is restarted
//   - RestForOne: the failed process and everything that transitively
//     depends on it, dependencies strictly before their dependents
//
// Restarts are limited by a sliding-window budget: at most MaxRestarts
// restarts within MaxTime. A process whose budget is exhausted moves to
// StateStopped and is never restarted again; the rest of the supervisor
// keeps running.
//
// Processes registered before StartMonitoring are spawned by
// StartMonitoring in dependency order. Processes registered afterwards are
// spawned synchronously by AddProcess.
//
// Example:
//
//	sup, err := supervisor.New(supervisor.Config{
//	    MaxRestarts: 3,
//	    MaxTime:     5 * time.Second,
//	    Strategy:    supervisor.RestForOne,
//	})
//	if err != nil {
//	    return err
//	}
//	_ = sup.AddProcess("db", supervisor.Func(runDB))
//	_ = sup.AddProcess("api", supervisor.Func(runAPI))
//	_ = sup.AddDependency("api", "db")
//	sup.StartMonitoring()
//	defer sup.Shutdown(context.Background())
//
// All methods are safe for concurrent use.
package supervisor
