// Package process runs external commands as supervised workers.
//
// Command implements supervisor.Factory: every Spawn starts a new
// subprocess in its own process group and returns a *Process, which
// implements supervisor.Handle.
//   - Terminate sends SIGINT to the group and SIGKILL after GracefulTimeout
//   - stdout and stderr are logged line by line, optionally through a LogParser
//   - a non-zero exit status is reported as the handle's Err
//
// Example:
//
//	cmd := &process.Command{
//	    Name:      "db",
//	    Command:   `sh -c "exec postgres -D /var/lib/pg"`,
//	    Logger:    logging.GetLogger("process"),
//	    LogParser: process.LevelPrefixParser,
//	}
//	_ = sup.AddProcess("db", cmd)
package process
