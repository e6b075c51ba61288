package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smazurov/supervisor/internal/config"
	"github.com/smazurov/supervisor/pkg/supervisor"
)

// CreateCheckCmd creates the check command, which validates a
// configuration file without starting anything.
func CreateCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [config-file]",
		Short: "Validate a configuration file",
		Long: `Parses the configuration file, validates supervisor settings and process definitions, ` +
			`and registers the processes and dependencies with an idle supervisor to detect cycles. Nothing is spawned.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return Check(cmd.OutOrStdout(), configPath(cmd, args))
		},
	}
}

// configPath prefers the argument, then the root --config flag.
func configPath(cmd *cobra.Command, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	return "supervisor.toml"
}

// Check validates the file at path and writes a summary to w.
func Check(w io.Writer, path string) error {
	file, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg, err := file.SupervisorOptions()
	if err != nil {
		return err
	}

	sup, err := supervisor.New(cfg, supervisor.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		return err
	}
	if err := config.Apply(sup, file); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: OK\n", path)
	fmt.Fprintf(w, "strategy=%s max_restarts=%d max_time=%s budget_scope=%s\n",
		cfg.Strategy, cfg.MaxRestarts, cfg.MaxTime, cfg.BudgetScope)
	for _, info := range sup.Processes() {
		line := fmt.Sprintf("  %s (%s)", info.Name, info.Policy)
		if len(info.Dependencies) > 0 {
			line += " depends on " + strings.Join(info.Dependencies, ", ")
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
