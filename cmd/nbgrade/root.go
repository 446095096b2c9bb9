package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nbgrade",
		Short: "nbgrade - rubric-based grading for Jupyter notebooks",
		Long: `nbgrade grades Jupyter notebooks against a rubric of pattern rules.

It optionally executes the notebook, extracts the source of its code and
markdown cells, evaluates every rule and reports a percentage grade. The
built-in rubric covers the climate change indicators EDA assignment.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newGradeCommand())
	cmd.AddCommand(newRulesCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newCacheCommand())

	return cmd
}

func execute(ctx context.Context) error {
	rootCmd := newRootCommand()
	return rootCmd.ExecuteContext(ctx)
}
