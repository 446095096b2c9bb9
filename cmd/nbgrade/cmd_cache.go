package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gradekit/nbgrade/internal/cache"
	"github.com/gradekit/nbgrade/internal/projectconfig"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the executed notebook cache",
		Long: `Manage the executed notebook cache.

The cache stores executed notebooks so regrading an unchanged submission does
not run it again. Entries are keyed by the notebook contents, the kernel and
the execution timeout.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the executed notebook cache",
		Long: `Remove every cached executed notebook.

The next graded run executes its notebook from scratch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cacheDir
			if !cmd.Flags().Changed("cache-dir") {
				cfg, err := projectconfig.Load(".")
				if err != nil {
					return err
				}
				dir = cfg.Resolve(cfg.Cache.Dir)
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving cache directory: %w", err)
			}

			c := cache.New(absDir)
			if err := c.Clear(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir) //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", projectconfig.DefaultCacheDir, "Cache directory to clear")

	return cmd
}
