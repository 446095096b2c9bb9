package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gradekit/nbgrade/internal/projectconfig"
	"github.com/gradekit/nbgrade/internal/rubricfile"
)

// rubricFileName is the rubric written by init and referenced from the
// generated config.
const rubricFileName = "rubric.yaml"

func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Set up a grading project",
		Long: `Set up a grading project.

Writes .nbgrade.yaml with the default settings and rubric.yaml holding the
built-in climate EDA rubric, ready to be edited. Existing files are left
alone unless --force is given.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func initCommandE(cmd *cobra.Command, args []string, force bool) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	cfg := projectconfig.New()
	cfg.Rubric = rubricFileName

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal %s: %w", projectconfig.FileName, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal %s: %w", projectconfig.FileName, err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{projectconfig.FileName, buf.Bytes()},
		{rubricFileName, rubricfile.ClimateEDABytes()},
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Initialized grading project:") //nolint:errcheck

	for _, f := range files {
		path := filepath.Join(dir, f.name)

		written, err := writeFileIfAbsent(path, f.data, force)
		if err != nil {
			return err
		}
		if written {
			fmt.Fprintf(out, "  created  %s\n", path) //nolint:errcheck
		} else {
			fmt.Fprintf(out, "  exists   %s (use --force to overwrite)\n", path) //nolint:errcheck
		}
	}
	return nil
}

func writeFileIfAbsent(path string, data []byte, force bool) (bool, error) {
	if !force {
		_, err := os.Stat(path)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("checking %s: %w", path, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
