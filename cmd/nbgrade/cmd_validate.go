package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gradekit/nbgrade/internal/rubricfile"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rubric.yaml>",
		Short: "Check a rubric file",
		Long: `Check a rubric file against the rubric schema and build every rule.

Every problem is listed: schema violations, duplicate rule ids, unknown check
parameters and patterns that do not compile.`,
		Args: cobra.ExactArgs(1),
		RunE: validateCommandE,
	}
}

func validateCommandE(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading rubric: %w", err)
	}

	problems := rubricfile.Validate(data)
	if len(problems) > 0 {
		fmt.Fprintf(out, "✗ %s\n", path) //nolint:errcheck
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p) //nolint:errcheck
		}
		return fmt.Errorf("rubric %s has %d problem(s)", path, len(problems))
	}

	f, err := rubricfile.Parse(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ %s: rubric %q with %d rules\n", path, f.Name, len(f.Rules)) //nolint:errcheck
	return nil
}
