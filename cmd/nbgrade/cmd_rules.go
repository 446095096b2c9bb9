package main

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/gradekit/nbgrade/internal/projectconfig"
	"github.com/gradekit/nbgrade/internal/rubric"
	"github.com/gradekit/nbgrade/internal/rubricfile"
)

// builtInRubricName names the rubric used when no rubric file is given.
const builtInRubricName = "climate-eda"

// loadRubric returns the rules of the rubric file at path, or the built-in
// climate EDA rubric when path is empty.
func loadRubric(path string) (string, []rubric.Rule, error) {
	if path == "" {
		return builtInRubricName, rubric.ClimateEDA(), nil
	}

	f, err := rubricfile.Load(path)
	if err != nil {
		return "", nil, err
	}
	rules, err := f.BuildRules()
	if err != nil {
		return "", nil, fmt.Errorf("building rubric %s: %w", path, err)
	}
	return f.Name, rules, nil
}

func newRulesCommand() *cobra.Command {
	var rubricPath string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rules of a rubric",
		Long: `List the id and description of every rule in a rubric, in evaluation order.

Without --rubric the rubric named in .nbgrade.yaml is listed, falling back to
the built-in climate EDA rubric.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rubricPath
			if !cmd.Flags().Changed("rubric") {
				cfg, err := projectconfig.Load(".")
				if err != nil {
					return err
				}
				path = cfg.Resolve(cfg.Rubric)
			}

			name, rules, err := loadRubric(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rubric: %s (%d rules)\n\n", name, len(rules)) //nolint:errcheck

			width := 0
			for _, r := range rules {
				width = max(width, runewidth.StringWidth(r.ID))
			}
			for i, r := range rules {
				fmt.Fprintf(out, "%2d. %s  %s\n", i+1, padRight(r.ID, width), r.Description) //nolint:errcheck
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rubricPath, "rubric", "r", "", "Rubric file (default: built-in climate EDA rubric)")

	return cmd
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
