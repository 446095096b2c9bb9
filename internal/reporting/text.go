package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

type palette struct {
	pass, fail, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		pass: color.New(color.FgGreen),
		fail: color.New(color.FgRed),
		bold: color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.pass, p.fail, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// WriteText writes the console form of a grade: one line per rule, the final
// grade and the run totals.
func WriteText(w io.Writer, env *Envelope, opts Options) error {
	p := newPalette(opts.Color)
	report := env.Report

	var b strings.Builder

	fmt.Fprintf(&b, "Notebook:  %s\n", env.Notebook)
	fmt.Fprintf(&b, "Rubric:    %s\n", env.Rubric)
	if env.DataFrame != "" {
		fmt.Fprintf(&b, "DataFrame: %s\n", env.DataFrame)
	}
	b.WriteString("\n")

	width := 0
	for _, r := range report.Results {
		width = max(width, runewidth.StringWidth(r.RuleID))
	}

	for _, r := range report.Results {
		if r.Passed {
			fmt.Fprintf(&b, "  %s %s\n", p.pass.Sprint("✓"), r.RuleID)
			continue
		}
		fmt.Fprintf(&b, "  %s %s  %s\n", p.fail.Sprint("✗"), padRight(r.RuleID, width), r.Message)
	}

	fmt.Fprintf(&b, "\n%s\n", p.bold.Sprintf("Final Grade: %d/100", report.ScorePercent))
	fmt.Fprintf(&b, "%s. %s\n", InterpretScore(report.ScorePercent), InterpretPassed(report.PassedRules, report.TotalRules))
	fmt.Fprintf(&b, "Rules run: %d, passed: %d, failed: %d\n", report.TotalRules, report.PassedRules, report.FailedRules())

	_, err := io.WriteString(w, b.String())
	return err
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
