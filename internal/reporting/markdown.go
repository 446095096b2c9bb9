package reporting

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// FormatMarkdownReport formats a grade as a Markdown document suitable for a
// pull request comment or a job summary.
func FormatMarkdownReport(env *Envelope) string {
	var b strings.Builder
	report := env.Report

	statusIcon := "✅"
	if report.FailedRules() > 0 {
		statusIcon = "❌"
	}

	fmt.Fprintf(&b, "## %s Notebook Grade: %s\n\n", statusIcon, env.Notebook)
	fmt.Fprintf(&b, "**Final Grade:** %d/100 | **Passed:** %d/%d | **Rubric:** %s\n\n",
		report.ScorePercent, report.PassedRules, report.TotalRules, env.Rubric)

	if env.DataFrame != "" {
		fmt.Fprintf(&b, "- **DataFrame:** `%s`\n", env.DataFrame)
	}
	fmt.Fprintf(&b, "- **Assessment:** %s\n", InterpretScore(report.ScorePercent))
	fmt.Fprintf(&b, "- **Run:** `%s`\n\n", env.RunID)

	if len(report.Results) == 0 {
		b.WriteString("_No rules were run._\n")
		return b.String()
	}

	b.WriteString("### Rule Results\n\n")
	b.WriteString("| Rule | Status | Message |\n")
	b.WriteString("|------|--------|---------|\n")
	for _, r := range report.Results {
		icon := "✅"
		if !r.Passed {
			icon = "❌"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", r.RuleID, icon, escapeTableCell(r.Message))
	}
	b.WriteString("\n")

	if failures := report.Failures(); len(failures) > 0 {
		b.WriteString("### Failed Rules\n\n")
		for _, r := range failures {
			fmt.Fprintf(&b, "- **%s**: %s\n", r.RuleID, r.Message)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func escapeTableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// WriteHTML renders the Markdown report as a standalone HTML page.
func WriteHTML(w io.Writer, env *Envelope) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(FormatMarkdownReport(env)), &body); err != nil {
		return fmt.Errorf("rendering HTML report: %w", err)
	}

	title := html.EscapeString("Grade: " + env.Notebook)
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`, title, body.String())
	return err
}
