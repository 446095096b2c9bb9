// Package reporting renders grade reports as text, JSON, JUnit XML, Markdown
// and HTML.
package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gradekit/nbgrade/internal/rubric"
)

// Envelope wraps a GradeReport with the metadata of the run that produced it.
type Envelope struct {
	RunID     string              `json:"run_id"`
	Notebook  string              `json:"notebook"`
	Rubric    string              `json:"rubric"`
	DataFrame string              `json:"dataframe,omitempty"`
	Executed  bool                `json:"executed"`
	Timestamp time.Time           `json:"timestamp"`
	Duration  time.Duration       `json:"duration_ns"`
	Report    *rubric.GradeReport `json:"report"`
}

// NewEnvelope stamps report with a fresh run id and the current time.
func NewEnvelope(notebook, rubricName string, report *rubric.GradeReport) *Envelope {
	return &Envelope{
		RunID:     uuid.NewString(),
		Notebook:  notebook,
		Rubric:    rubricName,
		Timestamp: time.Now().UTC(),
		Report:    report,
	}
}

// Format is an output format name.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatJUnit    Format = "junit"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatJSON, FormatJUnit, FormatMarkdown, FormatHTML}

// ParseFormat resolves a format name. The empty string selects text.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatText, nil
	}
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}

	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return "", fmt.Errorf("unknown output format %q (want one of %s)", s, strings.Join(names, ", "))
}

// Options control rendering.
type Options struct {
	// Color enables ANSI colors in text output.
	Color bool
}

// Write renders env to w in the given format.
func Write(w io.Writer, env *Envelope, format Format, opts Options) error {
	if env == nil || env.Report == nil {
		return fmt.Errorf("no grade report to write")
	}

	switch format {
	case FormatText, "":
		return WriteText(w, env, opts)
	case FormatJSON:
		return WriteJSON(w, env)
	case FormatJUnit:
		return WriteJUnitXML(w, env)
	case FormatMarkdown:
		_, err := io.WriteString(w, FormatMarkdownReport(env))
		return err
	case FormatHTML:
		return WriteHTML(w, env)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteJSON writes env as indented JSON.
func WriteJSON(w io.Writer, env *Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("encoding JSON report: %w", err)
	}
	return nil
}
