package reporting

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradekit/nbgrade/internal/rubric"
)

func TestNewEnvelope(t *testing.T) {
	report := &rubric.GradeReport{Results: []rubric.RuleResult{}}
	a := NewEnvelope("a.ipynb", "climate-eda", report)
	b := NewEnvelope("a.ipynb", "climate-eda", report)

	_, err := uuid.Parse(a.RunID)
	require.NoError(t, err)
	require.NotEqual(t, a.RunID, b.RunID)
	require.False(t, a.Timestamp.IsZero())
	require.Same(t, report, a.Report)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"text", FormatText},
		{"JSON", FormatJSON},
		{"junit", FormatJUnit},
		{"markdown", FormatMarkdown},
		{"html", FormatHTML},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFormat("yaml")
	require.ErrorContains(t, err, `unknown output format "yaml"`)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, newTestEnvelope(), FormatText, Options{}))

	out := buf.String()
	assert.Contains(t, out, "Notebook:  climate_eda.ipynb\n")
	assert.Contains(t, out, "DataFrame: df\n")
	assert.Contains(t, out, "  ✓ required_libraries\n")
	assert.Contains(t, out, "  ✗ data_loading                Data file not loaded correctly\n")
	assert.Contains(t, out, "\nFinal Grade: 50/100\n")
	assert.Contains(t, out, "Needs Work (50-70%). 2 of 4 rules passed\n")
	assert.Contains(t, out, "Rules run: 4, passed: 2, failed: 2\n")
	assert.NotContains(t, out, "\x1b[")
}

func TestWriteText_Color(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, newTestEnvelope(), Options{Color: true}))
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "Final Grade: 50/100")
}

func TestWriteText_EmptyReport(t *testing.T) {
	env := &Envelope{Notebook: "empty.ipynb", Rubric: "none", Report: &rubric.GradeReport{Results: []rubric.RuleResult{}}}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, env, Options{}))
	assert.Contains(t, buf.String(), "Final Grade: 0/100")
	assert.Contains(t, buf.String(), "No rules were run")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, newTestEnvelope(), FormatJSON, Options{}))

	var decoded struct {
		RunID  string `json:"run_id"`
		Report struct {
			Results []struct {
				RuleID  string `json:"rule_id"`
				Passed  bool   `json:"passed"`
				Message string `json:"message"`
			} `json:"results"`
			TotalRules   int `json:"total_rules"`
			PassedRules  int `json:"passed_rules"`
			ScorePercent int `json:"score_percent"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 50, decoded.Report.ScorePercent)
	assert.Equal(t, 4, decoded.Report.TotalRules)
	require.Len(t, decoded.Report.Results, 4)
	assert.Equal(t, "data_loading", decoded.Report.Results[1].RuleID)
	assert.Equal(t, "Data file not loaded correctly", decoded.Report.Results[1].Message)
}

func TestFormatMarkdownReport(t *testing.T) {
	env := newTestEnvelope()
	env.Report.Results[1].Message = "a | b"

	md := FormatMarkdownReport(env)
	assert.True(t, strings.HasPrefix(md, "## ❌ Notebook Grade: climate_eda.ipynb\n"))
	assert.Contains(t, md, "**Final Grade:** 50/100 | **Passed:** 2/4 | **Rubric:** climate-eda")
	assert.Contains(t, md, "| required_libraries | ✅ |  |\n")
	assert.Contains(t, md, `| data_loading | ❌ | a \| b |`)
	assert.Contains(t, md, "### Failed Rules")
	assert.Contains(t, md, "- **climate_variables_analyzed**: Climate variables not analyzed: Sea Level Rise (mm)")
}

func TestFormatMarkdownReport_AllPassed(t *testing.T) {
	env := newTestEnvelope()
	env.Report = &rubric.GradeReport{
		Results:      []rubric.RuleResult{{RuleID: "data_loading", Passed: true}},
		TotalRules:   1,
		PassedRules:  1,
		ScorePercent: 100,
	}

	md := FormatMarkdownReport(env)
	assert.Contains(t, md, "## ✅ Notebook Grade")
	assert.NotContains(t, md, "Failed Rules")
}

func TestWriteHTML(t *testing.T) {
	env := newTestEnvelope()
	env.Notebook = "<script>.ipynb"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, env, FormatHTML, Options{}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Grade: &lt;script&gt;.ipynb</title>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<h3>Failed Rules</h3>")
	assert.NotContains(t, out, "<script>")
}

func TestWrite_Errors(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Write(&buf, nil, FormatText, Options{}))
	require.Error(t, Write(&buf, &Envelope{}, FormatText, Options{}))
	require.ErrorContains(t, Write(&buf, newTestEnvelope(), Format("pdf"), Options{}), "unknown output format")
}
