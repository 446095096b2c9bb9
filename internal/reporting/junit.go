package reporting

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one graded notebook.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one rubric rule.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
}

// JUnitFailure carries the failure message of a rule.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a graded notebook to JUnit XML form, one test case
// per rule.
func ConvertToJUnit(env *Envelope) *JUnitTestSuites {
	report := env.Report
	failed := report.FailedRules()
	durationSec := env.Duration.Seconds()

	suite := JUnitTestSuite{
		Name:      env.Rubric,
		Tests:     report.TotalRules,
		Failures:  failed,
		Time:      durationSec,
		Timestamp: env.Timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "run_id", Value: env.RunID},
			{Name: "notebook", Value: env.Notebook},
			{Name: "score", Value: strconv.Itoa(report.ScorePercent)},
		},
	}
	if env.DataFrame != "" {
		suite.Properties = append(suite.Properties, JUnitProperty{Name: "dataframe", Value: env.DataFrame})
	}

	for _, r := range report.Results {
		tc := JUnitTestCase{
			Name:      r.RuleID,
			Classname: env.Rubric,
		}
		if !r.Passed {
			tc.Failure = &JUnitFailure{
				Message: r.Message,
				Type:    "RuleFailure",
				Body:    fmt.Sprintf("%s: %s", r.RuleID, r.Message),
			}
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	return &JUnitTestSuites{
		Tests:      report.TotalRules,
		Failures:   failed,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

// WriteJUnitXML writes env as JUnit XML.
func WriteJUnitXML(w io.Writer, env *Envelope) error {
	suites := ConvertToJUnit(env)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	output = append(output, '\n')
	_, err = w.Write(output)
	return err
}
