// Package rubric evaluates a fixed list of pass/fail rules against the text
// extracted from a notebook and turns the results into a percentage grade.
package rubric

import (
	"errors"
	"fmt"
)

// ErrNoPredicate is wrapped in an [EvaluationError] when a rule has no predicate.
var ErrNoPredicate = errors.New("rule has no predicate")

// Outcome is what a [Predicate] reports about a corpus.
type Outcome struct {
	// Satisfied is true when the rule's condition holds.
	Satisfied bool
	// Missing names the sub-items that were not found, for rules that cover
	// several items (libraries, variables, pattern groups).
	Missing []string
	// Details carries predicate-specific values for failure messages, such as
	// an observed count.
	Details map[string]any
}

// Predicate decides whether a corpus satisfies a rule. An error means the
// predicate itself is broken (for example a malformed pattern), not that the
// corpus failed the rule.
type Predicate func(Corpus) (Outcome, error)

// Rule is one rubric criterion.
type Rule struct {
	// ID is a stable identifier, e.g. "required_libraries".
	ID string
	// Description is a human-readable statement of what is checked.
	Description string
	// Predicate performs the check.
	Predicate Predicate
	// FailureMessage is a text/template rendered when the predicate is not
	// satisfied. It sees .ID, .Description, .Missing and .Details, and the
	// join function.
	FailureMessage string
}

// RuleResult is the outcome of evaluating one [Rule] against one [Corpus].
type RuleResult struct {
	RuleID  string `json:"rule_id"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// GradeReport aggregates the results of one evaluation run.
type GradeReport struct {
	Results      []RuleResult `json:"results"`
	TotalRules   int          `json:"total_rules"`
	PassedRules  int          `json:"passed_rules"`
	ScorePercent int          `json:"score_percent"`
}

// FailedRules returns the number of rules that did not pass.
func (r *GradeReport) FailedRules() int {
	return r.TotalRules - r.PassedRules
}

// Failures returns the failed results in rule order.
func (r *GradeReport) Failures() []RuleResult {
	var failed []RuleResult
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// EvaluationError reports a rule whose predicate or failure message could not
// be evaluated. It is never converted into a passed or failed check.
type EvaluationError struct {
	RuleID string
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluating rule %q: %v", e.RuleID, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// ScorePercent returns round(100 * passed / total), rounding halves up, or 0
// when total is not positive. Integer arithmetic keeps halfway cases exact:
// 7 of 8 is 88, 1 of 8 is 13.
func ScorePercent(passed, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*passed + total) / (2 * total)
}

func newGradeReport(results []RuleResult) *GradeReport {
	passed := 0
	for _, res := range results {
		if res.Passed {
			passed++
		}
	}

	if results == nil {
		results = []RuleResult{}
	}

	return &GradeReport{
		Results:      results,
		TotalRules:   len(results),
		PassedRules:  passed,
		ScorePercent: ScorePercent(passed, len(results)),
	}
}
