package rubric

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the concurrency limit used by [EvaluateParallel] when
// workers is not positive.
const DefaultWorkers = 4

var messageFuncs = template.FuncMap{
	"join": strings.Join,
}

// Evaluate runs every rule against corpus in order and aggregates the results.
// The first rule whose predicate fails to evaluate aborts the run with an
// [*EvaluationError]; no partial report is returned.
func Evaluate(corpus Corpus, rules []Rule) (*GradeReport, error) {
	results := make([]RuleResult, len(rules))

	for i := range rules {
		res, err := evaluateRule(corpus, &rules[i])
		if err != nil {
			return nil, err
		}
		results[i] = res
	}

	return newGradeReport(results), nil
}

// EvaluateParallel is like [Evaluate] but runs up to workers predicates at a
// time. Results keep rule-definition order. The first evaluation error cancels
// the remaining rules.
func EvaluateParallel(ctx context.Context, corpus Corpus, rules []Rule, workers int) (*GradeReport, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]RuleResult, len(rules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range rules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := evaluateRule(corpus, &rules[i])
			if err != nil {
				return err
			}

			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return newGradeReport(results), nil
}

func evaluateRule(corpus Corpus, rule *Rule) (result RuleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &EvaluationError{RuleID: rule.ID, Err: fmt.Errorf("predicate panicked: %v", r)}
		}
	}()

	if rule.Predicate == nil {
		return RuleResult{}, &EvaluationError{RuleID: rule.ID, Err: ErrNoPredicate}
	}

	outcome, err := rule.Predicate(corpus)
	if err != nil {
		return RuleResult{}, &EvaluationError{RuleID: rule.ID, Err: err}
	}

	result = RuleResult{
		RuleID: rule.ID,
		Passed: outcome.Satisfied,
	}

	if !outcome.Satisfied {
		msg, err := renderFailure(rule, outcome)
		if err != nil {
			return RuleResult{}, &EvaluationError{RuleID: rule.ID, Err: err}
		}
		result.Message = msg
	}

	return result, nil
}

// renderFailure builds the message for a failed rule. Rules without a failure
// message fall back to a generic one that still lists the missing items.
func renderFailure(rule *Rule, outcome Outcome) (string, error) {
	fallback := fmt.Sprintf("Rule %s not satisfied", rule.ID)
	if len(outcome.Missing) > 0 {
		fallback += ": missing " + strings.Join(outcome.Missing, ", ")
	}

	if rule.FailureMessage == "" {
		return fallback, nil
	}

	tmpl, err := template.New(rule.ID).Funcs(messageFuncs).Option("missingkey=zero").Parse(rule.FailureMessage)
	if err != nil {
		return "", fmt.Errorf("parsing failure message: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		ID          string
		Description string
		Missing     []string
		Details     map[string]any
	}{
		ID:          rule.ID,
		Description: rule.Description,
		Missing:     outcome.Missing,
		Details:     outcome.Details,
	})
	if err != nil {
		return "", fmt.Errorf("rendering failure message: %w", err)
	}

	msg := strings.TrimSpace(buf.String())
	if msg == "" {
		return fallback, nil
	}
	return msg, nil
}
