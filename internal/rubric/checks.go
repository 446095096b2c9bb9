package rubric

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// PatternGroup is a named set of alternative patterns. The group matches when
// any one of its patterns matches.
type PatternGroup struct {
	Name     string
	Patterns []string
}

// Contains is satisfied when substr appears literally in the target text.
func Contains(target Target, substr string) Predicate {
	return func(c Corpus) (Outcome, error) {
		text, err := c.Text(target)
		if err != nil {
			return Outcome{}, err
		}

		if strings.Contains(text, substr) {
			return Outcome{Satisfied: true}, nil
		}
		return Outcome{Missing: []string{substr}}, nil
	}
}

// ContainsAll is satisfied when every item appears literally in the target
// text. Missing items are reported by their label; labels default to the items
// themselves and must otherwise have the same length as items.
func ContainsAll(target Target, items []string, labels []string) Predicate {
	return func(c Corpus) (Outcome, error) {
		if len(labels) > 0 && len(labels) != len(items) {
			return Outcome{}, fmt.Errorf("%d labels given for %d items", len(labels), len(items))
		}

		text, err := c.Text(target)
		if err != nil {
			return Outcome{}, err
		}

		var missing []string
		for i, item := range items {
			if strings.Contains(text, item) {
				continue
			}
			if len(labels) > 0 {
				missing = append(missing, labels[i])
			} else {
				missing = append(missing, item)
			}
		}

		return Outcome{Satisfied: len(missing) == 0, Missing: missing}, nil
	}
}

// MatchAny is satisfied when at least one pattern matches the target text.
func MatchAny(target Target, ignoreCase bool, patterns ...string) Predicate {
	compiled := compileOnce(patterns, ignoreCase)

	return func(c Corpus) (Outcome, error) {
		res, err := compiled()
		if err != nil {
			return Outcome{}, err
		}

		text, err := c.Text(target)
		if err != nil {
			return Outcome{}, err
		}

		if matchesAny(res, text) {
			return Outcome{Satisfied: true}, nil
		}
		return Outcome{}, nil
	}
}

// MatchGroups is satisfied when every group has at least one matching pattern.
// Missing lists the names of the groups that did not match.
func MatchGroups(target Target, groups ...PatternGroup) Predicate {
	compiled := make([]func() ([]*regexp.Regexp, error), len(groups))
	for i, g := range groups {
		compiled[i] = compileOnce(g.Patterns, false)
	}

	return func(c Corpus) (Outcome, error) {
		text, err := c.Text(target)
		if err != nil {
			return Outcome{}, err
		}

		var missing []string
		for i, g := range groups {
			res, err := compiled[i]()
			if err != nil {
				return Outcome{}, fmt.Errorf("group %q: %w", g.Name, err)
			}
			if !matchesAny(res, text) {
				missing = append(missing, g.Name)
			}
		}

		return Outcome{Satisfied: len(missing) == 0, Missing: missing}, nil
	}
}

// CountAtLeast sums the non-overlapping matches of every pattern in the target
// text and is satisfied when the total reaches minimum. Details carry "count"
// and "min".
func CountAtLeast(target Target, minimum int, patterns ...string) Predicate {
	compiled := compileOnce(patterns, false)

	return func(c Corpus) (Outcome, error) {
		res, err := compiled()
		if err != nil {
			return Outcome{}, err
		}

		text, err := c.Text(target)
		if err != nil {
			return Outcome{}, err
		}

		count := 0
		for _, re := range res {
			count += len(re.FindAllStringIndex(text, -1))
		}

		return Outcome{
			Satisfied: count >= minimum,
			Details: map[string]any{
				"count": count,
				"min":   minimum,
			},
		}, nil
	}
}

// All is satisfied when every predicate is satisfied. Missing and Details are
// merged in predicate order.
func All(predicates ...Predicate) Predicate {
	return func(c Corpus) (Outcome, error) {
		merged := Outcome{Satisfied: true}
		for _, p := range predicates {
			o, err := p(c)
			if err != nil {
				return Outcome{}, err
			}
			if !o.Satisfied {
				merged.Satisfied = false
			}
			merged.Missing = append(merged.Missing, o.Missing...)
			for k, v := range o.Details {
				if merged.Details == nil {
					merged.Details = map[string]any{}
				}
				merged.Details[k] = v
			}
		}
		return merged, nil
	}
}

// CompilePatterns compiles patterns, optionally case-insensitively.
func CompilePatterns(patterns []string, ignoreCase bool) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		expr := p
		if ignoreCase {
			expr = "(?i)" + p
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

// compileOnce defers compilation to the first evaluation so that a malformed
// pattern surfaces as an evaluation error for the owning rule.
func compileOnce(patterns []string, ignoreCase bool) func() ([]*regexp.Regexp, error) {
	return sync.OnceValues(func() ([]*regexp.Regexp, error) {
		return CompilePatterns(patterns, ignoreCase)
	})
}

func matchesAny(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
