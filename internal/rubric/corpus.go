package rubric

import (
	"fmt"
	"strings"
)

// Target selects which part of a [Corpus] a check reads.
type Target string

const (
	TargetCode     Target = "code"
	TargetMarkdown Target = "markdown"
)

// Corpus is the text extracted from a notebook that rules are evaluated against.
// Both fields are empty strings when the notebook has no cells of that kind.
type Corpus struct {
	// CodeText is every code cell's source, in document order, joined by newlines.
	CodeText string `json:"code_text"`
	// MarkdownText is every markdown cell's source, in document order, joined by newlines.
	MarkdownText string `json:"markdown_text"`
}

// NewCorpus joins cell sources into a [Corpus]. Nil or empty slices yield empty text.
func NewCorpus(codeCells, markdownCells []string) Corpus {
	return Corpus{
		CodeText:     strings.Join(codeCells, "\n"),
		MarkdownText: strings.Join(markdownCells, "\n"),
	}
}

// Text returns the text for the given target. An empty target reads code.
func (c Corpus) Text(target Target) (string, error) {
	switch target {
	case TargetCode, "":
		return c.CodeText, nil
	case TargetMarkdown:
		return c.MarkdownText, nil
	default:
		return "", fmt.Errorf("unknown corpus target %q", target)
	}
}

// ParseTarget converts a string flag or config value to a [Target].
func ParseTarget(s string) (Target, error) {
	switch Target(strings.ToLower(strings.TrimSpace(s))) {
	case TargetCode, "":
		return TargetCode, nil
	case TargetMarkdown:
		return TargetMarkdown, nil
	default:
		return "", fmt.Errorf("invalid target %q: must be code or markdown", s)
	}
}
