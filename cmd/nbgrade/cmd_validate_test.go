package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rubric.yaml", `
name: custom
rules:
  - id: uses_numpy
    check: {type: contains, substring: import numpy}
`)

	out, err := runCLI(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, `✓ `+path+`: rubric "custom" with 1 rules`)
}

func TestValidateCommand_Problems(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rubric.yaml", `
name: broken
rules:
  - id: bad_regex
    check: {type: match_any, patterns: ['plot(']}
  - id: typo
    check: {type: contains, substring: x, substrin: y}
`)

	out, err := runCLI(t, "validate", path)
	require.ErrorContains(t, err, "has 2 problem(s)")
	assert.Contains(t, out, "✗ "+path)
	assert.Contains(t, out, `  - rule "bad_regex": invalid pattern "plot("`)
	assert.Contains(t, out, `  - rule "typo"`)
}

func TestValidateCommand_SchemaProblems(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rubric.yaml", "name: x\nrules:\n  - id: a\n    check: {type: fuzzy}\n")

	out, err := runCLI(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "/rules/0/check/type")
}

func TestValidateCommand_InitRubricIsValid(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "init", dir)
	require.NoError(t, err)

	_, err = runCLI(t, "validate", filepath.Join(dir, "rubric.yaml"))
	require.NoError(t, err)
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := runCLI(t, "validate", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
