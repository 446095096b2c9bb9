package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradekit/nbgrade/internal/projectconfig"
	"github.com/gradekit/nbgrade/internal/rubricfile"
)

func TestInitCommand_CreatesProject(t *testing.T) {
	target := filepath.Join(t.TempDir(), "course")

	out, err := runCLI(t, "init", target)
	require.NoError(t, err)

	assert.Contains(t, out, "Initialized grading project:")
	assert.Contains(t, out, "created  "+filepath.Join(target, ".nbgrade.yaml"))
	assert.Contains(t, out, "created  "+filepath.Join(target, "rubric.yaml"))

	cfg, err := projectconfig.Load(target)
	require.NoError(t, err)
	assert.Equal(t, "climate_eda.ipynb", cfg.Notebook)
	assert.Equal(t, "rubric.yaml", cfg.Rubric)
	assert.True(t, cfg.ExecuteEnabled())
	assert.Equal(t, 600, cfg.Execute.Timeout)

	data, err := os.ReadFile(filepath.Join(target, "rubric.yaml"))
	require.NoError(t, err)
	assert.Equal(t, rubricfile.ClimateEDABytes(), data)
}

func TestInitCommand_NeverOverwrites(t *testing.T) {
	target := t.TempDir()
	custom := "notebook: mine.ipynb\n"
	writeFile(t, target, ".nbgrade.yaml", custom)

	out, err := runCLI(t, "init", target)
	require.NoError(t, err)
	assert.Contains(t, out, "exists   "+filepath.Join(target, ".nbgrade.yaml")+" (use --force to overwrite)")
	assert.Contains(t, out, "created  "+filepath.Join(target, "rubric.yaml"))

	data, err := os.ReadFile(filepath.Join(target, ".nbgrade.yaml"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestInitCommand_Force(t *testing.T) {
	target := t.TempDir()
	writeFile(t, target, "rubric.yaml", "name: old\n")

	out, err := runCLI(t, "init", target, "--force")
	require.NoError(t, err)
	assert.NotContains(t, out, "exists")

	data, err := os.ReadFile(filepath.Join(target, "rubric.yaml"))
	require.NoError(t, err)
	assert.Equal(t, rubricfile.ClimateEDABytes(), data)
}

func TestInitCommand_ThenGrade(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := runCLI(t, "init")
	require.NoError(t, err)
	writeNotebook(t, dir, "climate_eda.ipynb", completeCells)

	out, err := runCLI(t, "grade", "--no-execute")
	require.NoError(t, err)
	assert.Contains(t, out, "Rubric:    climate-eda")
	assert.Contains(t, out, "Final Grade: 100/100")
}
