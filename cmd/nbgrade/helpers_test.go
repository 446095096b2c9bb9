package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// completeCells satisfies every rule of the built-in rubric.
var completeCells = []cell{
	{"markdown", "# Climate Change Indicators EDA"},
	{"code", "import pandas as pd\nimport numpy as np\nimport matplotlib.pyplot as plt\nimport seaborn as sns"},
	{"code", "df = pd.read_csv('data/Climate_Change_Indicators.csv')\ndf.describe()"},
	{"code", "yearly = df.groupby('Year').mean()"},
	{"code", "plt.figure(figsize=(10, 6))\nsns.histplot(df['Global Average Temperature (°C)'])\nplt.show()"},
	{"code", "sns.scatterplot(data=df, x='CO2 Concentration (ppm)', y='Sea Level Rise (mm)')\nsns.pairplot(df)"},
	{"code", "df['Arctic Ice Area (million km²)'].plot()"},
	{"markdown", "## Conclusions\nTemperatures rise with CO2."},
}

type cell struct {
	cellType string
	source   string
}

// writeNotebook writes an nbformat 4 notebook to dir/name.
func writeNotebook(t *testing.T, dir, name string, cells []cell) string {
	t.Helper()

	type nbCell struct {
		CellType string         `json:"cell_type"`
		Metadata map[string]any `json:"metadata"`
		Source   []string       `json:"source"`
	}
	nb := struct {
		Cells         []nbCell       `json:"cells"`
		Metadata      map[string]any `json:"metadata"`
		NBFormat      int            `json:"nbformat"`
		NBFormatMinor int            `json:"nbformat_minor"`
	}{Metadata: map[string]any{}, NBFormat: 4, NBFormatMinor: 5}

	for _, c := range cells {
		nb.Cells = append(nb.Cells, nbCell{
			CellType: c.cellType,
			Metadata: map[string]any{},
			Source:   strings.SplitAfter(c.source, "\n"),
		})
	}

	data, err := json.Marshal(nb)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// runCLI executes the root command with args and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
