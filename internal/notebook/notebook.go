// Package notebook reads Jupyter notebooks (nbformat 4, with nbformat 3
// upconverted on load) and extracts the source corpus that rubrics are
// evaluated against.
package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/gradekit/nbgrade/internal/rubric"
)

// ErrUnsupportedFormat is returned for notebooks that are neither nbformat 3
// nor 4.
var ErrUnsupportedFormat = errors.New("unsupported notebook format")

// CellType is the nbformat cell_type.
type CellType string

const (
	CellCode     CellType = "code"
	CellMarkdown CellType = "markdown"
	CellRaw      CellType = "raw"
)

// Source is a cell source. nbformat allows either a single string or a list
// of lines that already carry their newlines.
type Source string

func (s *Source) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = Source(single)
		return nil
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("cell source must be a string or a list of strings: %w", err)
	}
	*s = Source(strings.Join(lines, ""))
	return nil
}

// Cell is one notebook cell. Outputs and metadata are kept raw; grading never
// looks at them.
type Cell struct {
	CellType CellType        `json:"cell_type"`
	Source   Source          `json:"source"`
	Outputs  json.RawMessage `json:"outputs,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Notebook is a parsed nbformat 4 document.
type Notebook struct {
	Cells         []Cell          `json:"cells"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	NBFormat      int             `json:"nbformat"`
	NBFormatMinor int             `json:"nbformat_minor"`
}

// v3Cell is a cell in the nbformat 3 layout. Code cells keep their source in
// "input" and headings are a cell type of their own.
type v3Cell struct {
	CellType string          `json:"cell_type"`
	Input    Source          `json:"input"`
	Source   Source          `json:"source"`
	Level    int             `json:"level"`
	Outputs  json.RawMessage `json:"outputs,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type v3Worksheet struct {
	Cells []v3Cell `json:"cells"`
}

// Parse decodes a notebook from r. nbformat 3 documents are upconverted to
// the nbformat 4 cell layout.
func Parse(r io.Reader) (*Notebook, error) {
	var doc struct {
		Notebook
		Worksheets []v3Worksheet `json:"worksheets"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding notebook: %w", err)
	}

	nb := doc.Notebook
	switch nb.NBFormat {
	case 4:
	case 3:
		nb.Cells = upgradeCells(doc.Worksheets)
		nb.NBFormat, nb.NBFormatMinor = 4, 0
	default:
		return nil, fmt.Errorf("%w: nbformat %d (need 3 or 4)", ErrUnsupportedFormat, nb.NBFormat)
	}

	return &nb, nil
}

// upgradeCells flattens nbformat 3 worksheets into nbformat 4 cells. Heading
// cells become markdown headings of the same level.
func upgradeCells(worksheets []v3Worksheet) []Cell {
	var cells []Cell
	for _, ws := range worksheets {
		for _, c := range ws.Cells {
			cell := Cell{CellType: CellType(c.CellType), Source: c.Source, Outputs: c.Outputs, Metadata: c.Metadata}
			switch c.CellType {
			case string(CellCode):
				cell.Source = c.Input
			case "heading":
				level := max(c.Level, 1)
				title := strings.Join(strings.Fields(string(c.Source)), " ")
				cell = Cell{CellType: CellMarkdown, Source: Source(strings.Repeat("#", level) + " " + title), Metadata: c.Metadata}
			}
			cells = append(cells, cell)
		}
	}
	return cells
}

// Load reads the notebook at path. Files ending in .gz or .zst are
// decompressed first.
func Load(path string) (*Notebook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening notebook: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompressor(path, f)
	if err != nil {
		return nil, fmt.Errorf("reading notebook %s: %w", path, err)
	}
	defer closeFn()

	nb, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("reading notebook %s: %w", path, err)
	}
	return nb, nil
}

// IsCompressed reports whether Load decompresses the file at path.
func IsCompressed(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".zst":
		return true
	}
	return false
}

func decompressor(path string, r io.Reader) (io.Reader, func(), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}

// Sources returns the sources of every cell of the given type, in order.
func (nb *Notebook) Sources(cellType CellType) []string {
	var sources []string
	for _, c := range nb.Cells {
		if c.CellType == cellType {
			sources = append(sources, string(c.Source))
		}
	}
	return sources
}

// Corpus joins the code and markdown cell sources. Raw cells are ignored.
func (nb *Notebook) Corpus() rubric.Corpus {
	return rubric.NewCorpus(nb.Sources(CellCode), nb.Sources(CellMarkdown))
}

// CellCounts returns the number of code and markdown cells.
func (nb *Notebook) CellCounts() (code, markdown int) {
	for _, c := range nb.Cells {
		switch c.CellType {
		case CellCode:
			code++
		case CellMarkdown:
			markdown++
		}
	}
	return code, markdown
}

var readCSVAssignment = regexp.MustCompile(`([\p{L}\p{N}_]+)\s*=\s*pd\.read_csv`)

// DataFrameName returns the variable the dataset is loaded into, taken from
// the first code cell containing "df = pd.read_csv". It returns "" when no
// such cell exists.
func (nb *Notebook) DataFrameName() string {
	for _, src := range nb.Sources(CellCode) {
		if !strings.Contains(src, "df = pd.read_csv") {
			continue
		}
		if m := readCSVAssignment.FindStringSubmatch(src); m != nil {
			return m[1]
		}
	}
	return ""
}
