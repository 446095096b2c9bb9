// Package projectconfig provides the ProjectConfig struct and loader for
// .nbgrade.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by Load.
const FileName = ".nbgrade.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultNotebook = "climate_eda.ipynb"

	DefaultKernel  = "python3"
	DefaultTimeout = 600
	DefaultCommand = "jupyter"

	DefaultWorkers = 4

	DefaultCacheDir = ".nbgrade-cache"

	DefaultFormat = "text"
)

// maxWalkLevels bounds the upward search for FileName.
const maxWalkLevels = 10

// ExecuteConfig controls running the notebook before grading.
type ExecuteConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Kernel  string `yaml:"kernel,omitempty"`
	Timeout int    `yaml:"timeout,omitempty"`
	Command string `yaml:"command,omitempty"`
}

// EvaluationConfig controls rule evaluation.
type EvaluationConfig struct {
	Parallel *bool `yaml:"parallel,omitempty"`
	Workers  int   `yaml:"workers,omitempty"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// OutputConfig selects the report format and destination.
type OutputConfig struct {
	Format string `yaml:"format,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .nbgrade.yaml.
type ProjectConfig struct {
	Notebook   string           `yaml:"notebook,omitempty"`
	Rubric     string           `yaml:"rubric,omitempty"`
	Execute    ExecuteConfig    `yaml:"execute,omitempty"`
	Evaluation EvaluationConfig `yaml:"evaluation,omitempty"`
	Cache      CacheConfig      `yaml:"cache,omitempty"`
	Output     OutputConfig     `yaml:"output,omitempty"`

	// Dir is the directory holding the loaded file. Empty when defaults
	// were used.
	Dir string `yaml:"-"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Notebook: DefaultNotebook,
		Rubric:   "",
		Execute: ExecuteConfig{
			Enabled: boolPtr(true),
			Kernel:  DefaultKernel,
			Timeout: DefaultTimeout,
			Command: DefaultCommand,
		},
		Evaluation: EvaluationConfig{
			Parallel: boolPtr(false),
			Workers:  DefaultWorkers,
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
		Output: OutputConfig{
			Format: DefaultFormat,
		},
	}
}

// Load finds .nbgrade.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	path, data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	mergeConfig(cfg, &fileCfg)
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// Resolve makes a path from the config file relative to the file's
// directory. Absolute paths and paths from default configs are returned as
// is.
func (c *ProjectConfig) Resolve(p string) string {
	if p == "" || c.Dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ExecuteEnabled reports whether notebooks are run before grading.
func (c *ProjectConfig) ExecuteEnabled() bool {
	return c.Execute.Enabled != nil && *c.Execute.Enabled
}

// ParallelEnabled reports whether rules are evaluated concurrently.
func (c *ProjectConfig) ParallelEnabled() bool {
	return c.Evaluation.Parallel != nil && *c.Evaluation.Parallel
}

// CacheEnabled reports whether executed notebooks are cached.
func (c *ProjectConfig) CacheEnabled() bool {
	return c.Cache.Enabled != nil && *c.Cache.Enabled
}

// findConfigFile walks up from dir looking for .nbgrade.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found. Propagates real I/O
// errors (e.g. permission denied) instead of silently swallowing them.
func findConfigFile(dir string) (string, []byte, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < maxWalkLevels; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Notebook != "" {
		dst.Notebook = src.Notebook
	}
	if src.Rubric != "" {
		dst.Rubric = src.Rubric
	}

	// Execute
	if src.Execute.Enabled != nil {
		dst.Execute.Enabled = src.Execute.Enabled
	}
	if src.Execute.Kernel != "" {
		dst.Execute.Kernel = src.Execute.Kernel
	}
	if src.Execute.Timeout != 0 {
		dst.Execute.Timeout = src.Execute.Timeout
	}
	if src.Execute.Command != "" {
		dst.Execute.Command = src.Execute.Command
	}

	// Evaluation
	if src.Evaluation.Parallel != nil {
		dst.Evaluation.Parallel = src.Evaluation.Parallel
	}
	if src.Evaluation.Workers != 0 {
		dst.Evaluation.Workers = src.Evaluation.Workers
	}

	// Cache
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}

	// Output
	if src.Output.Format != "" {
		dst.Output.Format = src.Output.Format
	}
	if src.Output.Path != "" {
		dst.Output.Path = src.Output.Path
	}
}

func boolPtr(b bool) *bool {
	return &b
}
