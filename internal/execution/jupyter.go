package execution

//go:generate go tool mockgen -source=jupyter.go -destination=runner_mock_test.go -package=execution

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gradekit/nbgrade/internal/notebook"
)

const (
	DefaultCommand = "jupyter"
	DefaultKernel  = "python3"
	DefaultTimeout = 600 * time.Second

	// shutdownGrace is added to the kernel timeout for nbconvert's own
	// startup and teardown before the process is killed.
	shutdownGrace = 30 * time.Second
)

// commandRunner runs an external command and returns its combined output.
type commandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.Bytes(), err
}

// JupyterOptions configures a [JupyterExecutor].
type JupyterOptions struct {
	// Command is the jupyter binary. Defaults to "jupyter".
	Command string
	// Kernel is the kernel name passed to the execute preprocessor. Defaults to "python3".
	Kernel string
	// Timeout is the per-cell timeout. Defaults to 600s.
	Timeout time.Duration
	// OutputDir receives executed notebooks. When empty, a scratch directory
	// is created on first use and removed by [JupyterExecutor.Close].
	OutputDir string
}

// JupyterExecutor executes notebooks with `jupyter nbconvert --execute`.
type JupyterExecutor struct {
	opts   JupyterOptions
	runner commandRunner

	mu      sync.Mutex
	scratch string
}

// NewJupyterExecutor creates a [JupyterExecutor], filling unset options with defaults.
func NewJupyterExecutor(opts JupyterOptions) *JupyterExecutor {
	if opts.Command == "" {
		opts.Command = DefaultCommand
	}
	if opts.Kernel == "" {
		opts.Kernel = DefaultKernel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &JupyterExecutor{opts: opts, runner: execRunner{}}
}

// Kernel returns the kernel name used for execution.
func (e *JupyterExecutor) Kernel() string { return e.opts.Kernel }

// Timeout returns the per-cell timeout used for execution.
func (e *JupyterExecutor) Timeout() time.Duration { return e.opts.Timeout }

func (e *JupyterExecutor) Execute(ctx context.Context, path string) (string, error) {
	if notebook.IsCompressed(path) {
		return "", fmt.Errorf("cannot execute compressed notebook %s; grade it without execution", path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", path, err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return "", fmt.Errorf("opening notebook: %w", err)
	}

	outDir, err := e.outputDir()
	if err != nil {
		return "", err
	}

	outName := executedName(absPath)
	args := []string{
		"nbconvert",
		"--to", "notebook",
		"--execute",
		fmt.Sprintf("--ExecutePreprocessor.timeout=%d", int(e.opts.Timeout/time.Second)),
		fmt.Sprintf("--ExecutePreprocessor.kernel_name=%s", e.opts.Kernel),
		"--output", outName,
		"--output-dir", outDir,
		absPath,
	}

	runCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout+shutdownGrace)
	defer cancel()

	commandLine := e.opts.Command + " " + strings.Join(args, " ")
	slog.Debug("Executing notebook", "command", commandLine, "dir", filepath.Dir(absPath))

	start := time.Now()
	out, err := e.runner.Run(runCtx, filepath.Dir(absPath), e.opts.Command, args...)
	if err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return "", &ExecError{
			Command: commandLine,
			Output:  strings.TrimSpace(string(out)),
			Err:     err,
		}
	}

	outPath := filepath.Join(outDir, outName)
	slog.Debug("Notebook executed", "output", outPath, "duration", time.Since(start))

	return outPath, nil
}

// Close removes the scratch directory, and every executed notebook in it.
// Paths returned by Execute are invalid afterwards. A configured OutputDir is
// left alone.
func (e *JupyterExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.scratch == "" {
		return nil
	}
	err := os.RemoveAll(e.scratch)
	e.scratch = ""
	return err
}

func (e *JupyterExecutor) outputDir() (string, error) {
	if e.opts.OutputDir != "" {
		return e.opts.OutputDir, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.scratch == "" {
		dir, err := os.MkdirTemp("", "nbgrade-exec-*")
		if err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}
		e.scratch = dir
	}
	return e.scratch, nil
}

// executedName maps climate_eda.ipynb to climate_eda.executed.ipynb.
func executedName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".executed.ipynb"
}
