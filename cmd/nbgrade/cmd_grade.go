package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gradekit/nbgrade/internal/cache"
	"github.com/gradekit/nbgrade/internal/execution"
	"github.com/gradekit/nbgrade/internal/notebook"
	"github.com/gradekit/nbgrade/internal/projectconfig"
	"github.com/gradekit/nbgrade/internal/reporting"
	"github.com/gradekit/nbgrade/internal/rubric"
	"github.com/gradekit/nbgrade/internal/spinner"
)

// debugPreviewChars is how much of the code corpus --debug logs.
const debugPreviewChars = 500

type gradeOptions struct {
	rubricPath string
	noExecute  bool
	kernel     string
	timeout    int
	command    string
	parallel   bool
	workers    int
	cache      bool
	cacheDir   string
	format     string
	output     string
}

func newGradeCommand() *cobra.Command {
	var opts gradeOptions

	cmd := &cobra.Command{
		Use:   "grade [notebook]",
		Short: "Grade a notebook against a rubric",
		Long: `Grade a Jupyter notebook against a rubric.

The notebook is executed with jupyter nbconvert first (unless --no-execute is
given), then the source of its code and markdown cells is checked against
every rule. The built-in climate EDA rubric is used unless --rubric names a
rubric file.

The command exits with status 0 whenever grading completes, whatever the
score. A non-zero status means the notebook or rubric could not be graded.

Settings not given as flags are read from .nbgrade.yaml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return gradeCommandE(cmd, args, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.rubricPath, "rubric", "r", "", "Rubric file (default: built-in climate EDA rubric)")
	cmd.Flags().BoolVar(&opts.noExecute, "no-execute", false, "Grade the notebook as saved, without running it")
	cmd.Flags().StringVar(&opts.kernel, "kernel", projectconfig.DefaultKernel, "Jupyter kernel used to execute the notebook")
	cmd.Flags().IntVar(&opts.timeout, "timeout", projectconfig.DefaultTimeout, "Per-cell execution timeout in seconds")
	cmd.Flags().StringVar(&opts.command, "jupyter", projectconfig.DefaultCommand, "Jupyter executable")
	cmd.Flags().BoolVar(&opts.parallel, "parallel", false, "Evaluate rules concurrently")
	cmd.Flags().IntVar(&opts.workers, "workers", projectconfig.DefaultWorkers, "Number of concurrent workers (requires --parallel)")
	cmd.Flags().BoolVar(&opts.cache, "cache", false, "Reuse executed notebooks from the cache")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", projectconfig.DefaultCacheDir, "Cache directory for executed notebooks")
	cmd.Flags().StringVarP(&opts.format, "format", "f", projectconfig.DefaultFormat, "Output format: text, json, junit, markdown, html")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to a file instead of stdout")

	return cmd
}

// applyFlags overlays explicitly set flags onto cfg.
func applyFlags(cmd *cobra.Command, cfg *projectconfig.ProjectConfig, opts *gradeOptions) {
	flags := cmd.Flags()

	if flags.Changed("rubric") {
		cfg.Rubric = opts.rubricPath
	}
	if flags.Changed("no-execute") {
		cfg.Execute.Enabled = boolPtr(!opts.noExecute)
	}
	if flags.Changed("kernel") {
		cfg.Execute.Kernel = opts.kernel
	}
	if flags.Changed("timeout") {
		cfg.Execute.Timeout = opts.timeout
	}
	if flags.Changed("jupyter") {
		cfg.Execute.Command = opts.command
	}
	if flags.Changed("parallel") {
		cfg.Evaluation.Parallel = boolPtr(opts.parallel)
	}
	if flags.Changed("workers") {
		cfg.Evaluation.Workers = opts.workers
	}
	if flags.Changed("cache") {
		cfg.Cache.Enabled = boolPtr(opts.cache)
	}
	if flags.Changed("cache-dir") {
		cfg.Cache.Dir = opts.cacheDir
	}
	if flags.Changed("format") {
		cfg.Output.Format = opts.format
	}
	if flags.Changed("output") {
		cfg.Output.Path = opts.output
	}
}

func gradeCommandE(cmd *cobra.Command, args []string, opts *gradeOptions) error {
	cfg, err := projectconfig.Load(".")
	if err != nil {
		return err
	}

	// Paths from flags and arguments are relative to the working directory,
	// paths from the config file to the file's directory.
	cfg.Notebook = cfg.Resolve(cfg.Notebook)
	cfg.Rubric = cfg.Resolve(cfg.Rubric)
	cfg.Cache.Dir = cfg.Resolve(cfg.Cache.Dir)
	cfg.Output.Path = cfg.Resolve(cfg.Output.Path)
	applyFlags(cmd, cfg, opts)

	nbPath := cfg.Notebook
	if len(args) > 0 {
		nbPath = args[0]
	}

	format, err := reporting.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	if cfg.Evaluation.Workers < 1 {
		return fmt.Errorf("--workers must be at least 1, got %d", cfg.Evaluation.Workers)
	}
	if cfg.Execute.Timeout < 1 {
		return fmt.Errorf("--timeout must be at least 1 second, got %d", cfg.Execute.Timeout)
	}

	rubricName, rules, err := loadRubric(cfg.Rubric)
	if err != nil {
		return err
	}

	if _, err := os.Stat(nbPath); err != nil {
		return fmt.Errorf("notebook not found: %w", err)
	}

	start := time.Now()
	ctx := cmd.Context()

	executor, cleanup, err := newExecutor(cfg, nbPath)
	if err != nil {
		return err
	}
	defer cleanup()

	stopSpinner := func() {}
	if _, nop := executor.(execution.NopExecutor); !nop && isTerminal(cmd.ErrOrStderr()) {
		stopSpinner = spinner.Start(cmd.ErrOrStderr(), "Executing "+filepath.Base(nbPath))
	}
	gradedPath, err := executor.Execute(ctx, nbPath)
	stopSpinner()
	if err != nil {
		return err
	}

	nb, err := notebook.Load(gradedPath)
	if err != nil {
		return err
	}

	corpus := nb.Corpus()
	codeCells, markdownCells := nb.CellCounts()
	slog.Debug("extracted notebook source",
		"notebook", nbPath, "code_cells", codeCells, "markdown_cells", markdownCells)
	slog.Debug("extracted notebook code", "preview", preview(corpus.CodeText, debugPreviewChars))

	var report *rubric.GradeReport
	if cfg.ParallelEnabled() {
		report, err = rubric.EvaluateParallel(ctx, corpus, rules, cfg.Evaluation.Workers)
	} else {
		report, err = rubric.Evaluate(corpus, rules)
	}
	if err != nil {
		return err
	}

	env := reporting.NewEnvelope(nbPath, rubricName, report)
	env.DataFrame = nb.DataFrameName()
	env.Executed = gradedPath != nbPath
	env.Duration = time.Since(start)

	return writeReport(cmd, env, format, cfg.Output.Path)
}

// newExecutor picks how the notebook is prepared for grading. The returned
// cleanup removes any scratch output.
func newExecutor(cfg *projectconfig.ProjectConfig, nbPath string) (execution.Executor, func(), error) {
	noop := func() {}

	if !cfg.ExecuteEnabled() {
		return execution.NopExecutor{}, noop, nil
	}
	if notebook.IsCompressed(nbPath) {
		slog.Info("compressed notebooks are graded without execution", "notebook", nbPath)
		return execution.NopExecutor{}, noop, nil
	}

	timeout := time.Duration(cfg.Execute.Timeout) * time.Second
	jupyter := execution.NewJupyterExecutor(execution.JupyterOptions{
		Command: cfg.Execute.Command,
		Kernel:  cfg.Execute.Kernel,
		Timeout: timeout,
	})
	cleanup := func() { _ = jupyter.Close() }

	if !cfg.CacheEnabled() {
		return jupyter, cleanup, nil
	}

	absDir, err := filepath.Abs(cfg.Cache.Dir)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("resolving cache directory: %w", err)
	}
	return execution.NewCachingExecutor(jupyter, cache.New(absDir), jupyter.Kernel(), jupyter.Timeout()), cleanup, nil
}

func writeReport(cmd *cobra.Command, env *reporting.Envelope, format reporting.Format, path string) error {
	if path == "" {
		w := cmd.OutOrStdout()
		return reporting.Write(w, env, format, reporting.Options{Color: isTerminal(w) && os.Getenv("NO_COLOR") == ""})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}

	if err := reporting.Write(f, env, format, reporting.Options{}); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Final Grade: %d/100\n", env.Report.ScorePercent) //nolint:errcheck
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)                   //nolint:errcheck
	return nil
}

// isTerminal reports whether w writes to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// preview returns the first n characters of s.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func boolPtr(b bool) *bool {
	return &b
}
