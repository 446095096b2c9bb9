package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gradekit/nbgrade/internal/execution"
	"github.com/gradekit/nbgrade/internal/notebook"
	"github.com/gradekit/nbgrade/internal/rubric"
	"github.com/gradekit/nbgrade/internal/rubricfile"
)

// Exit codes. Grading is not gating: a low score still exits with
// ExitSuccess.
const (
	ExitSuccess = 0 // Grading completed
	ExitError   = 2 // Configuration, input or runtime error
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return ExitError
}

// describeError prefixes err with the stage of grading that failed.
func describeError(err error) string {
	var (
		evalErr   *rubric.EvaluationError
		execErr   *execution.ExecError
		schemaErr *rubricfile.SchemaError
	)

	switch {
	case errors.As(err, &evalErr):
		return fmt.Sprintf("grading aborted: %v", err)
	case errors.As(err, &execErr):
		return fmt.Sprintf("notebook execution failed: %v", err)
	case errors.As(err, &schemaErr):
		return fmt.Sprintf("invalid rubric: %v", err)
	case errors.Is(err, notebook.ErrUnsupportedFormat):
		return fmt.Sprintf("cannot read notebook: %v", err)
	case errors.Is(err, context.Canceled):
		return "interrupted"
	default:
		return err.Error()
	}
}
