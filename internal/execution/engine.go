// Package execution runs a notebook's kernel before grading. Grading itself
// never depends on execution; an [Executor] only produces the notebook file
// that the corpus is extracted from.
package execution

import (
	"context"
	"fmt"
)

// Executor produces an executed copy of a notebook.
type Executor interface {
	// Execute runs the notebook at path and returns the path of the executed
	// copy. The input file is never modified.
	Execute(ctx context.Context, path string) (string, error)
}

// NopExecutor skips execution and grades the notebook as submitted.
type NopExecutor struct{}

func (NopExecutor) Execute(_ context.Context, path string) (string, error) {
	return path, nil
}

// ExecError reports a kernel run that did not complete.
type ExecError struct {
	// Command is the command line that was run.
	Command string
	// Output is the combined stdout and stderr of the command.
	Output string
	Err    error
}

func (e *ExecError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("executing notebook (%s): %v", e.Command, e.Err)
	}
	return fmt.Sprintf("executing notebook (%s): %v; output: %s", e.Command, e.Err, e.Output)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
