// Package validate adapts the terraform and tflint command line tools into
// scoring inputs. Tool failures never escape as errors: validation fails
// closed and linting degrades to an empty report.
package validate

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// CommandResult is the captured outcome of one tool invocation.
type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner runs name with args in dir. err is non-nil only when the
// process could not be started or did not exit normally.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) (CommandResult, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, dir, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

// isNotFound reports whether err means the tool binary is not installed.
func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
