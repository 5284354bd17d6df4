package compiler

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Runner runs the compiler and returns its error stream. A compiler that ran
// and exited non-zero is not an error; only failing to run it is.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// ExecRunner runs the compiler as a subprocess. Standard output is discarded.
func ExecRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // G204: compiler command from config
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stderr.Bytes(), nil
	}
	return stderr.Bytes(), err
}
