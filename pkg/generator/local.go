package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"time"
)

// LocalRunner runs the floogen binary as a child process
type LocalRunner struct {
	// Binary is the floogen executable name or path
	Binary string
}

// NewLocalRunner creates a runner for the given floogen binary
func NewLocalRunner(binary string) *LocalRunner {
	if binary == "" {
		binary = "floogen"
	}
	return &LocalRunner{Binary: binary}
}

// Run executes `floogen -c <config> -o <output>` inside the job directory
func (r *LocalRunner) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, r.Binary, "-c", req.ConfigPath, "-o", req.OutputDir)
	cmd.Dir = req.WorkDir
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return result, ErrTimeout
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return result, fmt.Errorf("%w: %s", ErrToolNotFound, r.Binary)
	}
	return result, fmt.Errorf("failed to run %s: %w", r.Binary, err)
}
