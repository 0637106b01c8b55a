package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/exploopio/reconkit/pkg/errors"
)

// ExecConfig describes one child process invocation.
type ExecConfig struct {
	Binary  string
	Args    []string
	Env     map[string]string
	WorkDir string

	// Timeout bounds the run; zero means the child may run forever.
	Timeout time.Duration
	Verbose bool
	Logger  Logger
}

// ExecResult holds the captured output of a finished child process.
type ExecResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Executor runs a child process. ExecuteScanner is the production
// implementation; tests substitute their own.
type Executor func(ctx context.Context, cfg *ExecConfig) (*ExecResult, error)

// ExecuteScanner runs cfg.Binary and blocks until it exits.
//
// A non-zero exit status is not an error: it is reported through
// ExecResult.ExitCode so callers can decide which codes are acceptable.
// Errors are returned only when the process could not be started or was
// killed by the context or the timeout.
func ExecuteScanner(ctx context.Context, cfg *ExecConfig) (*ExecResult, error) {
	const op = "core.ExecuteScanner"

	if cfg == nil || cfg.Binary == "" {
		return nil, errors.E(errors.KindInvalidInput, op, "binary is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = GetDefaultLogger()
	}

	execCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, cfg.Binary, cfg.Args...)
	// Grandchildren holding the pipes must not keep Run blocked after a kill.
	cmd.WaitDelay = 2 * time.Second
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}
	if len(cfg.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if cfg.Verbose {
		logger.Debug("exec: %s %s", cfg.Binary, strings.Join(cfg.Args, " "))
	}

	start := time.Now()
	err := cmd.Run()
	result := &ExecResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	if execCtx.Err() == context.DeadlineExceeded {
		result.ExitCode = -1
		return result, errors.E(errors.KindTimeout, op, fmt.Sprintf("%s timed out after %s", cfg.Binary, cfg.Timeout), err)
	}
	if ctx.Err() != nil {
		result.ExitCode = -1
		return result, errors.E(errors.KindInternal, op, fmt.Sprintf("%s cancelled", cfg.Binary), ctx.Err())
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	result.ExitCode = -1
	if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) {
		return result, errors.E(errors.KindNotFound, op, fmt.Sprintf("%s not found", cfg.Binary), err)
	}
	return result, errors.E(errors.KindExternal, op, fmt.Sprintf("start %s", cfg.Binary), err)
}

// CheckBinaryInstalled reports whether binary can be resolved on PATH and,
// when versionArg is set, returns the first line of its version output.
func CheckBinaryInstalled(ctx context.Context, binary string, versionArg string) (bool, string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return false, "", errors.E(errors.KindNotFound, "core.CheckBinaryInstalled", fmt.Sprintf("%s not found", binary), err)
	}
	if versionArg == "" {
		return true, path, nil
	}

	out, err := exec.CommandContext(ctx, path, versionArg).CombinedOutput()
	if err != nil {
		// Some tools exit non-zero on their version flag; the binary is still there.
		return true, path, nil
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return true, strings.TrimSpace(line), nil
}
