// Package scanners describes the external web scanning tools the orchestrator
// can drive and how their command lines are built.
package scanners

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/exploopio/reconkit/pkg/core"
	"github.com/exploopio/reconkit/pkg/errors"
)

// Tool is a static descriptor of one external scanner. It implements
// core.Scanner by invoking its binary with the target flag.
type Tool struct {
	// Configuration
	Binary     string        // Path to the binary (default: the tool name)
	TargetFlag string        // Flag preceding the target, e.g. "-u" or "-d"
	VersionArg string        // Argument that prints the version
	Timeout    time.Duration // Zero means no timeout
	Verbose    bool

	// RequiresProtocol marks tools that need an http(s) scheme on the target.
	RequiresProtocol bool

	// Internal
	name    string
	version string
	exec    core.Executor
}

// NewTool creates a descriptor for the named tool.
func NewTool(name, targetFlag string, requiresProtocol bool) *Tool {
	return &Tool{
		Binary:           name,
		TargetFlag:       targetFlag,
		VersionArg:       "--version",
		RequiresProtocol: requiresProtocol,
		name:             name,
	}
}

// Name returns the tool name.
func (t *Tool) Name() string {
	return t.name
}

// Version returns the version detected by IsInstalled.
func (t *Tool) Version() string {
	return t.version
}

// SetExecutor replaces the process runner. A nil executor restores
// core.ExecuteScanner.
func (t *Tool) SetExecutor(exec core.Executor) {
	t.exec = exec
}

// ApplyProtocol returns target prefixed with "http://" unless it already
// starts with "http://" or "https://".
func ApplyProtocol(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return "http://" + target
}

// SplitParams splits a free-form parameter string on whitespace.
// No shell quoting is interpreted.
func SplitParams(params string) []string {
	return strings.Fields(params)
}

// BuildArgs returns [TargetFlag, target, extra...], applying the protocol
// rule when the tool requires one.
func (t *Tool) BuildArgs(target string, extra []string) []string {
	if t.RequiresProtocol {
		target = ApplyProtocol(target)
	}
	args := make([]string, 0, 2+len(extra))
	args = append(args, t.TargetFlag, target)
	return append(args, extra...)
}

// Command returns the full command line, binary first.
func (t *Tool) Command(target string, opts *core.ScanOptions) []string {
	var extra []string
	if opts != nil {
		extra = opts.ExtraArgs
	}
	return append([]string{t.binary()}, t.BuildArgs(target, extra)...)
}

// IsInstalled checks if the tool's binary is available.
func (t *Tool) IsInstalled(ctx context.Context) (bool, string, error) {
	installed, version, err := core.CheckBinaryInstalled(ctx, t.binary(), t.VersionArg)
	if err != nil {
		return false, "", err
	}
	if installed {
		t.version = version
	}
	return installed, t.version, nil
}

// Scan runs the tool against target and blocks until it exits.
// A non-zero exit status is returned as a KindExternal error together with
// the captured output.
func (t *Tool) Scan(ctx context.Context, target string, opts *core.ScanOptions) (*core.ScanResult, error) {
	const op = "scanners.Scan"

	if opts == nil {
		opts = &core.ScanOptions{}
	}
	if err := core.ValidateScanOptions(opts); err != nil {
		return nil, errors.E(errors.KindInvalidInput, op, err.Error())
	}

	command := t.Command(target, opts)
	start := time.Now()
	result := &core.ScanResult{
		ScannerName: t.name,
		Target:      target,
		StartedAt:   start.Unix(),
		Command:     command,
	}

	timeout := t.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	execResult, err := t.executor()(ctx, &core.ExecConfig{
		Binary:  command[0],
		Args:    command[1:],
		Env:     opts.Env,
		WorkDir: opts.WorkDir,
		Timeout: timeout,
		Verbose: t.Verbose || opts.Verbose,
	})

	result.FinishedAt = time.Now().Unix()
	result.DurationMs = time.Since(start).Milliseconds()
	if execResult != nil {
		result.RawOutput = execResult.Stdout
		result.Stderr = string(execResult.Stderr)
		result.ExitCode = execResult.ExitCode
	}

	if err != nil {
		result.Error = err.Error()
		return result, errors.Wrap(err, op)
	}

	if result.ExitCode != 0 {
		err := errors.E(errors.KindExternal, op, fmt.Sprintf("%s exited with code %d", t.name, result.ExitCode))
		result.Error = err.Error()
		return result, err
	}

	return result, nil
}

func (t *Tool) binary() string {
	if t.Binary == "" {
		return t.name
	}
	return t.Binary
}

func (t *Tool) executor() core.Executor {
	if t.exec == nil {
		return core.ExecuteScanner
	}
	return t.exec
}

func (t *Tool) clone() *Tool {
	c := *t
	return &c
}

var _ core.Scanner = (*Tool)(nil)
