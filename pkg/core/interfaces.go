// Package core provides the core interfaces and execution primitives shared by
// the scan orchestrator and the result parser.
package core

import (
	"context"
	"time"
)

// =============================================================================
// Scanner Interface - For running security tools
// =============================================================================

// Scanner is the main interface for external security scanning tools.
type Scanner interface {
	// Name returns the scanner name (e.g., "sqlmap", "nuclei")
	Name() string

	// Command returns the full command line that Scan would execute.
	Command(target string, opts *ScanOptions) []string

	// Scan runs the tool against the target and returns its raw output
	Scan(ctx context.Context, target string, opts *ScanOptions) (*ScanResult, error)

	// IsInstalled checks if the underlying tool is available
	IsInstalled(ctx context.Context) (bool, string, error)
}

// ScanOptions configures a scan.
type ScanOptions struct {
	// ExtraArgs are appended after the target arguments.
	ExtraArgs []string          `yaml:"extra_args" json:"extra_args"`
	Env       map[string]string `yaml:"env" json:"env"`
	WorkDir   string            `yaml:"work_dir" json:"work_dir"`
	Timeout   time.Duration     `yaml:"timeout" json:"timeout"`
	Verbose   bool              `yaml:"verbose" json:"verbose"`
}

// ScanResult holds the raw scan result.
type ScanResult struct {
	// Scanner info
	ScannerName string `json:"scanner_name"`
	Target      string `json:"target"`

	// Timing
	StartedAt  int64 `json:"started_at"`
	FinishedAt int64 `json:"finished_at"`
	DurationMs int64 `json:"duration_ms"`

	// Output
	Command   []string `json:"command"`
	ExitCode  int      `json:"exit_code"`
	RawOutput []byte   `json:"raw_output,omitempty"`
	Stderr    string   `json:"stderr,omitempty"`

	// Error (if scan failed)
	Error string `json:"error,omitempty"`
}

// Failed reports whether the tool did not complete successfully.
func (r *ScanResult) Failed() bool {
	return r.ExitCode != 0 || r.Error != ""
}
