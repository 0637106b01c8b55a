// Package report writes the raw output of a scanner run to a timestamped file.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/exploopio/reconkit/pkg/compress"
	"github.com/exploopio/reconkit/pkg/errors"
)

const (
	// TimeLayout is the timestamp embedded in report file names.
	TimeLayout = "2006-01-02_15-04-05"

	// ErrorsHeader separates stdout from stderr in a report.
	ErrorsHeader = "\n--- Errors ---\n"

	filePrefix = "web-scan"
)

// Artifact is a report written to disk.
type Artifact struct {
	Tool        string
	Path        string
	Stdout      []byte
	Stderr      []byte
	Size        int
	Compression compress.Algorithm
	CreatedAt   time.Time
}

// Filename returns <dir>/web-scan_<tool>_<YYYY-MM-DD_HH-MM-SS>.txt.
// Two reports for the same tool within one second share a name.
func Filename(dir, tool string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%s.txt", filePrefix, tool, now.Format(TimeLayout)))
}

// Content returns stdout, followed by ErrorsHeader and stderr when stderr is
// not empty.
func Content(stdout, stderr []byte) []byte {
	out := make([]byte, 0, len(stdout)+len(ErrorsHeader)+len(stderr))
	out = append(out, stdout...)
	if len(stderr) > 0 {
		out = append(out, ErrorsHeader...)
		out = append(out, stderr...)
	}
	return out
}

// DefaultDir returns the user's home directory, or "." when it is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

// Writer creates report artifacts in Dir.
type Writer struct {
	Dir         string
	Clock       func() time.Time
	Compression compress.Algorithm
}

// NewWriter creates a writer for dir using the local clock.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Clock: time.Now, Compression: compress.AlgorithmNone}
}

// Plan returns the path the next report for tool would be written to.
func (w *Writer) Plan(tool string) string {
	return Filename(w.Dir, tool, w.now()) + w.Compression.Extension()
}

// Write writes a report for tool at the current time.
func (w *Writer) Write(tool string, stdout, stderr []byte) (*Artifact, error) {
	return w.WriteTo(w.Plan(tool), tool, stdout, stderr)
}

// WriteTo writes a report to an already planned path, replacing any
// existing file.
func (w *Writer) WriteTo(path, tool string, stdout, stderr []byte) (*Artifact, error) {
	const op = "report.Write"

	data, err := compress.For(w.Compression).Compress(Content(stdout, stderr))
	if err != nil {
		return nil, errors.E(errors.KindInternal, op, "compress report", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.E(errors.KindIO, op, "create report directory", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, errors.E(errors.KindIO, op, fmt.Sprintf("write %s", path), err)
	}

	return &Artifact{
		Tool:        tool,
		Path:        path,
		Stdout:      stdout,
		Stderr:      stderr,
		Size:        len(data),
		Compression: w.compression(),
		CreatedAt:   w.now(),
	}, nil
}

func (w *Writer) now() time.Time {
	if w.Clock == nil {
		return time.Now()
	}
	return w.Clock()
}

func (w *Writer) compression() compress.Algorithm {
	if w.Compression == "" {
		return compress.AlgorithmNone
	}
	return w.Compression
}
