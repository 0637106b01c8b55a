// Package orchestrator runs the selected scanners one after another against a
// single target and saves each tool's output as a report artifact.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/exploopio/reconkit/pkg/core"
	"github.com/exploopio/reconkit/pkg/errors"
	"github.com/exploopio/reconkit/pkg/events"
	"github.com/exploopio/reconkit/pkg/metrics"
	"github.com/exploopio/reconkit/pkg/report"
	"github.com/exploopio/reconkit/pkg/scanners"
	"github.com/exploopio/reconkit/pkg/store"
)

// Invocation is one requested tool run.
type Invocation struct {
	Tool   string
	Target string
	Params string // free-form, split on whitespace
}

// Outcome is the result of one Invocation.
type Outcome struct {
	RunID       string
	Tool        string
	Target      string
	Command     []string
	Status      string // metrics.StatusSuccess, StatusFailed or StatusUnsupported
	ExitCode    int
	PlannedPath string
	Artifact    *report.Artifact // nil unless Status is success
	Stderr      string
	Err         error
	StartedAt   time.Time
	Duration    time.Duration
}

// ReportPath returns the written report path, or "" when none was written.
func (o *Outcome) ReportPath() string {
	if o.Artifact == nil {
		return ""
	}
	return o.Artifact.Path
}

// Summary is the result of Run.
type Summary struct {
	RunID     string
	Target    string
	Outcomes  []*Outcome
	StartedAt time.Time
	Duration  time.Duration
}

// Count returns the number of outcomes with the given status.
func (s *Summary) Count(status string) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Ledger records tool outcomes. *store.Store implements it.
type Ledger interface {
	RecordRun(ctx context.Context, r store.RunRecord) error
}

// Runner drives the scanners of a registry.
type Runner struct {
	registry  *scanners.Registry
	writer    *report.Writer
	console   Console
	logger    core.Logger
	metrics   metrics.Collector
	publisher events.Publisher
	ledger    Ledger
	runID     string
}

// Option configures a Runner.
type Option func(*Runner)

// WithConsole sets the progress console. The default prints nothing.
func WithConsole(c Console) Option {
	return func(r *Runner) { r.console = c }
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c metrics.Collector) Option {
	return func(r *Runner) { r.metrics = c }
}

// WithPublisher sets the event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithLedger records every outcome in l.
func WithLedger(l Ledger) Option {
	return func(r *Runner) { r.ledger = l }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// New creates a runner. Every runner gets a random run id shared by all the
// outcomes it produces.
func New(registry *scanners.Registry, writer *report.Writer, opts ...Option) *Runner {
	r := &Runner{
		registry:  registry,
		writer:    writer,
		console:   nopConsole{},
		logger:    core.GetDefaultLogger(),
		metrics:   metrics.GetDefaultCollector(),
		publisher: events.NopPublisher{},
		runID:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID returns the run id.
func (r *Runner) RunID() string {
	return r.runID
}

// RunTool runs a single tool. The returned Outcome is never nil.
//
// An unknown tool yields ErrUnsupportedTool. A tool that fails to start or
// exits non-zero yields its error and no report file; the captured stderr is
// passed to the console. On success the report is written to the path that
// was announced before the tool started.
func (r *Runner) RunTool(ctx context.Context, inv Invocation) (*Outcome, error) {
	const op = "orchestrator.RunTool"

	out := &Outcome{
		RunID:     r.runID,
		Tool:      inv.Tool,
		Target:    inv.Target,
		StartedAt: time.Now(),
	}

	tool, ok := r.registry.Get(inv.Tool)
	if !ok {
		r.console.Unsupported(inv.Tool)
		out.Status = metrics.StatusUnsupported
		out.Err = errors.E(errors.KindUnsupported, op, fmt.Sprintf("tool %q", inv.Tool), errors.ErrUnsupportedTool)
		r.finish(ctx, out)
		return out, out.Err
	}

	opts := &core.ScanOptions{ExtraArgs: scanners.SplitParams(inv.Params)}
	out.Command = tool.Command(inv.Target, opts)
	out.PlannedPath = r.writer.Plan(tool.Name())
	r.console.Starting(tool.Name(), out.Command, out.PlannedPath)
	r.logger.Debug("[%s] run %s: %v", r.runID, tool.Name(), out.Command)

	timer := metrics.NewTimer(r.metrics, metrics.ToolRunDuration.Name, "tool", tool.Name())
	r.metrics.GaugeInc(metrics.ToolsRunning.Name, "tool", tool.Name())
	result, err := tool.Scan(ctx, inv.Target, opts)
	r.metrics.GaugeDec(metrics.ToolsRunning.Name, "tool", tool.Name())
	timer.ObserveDuration()
	if result != nil {
		out.ExitCode = result.ExitCode
		out.Stderr = result.Stderr
	}
	if err != nil {
		r.console.Failed(tool.Name(), out.Stderr)
		out.Status = metrics.StatusFailed
		out.Err = err
		r.finish(ctx, out)
		return out, err
	}

	artifact, err := r.writer.WriteTo(out.PlannedPath, tool.Name(), result.RawOutput, []byte(result.Stderr))
	if err != nil {
		r.console.Failed(tool.Name(), err.Error())
		out.Status = metrics.StatusFailed
		out.Err = err
		r.finish(ctx, out)
		return out, err
	}

	out.Artifact = artifact
	out.Status = metrics.StatusSuccess
	r.console.Saved(tool.Name(), artifact.Path)
	r.metrics.CounterAdd(metrics.ReportBytesTotal.Name, float64(artifact.Size), "tool", tool.Name())
	r.finish(ctx, out)
	return out, nil
}

// Run runs every selected tool against target, in registry order, one at a
// time. selections maps a tool name to its parameter string; presence of the
// key selects the tool, an empty string runs it without parameters. Names
// outside the registry are reported as unsupported after the known tools.
//
// Tool failures do not stop the run; they are recorded in the Summary. Run
// only returns an error when nothing was selected or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, target string, selections map[string]string) (*Summary, error) {
	const op = "orchestrator.Run"

	if len(selections) == 0 {
		return nil, errors.E(errors.KindInvalidInput, op, errors.ErrNoToolSelected)
	}

	summary := &Summary{RunID: r.runID, Target: target, StartedAt: time.Now()}
	defer func() {
		summary.Duration = time.Since(summary.StartedAt)
		r.metrics.GaugeSet(metrics.LastRunTimestamp.Name, float64(time.Now().Unix()), "command", "webscan")
	}()

	for _, name := range r.plan(selections) {
		if err := ctx.Err(); err != nil {
			return summary, errors.E(op, "run cancelled", err)
		}
		out, err := r.RunTool(ctx, Invocation{Tool: name, Target: target, Params: selections[name]})
		summary.Outcomes = append(summary.Outcomes, out)
		if err != nil {
			r.logger.Warn("[%s] %s: %v", r.runID, name, err)
		}
	}

	return summary, nil
}

// plan orders the selected names: registry order first, then unknown names
// sorted.
func (r *Runner) plan(selections map[string]string) []string {
	names := make([]string, 0, len(selections))
	seen := make(map[string]bool, len(selections))
	for _, name := range r.registry.Order() {
		if _, ok := selections[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}

	var unknown []string
	for name := range selections {
		if !seen[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return append(names, unknown...)
}

// finish records an outcome in metrics, the ledger and the event stream.
// Ledger and publish failures are logged only.
func (r *Runner) finish(ctx context.Context, out *Outcome) {
	out.Duration = time.Since(out.StartedAt)

	r.metrics.CounterInc(metrics.ToolRunsTotal.Name, "tool", out.Tool, "status", out.Status)

	var errText string
	if out.Err != nil {
		errText = out.Err.Error()
	}

	if r.ledger != nil {
		err := r.ledger.RecordRun(ctx, store.RunRecord{
			RunID:      out.RunID,
			Tool:       out.Tool,
			Target:     out.Target,
			Status:     out.Status,
			ExitCode:   out.ExitCode,
			ReportPath: out.ReportPath(),
			Error:      errText,
			StartedAt:  out.StartedAt,
			DurationMs: out.Duration.Milliseconds(),
		})
		if err != nil {
			r.logger.Warn("[%s] ledger: %v", r.runID, err)
		}
	}

	err := r.publisher.Publish(ctx, events.ToolEvent{
		RunID:      out.RunID,
		Tool:       out.Tool,
		Target:     out.Target,
		Command:    out.Command,
		Status:     out.Status,
		ExitCode:   out.ExitCode,
		ReportPath: out.ReportPath(),
		DurationMs: out.Duration.Milliseconds(),
		Error:      errText,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		r.logger.Warn("[%s] publish %s event: %v", r.runID, out.Tool, err)
	}
}
