// webscan runs web security scanners one after another against a single
// target and saves each tool's raw output as a timestamped report.
//
// Usage:
//
//	webscan -t testphp.vulnweb.com --subfinder "" --sqlmap "--crawl=2 --random-agent --batch" --nuclei "-es unknown" --wapiti
//
// Tools always run in the order sqlmap, nuclei, subfinder, wapiti. A tool
// flag takes an optional parameter string that is split on whitespace and
// appended to the tool's command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/exploopio/reconkit/internal/cli"
	"github.com/exploopio/reconkit/pkg/compress"
	"github.com/exploopio/reconkit/pkg/errors"
	"github.com/exploopio/reconkit/pkg/metrics"
	"github.com/exploopio/reconkit/pkg/orchestrator"
	"github.com/exploopio/reconkit/pkg/report"
	"github.com/exploopio/reconkit/pkg/scanners"
	"github.com/exploopio/reconkit/pkg/store"
)

const (
	appName    = "webscan"
	appVersion = "1.0.0"
)

// noParams is the value a tool flag takes when given without parameters.
const noParams = " "

type options struct {
	target      string
	configPath  string
	reportDir   string
	logLevel    string
	compress    string
	ledger      bool
	metricsFile string
	checkTools  bool
	listTools   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	cmd.SetArgs(normalizeArgs(os.Args[1:], scanners.Order()))
	if err := cmd.ExecuteContext(ctx); err != nil {
		pterm.Error.Println(err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:     appName + " -t <target> [--sqlmap[=params]] [--nuclei[=params]] [--subfinder[=params]] [--wapiti[=params]]",
		Short:   "Run sqlmap, nuclei, subfinder and wapiti against a target",
		Version: appVersion,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.Flags()
	f.StringVarP(&opts.target, "target", "t", "", "target for every tool (e.g. target.com)")
	f.StringVar(&opts.configPath, "config", "", "config file (default: reconkit.yaml in . or ./configs)")
	f.StringVar(&opts.reportDir, "report-dir", "", "directory for report files (default: home directory)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&opts.compress, "compress", "", "compress reports (none, zstd, gzip)")
	f.BoolVar(&opts.ledger, "ledger", false, "record every tool run in the database")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	f.BoolVar(&opts.checkTools, "check-tools", false, "check which tools are installed and exit")
	f.BoolVar(&opts.listTools, "list-tools", false, "list supported tools and exit")

	for _, name := range scanners.Order() {
		f.String(name, "", fmt.Sprintf("parameters for %s (optional)", name))
		f.Lookup(name).NoOptDefVal = noParams
	}

	return cmd
}

// normalizeArgs joins a tool flag with a following parameter string so that
// `--sqlmap "--batch --crawl=2"` parses like `--sqlmap="--batch --crawl=2"`.
// The next argument is taken as parameters when it contains a space or does
// not start with "-".
func normalizeArgs(args []string, tools []string) []string {
	isTool := make(map[string]bool, len(tools))
	for _, name := range tools {
		isTool["--"+name] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if isTool[arg] && i+1 < len(args) {
			next := args[i+1]
			if strings.Contains(next, " ") || !strings.HasPrefix(next, "-") {
				out = append(out, arg+"="+next)
				i++
				continue
			}
		}
		out = append(out, arg)
	}
	return out
}

// selections returns the tool flags that were given, keyed by tool name.
func selections(cmd *cobra.Command) map[string]string {
	selected := make(map[string]string)
	for _, name := range scanners.Order() {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		selected[name] = strings.TrimSpace(flag.Value.String())
	}
	return selected
}

func run(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()

	cfg, err := cli.LoadConfig(cmd, opts.configPath, map[string]string{
		"report.dir":         "report-dir",
		"report.compression": "compress",
		"report.ledger":      "ledger",
		"log.level":          "log-level",
		"metrics.textfile":   "metrics-file",
	})
	if err != nil {
		return err
	}

	registry := scanners.NewRegistry().WithOverrides(cfg.Tools)

	if opts.listTools {
		return listTools(registry)
	}
	if opts.checkTools {
		return checkTools(ctx, registry)
	}

	if opts.target == "" {
		return fmt.Errorf(`required flag "target" not set`)
	}
	selected := selections(cmd)
	if len(selected) == 0 {
		return fmt.Errorf("specify parameters for at least one tool (--sqlmap, --nuclei, --subfinder, --wapiti): %w", errors.ErrNoToolSelected)
	}

	rt, err := cli.Start(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Warn("shutdown: %v", err)
		}
	}()

	algorithm, err := compress.ParseAlgorithm(cfg.Report.Compression)
	if err != nil {
		return err
	}
	writer := report.NewWriter(cfg.Report.Dir)
	writer.Compression = algorithm

	runnerOpts := []orchestrator.Option{
		orchestrator.WithConsole(orchestrator.NewConsole(os.Stdout)),
		orchestrator.WithLogger(rt.Logger),
		orchestrator.WithMetrics(rt.Metrics),
		orchestrator.WithPublisher(rt.Publisher),
	}
	if cfg.Report.Ledger {
		db, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		runnerOpts = append(runnerOpts, orchestrator.WithLedger(db))
	}

	runner := orchestrator.New(registry, writer, runnerOpts...)
	rt.Logger.Info("run %s: target=%s tools=%d", runner.RunID(), opts.target, len(selected))

	summary, err := runner.Run(ctx, opts.target, selected)
	if err != nil {
		return err
	}

	rt.Logger.Info("run %s finished in %s: %d succeeded, %d failed",
		summary.RunID, summary.Duration,
		summary.Count(metrics.StatusSuccess), summary.Count(metrics.StatusFailed))
	return nil
}
