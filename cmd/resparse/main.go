// resparse extracts indicators (CVE ids, IPv4 addresses, emails, phone
// numbers, URLs and paths) from scan result files and stores them in a SQL
// database.
//
// Usage:
//
//	resparse [dir]              parse dir (default ./scan_results) and store the records
//	resparse results [--limit]  show stored records
//	resparse runs [--limit]     show the webscan run ledger
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const (
	appName    = "resparse"
	appVersion = "1.0.0"
)

type globalOptions struct {
	configPath string
	logLevel   string
	dsn        string
	driver     string
}

// globalBindings maps config keys to the persistent flags.
var globalBindings = map[string]string{
	"log.level":       "log-level",
	"database.dsn":    "db",
	"database.driver": "driver",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		pterm.Error.Println(err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	global := &globalOptions{}
	parse := &parseOptions{}

	cmd := &cobra.Command{
		Use:     appName + " [dir]",
		Short:   "Extract indicators from scan results into a database",
		Version: appVersion,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				parse.dir = args[0]
			}
			return runParse(cmd, global, parse)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&global.configPath, "config", "", "config file (default: reconkit.yaml in . or ./configs)")
	pf.StringVar(&global.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&global.dsn, "db", "", "database DSN or SQLite file (default: parsed_results.db)")
	pf.StringVar(&global.driver, "driver", "", "database driver (sqlite, mysql, postgres)")

	f := cmd.Flags()
	f.StringVar(&parse.tagger, "tagger", "", "entity tagger (prose, rules, none)")
	f.StringVar(&parse.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	cmd.AddCommand(newResultsCmd(global), newRunsCmd(global))
	return cmd
}
