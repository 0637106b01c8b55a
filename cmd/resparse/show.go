package main

import (
	"context"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/exploopio/reconkit/internal/cli"
	"github.com/exploopio/reconkit/pkg/store"
)

func newResultsCmd(global *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show stored extraction records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, global, func(ctx context.Context, db *store.Store) error {
				rows, err := db.ListResults(ctx, limit)
				if err != nil {
					return err
				}
				data := pterm.TableData{{"ID", "File", "CVE", "IP", "Email", "Phone", "URL", "Endpoint"}}
				for _, r := range rows {
					data = append(data, []string{
						strconv.FormatInt(r.ID, 10), r.FileName, r.CVE, r.IP, r.Email, r.Phone, r.URL, r.Endpoint,
					})
				}
				return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows (0 = all)")
	return cmd
}

func newRunsCmd(global *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the webscan run ledger, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, global, func(ctx context.Context, db *store.Store) error {
				runs, err := db.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				data := pterm.TableData{{"Run", "Started", "Tool", "Target", "Status", "Exit", "Duration", "Report"}}
				for _, r := range runs {
					data = append(data, []string{
						r.RunID[:min(8, len(r.RunID))],
						r.StartedAt.Local().Format(time.DateTime),
						r.Tool,
						r.Target,
						r.Status,
						strconv.Itoa(r.ExitCode),
						(time.Duration(r.DurationMs) * time.Millisecond).String(),
						r.ReportPath,
					})
				}
				return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of runs")
	return cmd
}

func withStore(cmd *cobra.Command, global *globalOptions, fn func(context.Context, *store.Store) error) error {
	ctx := cmd.Context()

	cfg, err := cli.LoadConfig(cmd, global.configPath, globalBindings)
	if err != nil {
		return err
	}
	rt, err := cli.Start(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, db)
}
