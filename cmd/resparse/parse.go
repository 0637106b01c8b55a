package main

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/exploopio/reconkit/internal/cli"
	"github.com/exploopio/reconkit/pkg/events"
	"github.com/exploopio/reconkit/pkg/extract"
	"github.com/exploopio/reconkit/pkg/metrics"
	"github.com/exploopio/reconkit/pkg/nlp"
	"github.com/exploopio/reconkit/pkg/parser"
	"github.com/exploopio/reconkit/pkg/store"
)

type parseOptions struct {
	dir         string
	tagger      string
	metricsFile string
}

func runParse(cmd *cobra.Command, global *globalOptions, opts *parseOptions) error {
	ctx := cmd.Context()

	bindings := map[string]string{
		"parser.tagger":    "tagger",
		"metrics.textfile": "metrics-file",
	}
	for k, v := range globalBindings {
		bindings[k] = v
	}
	cfg, err := cli.LoadConfig(cmd, global.configPath, bindings)
	if err != nil {
		return err
	}

	dir := opts.dir
	if dir == "" {
		dir = cfg.Parser.Dir
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
	timer := metrics.NewTimer(rt.Metrics, metrics.BatchDuration.Name)

	tagger, err := nlp.New(cfg.Parser.Tagger)
	if err != nil {
		return err
	}
	p := parser.New(extract.New(tagger),
		parser.WithLogger(rt.Logger),
		parser.WithMetrics(rt.Metrics),
	)

	records, summary, err := p.ParseDirectory(ctx, dir)
	if err != nil {
		return err
	}
	rt.Logger.Info("parsed %d files in %s: %d records, %d unsupported",
		summary.Files, dir, summary.Records, len(summary.Unsupported))

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.SaveRecords(ctx, records)
	if err != nil {
		return err
	}

	elapsed := timer.ObserveDuration()
	rt.Metrics.CounterAdd(metrics.RecordsPersistedTotal.Name, float64(n))
	rt.Metrics.GaugeSet(metrics.LastRunTimestamp.Name, float64(time.Now().Unix()), "command", "resparse")

	err = rt.Publisher.Publish(ctx, events.BatchEvent{
		Directory:  dir,
		Files:      summary.Files,
		Records:    summary.Records,
		Persisted:  n,
		Driver:     string(db.Driver()),
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		rt.Logger.Warn("publish batch event: %v", err)
	}

	pterm.Success.Printfln("Data saved to the database (%d records from %d files).", n, summary.Files)
	return nil
}
