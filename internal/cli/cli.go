// Package cli holds the start-up code shared by the webscan and resparse
// commands: configuration, logging, metrics and event publishing.
package cli

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/exploopio/reconkit/pkg/config"
	"github.com/exploopio/reconkit/pkg/core"
	"github.com/exploopio/reconkit/pkg/events"
	"github.com/exploopio/reconkit/pkg/metrics"
)

// LoadConfig reads the configuration file at path (or the default search
// path when empty) and lets the named command flags override config keys.
// bindings maps a config key to a flag name.
func LoadConfig(cmd *cobra.Command, path string, bindings map[string]string) (*config.Config, error) {
	loader := config.NewLoader(path)
	for key, name := range bindings {
		if err := loader.BindFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, err
		}
	}
	return loader.Load()
}

// Runtime bundles the services a command run needs.
type Runtime struct {
	Config    *config.Config
	Logger    *core.LogrusLogger
	Metrics   metrics.Collector
	Publisher events.Publisher

	prom *metrics.PrometheusCollector
}

// Start builds the logger, the metrics collector and the event publisher
// described by cfg and installs them as package defaults. An unreachable
// Redis server is logged and replaced by a no-op publisher.
func Start(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	logger, err := core.InitLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	core.SetDefaultLogger(logger)

	if cfg.Log.Level == "debug" {
		pterm.EnableDebugMessages()
	}

	rt := &Runtime{
		Config:    cfg,
		Logger:    logger,
		Metrics:   &metrics.NopCollector{},
		Publisher: events.NopPublisher{},
	}

	if cfg.Metrics.Textfile != "" {
		rt.prom = metrics.NewPrometheusCollector(&metrics.PrometheusConfig{RegisterDefaultMetrics: true})
		rt.Metrics = rt.prom
	}
	metrics.SetDefaultCollector(rt.Metrics)

	if cfg.Events.Addr != "" {
		pub, err := events.NewRedisPublisher(ctx, cfg.Events)
		if err != nil {
			logger.Warn("events disabled: %v", err)
		} else {
			rt.Publisher = pub
			logger.Debug("publishing events to %s on %s", cfg.Events.Addr, pub.Channel())
		}
	}

	return rt, nil
}

// Close flushes the metrics textfile and closes the publisher.
func (rt *Runtime) Close() error {
	var firstErr error
	if rt.prom != nil {
		if err := rt.prom.WriteTextfile(rt.Config.Metrics.Textfile); err != nil {
			firstErr = err
		}
	}
	if err := rt.Publisher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
