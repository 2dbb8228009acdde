package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"medqc-hq/medqc/pkg/cli"
	"medqc-hq/medqc/pkg/config"
	"medqc-hq/medqc/pkg/gateway"
	"medqc-hq/medqc/pkg/outputmode"
	"medqc-hq/medqc/pkg/providerfactory"
	"medqc-hq/medqc/pkg/providers"
	"medqc-hq/medqc/pkg/telemetry/logging"
	"medqc-hq/medqc/pkg/telemetry/metrics"
	"medqc-hq/medqc/pkg/telemetry/tracing"
)

// loadConfig reads --config plus MEDQC_* overrides and applies the global
// logging flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, w))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return logger, nil
}

// newTracer starts the tracer and returns its shutdown function.
func newTracer(cfg *config.Config, logger *slog.Logger) (*tracing.Tracer, func(), error) {
	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return nil, nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}
	shutdown := func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}
	return tracer, shutdown, nil
}

// backend bundles the provider with the gateway and negotiator built over it.
type backend struct {
	provider   providers.Provider
	gateway    *gateway.Gateway
	negotiator *outputmode.Negotiator
}

// newBackend connects to the configured backend. catalog may be nil when
// only smoke tests are sent.
func newBackend(cfg *config.Config, catalog gateway.RuleLookup, logger *slog.Logger,
	collector *metrics.Collector, tracer *tracing.Tracer) (*backend, error) {
	override, err := outputmode.ParseMode(cfg.Backend.OutputMode)
	if err != nil {
		return nil, cli.NewConfigError("backend.output_mode", err.Error())
	}

	provider, err := providerfactory.FromConfig(cfg.Backend)
	if err != nil {
		return nil, cli.NewConfigError("backend", err.Error())
	}

	gw := gateway.New(provider, catalog, gateway.ConfigFrom(cfg),
		gateway.WithLogger(logger),
		gateway.WithMetrics(collector),
		gateway.WithTracer(tracer),
	)
	return &backend{
		provider:   provider,
		gateway:    gw,
		negotiator: outputmode.NewNegotiator(gw, override, cfg.Backend.ProbeTimeout, logger),
	}, nil
}

func (b *backend) Close() error {
	if err := b.provider.Close(); err != nil {
		return fmt.Errorf("failed to close backend: %w", err)
	}
	return nil
}
