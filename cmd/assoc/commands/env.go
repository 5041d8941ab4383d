// Package commands implements CLI command handlers for assoc.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/assoc/pkg/config"
	"github.com/Sumatoshi-tech/assoc/pkg/observability"
	"github.com/Sumatoshi-tech/assoc/pkg/version"
)

// ConfigFlag is the persistent flag naming the configuration file.
const ConfigFlag = "config"

const otlpHeadersEnv = "OTEL_EXPORTER_OTLP_HEADERS"

// env is the per-invocation runtime shared by all commands.
type env struct {
	cfg       *config.Config
	providers observability.Providers
}

// setup loads configuration and initializes telemetry for cmd.
// Prometheus export is attached when metricsAddr is not empty.
func setup(cmd *cobra.Command, metricsAddr string) (*env, error) {
	path, err := cmd.Flags().GetString(ConfigFlag)
	if err != nil {
		return nil, fmt.Errorf("read --%s flag: %w", ConfigFlag, err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if metricsAddr != "" {
		cfg.Telemetry.MetricsAddr = metricsAddr
	}

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceName = cfg.Telemetry.ServiceName
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv(otlpHeadersEnv))
	obsCfg.Prometheus = cfg.Telemetry.MetricsAddr != ""
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.Format == config.FormatJSON
	obsCfg.LogOutput = cmd.ErrOrStderr()

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	return &env{cfg: cfg, providers: providers}, nil
}

func (e *env) close(ctx context.Context) {
	err := e.providers.Shutdown(context.WithoutCancel(ctx))
	if err != nil {
		e.providers.Logger.WarnContext(ctx, "telemetry shutdown failed", "error", err)
	}
}
