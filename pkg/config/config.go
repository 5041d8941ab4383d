// Package config provides configuration loading and validation for the assoc CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/assoc/pkg/persist"
)

// Map kinds.
const (
	KindHash = "hash"
	KindTree = "tree"
)

// Hasher names accepted by map.hasher.
const (
	HasherMaphash  = "maphash"
	HasherXXHash   = "xxhash"
	HasherMix      = "mix"
	HasherIdentity = "identity"
	HasherConstant = "constant"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Sentinel validation errors.
var (
	ErrInvalidMapKind    = errors.New("map kind must be hash or tree")
	ErrInvalidCapacity   = errors.New("initial capacity must not be negative")
	ErrInvalidLoadFactor = errors.New("load factor must be positive")
	ErrInvalidHasher     = errors.New("unknown hasher")
	ErrInvalidOps        = errors.New("bench ops must be positive")
	ErrInvalidKeySpace   = errors.New("bench key space must be positive")
	ErrInvalidRemove     = errors.New("bench remove ratio must be within [0, 1]")
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrInvalidLogFormat  = errors.New("log format must be text or json")
)

// Config holds all configuration for the assoc CLI.
type Config struct {
	Map       MapConfig       `mapstructure:"map"`
	Bench     BenchConfig     `mapstructure:"bench"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
}

// MapConfig selects and tunes the map under test.
type MapConfig struct {
	Kind            string  `mapstructure:"kind"`
	Hasher          string  `mapstructure:"hasher"`
	LoadFactor      float64 `mapstructure:"load_factor"`
	InitialCapacity int     `mapstructure:"initial_capacity"`
}

// BenchConfig shapes the random workload.
type BenchConfig struct {
	RemoveRatio float64 `mapstructure:"remove_ratio"`
	Seed        int64   `mapstructure:"seed"`
	Ops         int     `mapstructure:"ops"`
	KeySpace    int     `mapstructure:"key_space"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// SnapshotConfig controls where and how map snapshots are written.
type SnapshotConfig struct {
	Codec     string `mapstructure:"codec"`
	Directory string `mapstructure:"directory"`
}

// SlogLevel parses the configured log level.
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}

	return level, nil
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches for assoc.yaml in the working directory and
// tolerates its absence.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("assoc")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
	}

	viperCfg.SetEnvPrefix("ASSOC")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("map.kind", DefaultMapKind)
	viperCfg.SetDefault("map.hasher", DefaultHasher)
	viperCfg.SetDefault("map.load_factor", DefaultLoadFactor)
	viperCfg.SetDefault("map.initial_capacity", DefaultInitialCapacity)

	viperCfg.SetDefault("bench.ops", DefaultBenchOps)
	viperCfg.SetDefault("bench.key_space", DefaultBenchKeySpace)
	viperCfg.SetDefault("bench.seed", DefaultBenchSeed)
	viperCfg.SetDefault("bench.remove_ratio", DefaultBenchRemove)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.service_name", DefaultServiceName)
	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.metrics_addr", DefaultMetricsAddr)

	viperCfg.SetDefault("snapshot.codec", DefaultCodec)
	viperCfg.SetDefault("snapshot.directory", DefaultSnapshotDir)
}

// Validate checks every section and returns the first violation.
func (c *Config) Validate() error {
	switch c.Map.Kind {
	case KindHash, KindTree:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMapKind, c.Map.Kind)
	}

	switch c.Map.Hasher {
	case HasherMaphash, HasherXXHash, HasherMix, HasherIdentity, HasherConstant:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidHasher, c.Map.Hasher)
	}

	if c.Map.InitialCapacity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, c.Map.InitialCapacity)
	}

	// NaN fails the comparison as well.
	if !(c.Map.LoadFactor > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidLoadFactor, c.Map.LoadFactor)
	}

	if c.Bench.Ops <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOps, c.Bench.Ops)
	}

	if c.Bench.KeySpace <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKeySpace, c.Bench.KeySpace)
	}

	if c.Bench.RemoveRatio < 0 || c.Bench.RemoveRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidRemove, c.Bench.RemoveRatio)
	}

	_, err := c.Logging.SlogLevel()
	if err != nil {
		return err
	}

	if c.Logging.Format != FormatText && c.Logging.Format != FormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	_, err = persist.CodecByName(c.Snapshot.Codec)
	if err != nil {
		return fmt.Errorf("snapshot codec: %w", err)
	}

	return nil
}
