package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/assoc/pkg/config"
	"github.com/Sumatoshi-tech/assoc/pkg/persist"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "assoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.KindHash, cfg.Map.Kind)
	assert.Equal(t, config.HasherMaphash, cfg.Map.Hasher)
	assert.InDelta(t, config.DefaultLoadFactor, cfg.Map.LoadFactor, 1e-9)
	assert.Equal(t, config.DefaultInitialCapacity, cfg.Map.InitialCapacity)
	assert.Equal(t, config.DefaultBenchOps, cfg.Bench.Ops)
	assert.Equal(t, config.DefaultBenchKeySpace, cfg.Bench.KeySpace)
	assert.Equal(t, int64(config.DefaultBenchSeed), cfg.Bench.Seed)
	assert.Equal(t, config.FormatText, cfg.Logging.Format)
	assert.Equal(t, config.DefaultServiceName, cfg.Telemetry.ServiceName)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, "json", cfg.Snapshot.Codec)
}

func TestLoadConfig_NoPathWithoutFile(t *testing.T) {
	t.Parallel()

	// The working directory of the test carries no assoc.yaml.
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.KindHash, cfg.Map.Kind)
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `
map:
  kind: tree
  hasher: xxhash
  load_factor: 1.5
  initial_capacity: 0
bench:
  ops: 500
  key_space: 64
  seed: 42
  remove_ratio: 0.5
logging:
  level: debug
  format: json
telemetry:
  metrics_addr: ":9464"
snapshot:
  codec: yaml+lz4
`))
	require.NoError(t, err)

	assert.Equal(t, config.KindTree, cfg.Map.Kind)
	assert.Equal(t, config.HasherXXHash, cfg.Map.Hasher)
	assert.InDelta(t, 1.5, cfg.Map.LoadFactor, 1e-9)
	assert.Zero(t, cfg.Map.InitialCapacity)
	assert.Equal(t, 500, cfg.Bench.Ops)
	assert.Equal(t, 64, cfg.Bench.KeySpace)
	assert.Equal(t, int64(42), cfg.Bench.Seed)
	assert.Equal(t, ":9464", cfg.Telemetry.MetricsAddr)
	assert.Equal(t, "yaml+lz4", cfg.Snapshot.Codec)

	level, err := cfg.Logging.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("ASSOC_MAP_KIND", "tree")
	t.Setenv("ASSOC_BENCH_OPS", "7")

	cfg, err := config.LoadConfig(writeConfig(t, "bench:\n  ops: 3\n"))
	require.NoError(t, err)

	assert.Equal(t, config.KindTree, cfg.Map.Kind)
	assert.Equal(t, 7, cfg.Bench.Ops)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"kind", "map:\n  kind: skiplist\n", config.ErrInvalidMapKind},
		{"hasher", "map:\n  hasher: md5\n", config.ErrInvalidHasher},
		{"capacity", "map:\n  initial_capacity: -1\n", config.ErrInvalidCapacity},
		{"zero load factor", "map:\n  load_factor: 0\n", config.ErrInvalidLoadFactor},
		{"nan load factor", "map:\n  load_factor: .nan\n", config.ErrInvalidLoadFactor},
		{"ops", "bench:\n  ops: 0\n", config.ErrInvalidOps},
		{"key space", "bench:\n  key_space: -5\n", config.ErrInvalidKeySpace},
		{"remove ratio", "bench:\n  remove_ratio: 1.5\n", config.ErrInvalidRemove},
		{"log level", "logging:\n  level: loud\n", config.ErrInvalidLogLevel},
		{"log format", "logging:\n  format: xml\n", config.ErrInvalidLogFormat},
		{"codec", "snapshot:\n  codec: xml\n", persist.ErrUnknownCodec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "map:\n  kind: [broken\n"))
	require.ErrorContains(t, err, "read config")
	assert.Nil(t, cfg)
}

func TestLoadConfig_ExplicitPathNotFound(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("/nonexistent/path/assoc.yaml")
	require.Error(t, err)
	assert.Nil(t, cfg)
}
