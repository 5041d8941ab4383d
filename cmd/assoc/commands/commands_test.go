package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/assoc/cmd/assoc/commands"
	"github.com/Sumatoshi-tech/assoc/internal/workload"
	"github.com/Sumatoshi-tech/assoc/pkg/config"
)

var (
	scenarioPath = filepath.Join("..", "..", "..", "internal", "workload", "testdata", "navigation.json")
	goldenPath   = filepath.Join("..", "..", "..", "internal", "workload", "testdata", "navigation.golden")
)

// execute runs cmd under a minimal root carrying the persistent config flag.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()

	root := &cobra.Command{Use: "assoc", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String(commands.ConfigFlag, "", "")
	root.AddCommand(cmd)

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{cmd.Name()}, args...))

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

// writeConfig writes a small configuration whose snapshots land in dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "assoc.yaml")
	body := "bench:\n  ops: 3000\n  key_space: 400\n  seed: 7\n" +
		"logging:\n  level: warn\n" +
		"snapshot:\n  codec: json+lz4\n  directory: " + dir + "\n"

	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestBench_BothKinds(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	out, _, err := execute(t, commands.NewBenchCommand(), "--config", writeConfig(t, dir), "--snapshot")
	require.NoError(t, err)

	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "2 run(s), 0 failed")
	assert.Contains(t, out, "hash table shape")

	for _, name := range []string{"bench-hash.json.lz4", "bench-tree.json.lz4"} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		require.NoError(t, statErr, name)
	}
}

func TestBench_DegenerateHasher(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, commands.NewBenchCommand(),
		"--config", writeConfig(t, t.TempDir()), "--kind", "hash", "--hasher", config.HasherConstant, "--ops", "500")
	require.NoError(t, err)
	assert.Contains(t, out, "1 run(s), 0 failed")
}

func TestBench_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, commands.NewBenchCommand(),
		"--config", writeConfig(t, t.TempDir()), "--kind", "tree", "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)
}

func TestBench_InvalidFlags(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, t.TempDir())

	_, _, err := execute(t, commands.NewBenchCommand(), "--config", cfgPath, "--kind", "list")
	require.ErrorIs(t, err, config.ErrInvalidMapKind)

	_, _, err = execute(t, commands.NewBenchCommand(), "--config", cfgPath, "--ops=-1")
	require.ErrorIs(t, err, config.ErrInvalidOps)

	_, _, err = execute(t, commands.NewBenchCommand(), "--config", cfgPath, "--hasher", "sha1")
	require.ErrorIs(t, err, config.ErrInvalidHasher)
}

func TestReplay_PrintsTrace(t *testing.T) {
	t.Parallel()

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)

	out, _, err := execute(t, commands.NewReplayCommand(), "--config", writeConfig(t, t.TempDir()), scenarioPath)
	require.NoError(t, err)
	assert.Equal(t, string(golden), out)
}

func TestReplay_MatchesGolden(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, commands.NewReplayCommand(),
		"--config", writeConfig(t, t.TempDir()), "--expect", goldenPath, scenarioPath)
	require.NoError(t, err)
	assert.Contains(t, out, "trace matches")
}

func TestReplay_MismatchShowsDiff(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.golden")

	require.NoError(t, os.WriteFile(stale, []byte("000 put 5=five -> inserted\nfinal {}\n"), 0o600))

	out, _, err := execute(t, commands.NewReplayCommand(),
		"--config", writeConfig(t, dir), "--expect", stale, scenarioPath)
	require.ErrorIs(t, err, commands.ErrTraceMismatch)
	assert.Contains(t, out, "- final {}")
	assert.Contains(t, out, "+ final {3=three")
}

func TestReplay_UpdateGolden(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	fresh := filepath.Join(dir, "fresh.golden")

	_, _, err := execute(t, commands.NewReplayCommand(), "--config", cfgPath, "--expect", fresh, "--update", scenarioPath)
	require.NoError(t, err)

	out, _, err := execute(t, commands.NewReplayCommand(), "--config", cfgPath, "--expect", fresh, scenarioPath)
	require.NoError(t, err)
	assert.Contains(t, out, "trace matches")
}

func TestReplay_NavigationOnHashMap(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, commands.NewReplayCommand(),
		"--config", writeConfig(t, t.TempDir()), "--kind", "hash", scenarioPath)
	require.ErrorIs(t, err, workload.ErrUnsupported)
}

func TestReplay_MissingScenario(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, commands.NewReplayCommand(),
		"--config", writeConfig(t, t.TempDir()), filepath.Join(t.TempDir(), "none.json"))
	require.Error(t, err)
}

func TestChart_WritesHTML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	output := filepath.Join(dir, "buckets.html")

	out, _, err := execute(t, commands.NewChartCommand(),
		"--config", writeConfig(t, dir), "--output", output, "--hasher", config.HasherIdentity)
	require.NoError(t, err)
	assert.Contains(t, out, output)

	page, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Buckets by kind")
	assert.Contains(t, string(page), "identity hasher")
}

func TestCommands_RequireConfigFlag(t *testing.T) {
	t.Parallel()

	cmd := commands.NewChartCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.ErrorContains(t, err, "--config")
}
