package workload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/assoc/pkg/config"
)

var noopTracer = nooptrace.NewTracerProvider().Tracer("test")

func TestParseScenario_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"map":`},
		{"missing ops", `{"map": {"kind": "tree"}}`},
		{"unknown kind", `{"map": {"kind": "skiplist"}, "ops": []}`},
		{"unknown op", `{"map": {"kind": "tree"}, "ops": [{"op": "shuffle"}]}`},
		{"put without value", `{"map": {"kind": "tree"}, "ops": [{"op": "put", "key": 1}]}`},
		{"get without key", `{"map": {"kind": "hash"}, "ops": [{"op": "get"}]}`},
		{"extra field", `{"map": {"kind": "hash", "colour": "red"}, "ops": []}`},
		{"zero load factor", `{"map": {"kind": "hash", "load_factor": 0}, "ops": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseScenario([]byte(tt.data))
			require.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestParseScenario_Valid(t *testing.T) {
	t.Parallel()

	scenario, err := ParseScenario([]byte(`{
		"map": {"kind": "hash", "hasher": "constant", "initial_capacity": 64, "load_factor": 0.5},
		"ops": [{"op": "put", "key": -3, "value": ""}, {"op": "len"}]
	}`))
	require.NoError(t, err)

	require.NotNil(t, scenario.Map.InitialCapacity)
	assert.Equal(t, 64, *scenario.Map.InitialCapacity)
	assert.Equal(t, config.HasherConstant, scenario.Map.Hasher)
	assert.Equal(t, []Op{{Op: OpPut, Key: -3}, {Op: OpLen}}, scenario.Ops)
	assert.Equal(t, "put -3=", scenario.Ops[0].String())
}

func TestReplay_MatchesGolden(t *testing.T) {
	t.Parallel()

	scenario, err := LoadScenario(filepath.Join("testdata", "navigation.json"))
	require.NoError(t, err)

	target, err := NewTarget(scenario.Map, nil)
	require.NoError(t, err)

	lines, err := Replay(context.Background(), noopTracer, scenario, target)
	require.NoError(t, err)

	golden, err := os.ReadFile(filepath.Join("testdata", "navigation.golden"))
	require.NoError(t, err)

	diff, same := Diff(string(golden), strings.Join(lines, "\n")+"\n")
	assert.True(t, same, diff)
}

func TestReplay_ReverseOrder(t *testing.T) {
	t.Parallel()

	scenario := &Scenario{
		Map: MapSpec{Kind: config.KindTree, Order: OrderReverse},
		Ops: []Op{
			{Op: OpPut, Key: 1, Value: "a"},
			{Op: OpPut, Key: 2, Value: "b"},
			{Op: OpFirst},
			{Op: OpCeiling, Key: 3},
			{Op: OpFloor, Key: 3},
		},
	}

	target, err := NewTarget(scenario.Map, nil)
	require.NoError(t, err)

	lines, err := Replay(context.Background(), noopTracer, scenario, target)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"000 put 1=a -> inserted",
		"001 put 2=b -> inserted",
		"002 first -> 2=b",
		"003 ceiling 3 -> 2=b",
		"004 floor 3 -> none",
		"final {2=b, 1=a}",
	}, lines)
}

func TestReplay_HashMapTreeifiesCollisions(t *testing.T) {
	t.Parallel()

	capacity := 64
	scenario := &Scenario{Map: MapSpec{Kind: config.KindHash, Hasher: config.HasherConstant, InitialCapacity: &capacity}}

	for key := range 10 {
		scenario.Ops = append(scenario.Ops, Op{Op: OpPut, Key: key, Value: "v"})
	}

	scenario.Ops = append(scenario.Ops, Op{Op: OpVerify}, Op{Op: OpPutIfAbsent, Key: 3, Value: "w"}, Op{Op: OpGet, Key: 9})

	target, err := NewTarget(scenario.Map, nil)
	require.NoError(t, err)

	lines, err := Replay(context.Background(), noopTracer, scenario, target)
	require.NoError(t, err)

	assert.Equal(t, "010 verify -> ok", lines[10])
	assert.Equal(t, "011 put_if_absent 3=w -> present v", lines[11])
	assert.Equal(t, "012 get 9 -> v", lines[12])
	assert.Equal(t, 1, target.Hash.Stats().TreeBuckets)
}

func TestReplay_NavigationOnHashMap(t *testing.T) {
	t.Parallel()

	scenario := &Scenario{
		Map: MapSpec{Kind: config.KindHash},
		Ops: []Op{{Op: OpPut, Key: 1, Value: "a"}, {Op: OpFirst}},
	}

	target, err := NewTarget(scenario.Map, nil)
	require.NoError(t, err)

	lines, err := Replay(context.Background(), noopTracer, scenario, target)
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Len(t, lines, 1, "operations before the failure are traced")
}

func TestNewTarget_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewTarget(MapSpec{Kind: "skiplist"}, nil)
	require.ErrorIs(t, err, config.ErrInvalidMapKind)

	_, err = NewTarget(MapSpec{Kind: config.KindHash, Hasher: "md5"}, nil)
	require.ErrorIs(t, err, config.ErrInvalidHasher)

	_, err = NewTarget(MapSpec{Kind: config.KindHash, LoadFactor: -1}, nil)
	require.Error(t, err)

	_, err = NewTarget(MapSpec{Kind: config.KindTree, Order: "random"}, nil)
	require.ErrorIs(t, err, ErrInvalidScenario)
}

func TestHasherFor_AllNamesDistinguishKeys(t *testing.T) {
	t.Parallel()

	for _, name := range []string{config.HasherMaphash, config.HasherXXHash, config.HasherMix, config.HasherIdentity} {
		hasher, err := HasherFor(name)
		require.NoError(t, err, name)
		assert.NotEqual(t, hasher(1), hasher(2), name)
		assert.Equal(t, hasher(42), hasher(42), name)
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()

	diff, same := Diff("a\nb\nc\n", "a\nb\nc\n")
	assert.True(t, same)
	assert.Equal(t, "  a\n  b\n  c\n", diff)

	diff, same = Diff("a\nb\nc\n", "a\nx\nc\n")
	assert.False(t, same)
	assert.Contains(t, diff, "- b\n")
	assert.Contains(t, diff, "+ x\n")
	assert.Contains(t, diff, "  a\n")
}
