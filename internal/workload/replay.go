package workload

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/assoc/pkg/maps"
)

const (
	resultAbsent = "absent"
	resultNone   = "none"
	resultOK     = "ok"
)

// Replay executes the scenario against target and returns one trace line per
// operation followed by the final contents of the map.
func Replay(ctx context.Context, tracer trace.Tracer, scenario *Scenario, target *Target) ([]string, error) {
	_, span := tracer.Start(ctx, "workload.replay", trace.WithAttributes(
		attribute.String("workload.scenario", scenario.Name),
		attribute.String("workload.map", target.Name),
		attribute.Int("workload.ops", len(scenario.Ops)),
	))
	defer span.End()

	lines := make([]string, 0, len(scenario.Ops)+1)

	for idx, op := range scenario.Ops {
		result, err := apply(target, op)
		if err != nil {
			span.RecordError(err)

			return lines, fmt.Errorf("op %d (%s): %w", idx, op, err)
		}

		lines = append(lines, fmt.Sprintf("%03d %s -> %s", idx, op, result))
	}

	lines = append(lines, "final "+maps.String(target.Map))

	return lines, nil
}

func apply(target *Target, op Op) (string, error) {
	m := target.Map

	switch op.Op {
	case OpPut:
		old, replaced := m.Put(op.Key, op.Value)
		if replaced {
			return "replaced " + old, nil
		}

		return "inserted", nil
	case OpPutIfAbsent:
		current, present := maps.PutIfAbsent(m, op.Key, op.Value)
		if present {
			return "present " + current, nil
		}

		return "inserted", nil
	case OpGet:
		value, ok := m.Get(op.Key)

		return valueOrAbsent(value, ok), nil
	case OpContains:
		return strconv.FormatBool(m.ContainsKey(op.Key)), nil
	case OpRemove:
		value, ok := m.Remove(op.Key)
		if ok {
			return "removed " + value, nil
		}

		return resultAbsent, nil
	case OpLen:
		return strconv.Itoa(m.Len()), nil
	case OpClear:
		m.Clear()

		return resultOK, nil
	case OpVerify:
		err := target.Verify()
		if err != nil {
			return err.Error(), nil
		}

		return resultOK, nil
	default:
		return navigate(target, op)
	}
}

func navigate(target *Target, op Op) (string, error) {
	if target.Tree == nil {
		return "", fmt.Errorf("%w: %s on %s", ErrUnsupported, op.Op, target.Name)
	}

	tree := target.Tree

	var (
		entry maps.Entry[int, string]
		ok    bool
	)

	switch op.Op {
	case OpFirst:
		entry, ok = tree.First()
	case OpLast:
		entry, ok = tree.Last()
	case OpFloor:
		entry, ok = tree.Floor(op.Key)
	case OpCeiling:
		entry, ok = tree.Ceiling(op.Key)
	case OpLower:
		entry, ok = tree.Lower(op.Key)
	case OpHigher:
		entry, ok = tree.Higher(op.Key)
	case OpPollFirst:
		entry, ok = tree.PollFirst()
	case OpPollLast:
		entry, ok = tree.PollLast()
	default:
		return "", fmt.Errorf("%w: unknown op %q", ErrInvalidScenario, op.Op)
	}

	if !ok {
		return resultNone, nil
	}

	return entry.String(), nil
}

func valueOrAbsent(value string, ok bool) string {
	if ok {
		return value
	}

	return resultAbsent
}

// Diff compares two traces line by line. It returns the differing lines
// prefixed with "-" (expected only) or "+" (actual only), and whether the
// traces are identical.
func Diff(expected, actual string) (string, bool) {
	dmp := diffmatchpatch.New()

	expectedChars, actualChars, lineArray := dmp.DiffLinesToChars(expected, actual)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(expectedChars, actualChars, false), lineArray)

	var sb strings.Builder

	same := true

	for _, diff := range diffs {
		prefix := "  "

		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
			same = false
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
			same = false
		case diffmatchpatch.DiffEqual:
		}

		for line := range strings.Lines(diff.Text) {
			sb.WriteString(prefix)
			sb.WriteString(line)
		}
	}

	return sb.String(), same
}
