package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/assoc/internal/workload"
)

const goldenFilePerm = 0o644

// ErrTraceMismatch is returned when a replay does not match the expected trace.
var ErrTraceMismatch = errors.New("trace differs from expected")

// ReplayCommand holds flags for the replay command.
type ReplayCommand struct {
	expect string
	kind   string
	update bool
}

// NewReplayCommand creates the replay command.
func NewReplayCommand() *cobra.Command {
	rc := &ReplayCommand{}

	cmd := &cobra.Command{
		Use:   "replay <scenario.json>",
		Short: "Replay a scripted scenario and print its trace",
		Long: `Replay the operations of a JSON scenario against the map it describes and print
one line per operation followed by the final contents.

With --expect the trace is compared to a golden file and the differences are shown.`,
		Args: cobra.ExactArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.expect, "expect", "e", "", "golden trace file to compare against")
	cmd.Flags().BoolVar(&rc.update, "update", false, "rewrite the --expect file with the produced trace")
	cmd.Flags().StringVarP(&rc.kind, "kind", "k", "", "override the map kind of the scenario")

	return cmd
}

func (rc *ReplayCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := setup(cmd, "")
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	scenario, err := workload.LoadScenario(args[0])
	if err != nil {
		return err
	}

	if rc.kind != "" {
		scenario.Map.Kind = rc.kind
	}

	target, err := workload.NewTarget(scenario.Map, rt.providers.Logger)
	if err != nil {
		return fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	lines, err := workload.Replay(ctx, rt.providers.Tracer, scenario, target)
	if err != nil {
		return fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	trace := strings.Join(lines, "\n") + "\n"

	switch {
	case rc.expect == "":
		_, err = io.WriteString(cmd.OutOrStdout(), trace)

		return err
	case rc.update:
		err = os.WriteFile(rc.expect, []byte(trace), goldenFilePerm)
		if err != nil {
			return fmt.Errorf("write golden: %w", err)
		}

		rt.providers.Logger.InfoContext(ctx, "golden updated", "path", rc.expect, "lines", len(lines))

		return nil
	default:
		return compareTrace(cmd.OutOrStdout(), rc.expect, trace)
	}
}

func compareTrace(w io.Writer, goldenPath, trace string) error {
	golden, err := os.ReadFile(goldenPath)
	if err != nil {
		return fmt.Errorf("read golden: %w", err)
	}

	diff, same := workload.Diff(string(golden), trace)
	if same {
		_, err = fmt.Fprintln(w, color.New(color.FgGreen).Sprint("trace matches ")+goldenPath)

		return err
	}

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)

	for line := range strings.Lines(diff) {
		switch {
		case strings.HasPrefix(line, "- "):
			_, err = removed.Fprint(w, line)
		case strings.HasPrefix(line, "+ "):
			_, err = added.Fprint(w, line)
		default:
			_, err = io.WriteString(w, line)
		}

		if err != nil {
			return err
		}
	}

	return fmt.Errorf("%w: %s", ErrTraceMismatch, goldenPath)
}
