package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/assoc/internal/workload"
	"github.com/Sumatoshi-tech/assoc/pkg/config"
)

const defaultChartOutput = "buckets.html"

// ChartCommand holds flags for the chart command.
type ChartCommand struct {
	output   string
	hasher   string
	ops      int
	keySpace int
}

// NewChartCommand creates the chart command.
func NewChartCommand() *cobra.Command {
	cc := &ChartCommand{}

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render the bucket layout of a hash map after a workload",
		Long: `Run the configured workload against a hash map and render an HTML page showing
how its entries are spread over empty, chained and tree buckets.`,
		Args: cobra.NoArgs,
		RunE: cc.run,
	}

	cmd.Flags().StringVarP(&cc.output, "output", "o", defaultChartOutput, "HTML output file")
	cmd.Flags().StringVar(&cc.hasher, "hasher", "", "hash map hasher (maphash, xxhash, mix, identity, constant)")
	cmd.Flags().IntVarP(&cc.ops, "ops", "n", 0, "number of operations")
	cmd.Flags().IntVar(&cc.keySpace, "key-space", 0, "number of distinct keys")

	return cmd
}

func (cc *ChartCommand) run(cmd *cobra.Command, _ []string) (err error) {
	ctx := cmd.Context()

	rt, err := setup(cmd, "")
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	flags := cmd.Flags()
	if flags.Changed("hasher") {
		rt.cfg.Map.Hasher = cc.hasher
	}

	if flags.Changed("ops") {
		rt.cfg.Bench.Ops = cc.ops
	}

	if flags.Changed("key-space") {
		rt.cfg.Bench.KeySpace = cc.keySpace
	}

	err = rt.cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	target, err := newObservedTarget(ctx, rt, config.KindHash)
	if err != nil {
		return err
	}

	res := workload.NewBench(rt.cfg.Bench, rt.providers.Tracer, nil, rt.providers.Logger).Run(ctx, target)
	if !res.Passed() {
		return fmt.Errorf("%w: %s", ErrBenchFailed, res.Name)
	}

	file, err := os.Create(cc.output)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}

	defer func() {
		err = errors.Join(err, file.Close())
	}()

	title := fmt.Sprintf("%s hasher, %d keys", rt.cfg.Map.Hasher, target.Map.Len())

	err = workload.RenderBucketChart(file, title, target.Hash.Stats(), target.Hash.BucketShapes())
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s\n", cc.output)

	return err
}
