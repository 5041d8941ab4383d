package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/assoc/internal/workload"
	"github.com/Sumatoshi-tech/assoc/pkg/config"
	"github.com/Sumatoshi-tech/assoc/pkg/hashmap"
	"github.com/Sumatoshi-tech/assoc/pkg/observability"
	"github.com/Sumatoshi-tech/assoc/pkg/persist"
)

// kindAll selects both map kinds.
const kindAll = "all"

const readHeaderTimeout = 5 * time.Second

// ErrBenchFailed is returned when at least one map disagreed with the reference.
var ErrBenchFailed = errors.New("bench failed")

// BenchCommand holds flags for the bench command.
type BenchCommand struct {
	kind        string
	hasher      string
	metricsAddr string
	ops         int
	keySpace    int
	seed        int64
	snapshot    bool
	serve       bool
}

// NewBenchCommand creates the bench command.
func NewBenchCommand() *cobra.Command {
	bc := &BenchCommand{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a seeded random workload against the maps",
		Long: `Run a seeded random workload of puts, gets and removes against the hash map,
the tree map, or both, checking every result against a builtin map.

Flags override the bench and map sections of the configuration file.`,
		Args: cobra.NoArgs,
		RunE: bc.run,
	}

	cmd.Flags().StringVarP(&bc.kind, "kind", "k", kindAll, "map kind: hash, tree or all")
	cmd.Flags().StringVar(&bc.hasher, "hasher", "", "hash map hasher (maphash, xxhash, mix, identity, constant)")
	cmd.Flags().IntVarP(&bc.ops, "ops", "n", 0, "number of operations")
	cmd.Flags().IntVar(&bc.keySpace, "key-space", 0, "number of distinct keys")
	cmd.Flags().Int64Var(&bc.seed, "seed", 0, "workload seed")
	cmd.Flags().BoolVar(&bc.snapshot, "snapshot", false, "save each map to the snapshot directory afterwards")
	cmd.Flags().StringVar(&bc.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&bc.serve, "serve", false, "keep serving metrics after the run until interrupted")

	return cmd
}

func (bc *BenchCommand) run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := setup(cmd, bc.metricsAddr)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	err = bc.applyFlags(cmd, rt.cfg)
	if err != nil {
		return err
	}

	kinds, err := kindsFor(bc.kind)
	if err != nil {
		return err
	}

	var server *http.Server

	if rt.cfg.Telemetry.MetricsAddr != "" {
		server, err = serveMetrics(ctx, rt)
		if err != nil {
			return err
		}

		defer shutdownServer(ctx, rt, server)
	}

	results, err := bc.runKinds(ctx, rt, kinds)
	if err != nil {
		return err
	}

	err = workload.RenderResults(cmd.OutOrStdout(), results)
	if err != nil {
		return fmt.Errorf("render results: %w", err)
	}

	if server != nil && bc.serve {
		rt.providers.Logger.InfoContext(ctx, "serving metrics until interrupted", "addr", server.Addr)
		<-ctx.Done()
	}

	for _, res := range results {
		if !res.Passed() {
			return fmt.Errorf("%w: %s", ErrBenchFailed, res.Name)
		}
	}

	return nil
}

func (bc *BenchCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("ops") {
		cfg.Bench.Ops = bc.ops
	}

	if flags.Changed("key-space") {
		cfg.Bench.KeySpace = bc.keySpace
	}

	if flags.Changed("seed") {
		cfg.Bench.Seed = bc.seed
	}

	if flags.Changed("hasher") {
		cfg.Map.Hasher = bc.hasher
	}

	err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	return nil
}

func (bc *BenchCommand) runKinds(ctx context.Context, rt *env, kinds []string) ([]workload.Result, error) {
	opMetrics, err := observability.NewOpMetrics(rt.providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create op metrics: %w", err)
	}

	bench := workload.NewBench(rt.cfg.Bench, rt.providers.Tracer, opMetrics, rt.providers.Logger)
	results := make([]workload.Result, 0, len(kinds))

	for _, kind := range kinds {
		target, targetErr := newObservedTarget(ctx, rt, kind)
		if targetErr != nil {
			return nil, targetErr
		}

		res := bench.Run(ctx, target)
		results = append(results, res)

		if bc.snapshot && res.Passed() {
			snapErr := saveSnapshot(rt.cfg.Snapshot, target)
			if snapErr != nil {
				return nil, snapErr
			}

			rt.providers.Logger.InfoContext(observability.WithMapKind(ctx, target.Name), "snapshot saved",
				"dir", rt.cfg.Snapshot.Directory, "codec", rt.cfg.Snapshot.Codec)
		}
	}

	return results, nil
}

// newObservedTarget builds a map of kind from cfg, with metrics observing hash maps.
func newObservedTarget(ctx context.Context, rt *env, kind string) (*workload.Target, error) {
	var observers []hashmap.Observer

	if kind == config.KindHash {
		mapMetrics, err := observability.NewMapMetrics(ctx, rt.providers.Meter, kind)
		if err != nil {
			return nil, fmt.Errorf("create map metrics: %w", err)
		}

		observers = append(observers, mapMetrics)
	}

	target, err := workload.NewTarget(workload.SpecFromConfig(rt.cfg.Map, kind), rt.providers.Logger, observers...)
	if err != nil {
		return nil, fmt.Errorf("create %s map: %w", kind, err)
	}

	return target, nil
}

func saveSnapshot(cfg config.SnapshotConfig, target *workload.Target) error {
	codec, err := persist.CodecByName(cfg.Codec)
	if err != nil {
		return fmt.Errorf("snapshot codec: %w", err)
	}

	err = persist.SaveMap(cfg.Directory, "bench-"+target.Name, codec, target.Map)
	if err != nil {
		return fmt.Errorf("save %s snapshot: %w", target.Name, err)
	}

	return nil
}

func kindsFor(kind string) ([]string, error) {
	switch kind {
	case kindAll:
		return []string{config.KindHash, config.KindTree}, nil
	case config.KindHash, config.KindTree:
		return []string{kind}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidMapKind, kind)
	}
}

// serveMetrics starts the Prometheus scrape endpoint in the background.
func serveMetrics(ctx context.Context, rt *env) (*http.Server, error) {
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", rt.cfg.Telemetry.MetricsAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", rt.cfg.Telemetry.MetricsAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.providers.MetricsHandler)

	server := &http.Server{
		Addr:              listener.Addr().String(),
		Handler:           observability.HTTPMiddleware(rt.providers.Tracer, mux),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		serveErr := server.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			rt.providers.Logger.Error("metrics server stopped", "error", serveErr)
		}
	}()

	rt.providers.Logger.InfoContext(ctx, "metrics endpoint ready", "addr", server.Addr)

	return server, nil
}

func shutdownServer(ctx context.Context, rt *env, server *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), readHeaderTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		rt.providers.Logger.WarnContext(ctx, "metrics server shutdown failed", "error", err)
	}
}
