package workload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/assoc/pkg/config"
	"github.com/Sumatoshi-tech/assoc/pkg/hashmap"
	"github.com/Sumatoshi-tech/assoc/pkg/observability"
)

// ErrMismatch is reported when a map disagreed with the reference map.
var ErrMismatch = errors.New("map disagreed with reference")

// Result summarizes one bench run.
type Result struct {
	Name       string
	Elapsed    time.Duration
	Ops        int
	Puts       int
	Gets       int
	Removes    int
	Hits       int
	Mismatches int
	FinalSize  int

	// Stats is set for hash maps.
	Stats *hashmap.Stats

	// Err holds the first mismatch or invariant violation.
	Err error
}

// Passed reports whether the run matched the reference and kept its invariants.
func (r Result) Passed() bool {
	return r.Err == nil
}

// NsPerOp returns the mean wall time per operation.
func (r Result) NsPerOp() float64 {
	if r.Ops == 0 {
		return 0
	}

	return float64(r.Elapsed.Nanoseconds()) / float64(r.Ops)
}

// Bench runs seeded random workloads.
type Bench struct {
	tracer  trace.Tracer
	metrics *observability.OpMetrics
	logger  *slog.Logger
	cfg     config.BenchConfig
}

// NewBench creates a bench. metrics may be nil.
func NewBench(cfg config.BenchConfig, tracer trace.Tracer, metrics *observability.OpMetrics, logger *slog.Logger) *Bench {
	return &Bench{cfg: cfg, tracer: tracer, metrics: metrics, logger: logger}
}

// Run drives target with the configured workload and checks every result
// against a builtin map. The same seed always yields the same operations.
func (b *Bench) Run(ctx context.Context, target *Target) Result {
	ctx, span := b.tracer.Start(ctx, "workload.bench", trace.WithAttributes(
		attribute.String("workload.map", target.Name),
		attribute.Int("workload.ops", b.cfg.Ops),
		attribute.Int("workload.key_space", b.cfg.KeySpace),
	))
	defer span.End()

	ctx = observability.WithMapKind(ctx, target.Name)

	rng := rand.New(rand.NewSource(b.cfg.Seed)) //nolint:gosec // reproducible workloads, not security.
	reference := make(map[int]string, b.cfg.KeySpace)
	putRatio := b.cfg.RemoveRatio + (1-b.cfg.RemoveRatio)/2
	result := Result{Name: target.Name, Ops: b.cfg.Ops}

	for idx := range b.cfg.Ops {
		key := rng.Intn(b.cfg.KeySpace)
		roll := rng.Float64()

		var (
			op       string
			mismatch bool
		)

		start := time.Now()

		switch {
		case roll < b.cfg.RemoveRatio:
			op = OpRemove
			result.Removes++

			got, ok := target.Map.Remove(key)
			want, wantOK := reference[key]
			delete(reference, key)

			mismatch = got != want || ok != wantOK
		case roll < putRatio:
			op = OpPut
			result.Puts++

			value := strconv.Itoa(idx)
			old, replaced := target.Map.Put(key, value)
			want, wantOK := reference[key]
			reference[key] = value

			mismatch = old != want || replaced != wantOK
		default:
			op = OpGet
			result.Gets++

			got, ok := target.Map.Get(key)
			want, wantOK := reference[key]

			if ok {
				result.Hits++
			}

			mismatch = got != want || ok != wantOK
		}

		elapsed := time.Since(start)
		result.Elapsed += elapsed

		if b.metrics != nil {
			b.metrics.RecordOp(ctx, target.Name, op, elapsed)
		}

		if mismatch {
			result.Mismatches++

			if b.metrics != nil {
				b.metrics.RecordMismatch(ctx, target.Name, op)
			}

			if result.Err == nil {
				result.Err = fmt.Errorf("%w: op %d %s %d", ErrMismatch, idx, op, key)
			}
		}
	}

	result.FinalSize = target.Map.Len()
	result.Err = errors.Join(result.Err, checkContents(target, reference), target.Verify())

	if target.Hash != nil {
		stats := target.Hash.Stats()
		result.Stats = &stats
	}

	if result.Err != nil {
		span.SetStatus(codes.Error, result.Err.Error())
		b.logger.ErrorContext(ctx, "bench failed", "error", result.Err)
	} else {
		b.logger.InfoContext(ctx, "bench finished",
			"ops", result.Ops, "size", result.FinalSize, "elapsed", result.Elapsed)
	}

	return result
}

func checkContents(target *Target, reference map[int]string) error {
	if target.Map.Len() != len(reference) {
		return fmt.Errorf("%w: size %d, want %d", ErrMismatch, target.Map.Len(), len(reference))
	}

	var mismatch error

	err := target.Map.Range(func(key int, value string) bool {
		if want, ok := reference[key]; !ok || want != value {
			mismatch = fmt.Errorf("%w: entry %d=%s", ErrMismatch, key, value)

			return false
		}

		return true
	})

	return errors.Join(mismatch, err)
}
