package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricOpsTotal       = "assoc.ops.total"
	metricOpDuration     = "assoc.op.duration.seconds"
	metricMismatchTotal  = "assoc.mismatches.total"
	metricResizesTotal   = "assoc.hashmap.resizes.total"
	metricTreeifyTotal   = "assoc.hashmap.treeifies.total"
	metricUntreeifyTotal = "assoc.hashmap.untreeifies.total"
	metricCapacity       = "assoc.hashmap.capacity"
	metricTreeSize       = "assoc.hashmap.tree.size"

	attrOp   = "op"
	attrKind = "kind"
	attrMap  = "map"
)

// opBucketBoundaries covers 50ns to 1ms for single map operations.
var opBucketBoundaries = []float64{5e-8, 1e-7, 2.5e-7, 5e-7, 1e-6, 2.5e-6, 5e-6, 1e-5, 1e-4, 1e-3}

// OpMetrics holds the instruments recorded for every workload operation.
type OpMetrics struct {
	opsTotal      metric.Int64Counter
	opDuration    metric.Float64Histogram
	mismatchTotal metric.Int64Counter
}

// NewOpMetrics creates operation instruments from the given meter.
func NewOpMetrics(mt metric.Meter) (*OpMetrics, error) {
	opsTotal, err := mt.Int64Counter(metricOpsTotal,
		metric.WithDescription("Total number of map operations"),
		metric.WithUnit("{op}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpsTotal, err)
	}

	opDuration, err := mt.Float64Histogram(metricOpDuration,
		metric.WithDescription("Map operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(opBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpDuration, err)
	}

	mismatchTotal, err := mt.Int64Counter(metricMismatchTotal,
		metric.WithDescription("Operations whose result disagreed with the reference map"),
		metric.WithUnit("{op}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMismatchTotal, err)
	}

	return &OpMetrics{
		opsTotal:      opsTotal,
		opDuration:    opDuration,
		mismatchTotal: mismatchTotal,
	}, nil
}

// RecordOp records one operation on a map of the given kind.
func (om *OpMetrics) RecordOp(ctx context.Context, kind, op string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrOp, op),
	)

	om.opsTotal.Add(ctx, 1, attrs)
	om.opDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordMismatch counts an operation whose result differed from the reference.
func (om *OpMetrics) RecordMismatch(ctx context.Context, kind, op string) {
	om.mismatchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrOp, op),
	))
}

// MapMetrics turns hash map restructuring events into metrics.
// It satisfies hashmap.Observer.
type MapMetrics struct {
	//nolint:containedctx // observer callbacks carry no context of their own.
	ctx   context.Context
	attrs metric.MeasurementOption

	resizes     metric.Int64Counter
	treeifies   metric.Int64Counter
	untreeifies metric.Int64Counter
	capacity    metric.Int64Gauge
	treeSize    metric.Int64Histogram
}

// NewMapMetrics creates restructuring instruments labelled with name.
// Measurements are recorded against ctx.
func NewMapMetrics(ctx context.Context, mt metric.Meter, name string) (*MapMetrics, error) {
	resizes, err := mt.Int64Counter(metricResizesTotal,
		metric.WithDescription("Hash table resizes"),
		metric.WithUnit("{resize}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricResizesTotal, err)
	}

	treeifies, err := mt.Int64Counter(metricTreeifyTotal,
		metric.WithDescription("Buckets converted from chain to tree"),
		metric.WithUnit("{bucket}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTreeifyTotal, err)
	}

	untreeifies, err := mt.Int64Counter(metricUntreeifyTotal,
		metric.WithDescription("Buckets converted from tree to chain"),
		metric.WithUnit("{bucket}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricUntreeifyTotal, err)
	}

	capacity, err := mt.Int64Gauge(metricCapacity,
		metric.WithDescription("Current bucket count"),
		metric.WithUnit("{bucket}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCapacity, err)
	}

	treeSize, err := mt.Int64Histogram(metricTreeSize,
		metric.WithDescription("Entries in a bucket at the moment it was treeified"),
		metric.WithUnit("{entry}"),
		metric.WithExplicitBucketBoundaries(8, 9, 12, 16, 32, 64, 128),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTreeSize, err)
	}

	return &MapMetrics{
		ctx:         ctx,
		attrs:       metric.WithAttributes(attribute.String(attrMap, name)),
		resizes:     resizes,
		treeifies:   treeifies,
		untreeifies: untreeifies,
		capacity:    capacity,
		treeSize:    treeSize,
	}, nil
}

// OnResize records the new capacity, and a resize unless the table was just allocated.
func (mm *MapMetrics) OnResize(oldCapacity, newCapacity int) {
	if oldCapacity > 0 {
		mm.resizes.Add(mm.ctx, 1, mm.attrs)
	}

	mm.capacity.Record(mm.ctx, int64(newCapacity), mm.attrs)
}

// OnTreeify records a chain-to-tree conversion.
func (mm *MapMetrics) OnTreeify(_, size int) {
	mm.treeifies.Add(mm.ctx, 1, mm.attrs)
	mm.treeSize.Record(mm.ctx, int64(size), mm.attrs)
}

// OnUntreeify records a tree-to-chain conversion.
func (mm *MapMetrics) OnUntreeify(_, _ int) {
	mm.untreeifies.Add(mm.ctx, 1, mm.attrs)
}
