package workload

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/assoc/pkg/hashmap"
)

const (
	chartHeight = "500px"
	chainColor  = "#5470c6"
	treeColor   = "#ee6666"
	emptyColor  = "#91cc75"
)

// Histogram counts buckets by entry count, split by bucket kind.
// Index i of each slice holds the number of buckets with i entries.
type Histogram struct {
	Empty int
	Chain []int
	Tree  []int
}

// BucketHistogram folds bucket shapes into a histogram.
func BucketHistogram(shapes []hashmap.BucketShape) Histogram {
	largest := 0
	for _, shape := range shapes {
		largest = max(largest, shape.Size)
	}

	hist := Histogram{
		Chain: make([]int, largest+1),
		Tree:  make([]int, largest+1),
	}

	for _, shape := range shapes {
		switch shape.Kind {
		case hashmap.BucketEmpty:
			hist.Empty++
		case hashmap.BucketChain:
			hist.Chain[shape.Size]++
		case hashmap.BucketTree:
			hist.Tree[shape.Size]++
		}
	}

	return hist
}

// RenderBucketChart writes an HTML page with a stacked bar chart of bucket
// sizes by kind, and a bar chart of bucket counts per kind.
func RenderBucketChart(w io.Writer, title string, stats hashmap.Stats, shapes []hashmap.BucketShape) error {
	hist := BucketHistogram(shapes)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(sizeChart(title, stats, hist), kindChart(hist))

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}

func sizeChart(title string, stats hashmap.Stats, hist Histogram) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title: title,
			Subtitle: fmt.Sprintf("%d entries in %d buckets, %d resizes, %d treeifies",
				stats.Size, stats.Capacity, stats.Resizes, stats.Treeifies),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "5%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "entries per bucket"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "buckets"}),
	)

	labels := make([]string, len(hist.Chain)-1)
	for idx := range labels {
		labels[idx] = strconv.Itoa(idx + 1)
	}

	bar.SetXAxis(labels)
	bar.AddSeries("chain", barData(hist.Chain[1:]),
		charts.WithBarChartOpts(opts.BarChart{Stack: "size"}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: chainColor}),
	)
	bar.AddSeries("tree", barData(hist.Tree[1:]),
		charts.WithBarChartOpts(opts.BarChart{Stack: "size"}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: treeColor}),
	)

	return bar
}

func kindChart(hist Histogram) *charts.Bar {
	chains, trees := 0, 0

	for size := range hist.Chain {
		chains += hist.Chain[size]
		trees += hist.Tree[size]
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Buckets by kind"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	bar.SetXAxis([]string{hashmap.BucketEmpty.String(), hashmap.BucketChain.String(), hashmap.BucketTree.String()})
	bar.AddSeries("buckets", []opts.BarData{
		{Value: hist.Empty, ItemStyle: &opts.ItemStyle{Color: emptyColor}},
		{Value: chains, ItemStyle: &opts.ItemStyle{Color: chainColor}},
		{Value: trees, ItemStyle: &opts.ItemStyle{Color: treeColor}},
	})

	return bar
}

func barData(counts []int) []opts.BarData {
	data := make([]opts.BarData, len(counts))
	for idx, count := range counts {
		data[idx] = opts.BarData{Value: count}
	}

	return data
}
