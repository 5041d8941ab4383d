package workload

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/assoc/pkg/hashmap"
)

const percentScale = 100

// RenderResults writes a summary table of bench results and, for hash maps,
// a table of their final shape.
func RenderResults(w io.Writer, results []Result) error {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Map", "Ops", "Puts", "Gets", "Removes", "Hit rate", "Size", "ns/op", "Status"})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})

	failed := 0

	for _, res := range results {
		hitRate := 0.0
		if res.Gets > 0 {
			hitRate = float64(res.Hits) / float64(res.Gets) * percentScale
		}

		tbl.AppendRow(table.Row{
			res.Name,
			humanize.Comma(int64(res.Ops)),
			humanize.Comma(int64(res.Puts)),
			humanize.Comma(int64(res.Gets)),
			humanize.Comma(int64(res.Removes)),
			fmt.Sprintf("%.1f%%", hitRate),
			humanize.Comma(int64(res.FinalSize)),
			humanize.FormatFloat("#,###.#", res.NsPerOp()),
			status(res),
		})

		if !res.Passed() {
			failed++
		}
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%d run(s), %d failed", len(results), failed)})
	tbl.Render()

	for _, res := range results {
		if res.Stats != nil {
			renderStats(w, res.Name, *res.Stats)
		}

		if res.Err != nil {
			_, err := color.New(color.FgRed).Fprintf(w, "%s: %v\n", res.Name, res.Err)
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}
	}

	return nil
}

func status(res Result) string {
	if res.Passed() {
		return color.New(color.FgGreen).Sprint("PASS")
	}

	return color.New(color.FgRed).Sprintf("FAIL (%d mismatches)", res.Mismatches)
}

func renderStats(w io.Writer, name string, stats hashmap.Stats) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(name + " table shape")
	tbl.AppendRows([]table.Row{
		{"Capacity", humanize.Comma(int64(stats.Capacity))},
		{"Threshold", humanize.Comma(int64(stats.Threshold))},
		{"Occupancy", fmt.Sprintf("%.1f%%", stats.Occupancy()*percentScale)},
		{"Chain buckets", humanize.Comma(int64(stats.ChainBuckets))},
		{"Tree buckets", humanize.Comma(int64(stats.TreeBuckets))},
		{"Longest chain", stats.LongestChain},
		{"Largest tree", stats.LargestTree},
		{"Resizes", stats.Resizes},
		{"Treeifies", stats.Treeifies},
		{"Untreeifies", stats.Untreeifies},
	})
	tbl.Render()
}
