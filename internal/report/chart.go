package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/scenario.report/internal/oracles"
)

// RenderOccupancyChart writes an HTML page with one bar chart per
// compared lane, showing reference and candidate occupancy per
// cross-section.
func RenderOccupancyChart(w io.Writer, c oracles.Comparison) error {
	page := components.NewPage()
	page.PageTitle = "Lane occupancy"

	for _, lane := range c.Lanes {
		x := make([]string, lane.Grid.Len())
		ref := make([]opts.BarData, lane.Grid.Len())
		cand := make([]opts.BarData, lane.Grid.Len())
		for i := range x {
			x[i] = fmt.Sprint(i)
			ref[i] = opts.BarData{Value: lane.Reference[i]}
			cand[i] = opts.BarData{Value: -lane.Candidate[i]}
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px"}),
			charts.WithTitleOpts(opts.Title{
				Title:    "Lane " + lane.Grid.LaneID,
				Subtitle: fmt.Sprintf("score=%.3f sections=%d", lane.Score, lane.Grid.Len()),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "section", NameLocation: "middle", NameGap: 25}),
		)
		bar.SetXAxis(x).
			AddSeries("reference", ref).
			AddSeries("candidate", cand)
		page.AddCharts(bar)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render occupancy chart: %w", err)
	}
	return nil
}

// SaveOccupancyChart renders the chart into a file at path.
func SaveOccupancyChart(c oracles.Comparison, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart: %w", err)
	}
	if err := RenderOccupancyChart(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
