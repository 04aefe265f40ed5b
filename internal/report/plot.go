package report

import (
	"fmt"
	"image/color"

	"github.com/paulmach/orb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/scenario.report/internal/oracles"
)

var (
	referenceColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	candidateColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	gridColor      = color.RGBA{R: 160, G: 160, B: 160, A: 255}
)

// SaveTrajectoryPlot draws the reference and candidate traces over the
// lane cross-sections and writes the image to path. The format follows
// the file extension (png, svg, pdf, ...).
func SaveTrajectoryPlot(c oracles.Comparison, path string) error {
	p := plot.New()
	p.Title.Text = "Reference vs candidate trajectory"
	if c.MaxLane != "" {
		p.Title.Text += fmt.Sprintf(" (lane %s, score %.3f)", c.MaxLane, c.MaxScore)
	}
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	for _, lane := range c.Lanes {
		for _, s := range lane.Grid.Sections {
			seg, err := plotter.NewLine(plotter.XYs{{X: s.Left.X(), Y: s.Left.Y()}, {X: s.Right.X(), Y: s.Right.Y()}})
			if err != nil {
				return err
			}
			seg.Color = gridColor
			seg.Width = vg.Points(0.5)
			p.Add(seg)
		}
	}

	for _, tr := range []struct {
		name  string
		line  orb.LineString
		color color.Color
	}{
		{"reference", c.ReferenceTrace, referenceColor},
		{"candidate", c.CandidateTrace, candidateColor},
	} {
		if len(tr.line) == 0 {
			continue
		}
		l, err := plotter.NewLine(toXYs(tr.line))
		if err != nil {
			return err
		}
		l.Color = tr.color
		l.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(tr.name, l)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save trajectory plot: %w", err)
	}
	return nil
}

func toXYs(l orb.LineString) plotter.XYs {
	xys := make(plotter.XYs, len(l))
	for i, pt := range l {
		xys[i] = plotter.XY{X: pt.X(), Y: pt.Y()}
	}
	return xys
}
