package utils

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/setanarut/mgflow"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var errNoResiduals = errors.New("no positive residuals to plot")

// residualPoints returns (index, residual) pairs for the positive residuals;
// a log axis cannot show the rest.
func residualPoints(res *mgflow.Result) plotter.XYs {
	pts := make(plotter.XYs, 0, len(res.Residuals))
	for i, r := range res.Residuals {
		if r > 0 {
			pts = append(pts, plotter.XY{X: float64(i), Y: r})
		}
	}
	return pts
}

// SaveConvergencePlot draws the residual history of res on a log scale as a
// PNG.
func SaveConvergencePlot(res *mgflow.Result, filename string) error {
	pts := residualPoints(res)
	if len(pts) == 0 {
		return errNoResiduals
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Residual norm - %d levels", len(res.Levels))
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "||r_u|| + ||r_v||"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.Width = vg.Points(1)
	p.Add(line)

	return p.Save(8*vg.Inch, 4*vg.Inch, filename)
}

// RenderConvergenceChart writes an interactive HTML chart of the residual
// history of res.
func RenderConvergenceChart(res *mgflow.Result, w io.Writer) error {
	pts := residualPoints(res)
	if len(pts) == 0 {
		return errNoResiduals
	}

	x := make([]int, 0, len(pts))
	y := make([]opts.LineData, 0, len(pts))
	for _, pt := range pts {
		x = append(x, int(pt.X))
		y = append(y, opts.LineData{Value: pt.Y})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "mgflow convergence", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Residual norm", Subtitle: fmt.Sprintf("run=%s converged=%t", res.RunID, res.Converged)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Iteration", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "log", Name: "||r||"}),
	)
	line.SetXAxis(x).AddSeries("residual", y)
	return line.Render(w)
}

func SaveConvergenceChart(res *mgflow.Result, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := RenderConvergenceChart(res, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
