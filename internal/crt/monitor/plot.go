package monitor

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/crt.report/internal/crt/pipeline"
	"github.com/banshee-data/crt.report/internal/security"
)

var (
	hitColor        = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	completeColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	incompleteColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

func viewFromResult(res *pipeline.EventResult) eventView {
	view := eventView{title: res.EventID}
	for _, c := range res.Clusters {
		for _, h := range c.Averaged {
			view.hits = append(view.hits, h.Hit.Pos())
		}
		for _, t := range c.Tracks {
			view.tracks = append(view.tracks, t.Track)
		}
	}
	return view
}

// PlotEvent writes XY and ZY projections of a reconstructed event to dir as
// PNG files named after the event, and returns their paths. Averaged hits
// are drawn as points and tracks as segments between their anchors; tracks
// flagged incomplete are dashed.
func PlotEvent(res *pipeline.EventResult, dir string) ([]string, error) {
	if res == nil {
		return nil, fmt.Errorf("nil event result")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	view := viewFromResult(res)
	base := security.SanitizeFilename(res.EventID)

	var paths []string
	for _, proj := range projections {
		p, err := eventPlot(view, proj)
		if err != nil {
			return paths, err
		}

		path, err := security.JoinWithin(dir, fmt.Sprintf("%s_%s.png", base, proj.name))
		if err != nil {
			return paths, err
		}
		if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
			return paths, fmt.Errorf("failed to save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func eventPlot(view eventView, proj projection) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("CRT event %s - %s projection", view.title, proj.name)
	p.X.Label.Text = proj.xLabel
	p.Y.Label.Text = proj.yLabel
	p.Add(plotter.NewGrid())

	if len(view.hits) > 0 {
		pts := make(plotter.XYs, len(view.hits))
		for i, h := range view.hits {
			pts[i].X, pts[i].Y = proj.xy(h)
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = hitColor
		s.GlyphStyle.Radius = vg.Points(3)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add("averaged hits", s)
	}

	for i, t := range view.tracks {
		pts := make(plotter.XYs, 2)
		for k, v := range []r3.Vec{t.Start(), t.End()} {
			pts[k].X, pts[k].Y = proj.xy(v)
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.Width = vg.Points(1.5)
		l.Color = completeColor
		if !t.Complete {
			l.Color = incompleteColor
			l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("track %d", i), l)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}
