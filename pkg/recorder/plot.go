package recorder

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoFrames is returned when there is nothing to plot.
var ErrNoFrames = errors.New("recorder: no frames")

var (
	rawColor      = color.RGBA{R: 200, G: 60, B: 60, A: 255}
	smoothedColor = color.RGBA{R: 40, G: 90, B: 200, A: 255}
)

// series picks a raw and a smoothed value from a frame.
type series struct {
	name     string
	unit     string
	raw      func(FrameRow) float64
	smoothed func(FrameRow) float64
}

var plotSeries = []series{
	{"x", "scene units", func(f FrameRow) float64 { return f.RawX }, func(f FrameRow) float64 { return f.X }},
	{"y", "scene units", func(f FrameRow) float64 { return f.RawY }, func(f FrameRow) float64 { return f.Y }},
	{"scale", "scene units", func(f FrameRow) float64 { return f.RawScale }, func(f FrameRow) float64 { return f.Scale }},
}

// PlotSession writes one PNG per placement field to outputDir comparing
// raw and smoothed values frame by frame. It returns the written paths.
func PlotSession(sessionID string, frames []FrameRow, outputDir string) ([]string, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	var paths []string
	for _, s := range plotSeries {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Session %s - %s", shortID(sessionID), s.name)
		p.X.Label.Text = "Frame"
		p.Y.Label.Text = s.unit
		p.Legend.Top = true

		raw := make(plotter.XYs, 0, len(frames))
		smoothed := make(plotter.XYs, 0, len(frames))
		for _, f := range frames {
			raw = append(raw, plotter.XY{X: float64(f.Frame), Y: s.raw(f)})
			smoothed = append(smoothed, plotter.XY{X: float64(f.Frame), Y: s.smoothed(f)})
		}

		rawLine, err := plotter.NewLine(raw)
		if err != nil {
			return paths, fmt.Errorf("raw %s line: %w", s.name, err)
		}
		rawLine.Color = rawColor
		rawLine.Width = vg.Points(1)

		smoothLine, err := plotter.NewLine(smoothed)
		if err != nil {
			return paths, fmt.Errorf("smoothed %s line: %w", s.name, err)
		}
		smoothLine.Color = smoothedColor
		smoothLine.Width = vg.Points(1.5)

		p.Add(rawLine, smoothLine)
		p.Legend.Add("raw", rawLine)
		p.Legend.Add("smoothed", smoothLine)

		path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", shortID(sessionID), s.name))
		if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
			return paths, fmt.Errorf("save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
