/*
 * Filename: /Users/bao/code/c3s/plot.go
 * Path: /Users/bao/code/c3s
 * Created Date: Saturday, January 25th 2020, 1:33:37 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package c3s

import (
	"fmt"
	"image/color"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/kshedden/gonpy"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// previewWidth is the number of columns of the terminal preview
const previewWidth = 80

// Plotter draws the depth profile around the bait with the peak window
type Plotter struct {
	Profile *DepthProfile
	Peak    PeakWindow
	Prefix  string // output prefix, including the directory
	// Output files
	OutPlotfile  string
	OutDepthfile string
}

// Run starts the plotting
func (r *Plotter) Run() error {
	r.OutPlotfile = r.Prefix + "_stats.pdf"
	r.OutDepthfile = r.Prefix + "_depth.npy"
	if err := BaitStatsPlot(r.Profile, r.Peak, r.OutPlotfile); err != nil {
		return err
	}
	if err := writeDepth(r.Profile, r.OutDepthfile); err != nil {
		return err
	}
	log.Noticef("Depth around the bait:\n%s", previewDepth(r.Profile, r.Peak))
	return nil
}

// BaitStatsPlot saves the raw and smoothed depth, the threshold and the peak
// bounds to plotfile, the format follows the extension
func BaitStatsPlot(profile *DepthProfile, peak PeakWindow, plotfile string) error {
	if profile == nil || len(profile.Depth) == 0 {
		return errors.Wrap(ErrEmptyChromosome, "no depth to plot")
	}
	raw := make(plotter.XYs, len(profile.Depth))
	smoothed := make(plotter.XYs, len(profile.Smoothed))
	for i, x := range profile.Depth {
		raw[i].X = float64(profile.Start + i)
		raw[i].Y = x
		smoothed[i].X = raw[i].X
		smoothed[i].Y = profile.Smoothed[i]
	}
	maxY := math.Max(floats.Max(profile.Depth), profile.Threshold)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Bait %s:%d, peak %s:%d-%d",
		profile.Chrom, profile.Bait, peak.Chrom, peak.Start, peak.End)
	p.X.Label.Text = profile.Chrom
	p.Y.Label.Text = "Depth"

	rawLine, err := plotter.NewLine(raw)
	if err != nil {
		return errors.Wrap(err, "cannot plot depth")
	}
	rawLine.LineStyle.Color = color.Gray{Y: 180}
	smoothLine, err := plotter.NewLine(smoothed)
	if err != nil {
		return errors.Wrap(err, "cannot plot smoothed depth")
	}
	smoothLine.LineStyle.Color = color.RGBA{B: 200, A: 255}
	smoothLine.LineStyle.Width = vg.Points(1.5)

	threshold, err := plotter.NewLine(plotter.XYs{
		{X: float64(profile.Start), Y: profile.Threshold},
		{X: float64(profile.End()), Y: profile.Threshold},
	})
	if err != nil {
		return errors.Wrap(err, "cannot plot threshold")
	}
	threshold.LineStyle.Color = color.RGBA{R: 200, A: 255}
	threshold.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(rawLine, smoothLine, threshold)
	p.Legend.Add("depth", rawLine)
	p.Legend.Add("smoothed", smoothLine)
	p.Legend.Add("threshold", threshold)
	for _, x := range []int{peak.Start, peak.End} {
		bound, err := plotter.NewLine(plotter.XYs{
			{X: float64(x), Y: 0},
			{X: float64(x), Y: maxY},
		})
		if err != nil {
			return errors.Wrap(err, "cannot plot peak bounds")
		}
		bound.LineStyle.Color = color.RGBA{G: 150, A: 255}
		p.Add(bound)
	}
	p.Legend.Top = true

	if err := p.Save(20*vg.Centimeter, 12*vg.Centimeter, plotfile); err != nil {
		return errors.Wrapf(err, "cannot save `%s`", plotfile)
	}
	log.Noticef("Bait statistics written to `%s`", plotfile)
	return nil
}

// writeDepth serializes position, depth and smoothed depth as a 3-row matrix
func writeDepth(profile *DepthProfile, npyfile string) error {
	n := len(profile.Depth)
	data := make([]float64, 0, 3*n)
	for i := 0; i < n; i++ {
		data = append(data, float64(profile.Start+i))
	}
	data = append(data, profile.Depth...)
	data = append(data, profile.Smoothed...)

	w, err := gonpy.NewFileWriter(npyfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create `%s`", npyfile)
	}
	w.Shape = []int{3, n}
	if err := w.WriteFloat64(data); err != nil {
		return errors.Wrapf(err, "cannot write `%s`", npyfile)
	}
	log.Noticef("Depth profile written to `%s`", npyfile)
	return nil
}

// previewDepth renders the smoothed depth as a terminal chart
func previewDepth(profile *DepthProfile, peak PeakWindow) string {
	s := profile.Smoothed
	if len(s) == 0 {
		return ""
	}
	step := (len(s) + previewWidth - 1) / previewWidth
	var series []float64
	for i := 0; i < len(s); i += step {
		end := i + step
		if end > len(s) {
			end = len(s)
		}
		sum := 0.0
		for _, x := range s[i:end] {
			sum += x
		}
		series = append(series, sum/float64(end-i))
	}
	return asciigraph.Plot(series,
		asciigraph.Height(8),
		asciigraph.Caption(fmt.Sprintf("%s:%d-%d, peak %d-%d",
			profile.Chrom, profile.Start, profile.End(), peak.Start, peak.End)))
}
