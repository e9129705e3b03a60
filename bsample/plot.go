package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"bitbucket.org/Davydov/bsample/diagnostics"
	"bitbucket.org/Davydov/bsample/mcmc"
)

// histogram bins
const nBins = 50

// plotParameter saves the trace of the first chain and the histogram
// of the retained pooled draws of parameter p.
func plotParameter(prefix string, chains []*mcmc.Chain, p, burnIn int, hdi diagnostics.Interval) error {
	name := chains[0].Names[p]

	trace := plot.New()
	trace.Title.Text = name
	trace.X.Label.Text = "iteration"
	trace.Y.Label.Text = name
	xy := make(plotter.XYs, chains[0].Len())
	for i, x := range chains[0].Draws {
		xy[i].X = float64(i)
		xy[i].Y = x[p]
	}
	line, err := plotter.NewLine(xy)
	if err != nil {
		return err
	}
	trace.Add(line)
	if err := trace.Save(8*vg.Inch, 3*vg.Inch, fmt.Sprintf("%s-%s-trace.png", prefix, name)); err != nil {
		return err
	}

	hist := plot.New()
	hist.Title.Text = fmt.Sprintf("%s, HDI %v", name, hdi)
	hist.X.Label.Text = name
	var vals plotter.Values
	for _, c := range chains {
		vals = append(vals, c.Column(p, burnIn)...)
	}
	h, err := plotter.NewHist(vals, nBins)
	if err != nil {
		return err
	}
	h.Normalize(1)
	hist.Add(h)
	for _, v := range []float64{hdi.Lower, hdi.Upper} {
		l, err := plotter.NewLine(plotter.XYs{{X: v, Y: 0}, {X: v, Y: maxBin(h)}})
		if err != nil {
			return err
		}
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		hist.Add(l)
	}
	return hist.Save(5*vg.Inch, 4*vg.Inch, fmt.Sprintf("%s-%s-hist.png", prefix, name))
}

// maxBin returns the height of the highest histogram bin.
func maxBin(h *plotter.Histogram) (m float64) {
	for _, b := range h.Bins {
		if b.Weight > m {
			m = b.Weight
		}
	}
	return
}

// plotChains plots every parameter.
func plotChains(prefix string, chains []*mcmc.Chain, s *diagnostics.Summary) error {
	for p, par := range s.Parameters {
		if err := plotParameter(prefix, chains, p, s.BurnIn, par.HDI); err != nil {
			return fmt.Errorf("plotting %s: %w", par.Name, err)
		}
	}
	log.Infof("Saved plots to %s-*.png", prefix)
	return nil
}
