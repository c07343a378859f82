package dist

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"

	"github.com/pb1729/frequency-inference/src/physics"
)

// Grid1D represents the posterior over the frequency on a fixed, regularly
// spaced grid of nodes. The drift variance v1 is externally supplied and
// treated as exactly known.
type Grid1D struct {
	md     physics.Model
	src    rand.Source
	omegas []float64
	mass   []float64
	v1     float64

	dct     *fourier.DCT
	scratch []float64
}

// NewGrid1D builds a grid posterior from frequency nodes and a prior of the
// same length. The prior is copied and normalized.
func NewGrid1D(md physics.Model, src rand.Source, omegas, prior []float64, v1 float64) (*Grid1D, error) {
	if len(omegas) < 2 {
		return nil, errors.New("grid needs at least two frequency nodes")
	}
	if len(omegas) != len(prior) {
		return nil, fmt.Errorf("got %d frequency nodes but prior of length %d", len(omegas), len(prior))
	}

	g := &Grid1D{
		md:      md,
		src:     src,
		omegas:  append([]float64(nil), omegas...),
		mass:    append([]float64(nil), prior...),
		v1:      v1,
		dct:     fourier.NewDCT(len(omegas)),
		scratch: make([]float64, len(omegas)),
	}
	if !normalize(g.mass) {
		return nil, errors.New("prior must have positive mass")
	}
	return g, nil
}

// WaitU ages the posterior by one inter-measurement interval: the exact heat
// equation solution on the bounded frequency domain with reflecting
// boundaries. In the cosine basis each coefficient n decays by
// exp(-v1 pi^2 n^2 / (2 L^2)); the round trip through the unnormalized
// transform scales the mass, so renormalize afterwards.
func (g *Grid1D) WaitU() {
	diffuseColumn(g.dct, g.mass, g.scratch, g.v1, g.span())
	normalize(g.mass)
}

// Update reweights the grid by the likelihood of outcome m at time t. If the
// measurement rules out every node, the previous mass is retained.
func (g *Grid1D) Update(t float64, m int) {
	for i, w := range g.mass {
		g.scratch[i] = w * g.md.Likelihood(g.omegas[i], t, m)
	}
	if normalize(g.scratch) {
		copy(g.mass, g.scratch)
	}
}

func (g *Grid1D) MeanOmega() float64 {
	return weightedMean(g.omegas, g.mass)
}

func (g *Grid1D) MeanLogV1() float64 {
	return math.Log(g.v1)
}

func (g *Grid1D) SampleOmega(n int) []float64 {
	return sampleNodes(g.src, g.omegas, g.mass, n)
}

// Mass returns the current probability mass at each node.
func (g *Grid1D) Mass() []float64 {
	return append([]float64(nil), g.mass...)
}

func (g *Grid1D) span() float64 {
	return g.omegas[len(g.omegas)-1] - g.omegas[0]
}

// Grid2D represents the joint posterior over (frequency, v1) on a fixed
// grid: rows are frequency nodes, columns are candidate drift variances.
type Grid2D struct {
	md     physics.Model
	src    rand.Source
	omegas []float64
	v1s    []float64
	mass   *mat.Dense

	dct     *fourier.DCT
	col     []float64
	coeff   []float64
	scratch []float64
}

// NewGrid2D builds a joint grid posterior. The prior matrix must have one
// row per frequency node and one column per v1 node; it is copied and
// normalized.
func NewGrid2D(md physics.Model, src rand.Source, omegas, v1s []float64, prior *mat.Dense) (*Grid2D, error) {
	if len(omegas) < 2 {
		return nil, errors.New("grid needs at least two frequency nodes")
	}
	if len(v1s) == 0 {
		return nil, errors.New("grid needs at least one v1 node")
	}
	pr, pc := prior.Dims()
	if pr != len(omegas) || pc != len(v1s) {
		return nil, fmt.Errorf("prior is %dx%d but grid is %dx%d", pr, pc, len(omegas), len(v1s))
	}

	var mass mat.Dense
	mass.CloneFrom(prior)
	g := &Grid2D{
		md:      md,
		src:     src,
		omegas:  append([]float64(nil), omegas...),
		v1s:     append([]float64(nil), v1s...),
		mass:    &mass,
		dct:     fourier.NewDCT(len(omegas)),
		col:     make([]float64, len(omegas)),
		coeff:   make([]float64, len(omegas)),
		scratch: make([]float64, len(omegas)*len(v1s)),
	}
	if !normalize(g.mass.RawMatrix().Data) {
		return nil, errors.New("prior must have positive mass")
	}
	return g, nil
}

// WaitU diffuses each v1 column of the joint posterior along the frequency
// axis with that column's own rate. The v1 axis is a static unknown, not a
// drifting one, so it is not diffused.
func (g *Grid2D) WaitU() {
	span := g.omegas[len(g.omegas)-1] - g.omegas[0]
	for j, v1 := range g.v1s {
		mat.Col(g.col, j, g.mass)
		diffuseColumn(g.dct, g.col, g.coeff, v1, span)
		g.mass.SetCol(j, g.col)
	}
	normalize(g.mass.RawMatrix().Data)
}

// Update reweights the joint posterior by the likelihood of outcome m at
// time t, broadcast across the v1 axis. If the measurement rules out every
// node, the previous mass is retained.
func (g *Grid2D) Update(t float64, m int) {
	raw := g.mass.RawMatrix()
	for i, omega := range g.omegas {
		like := g.md.Likelihood(omega, t, m)
		row := raw.Data[i*raw.Stride : i*raw.Stride+len(g.v1s)]
		for j, w := range row {
			g.scratch[i*len(g.v1s)+j] = w * like
		}
	}
	if normalize(g.scratch) {
		for i := 0; i < len(g.omegas); i++ {
			copy(raw.Data[i*raw.Stride:i*raw.Stride+len(g.v1s)], g.scratch[i*len(g.v1s):(i+1)*len(g.v1s)])
		}
	}
}

func (g *Grid2D) MeanOmega() float64 {
	return weightedMean(g.omegas, g.omegaMarginal())
}

// MeanLogV1 returns the posterior mean of log v1 over the v1 marginal.
func (g *Grid2D) MeanLogV1() float64 {
	var mean float64
	for j, v1 := range g.v1s {
		var col float64
		for i := range g.omegas {
			col += g.mass.At(i, j)
		}
		mean += col * math.Log(v1)
	}
	return mean
}

func (g *Grid2D) SampleOmega(n int) []float64 {
	return sampleNodes(g.src, g.omegas, g.omegaMarginal(), n)
}

func (g *Grid2D) omegaMarginal() []float64 {
	marg := make([]float64, len(g.omegas))
	raw := g.mass.RawMatrix()
	for i := range g.omegas {
		var sum float64
		for _, w := range raw.Data[i*raw.Stride : i*raw.Stride+len(g.v1s)] {
			sum += w
		}
		marg[i] = sum
	}
	return marg
}

// diffuseColumn applies the spectral heat-equation step to one mass column
// in place, using coeff as transform scratch. The transform pair is
// unnormalized; the caller renormalizes the full distribution.
func diffuseColumn(dct *fourier.DCT, mass, coeff []float64, v1, span float64) {
	fact := v1 * math.Pi * math.Pi / (2. * span * span)
	dct.Transform(coeff, mass)
	for n := range coeff {
		coeff[n] *= math.Exp(-fact * float64(n) * float64(n))
	}
	dct.Transform(mass, coeff)
	scale := 1. / (2. * float64(len(mass)-1))
	for i := range mass {
		mass[i] *= scale
	}
}
