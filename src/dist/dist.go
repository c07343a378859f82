package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dist is a posterior distribution over the unknown precession frequency
// (and, in the joint variants, the drift variance v1).
//
// RULE: every method must leave the distribution normalized. A swappable
// external SMC backend satisfies the same capability set.
type Dist interface {
	// WaitU ages the posterior by one inter-measurement interval under the
	// frequency drift model.
	WaitU()
	// Update applies the Bayesian update for a measurement outcome m taken
	// at time t.
	Update(t float64, m int)
	// MeanOmega returns the posterior mean frequency.
	MeanOmega() float64
	// MeanLogV1 returns the posterior mean of log(v1).
	MeanLogV1() float64
	// SampleOmega draws n frequency samples from the posterior.
	SampleOmega(n int) []float64
}

// SampleValues draws one value from a discrete density over sorted nodes,
// interpolating uniformly between the midpoints of neighboring nodes.
func SampleValues(src rand.Source, values, density []float64) float64 {
	i := int(distuv.NewCategorical(density, src).Rand())

	lo := values[i]
	if i > 0 {
		lo = (values[i-1] + values[i]) / 2
	}
	hi := values[i]
	if i < len(values)-1 {
		hi = (values[i] + values[i+1]) / 2
	}
	if lo == hi {
		return lo
	}
	return distuv.Uniform{Min: lo, Max: hi, Src: src}.Rand()
}

// sampleNodes draws n node values categorically over |weights|. The absolute
// value guards against the small negative masses the spectral diffusion can
// leave behind.
func sampleNodes(src rand.Source, values, weights []float64, n int) []float64 {
	absw := make([]float64, len(weights))
	for i, w := range weights {
		absw[i] = math.Abs(w)
	}
	cat := distuv.NewCategorical(absw, src)
	out := make([]float64, n)
	for i := range out {
		out[i] = values[int(cat.Rand())]
	}
	return out
}

// normalize scales mass in place so it sums to 1. If the total is not a
// usable positive number (every hypothesis ruled out by a wildly inconsistent
// measurement) it reports false and leaves mass untouched, so callers can
// retain the previous shape instead of dividing by zero.
func normalize(mass []float64) bool {
	total := floats.Sum(mass)
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return false
	}
	floats.Scale(1./total, mass)
	return true
}

// weightedMean returns the w-weighted mean of xs. Weights must sum to 1.
func weightedMean(xs, ws []float64) float64 {
	var mean float64
	for i, x := range xs {
		mean += ws[i] * x
	}
	return mean
}

// weightedCov returns the population-weighted (ddof 0) variance of xs.
func weightedCov(xs, ws []float64) float64 {
	mean := weightedMean(xs, ws)
	var cov float64
	for i, x := range xs {
		d := x - mean
		cov += ws[i] * d * d
	}
	return cov
}
