package estimator

import (
	"golang.org/x/exp/rand"

	"github.com/pb1729/frequency-inference/src/chooser"
	"github.com/pb1729/frequency-inference/src/dist"
	"github.com/pb1729/frequency-inference/src/physics"
)

// Estimator couples a posterior distribution with a time chooser and drives
// the sequential measurement loop.
type Estimator struct {
	md  physics.Model
	src rand.Source
	d   dist.Dist
	ch  chooser.Chooser
}

func New(md physics.Model, src rand.Source, d dist.Dist, ch chooser.Chooser) *Estimator {
	return &Estimator{md: md, src: src, d: d, ch: ch}
}

// Run performs one measurement per element of the true-frequency trajectory:
// choose a time, draw the outcome against the true frequency at that step,
// age the posterior across the interval, then apply the Bayesian update.
// Returns the chosen measurement times.
func (e *Estimator) Run(trueOmegas []float64) []float64 {
	times := make([]float64, len(trueOmegas))
	for i, omega := range trueOmegas {
		t := e.ch.GetT(e.d)
		times[i] = t
		m := e.md.Measure(e.src, omega, t)
		e.d.WaitU()
		e.d.Update(t, m)
	}
	return times
}

func (e *Estimator) MeanOmega() float64 {
	return e.d.MeanOmega()
}

func (e *Estimator) MeanLogV1() float64 {
	return e.d.MeanLogV1()
}

// Dist returns the estimator's posterior.
func (e *Estimator) Dist() dist.Dist {
	return e.d
}
