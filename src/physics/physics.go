package physics

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Model holds the physical constants of the two-level system.
// It is a value type; construct it once and pass it by value, never mutate.
//
//	model := physics.Default()
//	p := model.ProbExcited(t, omega)
//	m := model.Measure(src, omega, t)
type Model struct {
	OmegaMin float64 // lower bound on the precession frequency [1/s]
	OmegaMax float64 // upper bound on the precession frequency [1/s]
	V0       float64 // decoherence rate [1/s^2]
	TMax     float64 // longest time at which a measurement can be made [s]
}

// Default returns the model constants used throughout the experiments.
func Default() Model {
	return Model{
		OmegaMin: 0.1,
		OmegaMax: 1.9,
		V0:       0.,
		TMax:     4. * math.Pi,
	}
}

// ProbExcited returns the probability of finding the qubit excited when
// measured at time t, given precession frequency omega.
func (md Model) ProbExcited(t, omega float64) float64 {
	return 0.5 * (1. - math.Exp(-0.5*md.V0*t)*math.Cos(omega*t))
}

// Likelihood returns the probability of measurement outcome m (0 for ground,
// 1 for excited) at time t under candidate frequency omega.
func (md Model) Likelihood(omega, t float64, m int) float64 {
	pe := md.ProbExcited(t, omega)
	return pe*float64(m) + (1.-pe)*float64(1-m)
}

// Measure simulates a measurement at time t on a qubit with true frequency
// omega. Returns 0 for ground state, 1 for excited.
func (md Model) Measure(src rand.Source, omega, t float64) int {
	b := distuv.Bernoulli{P: md.ProbExcited(t, omega), Src: src}
	return int(b.Rand())
}

// ClipOmega clamps omega into [OmegaMin, OmegaMax].
func (md Model) ClipOmega(omega float64) float64 {
	return math.Min(md.OmegaMax, math.Max(md.OmegaMin, omega))
}

// PerturbOmega advances omega by one step of its random walk with per-step
// variance v1, reflected at the domain bounds by clipping.
func (md Model) PerturbOmega(src rand.Source, omega, v1 float64) float64 {
	n := distuv.Normal{Mu: 0., Sigma: math.Sqrt(v1), Src: src}
	return md.ClipOmega(omega + n.Rand())
}

// SampleTrajectory generates the ground-truth frequency for each of n
// measurements: a random walk with per-step variance v1 starting at omega0.
func (md Model) SampleTrajectory(src rand.Source, omega0, v1 float64, n int) []float64 {
	omegas := make([]float64, n)
	if n == 0 {
		return omegas
	}
	omegas[0] = md.ClipOmega(omega0)
	for i := 1; i < n; i++ {
		omegas[i] = md.PerturbOmega(src, omegas[i-1], v1)
	}
	return omegas
}
