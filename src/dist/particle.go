package dist

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pb1729/frequency-inference/src/physics"
	"github.com/pb1729/frequency-inference/src/resample"
)

const (
	// essLimit is the effective-sample-size fraction below which the cloud
	// is resampled.
	essLimit = 0.5
	// fudgeA floors the multiplicative target-covariance tracking so the
	// cloud cannot collapse to a point mass.
	fudgeA = 0.1
	// fudgeB inflates the variance re-injected on resampling.
	fudgeB = 1.2
)

// Particle represents the posterior as a cloud of weighted (omega, v1)
// particles. Each particle's v1 is fixed at construction; passing identical
// v1 values gives the known-v1 variant.
//
// targetCov tracks how much omega variance the posterior should have,
// decoupled from the sample's actual covariance, so that degeneracy can be
// detected and corrected without discarding genuine contraction.
type Particle struct {
	md      physics.Model
	src     rand.Source
	omegas  []float64
	v1s     []float64
	weights []float64

	targetCov float64
	scratch   []float64
}

// NewParticle draws n particles from a joint prior matrix (rows are
// frequency nodes, columns are v1 nodes) via systematic resampling.
func NewParticle(md physics.Model, src rand.Source, omegas, v1s []float64, prior *mat.Dense, n int) (*Particle, error) {
	if n <= 0 {
		return nil, fmt.Errorf("particle count must be positive, got %d", n)
	}
	pr, pc := prior.Dims()
	if pr != len(omegas) || pc != len(v1s) {
		return nil, fmt.Errorf("prior is %dx%d but grid is %dx%d", pr, pc, len(omegas), len(v1s))
	}

	flat := make([]float64, pr*pc)
	raw := prior.RawMatrix()
	for i := 0; i < pr; i++ {
		copy(flat[i*pc:(i+1)*pc], raw.Data[i*raw.Stride:i*raw.Stride+pc])
	}
	idx, err := resample.Systematic(src, flat, n)
	if err != nil {
		return nil, err
	}

	p := emptyParticle(md, src, n)
	for k, id := range idx {
		p.omegas[k] = omegas[id/pc]
		p.v1s[k] = v1s[id%pc]
	}
	p.targetCov = p.cov()
	return p, nil
}

// NewParticle1D draws n particles from a one-dimensional frequency prior,
// with the drift variance v1 exactly known and shared by every particle.
func NewParticle1D(md physics.Model, src rand.Source, omegas, prior []float64, v1 float64, n int) (*Particle, error) {
	if n <= 0 {
		return nil, fmt.Errorf("particle count must be positive, got %d", n)
	}
	if len(omegas) != len(prior) {
		return nil, fmt.Errorf("got %d frequency nodes but prior of length %d", len(omegas), len(prior))
	}
	idx, err := resample.Systematic(src, prior, n)
	if err != nil {
		return nil, err
	}

	p := emptyParticle(md, src, n)
	for k, id := range idx {
		p.omegas[k] = omegas[id]
		p.v1s[k] = v1
	}
	p.targetCov = p.cov()
	return p, nil
}

func emptyParticle(md physics.Model, src rand.Source, n int) *Particle {
	p := &Particle{
		md:      md,
		src:     src,
		omegas:  make([]float64, n),
		v1s:     make([]float64, n),
		weights: make([]float64, n),
		scratch: make([]float64, n),
	}
	for k := range p.weights {
		p.weights[k] = 1. / float64(n)
	}
	return p
}

// WaitU ages the cloud by one inter-measurement interval: every particle's
// frequency takes one drift step with that particle's own v1, and the target
// covariance grows by the mean v1.
func (p *Particle) WaitU() {
	for k := range p.omegas {
		p.omegas[k] = p.md.PerturbOmega(p.src, p.omegas[k], p.v1s[k])
	}
	p.targetCov += weightedMean(p.v1s, p.weights)
}

// Update reweights the cloud by the likelihood of outcome m at time t. The
// target covariance tracks the same multiplicative change the actual
// covariance underwent, floored by fudgeA. Resamples only when the effective
// sample size drops below essLimit of the cloud.
func (p *Particle) Update(t float64, m int) {
	covBefore := p.cov()
	for k, w := range p.weights {
		p.scratch[k] = w * p.md.Likelihood(p.omegas[k], t, m)
	}
	if normalize(p.scratch) {
		copy(p.weights, p.scratch)
	}
	covAfter := p.cov()
	if covBefore > 0 {
		p.targetCov *= math.Max(fudgeA, covAfter/covBefore)
	}

	if p.ess() < essLimit*float64(len(p.weights)) {
		p.resample()
	}
}

// ess returns the effective sample size 1 / sum(w^2).
func (p *Particle) ess() float64 {
	var sq float64
	for _, w := range p.weights {
		sq += w * w
	}
	return 1. / sq
}

func (p *Particle) resample() {
	idx, err := resample.Systematic(p.src, p.weights, len(p.weights))
	if err != nil {
		log.Warnf("particle resample skipped: %v", err)
		return
	}

	oldOmegas := append([]float64(nil), p.omegas...)
	oldV1s := append([]float64(nil), p.v1s...)
	for k, id := range idx {
		p.omegas[k] = oldOmegas[id]
		p.v1s[k] = oldV1s[id]
	}
	for k := range p.weights {
		p.weights[k] = 1. / float64(len(p.weights))
	}

	covNew := p.cov()
	if covNew >= p.targetCov {
		// More variance than expected is welcome, never discarded.
		p.targetCov = covNew
		return
	}

	addVar := fudgeB * (p.targetCov - covNew)
	if addVar <= 0 {
		return
	}
	// Double-sided exponential jitter sized to re-inject the missing
	// variance: the difference of two i.i.d. exponentials with scale s has
	// variance 2 s^2.
	e := distuv.Exponential{Rate: 1. / math.Sqrt(addVar/2.), Src: p.src}
	for k := range p.omegas {
		p.omegas[k] = p.md.ClipOmega(p.omegas[k] + e.Rand() - e.Rand())
	}
}

func (p *Particle) cov() float64 {
	return weightedCov(p.omegas, p.weights)
}

func (p *Particle) MeanOmega() float64 {
	return weightedMean(p.omegas, p.weights)
}

// MeanV1 returns the weight-averaged drift variance of the cloud.
func (p *Particle) MeanV1() float64 {
	return weightedMean(p.v1s, p.weights)
}

func (p *Particle) MeanLogV1() float64 {
	var mean float64
	for k, w := range p.weights {
		mean += w * math.Log(p.v1s[k])
	}
	return mean
}

func (p *Particle) SampleOmega(n int) []float64 {
	return sampleNodes(p.src, p.omegas, p.weights, n)
}

// TargetCov exposes the tracked covariance target.
func (p *Particle) TargetCov() float64 {
	return p.targetCov
}

// Cov returns the population-weighted covariance of the particle
// frequencies.
func (p *Particle) Cov() float64 {
	return p.cov()
}
