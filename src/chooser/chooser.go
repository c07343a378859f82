package chooser

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pb1729/frequency-inference/src/dist"
	"github.com/pb1729/frequency-inference/src/physics"
)

// Chooser selects the time at which the next measurement should be made,
// given the current posterior.
type Chooser interface {
	GetT(d dist.Dist) float64
}

// Random returns a measurement time uniform in [0, TMax].
type Random struct {
	md  physics.Model
	src rand.Source
}

func NewRandom(md physics.Model, src rand.Source) *Random {
	return &Random{md: md, src: src}
}

func (c *Random) GetT(d dist.Dist) float64 {
	return distuv.Uniform{Min: 0., Max: c.md.TMax, Src: c.src}.Rand()
}

// Constant always returns the same measurement time.
type Constant struct {
	t float64
}

func NewConstant(t float64) *Constant {
	return &Constant{t: t}
}

func (c *Constant) GetT(d dist.Dist) float64 {
	return c.t
}

// TwoPoint adaptively chooses a time that discriminates between the two
// extreme frequency hypotheses drawn from the posterior. Two candidate
// families are balanced: tau_n maximizes phase opposition at the difference
// frequency, tau_m at the sum frequency.
type TwoPoint struct {
	md          physics.Model
	src         rand.Source
	searchDepth int
}

func NewTwoPoint(md physics.Model, src rand.Source, searchDepth int) *TwoPoint {
	return &TwoPoint{md: md, src: src, searchDepth: searchDepth}
}

func tauN(omega1, omega2 float64, n int) float64 {
	return math.Pi * float64(2*n+1) / math.Abs(omega1-omega2)
}

func tauM(omega1, omega2 float64, m int) float64 {
	return math.Pi * float64(2*m+1) / (omega1 + omega2)
}

func (c *TwoPoint) GetT(d dist.Dist) float64 {
	uniform := distuv.Uniform{Min: 0., Max: c.md.TMax, Src: c.src}
	// Exploration floor: some chance of just picking t randomly.
	if (distuv.Bernoulli{P: 0.2, Src: c.src}).Rand() == 1 {
		return uniform.Rand()
	}

	samples := d.SampleOmega(16)
	omega1, omega2 := samples[0], samples[0]
	for _, s := range samples[1:] {
		omega1 = math.Min(omega1, s)
		omega2 = math.Max(omega2, s)
	}

	if omega1 == omega2 {
		// No distinguishing power needed or possible; just choose a
		// large time.
		return distuv.Uniform{Min: 0.7 * c.md.TMax, Max: c.md.TMax, Src: c.src}.Rand()
	}
	if tauM(omega1, omega2, 0) > c.md.TMax {
		return c.md.TMax
	}
	if tauN(omega1, omega2, 0) > c.md.TMax {
		// Largest sum-frequency candidate still within reach.
		m := int(math.Floor((c.md.TMax*(omega1+omega2)/math.Pi - 1.) / 2.))
		return tauM(omega1, omega2, m)
	}

	n, m := 0, 0
	nb, mb := 0, 0
	minDiff := math.Abs(tauN(omega1, omega2, n) - tauM(omega1, omega2, m))
	for i := 0; i < c.searchDepth; i++ {
		// Greedy balancing: advance whichever family lags behind.
		if tauN(omega1, omega2, n) < tauM(omega1, omega2, m) {
			n++
		} else {
			m++
		}
		if math.Max(tauN(omega1, omega2, n), tauM(omega1, omega2, m)) > c.md.TMax {
			break
		}
		diff := math.Abs(tauN(omega1, omega2, n) - tauM(omega1, omega2, m))
		if diff < minDiff {
			minDiff = diff
			nb, mb = n, m
		}
	}
	if tauN(omega1, omega2, nb) > c.md.TMax {
		return tauM(omega1, omega2, mb)
	}
	return (tauN(omega1, omega2, nb) + tauM(omega1, omega2, mb)) / 2.
}
