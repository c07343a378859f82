package chooser

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"

	"github.com/pb1729/frequency-inference/src/physics"
)

// stubDist hands out a fixed cycle of frequency samples.
type stubDist struct {
	omegas []float64
}

func (s *stubDist) WaitU()                  {}
func (s *stubDist) Update(t float64, m int) {}
func (s *stubDist) MeanOmega() float64      { return s.omegas[0] }
func (s *stubDist) MeanLogV1() float64      { return 0. }

func (s *stubDist) SampleOmega(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.omegas[i%len(s.omegas)]
	}
	return out
}

func TestConstant(t *testing.T) {
	c := NewConstant(2.5)
	assert.Equal(t, 2.5, c.GetT(&stubDist{omegas: []float64{1.}}))
}

func TestRandomWithinBounds(t *testing.T) {
	md := physics.Default()
	c := NewRandom(md, rand.NewSource(1))
	for i := 0; i < 500; i++ {
		tm := c.GetT(&stubDist{omegas: []float64{1.}})
		assert.GreaterOrEqual(t, tm, 0.)
		assert.LessOrEqual(t, tm, md.TMax)
	}
}

func TestTwoPointDegenerateSamples(t *testing.T) {
	md := physics.Default()
	c := NewTwoPoint(md, rand.NewSource(2), 100)
	d := &stubDist{omegas: []float64{1.}}

	// All posterior samples coincide, so apart from the 20% exploration
	// fallback the chooser must pick a large time in [0.7*TMax, TMax].
	large := 0
	for i := 0; i < 200; i++ {
		tm := c.GetT(d)
		assert.GreaterOrEqual(t, tm, 0.)
		assert.LessOrEqual(t, tm, md.TMax)
		if tm >= 0.7*md.TMax {
			large++
		}
	}
	assert.Greater(t, large, 100)
}

func TestTwoPointBoundsAndBalance(t *testing.T) {
	md := physics.Default()
	c := NewTwoPoint(md, rand.NewSource(3), 100)
	d := &stubDist{omegas: []float64{0.4, 1.6}}

	for i := 0; i < 300; i++ {
		tm := c.GetT(d)
		assert.Greater(t, tm, 0.)
		assert.LessOrEqual(t, tm, md.TMax)
	}
}

func TestTwoPointSumFrequencyFallback(t *testing.T) {
	md := physics.Default()
	c := NewTwoPoint(md, rand.NewSource(4), 100)
	// Both hypotheses tiny: even the smallest sum-frequency candidate
	// pi/(omega1+omega2) exceeds TMax, so the chooser returns TMax.
	d := &stubDist{omegas: []float64{0.11, 0.13}}
	assert.Greater(t, math.Pi/(0.11+0.13), md.TMax)

	hits := 0
	for i := 0; i < 200; i++ {
		if c.GetT(d) == md.TMax {
			hits++
		}
	}
	assert.Greater(t, hits, 100)
}

func TestTauFamilies(t *testing.T) {
	// tau_n maximizes phase opposition at the difference frequency: the
	// two hypotheses are pi out of phase there.
	omega1, omega2 := 0.5, 1.5
	for n := 0; n < 5; n++ {
		phase := (omega2 - omega1) * tauN(omega1, omega2, n)
		assert.InDelta(t, float64(2*n+1)*math.Pi, phase, 1e-9)
	}
	for m := 0; m < 5; m++ {
		phase := (omega1 + omega2) * tauM(omega1, omega2, m)
		assert.InDelta(t, float64(2*m+1)*math.Pi, phase, 1e-9)
	}
}
