package estimator

import (
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/pb1729/frequency-inference/src/dist"
	"github.com/pb1729/frequency-inference/src/physics"
)

// Factory builds a fresh estimator for one trial. v1 is the true drift
// variance of the trial; factories for the joint variants are free to ignore
// it.
type Factory func(src rand.Source, v1 float64) (*Estimator, error)

// Result summarizes one completed trial.
type Result struct {
	TrueV1    float64
	TrueOmega float64 // true frequency at the final measurement
	MeanOmega float64
	MeanLogV1 float64
	LossOmega float64 // (TrueOmega - MeanOmega)^2
	LossV1    float64 // (log TrueV1 - MeanLogV1)^2
	Times     []float64
}

// Simulator runs independent estimation trials against sampled ground truth
// and aggregates loss statistics. Trials share nothing mutable; the prior
// node vectors are read-only after construction.
type Simulator struct {
	Model        physics.Model
	Omegas       []float64 // frequency prior nodes, strictly increasing
	OmegaPrior   []float64
	V1s          []float64 // v1 prior nodes (unused when DrawV1 is set)
	V1Prior      []float64
	Measurements int
	Seed         uint64
	Factory      Factory

	// DrawV1 optionally overrides the v1 prior draw, e.g. to hold the true
	// drift variance fixed across trials.
	DrawV1 func(src rand.Source) float64
}

// RunTrial builds a fresh estimator, runs it against the supplied trajectory
// and scores the final estimates against the trajectory's endpoint.
func (s *Simulator) RunTrial(src rand.Source, v1 float64, trueOmegas []float64) (Result, error) {
	est, err := s.Factory(src, v1)
	if err != nil {
		return Result{}, fmt.Errorf("building estimator: %w", err)
	}
	times := est.Run(trueOmegas)

	res := Result{
		TrueV1:    v1,
		TrueOmega: trueOmegas[len(trueOmegas)-1],
		MeanOmega: est.MeanOmega(),
		MeanLogV1: est.MeanLogV1(),
		Times:     times,
	}
	res.LossOmega = (res.TrueOmega - res.MeanOmega) * (res.TrueOmega - res.MeanOmega)
	res.LossV1 = (math.Log(v1) - res.MeanLogV1) * (math.Log(v1) - res.MeanLogV1)
	return res, nil
}

// runOne samples a trial's ground truth and runs it.
func (s *Simulator) runOne(src rand.Source) (Result, error) {
	var v1 float64
	if s.DrawV1 != nil {
		v1 = s.DrawV1(src)
	} else {
		v1 = dist.SampleValues(src, s.V1s, s.V1Prior)
	}
	omega0 := dist.SampleValues(src, s.Omegas, s.OmegaPrior)

	n := s.Measurements
	trueOmegas := s.Model.SampleTrajectory(src, omega0, v1, max(n, 1))
	if n == 0 {
		// Zero-measurement trials still score the prior against truth.
		trueOmegas = trueOmegas[:1]
		est, err := s.Factory(src, v1)
		if err != nil {
			return Result{}, err
		}
		res := Result{TrueV1: v1, TrueOmega: trueOmegas[0], MeanOmega: est.MeanOmega(), MeanLogV1: est.MeanLogV1()}
		res.LossOmega = (res.TrueOmega - res.MeanOmega) * (res.TrueOmega - res.MeanOmega)
		res.LossV1 = (math.Log(v1) - res.MeanLogV1) * (math.Log(v1) - res.MeanLogV1)
		return res, nil
	}
	return s.RunTrial(src, v1, trueOmegas)
}

// RunMany runs n independent trials distributed across at most workers
// goroutines and returns the per-trial squared losses for the frequency and
// for log v1. Per-trial random sources are derived deterministically from
// the simulator seed.
func (s *Simulator) RunMany(n, workers int) (lossOmega, lossV1 []float64, err error) {
	if n <= 0 {
		return nil, nil, errors.New("trial count must be positive")
	}
	if workers <= 0 {
		workers = 1
	}

	lossOmega = make([]float64, n)
	lossV1 = make([]float64, n)

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			src := rand.NewSource(s.Seed + 1 + uint64(i))
			res, err := s.runOne(src)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			lossOmega[i] = res.LossOmega
			lossV1[i] = res.LossV1
			log.Debugf("trial %d: loss_omega=%.6g loss_v1=%.6g", i, res.LossOmega, res.LossV1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return lossOmega, lossV1, nil
}
