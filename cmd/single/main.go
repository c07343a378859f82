package main

import (
	"flag"
	"math"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/pb1729/frequency-inference/src/chooser"
	"github.com/pb1729/frequency-inference/src/dist"
	"github.com/pb1729/frequency-inference/src/estimator"
	"github.com/pb1729/frequency-inference/src/physics"
)

var (
	seed         = flag.Uint64("seed", 1, "random seed for the run")
	measurements = flag.Int("measurements", 2000, "number of sequential measurements")
	particles    = flag.Int("particles", 5040, "particle count for the particle engine")
	searchDepth  = flag.Int("search-depth", 100, "search depth of the two-point chooser")
	randomTimes  = flag.Bool("random-times", false, "use random measurement times instead of the adaptive chooser")
)

func init() {
	flag.Parse()

	log.SetLevel(log.DebugLevel)
	log.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})
}

func uniformPrior(n int) []float64 {
	prior := make([]float64, n)
	for i := range prior {
		prior[i] = 1. / float64(n)
	}
	return prior
}

func main() {
	if *measurements <= 0 {
		log.Fatal("measurements must be positive")
	}

	md := physics.Default()

	omegas := floats.Span(make([]float64, 80), md.OmegaMin, md.OmegaMax)
	omegaPrior := uniformPrior(len(omegas))

	logV1s := floats.Span(make([]float64, 63), -12., -3.)
	v1s := make([]float64, len(logV1s))
	for i, lv := range logV1s {
		v1s[i] = math.Exp(lv)
	}
	v1Prior := uniformPrior(len(v1s))

	var prior mat.Dense
	prior.Outer(1., mat.NewVecDense(len(omegaPrior), omegaPrior), mat.NewVecDense(len(v1Prior), v1Prior))

	src := rand.NewSource(*seed)
	v1True := dist.SampleValues(src, v1s, v1Prior)
	omega0 := dist.SampleValues(src, omegas, omegaPrior)
	traj := md.SampleTrajectory(src, omega0, v1True, *measurements)

	newChooser := func() chooser.Chooser {
		if *randomTimes {
			return chooser.NewRandom(md, src)
		}
		return chooser.NewTwoPoint(md, src, *searchDepth)
	}

	grid, err := dist.NewGrid2D(md, src, omegas, v1s, &prior)
	if err != nil {
		log.Fatal(err)
	}
	cloud, err := dist.NewParticle(md, src, omegas, v1s, &prior, *particles)
	if err != nil {
		log.Fatal(err)
	}

	log.Infof("true omega (final) = %.5f, true v1 = %.3g", traj[len(traj)-1], v1True)

	engines := []struct {
		name string
		d    dist.Dist
	}{
		{"grid", grid},
		{"particle", cloud},
	}
	for _, eng := range engines {
		name, d := eng.name, eng.d
		est := estimator.New(md, src, d, newChooser())
		est.Run(traj)

		lossOmega := traj[len(traj)-1] - est.MeanOmega()
		log.Infof("%s: mean omega = %.5f (loss %.3g), est v1 = %.3g",
			name, est.MeanOmega(), lossOmega*lossOmega, math.Exp(est.MeanLogV1()))
	}
}
