package resample

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Systematic draws n indices from a discrete weight distribution using
// systematic resampling: a single uniform offset in [0, 1/n) followed by n
// equally spaced probes through the cumulative weights. The returned index
// counts reproduce the weights with lower variance than n independent draws.
// Weights need not be normalized but must be non-negative with positive sum.
func Systematic(src rand.Source, weights []float64, n int) ([]int, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", n)
	}
	if len(weights) == 0 {
		return nil, errors.New("weights must be non-empty")
	}

	var total float64
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("weight %d is negative", i)
		}
		total += w
	}
	if total <= 0 {
		return nil, errors.New("weights must have positive sum")
	}

	u := distuv.Uniform{Min: 0., Max: 1., Src: src}.Rand() / float64(n)
	step := 1. / float64(n)

	idx := make([]int, n)
	var cum float64
	j := 0
	for i := 0; i < n; i++ {
		probe := u + float64(i)*step
		for j < len(weights)-1 && cum+weights[j]/total < probe {
			cum += weights[j] / total
			j++
		}
		idx[i] = j
	}
	return idx, nil
}
