package sampling

import (
	"fmt"
	"math/rand"
)

// ResampleEqual converts weighted samples into an equally weighted set of
// the same size using systematic resampling: a single uniform offset is
// stratified across the cumulative weights, so samples are repeated in
// proportion to their weight with minimal variance.
func ResampleEqual(samples [][]float64, weights []float64, rng *rand.Rand) ([][]float64, error) {
	n := len(weights)
	if len(samples) != n {
		return nil, fmt.Errorf("resample: %d samples but %d weights", len(samples), n)
	}
	if n == 0 {
		return nil, nil
	}

	total := 0.0
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("resample: negative weight at index %d", i)
		}
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("resample: weights sum to %v", total)
	}

	cum := make([]float64, n)
	c := 0.0
	for i, w := range weights {
		c += w / total
		cum[i] = c
	}
	cum[n-1] = 1.0

	u := rng.Float64()
	out := make([][]float64, n)
	j := 0
	for i := 0; i < n; i++ {
		pos := (u + float64(i)) / float64(n)
		for pos >= cum[j] {
			j++
		}
		out[i] = copyRow(samples[j])
	}
	return out, nil
}
