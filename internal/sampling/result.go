package sampling

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Result holds the full trace of a nested sampling run: every dead point in
// likelihood order followed by the final live points, with the running
// evidence after each one. Samples are in parameter space, SamplesU in the
// unit cube. LogVol is the log prior-mass share assigned to each sample, so
// LogWt[i] = LogL[i] + LogVol[i].
type Result struct {
	NDim  int
	NLive int

	Samples  [][]float64
	SamplesU [][]float64
	LogL     []float64
	LogWt    []float64
	LogVol   []float64
	LogZ     []float64

	LogZErr    float64
	H          float64
	Niter      int
	NCall      int
	Eff        float64
	StopReason string
}

// FinalLogZ returns the evidence estimate after the last sample.
func (r *Result) FinalLogZ() float64 {
	if len(r.LogZ) == 0 {
		return math.NaN()
	}
	return r.LogZ[len(r.LogZ)-1]
}

// ImportanceWeights returns the normalized posterior weight of each sample.
func (r *Result) ImportanceWeights() []float64 {
	if len(r.LogWt) == 0 {
		return nil
	}
	lse := floats.LogSumExp(r.LogWt)
	w := make([]float64, len(r.LogWt))
	for i, lw := range r.LogWt {
		w[i] = math.Exp(lw - lse)
	}
	return w
}

// Posterior resamples the weighted trace into equally weighted posterior
// draws.
func (r *Result) Posterior(rng *rand.Rand) ([][]float64, error) {
	return ResampleEqual(r.Samples, r.ImportanceWeights(), rng)
}

// ParamSummary is a one-dimensional marginal summary of the posterior.
type ParamSummary struct {
	Name   string
	Mean   float64
	Std    float64
	Median float64
	P16    float64
	P84    float64
}

// Summarize reduces equally weighted posterior samples to per-parameter
// marginal statistics. names provides the parameter order and length.
func Summarize(samples [][]float64, names []string) []ParamSummary {
	if len(samples) == 0 || len(names) == 0 {
		return nil
	}
	out := make([]ParamSummary, len(names))
	col := make([]float64, len(samples))
	for j, name := range names {
		for i, row := range samples {
			col[i] = row[j]
		}
		sorted := make([]float64, len(col))
		copy(sorted, col)
		sort.Float64s(sorted)

		out[j] = ParamSummary{
			Name:   name,
			Mean:   stat.Mean(col, nil),
			Std:    stat.StdDev(col, nil),
			Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
			P16:    stat.Quantile(0.16, stat.Empirical, sorted, nil),
			P84:    stat.Quantile(0.84, stat.Empirical, sorted, nil),
		}
	}
	return out
}
