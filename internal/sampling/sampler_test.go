package sampling

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normLogPDF(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return -0.5*z*z - math.Log(sigma*math.Sqrt(2*math.Pi))
}

// unitCube maps the unit cube onto itself, so priors are uniform on [0, 1].
func unitCube(u, x []float64) { copy(x, u) }

// gaussianLL builds a separable Gaussian log-likelihood centered at mu with
// width sigma in every dimension. Over a unit-cube prior with sigma well
// inside the cube the evidence integrates to one, so logZ ≈ 0.
func gaussianLL(mu, sigma float64) LogLikelihoodFunc {
	return func(x []float64) float64 {
		ll := 0.0
		for _, v := range x {
			ll += normLogPDF(v, mu, sigma)
		}
		return ll
	}
}

func TestRunGaussianEvidence(t *testing.T) {
	res, err := Run(context.Background(), gaussianLL(0.5, 0.05), unitCube, 2, Config{
		NLive: 200,
		Seed:  42,
	})
	require.NoError(t, err)

	assert.Equal(t, StopDLogZ, res.StopReason)
	assert.InDelta(t, 0.0, res.FinalLogZ(), 0.6)
	assert.Greater(t, res.LogZErr, 0.0)
	assert.Less(t, res.LogZErr, 0.5)
	assert.Greater(t, res.H, 0.0)
	assert.Greater(t, res.Eff, 0.0)

	total := res.Niter + res.NLive
	require.Len(t, res.Samples, total)
	require.Len(t, res.SamplesU, total)
	require.Len(t, res.LogL, total)
	require.Len(t, res.LogWt, total)
	require.Len(t, res.LogVol, total)
	require.Len(t, res.LogZ, total)

	for i := 1; i < len(res.LogL); i++ {
		require.GreaterOrEqual(t, res.LogL[i], res.LogL[i-1], "logL must never decrease")
	}
	for i := range res.LogWt {
		require.Equal(t, res.LogL[i]+res.LogVol[i], res.LogWt[i], "logwt must decompose as logl + logvol")
	}
	// With the identity prior transform the unit-cube trace is the sample trace.
	for i := range res.Samples {
		require.Equal(t, res.Samples[i], res.SamplesU[i])
	}

	sum := 0.0
	for _, w := range res.ImportanceWeights() {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestRunGaussianPosterior(t *testing.T) {
	res, err := Run(context.Background(), gaussianLL(0.5, 0.05), unitCube, 2, Config{
		NLive: 200,
		Seed:  7,
	})
	require.NoError(t, err)

	post, err := res.Posterior(rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, post, len(res.Samples))

	sums := Summarize(post, []string{"x0", "x1"})
	require.Len(t, sums, 2)
	for _, s := range sums {
		assert.InDelta(t, 0.5, s.Mean, 0.02)
		assert.InDelta(t, 0.5, s.Median, 0.02)
		assert.InDelta(t, 0.05, s.Std, 0.02)
	}
}

func TestRunSeedDeterminism(t *testing.T) {
	cfg := Config{NLive: 100, Seed: 99}
	a, err := Run(context.Background(), gaussianLL(0.5, 0.1), unitCube, 2, cfg)
	require.NoError(t, err)
	b, err := Run(context.Background(), gaussianLL(0.5, 0.1), unitCube, 2, cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Niter, b.Niter)
	assert.Equal(t, a.NCall, b.NCall)
	assert.Equal(t, a.FinalLogZ(), b.FinalLogZ())
}

func TestRunMaxIter(t *testing.T) {
	res, err := Run(context.Background(), gaussianLL(0.5, 0.1), unitCube, 2, Config{
		NLive:   50,
		MaxIter: 40,
		Seed:    3,
	})
	require.NoError(t, err)

	assert.Equal(t, StopMaxIter, res.StopReason)
	assert.Equal(t, 40, res.Niter)
	assert.Len(t, res.Samples, 40+50)
}

func TestRunMaxCalls(t *testing.T) {
	// A broad likelihood keeps the evidence criterion far away, so the call
	// budget is what stops the run.
	broad := func(x []float64) float64 {
		s := 0.0
		for _, v := range x {
			s -= (v - 0.5) * (v - 0.5)
		}
		return s
	}
	res, err := Run(context.Background(), broad, unitCube, 2, Config{
		NLive:    20,
		MaxCalls: 200,
		Seed:     5,
	})
	require.NoError(t, err)

	assert.Equal(t, StopMaxCalls, res.StopReason)
	assert.GreaterOrEqual(t, res.NCall, 200)
}

func TestRunProgressCallback(t *testing.T) {
	var seen []Progress
	_, err := Run(context.Background(), gaussianLL(0.5, 0.1), unitCube, 2, Config{
		NLive:    50,
		MaxIter:  30,
		Seed:     11,
		Progress: func(p Progress) { seen = append(seen, p) },
	})
	require.NoError(t, err)

	require.Len(t, seen, 30)
	for i, p := range seen {
		assert.Equal(t, i+1, p.Iteration)
	}
}

func TestRunValidation(t *testing.T) {
	ll := gaussianLL(0.5, 0.1)

	_, err := Run(context.Background(), nil, unitCube, 2, Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Run(context.Background(), ll, nil, 2, Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Run(context.Background(), ll, unitCube, 0, Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Run(context.Background(), ll, unitCube, 2, Config{NLive: 3})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Run(context.Background(), ll, unitCube, 2, Config{Walks: 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Run(context.Background(), ll, unitCube, 2, Config{DLogZ: -1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunNaNLikelihood(t *testing.T) {
	nan := func(x []float64) float64 { return math.NaN() }
	_, err := Run(context.Background(), nan, unitCube, 2, Config{NLive: 20, Seed: 1})
	assert.ErrorIs(t, err, ErrBadLikelihood)
}

func TestRunAllInfLikelihood(t *testing.T) {
	inf := func(x []float64) float64 { return math.Inf(-1) }
	_, err := Run(context.Background(), inf, unitCube, 2, Config{NLive: 20, Seed: 1})
	assert.ErrorIs(t, err, ErrBadLikelihood)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, gaussianLL(0.5, 0.1), unitCube, 2, Config{NLive: 50, Seed: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOneDimensional(t *testing.T) {
	res, err := Run(context.Background(), gaussianLL(0.3, 0.05), unitCube, 1, Config{
		NLive: 100,
		Seed:  13,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.FinalLogZ(), 0.6)

	post, err := res.Posterior(rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	s := Summarize(post, []string{"x"})
	require.Len(t, s, 1)
	assert.InDelta(t, 0.3, s[0].Mean, 0.02)
}
