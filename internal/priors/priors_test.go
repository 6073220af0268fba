package priors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformQuantile(t *testing.T) {
	p, err := NewUniform(0.8, 1.2)
	require.NoError(t, err)

	assert.Equal(t, KindUniform, p.Kind())
	assert.InDelta(t, 0.8, p.Quantile(0), 1e-12)
	assert.InDelta(t, 1.0, p.Quantile(0.5), 1e-12)
	assert.InDelta(t, 1.2, p.Quantile(1), 1e-12)

	lo, hi := p.Bounds()
	assert.Equal(t, 0.8, lo)
	assert.Equal(t, 1.2, hi)
}

func TestLogUniformQuantile(t *testing.T) {
	p, err := NewLogUniform(1, 100)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, p.Quantile(0), 1e-9)
	assert.InDelta(t, 10.0, p.Quantile(0.5), 1e-9)
	assert.InDelta(t, 100.0, p.Quantile(1), 1e-9)
}

func TestNormalQuantile(t *testing.T) {
	p, err := NewNormal(5700, 100)
	require.NoError(t, err)

	assert.InDelta(t, 5700, p.Quantile(0.5), 1e-9)
	// Φ(1) ≈ 0.8413, so this quantile sits one sigma above the mean.
	assert.InDelta(t, 5800, p.Quantile(0.8413447460685429), 1e-6)

	// The cube edges map to finite values, not ±Inf.
	assert.False(t, math.IsInf(p.Quantile(0), 0))
	assert.False(t, math.IsInf(p.Quantile(1), 0))
	assert.Less(t, p.Quantile(0), p.Quantile(1e-12))
	assert.Greater(t, p.Quantile(1), p.Quantile(1-1e-12))

	lo, hi := p.Bounds()
	assert.True(t, math.IsInf(lo, -1))
	assert.True(t, math.IsInf(hi, 1))
}

func TestTruncNormalQuantile(t *testing.T) {
	p, err := NewTruncNormal(0, 1, -1, 1)
	require.NoError(t, err)

	assert.InDelta(t, 0, p.Quantile(0.5), 1e-12)
	assert.InDelta(t, -1, p.Quantile(0), 1e-9)
	assert.InDelta(t, 1, p.Quantile(1), 1e-9)

	// Quantiles stay inside the window even for extreme p.
	for _, q := range []float64{0, 1e-9, 0.5, 1 - 1e-9, 1} {
		x := p.Quantile(q)
		assert.GreaterOrEqual(t, x, -1.0)
		assert.LessOrEqual(t, x, 1.0)
	}
}

func TestTruncNormalMonotone(t *testing.T) {
	p, err := NewTruncNormal(1.0, 0.2, 0.8, 1.6)
	require.NoError(t, err)

	prev := math.Inf(-1)
	for q := 0.0; q <= 1.0; q += 0.05 {
		x := p.Quantile(q)
		assert.GreaterOrEqual(t, x, prev)
		prev = x
	}
}

func TestConstructorValidation(t *testing.T) {
	_, err := NewUniform(1.2, 0.8)
	assert.ErrorIs(t, err, ErrInvalidPrior)

	_, err = NewLogUniform(-1, 10)
	assert.ErrorIs(t, err, ErrInvalidPrior)

	_, err = NewLogUniform(5, 5)
	assert.ErrorIs(t, err, ErrInvalidPrior)

	_, err = NewNormal(0, 0)
	assert.ErrorIs(t, err, ErrInvalidPrior)

	_, err = NewTruncNormal(0, -1, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidPrior)

	_, err = NewTruncNormal(0, 1, 2, 2)
	assert.ErrorIs(t, err, ErrInvalidPrior)

	// Window so far in the tail that it holds no mass.
	_, err = NewTruncNormal(0, 1, 60, 61)
	assert.ErrorIs(t, err, ErrInvalidPrior)
}

func TestTransform(t *testing.T) {
	uni, err := NewUniform(0, 10)
	require.NoError(t, err)
	norm, err := NewNormal(0, 1)
	require.NoError(t, err)

	ps := []Prior{uni, norm}
	got := Point(ps, []float64{0.25, 0.5})
	require.Len(t, got, 2)
	assert.InDelta(t, 2.5, got[0], 1e-12)
	assert.InDelta(t, 0.0, got[1], 1e-12)

	dst := make([]float64, 2)
	Transform(ps, []float64{1, 0.5}, dst)
	assert.InDelta(t, 10.0, dst[0], 1e-12)
}
