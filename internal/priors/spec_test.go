package priors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
)

func TestFromSpec(t *testing.T) {
	cases := []struct {
		name string
		spec domain.PriorSpec
		kind string
	}{
		{"uniform", domain.PriorSpec{Kind: domain.PriorUniform, Min: 0.8, Max: 1.2}, KindUniform},
		{"log-uniform", domain.PriorSpec{Kind: domain.PriorLogUniform, Min: 0.5, Max: 13}, KindLogUniform},
		{"normal", domain.PriorSpec{Kind: domain.PriorNormal, Mu: 1, Sigma: 0.1}, KindNormal},
		{"truncated", domain.PriorSpec{Kind: domain.PriorTruncNormal, Mu: 1, Sigma: 0.1, Min: 0.8, Max: 1.2}, KindTruncNormal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := FromSpec(tc.spec)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, p.Kind())
		})
	}

	_, err := FromSpec(domain.PriorSpec{Kind: "jeffreys"})
	assert.ErrorIs(t, err, ErrInvalidPrior)
}

func TestForInputsDefaults(t *testing.T) {
	ranges := map[string]domain.ParameterRange{
		"mass": {Min: 0.8, Max: 1.2},
		"age":  {Min: 0.5, Max: 13},
	}

	ps, err := ForInputs([]string{"mass", "age"}, ranges, nil)
	require.NoError(t, err)
	require.Len(t, ps, 2)

	// Unspecified parameters fall back to uniform over the grid.
	for i, want := range []domain.ParameterRange{ranges["mass"], ranges["age"]} {
		assert.Equal(t, KindUniform, ps[i].Kind())
		lo, hi := ps[i].Bounds()
		assert.Equal(t, want.Min, lo)
		assert.Equal(t, want.Max, hi)
	}
}

func TestForInputsDeclaredPrior(t *testing.T) {
	ranges := map[string]domain.ParameterRange{"mass": {Min: 0.8, Max: 1.2}}
	specs := map[string]domain.PriorSpec{
		"mass": {Kind: domain.PriorTruncNormal, Mu: 1.0, Sigma: 0.05, Min: 0.9, Max: 1.1},
	}

	ps, err := ForInputs([]string{"mass"}, ranges, specs)
	require.NoError(t, err)
	assert.Equal(t, KindTruncNormal, ps[0].Kind())

	lo, hi := ps[0].Bounds()
	assert.Equal(t, 0.9, lo)
	assert.Equal(t, 1.1, hi)
}

func TestForInputsUnknownParameter(t *testing.T) {
	ranges := map[string]domain.ParameterRange{"mass": {Min: 0.8, Max: 1.2}}
	specs := map[string]domain.PriorSpec{
		"radius": {Kind: domain.PriorUniform, Min: 0.9, Max: 1.1},
	}

	_, err := ForInputs([]string{"mass"}, ranges, specs)
	assert.ErrorIs(t, err, domain.ErrUnknownParameter)
}

func TestForInputsOutsideGrid(t *testing.T) {
	ranges := map[string]domain.ParameterRange{"mass": {Min: 0.8, Max: 1.2}}

	_, err := ForInputs([]string{"mass"}, ranges, map[string]domain.PriorSpec{
		"mass": {Kind: domain.PriorUniform, Min: 0.5, Max: 1.1},
	})
	assert.ErrorIs(t, err, domain.ErrPriorOutsideGrid)

	// Unbounded normals can never fit inside a finite grid; a truncated
	// normal is the supported way to center a prior on a grid parameter.
	_, err = ForInputs([]string{"mass"}, ranges, map[string]domain.PriorSpec{
		"mass": {Kind: domain.PriorNormal, Mu: 1, Sigma: 0.05},
	})
	assert.ErrorIs(t, err, domain.ErrPriorOutsideGrid)
}

func TestForInputsMissingGridRange(t *testing.T) {
	_, err := ForInputs([]string{"mass"}, map[string]domain.ParameterRange{}, nil)
	assert.ErrorIs(t, err, ErrInvalidPrior)
}
