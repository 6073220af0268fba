package priors

import (
	"fmt"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
)

// FromSpec builds a prior from its declared specification.
func FromSpec(spec domain.PriorSpec) (Prior, error) {
	switch spec.Kind {
	case domain.PriorUniform:
		return NewUniform(spec.Min, spec.Max)
	case domain.PriorLogUniform:
		return NewLogUniform(spec.Min, spec.Max)
	case domain.PriorNormal:
		return NewNormal(spec.Mu, spec.Sigma)
	case domain.PriorTruncNormal:
		return NewTruncNormal(spec.Mu, spec.Sigma, spec.Min, spec.Max)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidPrior, spec.Kind)
	}
}

// ForInputs assembles the prior of every emulator input, in input order.
// Parameters without a spec default to a uniform prior over their training
// grid range; parameters with a spec must keep their support inside the grid,
// since the emulator is untrustworthy beyond the models it was trained on.
func ForInputs(inputs []string, ranges map[string]domain.ParameterRange, specs map[string]domain.PriorSpec) ([]Prior, error) {
	for name := range specs {
		if !containsName(inputs, name) {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownParameter, name)
		}
	}

	out := make([]Prior, len(inputs))
	for i, name := range inputs {
		grid, ok := ranges[name]
		if !ok {
			return nil, fmt.Errorf("%w: no grid range for input %q", ErrInvalidPrior, name)
		}

		spec, declared := specs[name]
		if !declared {
			p, err := NewUniform(grid.Min, grid.Max)
			if err != nil {
				return nil, fmt.Errorf("default prior for %q: %w", name, err)
			}
			out[i] = p
			continue
		}

		if err := spec.Validate(name); err != nil {
			return nil, err
		}
		p, err := FromSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("prior for %q: %w", name, err)
		}
		lo, hi := p.Bounds()
		if lo < grid.Min || hi > grid.Max {
			return nil, fmt.Errorf("%w: %s prior on %q spans [%v, %v], grid is [%v, %v]",
				domain.ErrPriorOutsideGrid, p.Kind(), name, lo, hi, grid.Min, grid.Max)
		}
		out[i] = p
	}
	return out, nil
}

func containsName(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
