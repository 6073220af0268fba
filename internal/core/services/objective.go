package services

import (
	"fmt"
	"math"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	"github.com/ojscutt/sl-pitchfork/internal/emulator"
	"github.com/ojscutt/sl-pitchfork/internal/priors"
	"github.com/ojscutt/sl-pitchfork/internal/sampling"
)

// logLFloor stands in for -Inf at points the emulator cannot evaluate. The
// sampler requires finite likelihoods; this keeps its evidence and
// information recurrences free of 0*Inf.
const logLFloor = -1e300

// Objective is a fully assembled sampling target: the Gaussian log-likelihood
// of a set of observations under an emulator, and the prior transform mapping
// unit-cube draws onto the emulator's input parameters.
type Objective struct {
	LogLikelihood  sampling.LogLikelihoodFunc
	PriorTransform sampling.PriorTransformFunc
	NDim           int
	Parameters     []string
}

// BuildObjective wires an emulator, a set of observations and the declared
// priors into an Objective. Observation names must match emulator outputs and
// prior supports must stay inside the training grid. loglScale tempers the
// likelihood; callers pass settings that already had their defaults applied.
func BuildObjective(eng *emulator.Emulator, observations []domain.Observation, specs map[string]domain.PriorSpec, loglScale float64) (*Objective, error) {
	if len(observations) == 0 {
		return nil, domain.ErrNoObservations
	}

	idx := make([]int, len(observations))
	values := make([]float64, len(observations))
	sigmas := make([]float64, len(observations))
	norms := make([]float64, len(observations))
	for i, o := range observations {
		if err := o.Validate(); err != nil {
			return nil, err
		}
		j := eng.OutputIndex(o.Name)
		if j < 0 {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownObservable, o.Name)
		}
		idx[i] = j
		values[i] = o.Value
		sigmas[i] = o.Sigma
		norms[i] = -math.Log(o.Sigma * math.Sqrt(2*math.Pi))
	}

	inputs := eng.InputNames()
	ranges := make(map[string]domain.ParameterRange, len(inputs))
	for name, r := range eng.Ranges() {
		ranges[name] = domain.ParameterRange{Min: r.Min, Max: r.Max}
	}
	ps, err := priors.ForInputs(inputs, ranges, specs)
	if err != nil {
		return nil, err
	}

	ll := func(x []float64) float64 {
		pred, err := eng.PredictOne(x)
		if err != nil {
			return logLFloor
		}
		sum := 0.0
		for i, j := range idx {
			p := pred[j]
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return logLFloor
			}
			d := (p - values[i]) / sigmas[i]
			sum += norms[i] - 0.5*d*d
		}
		return sum * loglScale
	}

	pt := func(u, x []float64) {
		priors.Transform(ps, u, x)
	}

	return &Objective{
		LogLikelihood:  ll,
		PriorTransform: pt,
		NDim:           len(inputs),
		Parameters:     inputs,
	}, nil
}

// ValidateRunInputs checks a run's observations and priors against an
// emulator's interface metadata without loading the artifact, so creation can
// reject bad runs cheaply.
func ValidateRunInputs(em *domain.Emulator, observations []domain.Observation, specs map[string]domain.PriorSpec) error {
	for _, o := range observations {
		if err := o.Validate(); err != nil {
			return err
		}
		if !em.HasOutput(o.Name) {
			return fmt.Errorf("%w: %q is not predicted by emulator %s", domain.ErrUnknownObservable, o.Name, em.Name)
		}
	}
	_, err := priors.ForInputs(em.Inputs, em.ParameterRanges, specs)
	return err
}
