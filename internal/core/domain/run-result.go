package domain

import (
	"time"

	"github.com/google/uuid"
)

// ParameterSummary is the one-dimensional marginal posterior of a stellar
// parameter
type ParameterSummary struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	P16    float64 `json:"p16"`
	P84    float64 `json:"p84"`
}

// RunResult is the persisted outcome of a completed inference run: the
// evidence estimate, run statistics and per-parameter posterior summaries.
// The full equally weighted posterior samples live in the artifact store at
// SamplesPath.
type RunResult struct {
	RunID     uuid.UUID `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`

	LogZ        float64 `json:"logz"`
	LogZErr     float64 `json:"logz_err"`
	Information float64 `json:"information"`
	NIter       int     `json:"niter"`
	NCalls      int     `json:"ncalls"`
	Efficiency  float64 `json:"efficiency"`
	StopReason  string  `json:"stop_reason"`

	NPosterior  int                `json:"n_posterior"`
	SamplesPath string             `json:"samples_path"`
	Posterior   []ParameterSummary `json:"posterior"`
}

// NewRunResult creates a result attached to a run
func NewRunResult(runID uuid.UUID) (*RunResult, error) {
	if runID == uuid.Nil {
		return nil, ErrInvalidRunID
	}
	return &RunResult{
		RunID:     runID,
		CreatedAt: time.Now(),
	}, nil
}

// SummaryFor returns the marginal summary of a parameter, if present
func (r *RunResult) SummaryFor(name string) (ParameterSummary, bool) {
	for _, s := range r.Posterior {
		if s.Name == name {
			return s, true
		}
	}
	return ParameterSummary{}, false
}
