package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
)

// ============================================================================
// Observation / Prior / Sampler DTOs
// ============================================================================

type ObservationDTO struct {
	Name  string  `json:"name" binding:"required"`
	Value float64 `json:"value"`
	Sigma float64 `json:"sigma"`
}

type PriorSpecDTO struct {
	Kind  string  `json:"kind" binding:"required"`
	Min   float64 `json:"min,omitempty"`
	Max   float64 `json:"max,omitempty"`
	Mu    float64 `json:"mu,omitempty"`
	Sigma float64 `json:"sigma,omitempty"`
}

type SamplerSettingsDTO struct {
	NLive     int     `json:"nlive,omitempty"`
	Walks     int     `json:"walks,omitempty"`
	MaxIter   int     `json:"max_iter,omitempty"`
	DLogZ     float64 `json:"dlogz,omitempty"`
	LogLScale float64 `json:"logl_scale,omitempty"`
	Seed      int64   `json:"seed,omitempty"`
}

func ToObservations(in []ObservationDTO) []domain.Observation {
	obs := make([]domain.Observation, 0, len(in))
	for _, o := range in {
		obs = append(obs, domain.Observation{Name: o.Name, Value: o.Value, Sigma: o.Sigma})
	}
	return obs
}

func ToPriorSpecs(in map[string]PriorSpecDTO) map[string]domain.PriorSpec {
	if in == nil {
		return nil
	}
	specs := make(map[string]domain.PriorSpec, len(in))
	for name, p := range in {
		specs[name] = domain.PriorSpec{Kind: p.Kind, Min: p.Min, Max: p.Max, Mu: p.Mu, Sigma: p.Sigma}
	}
	return specs
}

func ToSamplerSettings(in *SamplerSettingsDTO) domain.SamplerSettings {
	if in == nil {
		return domain.SamplerSettings{}
	}
	return domain.SamplerSettings{
		NLive:     in.NLive,
		Walks:     in.Walks,
		MaxIter:   in.MaxIter,
		DLogZ:     in.DLogZ,
		LogLScale: in.LogLScale,
		Seed:      in.Seed,
	}
}

// ============================================================================
// Inference Run DTOs
// ============================================================================

type CreateInferenceRunRequest struct {
	Name        string    `json:"name" binding:"required,max=100"`
	Description string    `json:"description"`
	EmulatorID  uuid.UUID `json:"emulator_id" binding:"required"`

	// Star seeds observations from the catalog when none are given inline
	Star         string                  `json:"star"`
	Observations []ObservationDTO        `json:"observations"`
	Priors       map[string]PriorSpecDTO `json:"priors"`
	Sampler      *SamplerSettingsDTO     `json:"sampler"`
}

type SamplerSettingsResponse struct {
	NLive     int     `json:"nlive"`
	Walks     int     `json:"walks"`
	MaxIter   int     `json:"max_iter,omitempty"`
	DLogZ     float64 `json:"dlogz"`
	LogLScale float64 `json:"logl_scale"`
	Seed      int64   `json:"seed,omitempty"`
}

type InferenceRunResponse struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `json:"name"`
	Description string    `json:"description"`

	EmulatorID   uuid.UUID `json:"emulator_id"`
	EmulatorName string    `json:"emulator_name,omitempty"`
	Star         string    `json:"star,omitempty"`

	Observations []ObservationDTO        `json:"observations"`
	Priors       map[string]PriorSpecDTO `json:"priors"`
	Sampler      SamplerSettingsResponse `json:"sampler"`

	Status      string             `json:"status"`
	Runner      string             `json:"runner,omitempty"`
	ExternalID  string             `json:"external_id,omitempty"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	LastError   string             `json:"last_error,omitempty"`
	Result      *RunResultResponse `json:"result,omitempty"`
}

type ListInferenceRunsResponse struct {
	Items      []InferenceRunResponse `json:"items"`
	Total      int                    `json:"total"`
	PageSize   int                    `json:"page_size"`
	NextOffset int                    `json:"next_offset"`
}

func ToInferenceRunResponse(run *domain.InferenceRun) InferenceRunResponse {
	observations := make([]ObservationDTO, 0, len(run.Observations))
	for _, o := range run.Observations {
		observations = append(observations, ObservationDTO{Name: o.Name, Value: o.Value, Sigma: o.Sigma})
	}
	priors := make(map[string]PriorSpecDTO, len(run.Priors))
	for name, p := range run.Priors {
		priors[name] = PriorSpecDTO{Kind: p.Kind, Min: p.Min, Max: p.Max, Mu: p.Mu, Sigma: p.Sigma}
	}

	resp := InferenceRunResponse{
		ID:           run.ID,
		CreatedAt:    run.CreatedAt,
		UpdatedAt:    run.UpdatedAt,
		Name:         run.Name,
		Description:  run.Description,
		EmulatorID:   run.EmulatorID,
		EmulatorName: run.EmulatorName,
		Star:         run.Star,
		Observations: observations,
		Priors:       priors,
		Sampler: SamplerSettingsResponse{
			NLive:     run.Sampler.NLive,
			Walks:     run.Sampler.Walks,
			MaxIter:   run.Sampler.MaxIter,
			DLogZ:     run.Sampler.DLogZ,
			LogLScale: run.Sampler.LogLScale,
			Seed:      run.Sampler.Seed,
		},
		Status:      string(run.Status),
		Runner:      run.Runner,
		ExternalID:  run.ExternalID,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		LastError:   run.LastError,
	}
	if run.Result != nil {
		result := ToRunResultResponse(run.Result)
		resp.Result = &result
	}
	return resp
}

// ============================================================================
// Run Result / Posterior DTOs
// ============================================================================

type ParameterSummaryDTO struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	P16    float64 `json:"p16"`
	P84    float64 `json:"p84"`
}

type RunResultResponse struct {
	RunID       uuid.UUID `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
	LogZ        float64   `json:"logz"`
	LogZErr     float64   `json:"logz_err"`
	Information float64   `json:"information"`
	NIter       int       `json:"niter"`
	NCalls      int       `json:"ncalls"`
	Efficiency  float64   `json:"efficiency"`
	StopReason  string    `json:"stop_reason"`

	NPosterior  int                   `json:"n_posterior"`
	SamplesPath string                `json:"samples_path,omitempty"`
	Posterior   []ParameterSummaryDTO `json:"posterior"`
}

func ToRunResultResponse(r *domain.RunResult) RunResultResponse {
	posterior := make([]ParameterSummaryDTO, 0, len(r.Posterior))
	for _, p := range r.Posterior {
		posterior = append(posterior, ParameterSummaryDTO{
			Name:   p.Name,
			Mean:   p.Mean,
			Std:    p.Std,
			Median: p.Median,
			P16:    p.P16,
			P84:    p.P84,
		})
	}
	return RunResultResponse{
		RunID:       r.RunID,
		CreatedAt:   r.CreatedAt,
		LogZ:        r.LogZ,
		LogZErr:     r.LogZErr,
		Information: r.Information,
		NIter:       r.NIter,
		NCalls:      r.NCalls,
		Efficiency:  r.Efficiency,
		StopReason:  r.StopReason,
		NPosterior:  r.NPosterior,
		SamplesPath: r.SamplesPath,
		Posterior:   posterior,
	}
}

// PosteriorResponse pages through the equally weighted posterior samples of a
// completed run.
type PosteriorResponse struct {
	RunID      uuid.UUID             `json:"run_id"`
	Summary    []ParameterSummaryDTO `json:"summary"`
	Parameters []string              `json:"parameters"`
	Samples    [][]float64           `json:"samples"`
	Total      int                   `json:"total"`
	Offset     int                   `json:"offset"`
	NextOffset int                   `json:"next_offset"`
}

// ============================================================================
// Star DTOs
// ============================================================================

type StarResponse struct {
	Name         string           `json:"name"`
	Observations []ObservationDTO `json:"observations"`
}

func ToStarResponse(star *domain.Star) StarResponse {
	observations := make([]ObservationDTO, 0, len(star.Observations))
	for _, o := range star.Observations {
		observations = append(observations, ObservationDTO{Name: o.Name, Value: o.Value, Sigma: o.Sigma})
	}
	return StarResponse{Name: star.Name, Observations: observations}
}
