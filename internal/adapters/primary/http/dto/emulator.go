package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
)

// ============================================================================
// Emulator DTOs
// ============================================================================

type RegisterEmulatorRequest struct {
	// Name/version default from the artifact metadata when omitted
	Name         string            `json:"name" binding:"max=100"`
	Version      string            `json:"version" binding:"max=50"`
	Description  string            `json:"description"`
	ArtifactPath string            `json:"artifact_path" binding:"required"`
	Labels       map[string]string `json:"labels"`
}

type UpdateEmulatorRequest struct {
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	Version     *string           `json:"version"`
	Labels      map[string]string `json:"labels"`
}

type ParameterRangeDTO struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type EmulatorResponse struct {
	ID           uuid.UUID         `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	ArtifactPath string            `json:"artifact_path"`
	GridName     string            `json:"grid_name,omitempty"`
	Status       string            `json:"status"`
	LastError    string            `json:"last_error,omitempty"`
	Labels       map[string]string `json:"labels"`

	Inputs           []string                     `json:"inputs"`
	ClassicalOutputs []string                     `json:"classical_outputs"`
	AsteroOutputs    []string                     `json:"astero_outputs"`
	ParameterRanges  map[string]ParameterRangeDTO `json:"parameter_ranges"`
}

type ListEmulatorsResponse struct {
	Items      []EmulatorResponse `json:"items"`
	Total      int                `json:"total"`
	PageSize   int                `json:"page_size"`
	NextOffset int                `json:"next_offset"`
}

func ToEmulatorResponse(em *domain.Emulator) EmulatorResponse {
	labels := em.Labels
	if labels == nil {
		labels = make(map[string]string)
	}
	ranges := make(map[string]ParameterRangeDTO, len(em.ParameterRanges))
	for name, r := range em.ParameterRanges {
		ranges[name] = ParameterRangeDTO{Min: r.Min, Max: r.Max}
	}
	return EmulatorResponse{
		ID:               em.ID,
		CreatedAt:        em.CreatedAt,
		UpdatedAt:        em.UpdatedAt,
		Name:             em.Name,
		Slug:             em.Slug,
		Version:          em.Version,
		Description:      em.Description,
		ArtifactPath:     em.ArtifactPath,
		GridName:         em.GridName,
		Status:           string(em.Status),
		LastError:        em.LastError,
		Labels:           labels,
		Inputs:           em.Inputs,
		ClassicalOutputs: em.ClassicalOutputs,
		AsteroOutputs:    em.AsteroOutputs,
		ParameterRanges:  ranges,
	}
}

// ============================================================================
// Prediction DTOs
// ============================================================================

type PredictRequest struct {
	// Inputs is a batch of parameter vectors ordered like the emulator's
	// inputs field
	Inputs [][]float64 `json:"inputs" binding:"required,min=1"`
}

type PredictResponse struct {
	EmulatorID uuid.UUID   `json:"emulator_id"`
	Inputs     []string    `json:"inputs"`
	Outputs    []string    `json:"outputs"`
	Values     [][]float64 `json:"values"`
	Count      int         `json:"count"`
}

type ParameterRangesResponse struct {
	EmulatorID uuid.UUID                    `json:"emulator_id"`
	GridName   string                       `json:"grid_name,omitempty"`
	Ranges     map[string]ParameterRangeDTO `json:"ranges"`
}
