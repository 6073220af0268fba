package domain

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Value Objects
// ============================================================================

// EmulatorStatus represents the lifecycle state of a registered emulator
type EmulatorStatus string

const (
	EmulatorStatusPending EmulatorStatus = "PENDING"
	EmulatorStatusReady   EmulatorStatus = "READY"
	EmulatorStatusFailed  EmulatorStatus = "FAILED"
)

// IsValid checks if the status is valid
func (s EmulatorStatus) IsValid() bool {
	return s == EmulatorStatusPending || s == EmulatorStatusReady || s == EmulatorStatusFailed
}

// ParameterRange is the trained interval of one input parameter in natural
// (linear) units
type ParameterRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ============================================================================
// Entities
// ============================================================================

// Emulator is a registered neural-network surrogate of a stellar model grid.
// The trained network itself lives in the artifact store; the entity carries
// the metadata needed to validate inference requests against it.
type Emulator struct {
	ID           uuid.UUID `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Version      string    `json:"version"`
	Description  string    `json:"description"`
	ArtifactPath string    `json:"artifact_path"`
	GridName     string    `json:"grid_name"`

	Status    EmulatorStatus    `json:"status"`
	LastError string            `json:"last_error"`
	Labels    map[string]string `json:"labels"`

	// Interface metadata extracted from the validated artifact
	Inputs           []string                  `json:"inputs"`
	ClassicalOutputs []string                  `json:"classical_outputs"`
	AsteroOutputs    []string                  `json:"astero_outputs"`
	ParameterRanges  map[string]ParameterRange `json:"parameter_ranges"`
}

// NewEmulator creates a new Emulator with validation
func NewEmulator(name, version, description, artifactPath string) (*Emulator, error) {
	if name == "" {
		return nil, ErrInvalidEmulatorName
	}
	if artifactPath == "" {
		return nil, ErrMissingArtifact
	}
	if version == "" {
		version = "v1"
	}

	now := time.Now()
	return &Emulator{
		ID:           uuid.New(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Name:         name,
		Slug:         GenerateSlug(name),
		Version:      version,
		Description:  description,
		ArtifactPath: artifactPath,
		Status:       EmulatorStatusPending,
		Labels:       make(map[string]string),
	}, nil
}

// MarkReady records the interface metadata of a successfully validated
// artifact and flips the emulator to READY
func (e *Emulator) MarkReady(gridName string, inputs, classical, astero []string, ranges map[string]ParameterRange) {
	e.GridName = gridName
	e.Inputs = inputs
	e.ClassicalOutputs = classical
	e.AsteroOutputs = astero
	e.ParameterRanges = ranges
	e.Status = EmulatorStatusReady
	e.LastError = ""
	e.UpdatedAt = time.Now()
}

// MarkFailed records an artifact validation failure
func (e *Emulator) MarkFailed(err string) {
	e.Status = EmulatorStatusFailed
	e.LastError = err
	e.UpdatedAt = time.Now()
}

// Update updates the mutable metadata fields
func (e *Emulator) Update(name, description *string) {
	if name != nil {
		e.Name = *name
	}
	if description != nil {
		e.Description = *description
	}
	e.UpdatedAt = time.Now()
}

// IsReady returns true if the emulator can serve predictions
func (e *Emulator) IsReady() bool {
	return e.Status == EmulatorStatusReady
}

// OutputNames returns classical outputs followed by astero outputs, matching
// prediction vector order
func (e *Emulator) OutputNames() []string {
	names := make([]string, 0, len(e.ClassicalOutputs)+len(e.AsteroOutputs))
	names = append(names, e.ClassicalOutputs...)
	names = append(names, e.AsteroOutputs...)
	return names
}

// HasOutput reports whether the emulator predicts the named observable
func (e *Emulator) HasOutput(name string) bool {
	for _, n := range e.ClassicalOutputs {
		if n == name {
			return true
		}
	}
	for _, n := range e.AsteroOutputs {
		if n == name {
			return true
		}
	}
	return false
}

// HasInput reports whether the emulator takes the named parameter
func (e *Emulator) HasInput(name string) bool {
	for _, n := range e.Inputs {
		if n == name {
			return true
		}
	}
	return false
}

// GenerateSlug derives a URL-safe identifier from a display name
func GenerateSlug(name string) string {
	slug := ""
	for _, ch := range name {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '.' {
			slug += string(ch)
		} else if ch >= 'A' && ch <= 'Z' {
			slug += string(ch + 32)
		} else if ch == ' ' || ch == '_' {
			slug += "-"
		}
	}
	if len(slug) > 60 {
		slug = slug[:60]
	}
	return slug
}
