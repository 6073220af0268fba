package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Value Objects
// ============================================================================

// RunStatus represents the lifecycle state of an inference run
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCanceled  RunStatus = "CANCELED"
)

// IsValid checks if the status is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed, RunStatusCanceled:
		return true
	}
	return false
}

// IsTerminal returns true once the run can no longer change state
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCanceled
}

// Runner identifies where a run executes
const (
	RunnerLocal   = "local"
	RunnerCluster = "cluster"
)

// Observation is one measured observable with its Gaussian uncertainty
type Observation struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Sigma float64 `json:"sigma"`
}

// Validate checks the observation is usable in a Gaussian likelihood
func (o Observation) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidObservation)
	}
	if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
		return fmt.Errorf("%w: %s value must be finite", ErrInvalidObservation, o.Name)
	}
	if !(o.Sigma > 0) || math.IsInf(o.Sigma, 0) {
		return fmt.Errorf("%w: %s sigma must be positive and finite", ErrInvalidObservation, o.Name)
	}
	return nil
}

// Prior kinds accepted in a PriorSpec
const (
	PriorUniform     = "uniform"
	PriorLogUniform  = "log-uniform"
	PriorNormal      = "normal"
	PriorTruncNormal = "truncated-normal"
)

// PriorSpec declares the prior distribution of one stellar parameter.
// Min/Max bound uniform, log-uniform and truncated-normal priors; Mu/Sigma
// locate normal and truncated-normal priors.
type PriorSpec struct {
	Kind  string  `json:"kind"`
	Min   float64 `json:"min,omitempty"`
	Max   float64 `json:"max,omitempty"`
	Mu    float64 `json:"mu,omitempty"`
	Sigma float64 `json:"sigma,omitempty"`
}

// Validate checks kind-specific requirements; parameter names the prior in
// error messages
func (p PriorSpec) Validate(parameter string) error {
	switch p.Kind {
	case PriorUniform, PriorLogUniform:
		if !(p.Min < p.Max) {
			return fmt.Errorf("%w: %s %s prior requires min < max", ErrInvalidPriorSpec, parameter, p.Kind)
		}
		if p.Kind == PriorLogUniform && !(p.Min > 0) {
			return fmt.Errorf("%w: %s log-uniform prior requires min > 0", ErrInvalidPriorSpec, parameter)
		}
	case PriorNormal:
		if !(p.Sigma > 0) {
			return fmt.Errorf("%w: %s normal prior requires sigma > 0", ErrInvalidPriorSpec, parameter)
		}
	case PriorTruncNormal:
		if !(p.Sigma > 0) {
			return fmt.Errorf("%w: %s truncated-normal prior requires sigma > 0", ErrInvalidPriorSpec, parameter)
		}
		if !(p.Min < p.Max) {
			return fmt.Errorf("%w: %s truncated-normal prior requires min < max", ErrInvalidPriorSpec, parameter)
		}
	default:
		return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidPriorSpec, parameter, p.Kind)
	}
	return nil
}

// Support returns the interval the prior can draw from. Normal priors are
// unbounded and return infinities.
func (p PriorSpec) Support() (lo, hi float64) {
	if p.Kind == PriorNormal {
		return math.Inf(-1), math.Inf(1)
	}
	return p.Min, p.Max
}

// SamplerSettings tunes the nested sampling run. Zero values fall back to
// the defaults at execution time.
type SamplerSettings struct {
	NLive     int     `json:"nlive"`
	Walks     int     `json:"walks"`
	MaxIter   int     `json:"max_iter"`
	DLogZ     float64 `json:"dlogz"`
	LogLScale float64 `json:"logl_scale"`
	Seed      int64   `json:"seed"`
}

// DefaultSamplerSettings returns the settings used when a run specifies none
func DefaultSamplerSettings() SamplerSettings {
	return SamplerSettings{
		NLive:     500,
		Walks:     25,
		DLogZ:     0.01,
		LogLScale: 0.001,
	}
}

// Validate checks the settings are non-degenerate
func (s SamplerSettings) Validate() error {
	if s.NLive < 0 || s.Walks < 0 || s.MaxIter < 0 {
		return fmt.Errorf("%w: counts must be non-negative", ErrInvalidSamplerSettings)
	}
	if s.DLogZ < 0 {
		return fmt.Errorf("%w: dlogz must be non-negative", ErrInvalidSamplerSettings)
	}
	if s.LogLScale < 0 {
		return fmt.Errorf("%w: logl_scale must be non-negative", ErrInvalidSamplerSettings)
	}
	return nil
}

// WithDefaults fills zero-valued fields from DefaultSamplerSettings
func (s SamplerSettings) WithDefaults() SamplerSettings {
	return s.WithDefaultsFrom(DefaultSamplerSettings())
}

// WithDefaultsFrom fills zero-valued fields from the given defaults
func (s SamplerSettings) WithDefaultsFrom(def SamplerSettings) SamplerSettings {
	if s.NLive == 0 {
		s.NLive = def.NLive
	}
	if s.Walks == 0 {
		s.Walks = def.Walks
	}
	if s.DLogZ == 0 {
		s.DLogZ = def.DLogZ
	}
	if s.LogLScale == 0 {
		s.LogLScale = def.LogLScale
	}
	return s
}

// ============================================================================
// Entities
// ============================================================================

// InferenceRun is one posterior recovery: a set of observed values matched
// against an emulator under declared priors via nested sampling.
type InferenceRun struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	EmulatorID  uuid.UUID `json:"emulator_id"`
	Star        string    `json:"star,omitempty"`

	Observations []Observation        `json:"observations"`
	Priors       map[string]PriorSpec `json:"priors"`
	Sampler      SamplerSettings      `json:"sampler"`

	Status      RunStatus  `json:"status"`
	Runner      string     `json:"runner,omitempty"`
	ExternalID  string     `json:"external_id,omitempty"` // cluster job name
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`

	// Computed/joined fields
	EmulatorName string     `json:"emulator_name,omitempty"`
	Result       *RunResult `json:"result,omitempty"`
}

// NewInferenceRun creates a new InferenceRun with validation
func NewInferenceRun(
	name string,
	emulatorID uuid.UUID,
	observations []Observation,
	priors map[string]PriorSpec,
	sampler SamplerSettings,
) (*InferenceRun, error) {
	if name == "" {
		return nil, ErrInvalidRunName
	}
	if emulatorID == uuid.Nil {
		return nil, ErrInvalidEmulatorID
	}
	if len(observations) == 0 {
		return nil, ErrNoObservations
	}

	seen := make(map[string]bool, len(observations))
	for _, o := range observations {
		if err := o.Validate(); err != nil {
			return nil, err
		}
		if seen[o.Name] {
			return nil, fmt.Errorf("%w: duplicate observation %q", ErrInvalidObservation, o.Name)
		}
		seen[o.Name] = true
	}

	for parameter, p := range priors {
		if err := p.Validate(parameter); err != nil {
			return nil, err
		}
	}

	if err := sampler.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	return &InferenceRun{
		ID:           uuid.New(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Name:         name,
		EmulatorID:   emulatorID,
		Observations: observations,
		Priors:       priors,
		Sampler:      sampler.WithDefaults(),
		Status:       RunStatusPending,
	}, nil
}

// CanStart returns true if the run may transition to RUNNING
func (r *InferenceRun) CanStart() bool {
	return r.Status == RunStatusPending
}

// CanCancel returns true while the run has not finished
func (r *InferenceRun) CanCancel() bool {
	return r.Status == RunStatusPending || r.Status == RunStatusRunning
}

// IsTerminal returns true once the run has finished
func (r *InferenceRun) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// MarkRunning records the execution start
func (r *InferenceRun) MarkRunning(runner string) {
	now := time.Now()
	r.Status = RunStatusRunning
	r.Runner = runner
	r.StartedAt = &now
	r.LastError = ""
	r.UpdatedAt = now
}

// MarkCompleted records a successful finish
func (r *InferenceRun) MarkCompleted() {
	now := time.Now()
	r.Status = RunStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// MarkFailed records an execution failure
func (r *InferenceRun) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.LastError = err
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// MarkCanceled records a cancellation
func (r *InferenceRun) MarkCanceled() {
	now := time.Now()
	r.Status = RunStatusCanceled
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// SetExternalID records the cluster job backing this run
func (r *InferenceRun) SetExternalID(externalID string) {
	r.ExternalID = externalID
	r.UpdatedAt = time.Now()
}
