package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
)

// ArtifactJSON is a small valid emulator artifact with linear layers, so
// tests can compute expected predictions by hand: classical teff = h1+h2 and
// two astero outputs through an inverse PCA over [1, 0.5] with mean
// [0.1, 0.2], all in log10 space.
const ArtifactJSON = `{
  "schema_version": 1,
  "name": "pitchfork-test",
  "version": "v1",
  "inputs": ["mass", "age"],
  "classical_outputs": ["teff"],
  "astero_outputs": ["nu_0_1", "nu_0_2"],
  "grid": {"name": "test-grid", "models": 42},
  "network": {
    "trunk": [{"weights": [[1, 0], [0, 1]], "biases": [0, 0], "activation": "linear"}],
    "classical_head": [{"weights": [[1], [1]], "biases": [0], "activation": "linear"}],
    "astero_head": [{"weights": [[2], [0]], "biases": [0], "activation": "linear"}]
  },
  "custom_objects": {
    "inverse_pca": {"pca_comps": [[1, 0.5]], "pca_mean": [0.1, 0.2]}
  },
  "data_scaling": {
    "inp_mean": [[0, 0]],
    "inp_std": [[1, 1]],
    "classical_out_mean": [[0]],
    "classical_out_std": [[1]],
    "astero_out_mean": [[0, 0]],
    "astero_out_std": [[1, 1]]
  },
  "parameter_ranges": {
    "mass": {"min": 0.8, "max": 1.2},
    "log_age": {"min": -0.3, "max": 1.2}
  }
}`

// ReadyEmulator returns a READY emulator entity matching ArtifactJSON.
func ReadyEmulator() *domain.Emulator {
	now := time.Now()
	return &domain.Emulator{
		ID:           uuid.New(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Name:         "pitchfork-test",
		Slug:         "pitchfork-test",
		Version:      "v1",
		ArtifactPath: "pitchfork-test.json",
		GridName:     "test-grid",
		Status:       domain.EmulatorStatusReady,
		Labels:       map[string]string{},

		Inputs:           []string{"mass", "age"},
		ClassicalOutputs: []string{"teff"},
		AsteroOutputs:    []string{"nu_0_1", "nu_0_2"},
		ParameterRanges: map[string]domain.ParameterRange{
			"mass": {Min: 0.8, Max: 1.2},
			"age":  {Min: 0.5011872336272722, Max: 15.848931924611133},
		},
	}
}

// PendingRun returns a PENDING run against the given emulator with a single
// teff observation.
func PendingRun(emulatorID uuid.UUID) *domain.InferenceRun {
	now := time.Now()
	return &domain.InferenceRun{
		ID:         uuid.New(),
		CreatedAt:  now,
		UpdatedAt:  now,
		Name:       "test-run",
		EmulatorID: emulatorID,
		Observations: []domain.Observation{
			{Name: "teff", Value: 1000, Sigma: 50},
		},
		Priors:  map[string]domain.PriorSpec{},
		Sampler: domain.DefaultSamplerSettings(),
		Status:  domain.RunStatusPending,
	}
}
