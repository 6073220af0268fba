package emulator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// SchemaVersion is the artifact schema this package reads.
const SchemaVersion = 1

var (
	ErrInvalidArtifact  = errors.New("invalid emulator artifact")
	ErrInputDimension   = errors.New("input dimension mismatch")
	ErrNonPositiveInput = errors.New("inputs must be strictly positive")
)

// Range is a closed parameter interval in natural (linear) units.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// GridInfo records the provenance of the training grid.
type GridInfo struct {
	Name   string `json:"name"`
	Models int    `json:"models"`
	Source string `json:"source,omitempty"`
}

// LayerSpec is one dense layer: weights are stored row-major as in×out.
type LayerSpec struct {
	Weights    [][]float64 `json:"weights"`
	Biases     []float64   `json:"biases"`
	Activation string      `json:"activation"`
}

// NetworkSpec describes the shared trunk and the two output heads. The
// classical head emits classical observables directly; the astero head emits
// PCA coefficients that the inverse-PCA layer expands into mode frequencies.
type NetworkSpec struct {
	Trunk         []LayerSpec `json:"trunk"`
	ClassicalHead []LayerSpec `json:"classical_head"`
	AsteroHead    []LayerSpec `json:"astero_head"`
}

// InversePCASpec holds the PCA basis of the astero output head.
type InversePCASpec struct {
	Components [][]float64 `json:"pca_comps"`
	Mean       []float64   `json:"pca_mean"`
}

// WMSESpec carries the weighted-MSE training weights. They are provenance
// only: inference never uses them.
type WMSESpec struct {
	Weights []float64 `json:"weights"`
}

type CustomObjects struct {
	InversePCA InversePCASpec `json:"inverse_pca"`
	WMSE       *WMSESpec      `json:"wmse,omitempty"`
}

// DataScaling holds standardization vectors in log10 space. Each entry is a
// list of rows with row 0 the vector in use, mirroring the (1×n) arrays the
// training pipeline serializes.
type DataScaling struct {
	InpMean          [][]float64 `json:"inp_mean"`
	InpStd           [][]float64 `json:"inp_std"`
	ClassicalOutMean [][]float64 `json:"classical_out_mean"`
	ClassicalOutStd  [][]float64 `json:"classical_out_std"`
	AsteroOutMean    [][]float64 `json:"astero_out_mean"`
	AsteroOutStd     [][]float64 `json:"astero_out_std"`
}

// Artifact is the serialized "info dict" of a trained pitchfork emulator:
// network weights, scaling, PCA basis, and the training-grid parameter ranges.
type Artifact struct {
	SchemaVersion    int              `json:"schema_version"`
	Name             string           `json:"name"`
	Version          string           `json:"version,omitempty"`
	Description      string           `json:"description,omitempty"`
	Inputs           []string         `json:"inputs"`
	ClassicalOutputs []string         `json:"classical_outputs"`
	AsteroOutputs    []string         `json:"astero_outputs"`
	Grid             *GridInfo        `json:"grid,omitempty"`
	Network          NetworkSpec      `json:"network"`
	CustomObjects    CustomObjects    `json:"custom_objects"`
	DataScaling      DataScaling      `json:"data_scaling"`
	ParameterRanges  map[string]Range `json:"parameter_ranges"`
}

// Load decodes and validates an artifact from r.
func Load(r io.Reader) (*Artifact, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decode emulator artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// LoadFile reads an artifact from disk.
func LoadFile(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open emulator artifact: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks the artifact for structural consistency: layer shape
// chaining, scaling vector lengths, activation names, and grid coverage of
// every input parameter.
func (a *Artifact) Validate() error {
	if a.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: unsupported schema_version %d", ErrInvalidArtifact, a.SchemaVersion)
	}
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidArtifact)
	}
	if len(a.Inputs) == 0 {
		return fmt.Errorf("%w: no inputs defined", ErrInvalidArtifact)
	}
	if len(a.ClassicalOutputs) == 0 && len(a.AsteroOutputs) == 0 {
		return fmt.Errorf("%w: no outputs defined", ErrInvalidArtifact)
	}
	if len(a.Network.Trunk) == 0 {
		return fmt.Errorf("%w: network trunk is empty", ErrInvalidArtifact)
	}

	trunkOut, err := validateChain("trunk", a.Network.Trunk, len(a.Inputs))
	if err != nil {
		return err
	}

	if len(a.ClassicalOutputs) > 0 {
		out, err := validateChain("classical_head", a.Network.ClassicalHead, trunkOut)
		if err != nil {
			return err
		}
		if out != len(a.ClassicalOutputs) {
			return fmt.Errorf("%w: classical_head emits %d values, want %d outputs", ErrInvalidArtifact, out, len(a.ClassicalOutputs))
		}
	}

	if len(a.AsteroOutputs) > 0 {
		out, err := validateChain("astero_head", a.Network.AsteroHead, trunkOut)
		if err != nil {
			return err
		}
		pca := a.CustomObjects.InversePCA
		if len(pca.Components) != out {
			return fmt.Errorf("%w: astero_head emits %d PCA coefficients, pca_comps has %d rows", ErrInvalidArtifact, out, len(pca.Components))
		}
		for i, row := range pca.Components {
			if len(row) != len(a.AsteroOutputs) {
				return fmt.Errorf("%w: pca_comps row %d has %d values, want %d astero outputs", ErrInvalidArtifact, i, len(row), len(a.AsteroOutputs))
			}
		}
		if len(pca.Mean) != len(a.AsteroOutputs) {
			return fmt.Errorf("%w: pca_mean has %d values, want %d astero outputs", ErrInvalidArtifact, len(pca.Mean), len(a.AsteroOutputs))
		}
	}

	if _, err := scalingRow(a.DataScaling.InpMean, "inp_mean", len(a.Inputs), false); err != nil {
		return err
	}
	if _, err := scalingRow(a.DataScaling.InpStd, "inp_std", len(a.Inputs), true); err != nil {
		return err
	}
	if len(a.ClassicalOutputs) > 0 {
		if _, err := scalingRow(a.DataScaling.ClassicalOutMean, "classical_out_mean", len(a.ClassicalOutputs), false); err != nil {
			return err
		}
		if _, err := scalingRow(a.DataScaling.ClassicalOutStd, "classical_out_std", len(a.ClassicalOutputs), true); err != nil {
			return err
		}
	}
	if len(a.AsteroOutputs) > 0 {
		if _, err := scalingRow(a.DataScaling.AsteroOutMean, "astero_out_mean", len(a.AsteroOutputs), false); err != nil {
			return err
		}
		if _, err := scalingRow(a.DataScaling.AsteroOutStd, "astero_out_std", len(a.AsteroOutputs), true); err != nil {
			return err
		}
	}

	if a.CustomObjects.WMSE != nil && len(a.CustomObjects.WMSE.Weights) > 0 {
		total := len(a.ClassicalOutputs) + len(a.AsteroOutputs)
		if len(a.CustomObjects.WMSE.Weights) != total {
			return fmt.Errorf("%w: wmse weights has %d values, want %d outputs", ErrInvalidArtifact, len(a.CustomObjects.WMSE.Weights), total)
		}
	}

	ranges, err := a.Ranges()
	if err != nil {
		return err
	}
	for _, in := range a.Inputs {
		r, ok := ranges[in]
		if !ok {
			return fmt.Errorf("%w: no parameter range for input %q", ErrInvalidArtifact, in)
		}
		if !(r.Min < r.Max) {
			return fmt.Errorf("%w: parameter range for %q has min >= max", ErrInvalidArtifact, in)
		}
	}
	if len(ranges) != len(a.Inputs) {
		for name := range ranges {
			if !containsString(a.Inputs, name) {
				return fmt.Errorf("%w: parameter range %q matches no input", ErrInvalidArtifact, name)
			}
		}
	}

	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Ranges returns the training-grid bounds keyed by input name in natural
// units. Range keys carrying a "log_" prefix store log10 bounds and are
// exponentiated here, so downstream code never sees log-space values.
func (a *Artifact) Ranges() (map[string]Range, error) {
	out := make(map[string]Range, len(a.ParameterRanges))
	for key, r := range a.ParameterRanges {
		name := key
		if strings.HasPrefix(key, "log_") {
			name = strings.TrimPrefix(key, "log_")
			r = Range{Min: pow10(r.Min), Max: pow10(r.Max)}
		}
		if prev, ok := out[name]; ok && prev != r {
			return nil, fmt.Errorf("%w: conflicting parameter ranges for %q", ErrInvalidArtifact, name)
		}
		out[name] = r
	}
	return out, nil
}

// OutputNames returns classical outputs followed by astero outputs, the order
// of predicted vectors.
func (a *Artifact) OutputNames() []string {
	names := make([]string, 0, len(a.ClassicalOutputs)+len(a.AsteroOutputs))
	names = append(names, a.ClassicalOutputs...)
	names = append(names, a.AsteroOutputs...)
	return names
}

func validateChain(section string, layers []LayerSpec, in int) (int, error) {
	if len(layers) == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrInvalidArtifact, section)
	}
	for i, l := range layers {
		if len(l.Weights) != in {
			return 0, fmt.Errorf("%w: %s layer %d has %d weight rows, want %d", ErrInvalidArtifact, section, i, len(l.Weights), in)
		}
		out := 0
		for j, row := range l.Weights {
			if j == 0 {
				out = len(row)
				continue
			}
			if len(row) != out {
				return 0, fmt.Errorf("%w: %s layer %d has ragged weight rows", ErrInvalidArtifact, section, i)
			}
		}
		if out == 0 {
			return 0, fmt.Errorf("%w: %s layer %d has no units", ErrInvalidArtifact, section, i)
		}
		if len(l.Biases) != out {
			return 0, fmt.Errorf("%w: %s layer %d has %d biases, want %d", ErrInvalidArtifact, section, i, len(l.Biases), out)
		}
		if _, err := activation(l.Activation); err != nil {
			return 0, fmt.Errorf("%w: %s layer %d: %v", ErrInvalidArtifact, section, i, err)
		}
		in = out
	}
	return in, nil
}

func scalingRow(rows [][]float64, name string, want int, nonZero bool) ([]float64, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: data_scaling.%s is missing", ErrInvalidArtifact, name)
	}
	row := rows[0]
	if len(row) != want {
		return nil, fmt.Errorf("%w: data_scaling.%s has %d values, want %d", ErrInvalidArtifact, name, len(row), want)
	}
	if nonZero {
		for i, v := range row {
			if v == 0 {
				return nil, fmt.Errorf("%w: data_scaling.%s[%d] is zero", ErrInvalidArtifact, name, i)
			}
		}
	}
	return row, nil
}
