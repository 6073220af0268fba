package emulator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Emulator evaluates a loaded pitchfork artifact. The prediction pipeline is
// log10(inputs) → standardize → network forward → un-standardize → 10^x, with
// all standardization in log10 space. An Emulator is immutable after New and
// safe for concurrent use.
type Emulator struct {
	art     *Artifact
	net     *network
	inMean  []float64
	inStd   []float64
	outMean []float64
	outStd  []float64
	ranges  map[string]Range
	outputs []string
}

// New validates the artifact and compiles it into an evaluatable emulator.
func New(art *Artifact) (*Emulator, error) {
	if err := art.Validate(); err != nil {
		return nil, err
	}

	net, err := newNetwork(art.Network, art.CustomObjects.InversePCA,
		len(art.ClassicalOutputs) > 0, len(art.AsteroOutputs) > 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	inMean, _ := scalingRow(art.DataScaling.InpMean, "inp_mean", len(art.Inputs), false)
	inStd, _ := scalingRow(art.DataScaling.InpStd, "inp_std", len(art.Inputs), true)

	nOut := len(art.ClassicalOutputs) + len(art.AsteroOutputs)
	outMean := make([]float64, 0, nOut)
	outStd := make([]float64, 0, nOut)
	if len(art.ClassicalOutputs) > 0 {
		m, _ := scalingRow(art.DataScaling.ClassicalOutMean, "classical_out_mean", len(art.ClassicalOutputs), false)
		s, _ := scalingRow(art.DataScaling.ClassicalOutStd, "classical_out_std", len(art.ClassicalOutputs), true)
		outMean = append(outMean, m...)
		outStd = append(outStd, s...)
	}
	if len(art.AsteroOutputs) > 0 {
		m, _ := scalingRow(art.DataScaling.AsteroOutMean, "astero_out_mean", len(art.AsteroOutputs), false)
		s, _ := scalingRow(art.DataScaling.AsteroOutStd, "astero_out_std", len(art.AsteroOutputs), true)
		outMean = append(outMean, m...)
		outStd = append(outStd, s...)
	}

	ranges, err := art.Ranges()
	if err != nil {
		return nil, err
	}

	return &Emulator{
		art:     art,
		net:     net,
		inMean:  inMean,
		inStd:   inStd,
		outMean: outMean,
		outStd:  outStd,
		ranges:  ranges,
		outputs: art.OutputNames(),
	}, nil
}

// Predict evaluates a batch of parameter vectors. Each row must contain
// NumInputs strictly positive values in artifact input order; each output row
// contains NumOutputs values in OutputNames order.
func (e *Emulator) Predict(batch [][]float64) ([][]float64, error) {
	n := len(batch)
	if n == 0 {
		return [][]float64{}, nil
	}
	d := len(e.art.Inputs)

	data := make([]float64, n*d)
	for i, row := range batch {
		if len(row) != d {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrInputDimension, i, len(row), d)
		}
		for j, v := range row {
			if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d input %q = %v", ErrNonPositiveInput, i, e.art.Inputs[j], v)
			}
			data[i*d+j] = (math.Log10(v) - e.inMean[j]) / e.inStd[j]
		}
	}

	y := e.net.forward(mat.NewDense(n, d, data))

	m := len(e.outMean)
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, m)
		for j := 0; j < m; j++ {
			row[j] = pow10(y.At(i, j)*e.outStd[j] + e.outMean[j])
		}
		out[i] = row
	}
	return out, nil
}

// PredictOne evaluates a single parameter vector.
func (e *Emulator) PredictOne(inputs []float64) ([]float64, error) {
	out, err := e.Predict([][]float64{inputs})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// InputNames returns the artifact input parameter names.
func (e *Emulator) InputNames() []string { return e.art.Inputs }

// OutputNames returns classical outputs followed by astero outputs.
func (e *Emulator) OutputNames() []string { return e.outputs }

func (e *Emulator) NumInputs() int  { return len(e.art.Inputs) }
func (e *Emulator) NumOutputs() int { return len(e.outputs) }

// Ranges returns the training-grid bounds in natural units.
func (e *Emulator) Ranges() map[string]Range { return e.ranges }

// OutputIndex returns the position of a named output, or -1.
func (e *Emulator) OutputIndex(name string) int {
	for i, n := range e.outputs {
		if n == name {
			return i
		}
	}
	return -1
}

// Artifact returns the source artifact.
func (e *Emulator) Artifact() *Artifact { return e.art }
