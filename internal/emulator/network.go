package emulator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

type activationFunc func(float64) float64

func activation(name string) (activationFunc, error) {
	switch name {
	case "linear", "":
		return func(x float64) float64 { return x }, nil
	case "relu":
		return func(x float64) float64 { return math.Max(0, x) }, nil
	case "elu":
		return func(x float64) float64 {
			if x >= 0 {
				return x
			}
			return math.Expm1(x)
		}, nil
	case "sigmoid":
		return func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }, nil
	case "tanh":
		return math.Tanh, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}

func pow10(x float64) float64 { return math.Pow(10, x) }

// layer is a dense layer y = act(x·W + b) operating on row-vector batches.
type layer struct {
	w   *mat.Dense
	b   []float64
	act activationFunc
}

func newLayer(spec LayerSpec) (*layer, error) {
	in := len(spec.Weights)
	if in == 0 {
		return nil, fmt.Errorf("layer has no weight rows")
	}
	out := len(spec.Weights[0])
	data := make([]float64, 0, in*out)
	for _, row := range spec.Weights {
		data = append(data, row...)
	}
	act, err := activation(spec.Activation)
	if err != nil {
		return nil, err
	}
	return &layer{
		w:   mat.NewDense(in, out, data),
		b:   spec.Biases,
		act: act,
	}, nil
}

func (l *layer) forward(x *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	_, out := l.w.Dims()
	y := mat.NewDense(n, out, nil)
	y.Mul(x, l.w)
	for i := 0; i < n; i++ {
		row := y.RawRowView(i)
		for j := range row {
			row[j] = l.act(row[j] + l.b[j])
		}
	}
	return y
}

// inversePCA expands PCA coefficients back into output space:
// y = x·components + mean. It mirrors the custom InversePCA layer of the
// training pipeline.
type inversePCA struct {
	comps *mat.Dense // k×m
	mean  []float64  // m
}

func newInversePCA(spec InversePCASpec) *inversePCA {
	k := len(spec.Components)
	m := len(spec.Mean)
	data := make([]float64, 0, k*m)
	for _, row := range spec.Components {
		data = append(data, row...)
	}
	return &inversePCA{comps: mat.NewDense(k, m, data), mean: spec.Mean}
}

func (p *inversePCA) forward(x *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	_, m := p.comps.Dims()
	y := mat.NewDense(n, m, nil)
	y.Mul(x, p.comps)
	for i := 0; i < n; i++ {
		row := y.RawRowView(i)
		for j := range row {
			row[j] += p.mean[j]
		}
	}
	return y
}

// network is the full emulator graph: shared trunk feeding a classical head
// and an astero head whose PCA coefficients pass through inverse PCA. Either
// head may be absent; outputs are concatenated classical-first.
type network struct {
	trunk     []*layer
	classical []*layer
	astero    []*layer
	ipca      *inversePCA
}

func newNetwork(spec NetworkSpec, pca InversePCASpec, hasClassical, hasAstero bool) (*network, error) {
	nw := &network{}
	var err error
	if nw.trunk, err = buildChain("trunk", spec.Trunk); err != nil {
		return nil, err
	}
	if hasClassical {
		if nw.classical, err = buildChain("classical_head", spec.ClassicalHead); err != nil {
			return nil, err
		}
	}
	if hasAstero {
		if nw.astero, err = buildChain("astero_head", spec.AsteroHead); err != nil {
			return nil, err
		}
		nw.ipca = newInversePCA(pca)
	}
	return nw, nil
}

func buildChain(section string, specs []LayerSpec) ([]*layer, error) {
	layers := make([]*layer, 0, len(specs))
	for i, spec := range specs {
		l, err := newLayer(spec)
		if err != nil {
			return nil, fmt.Errorf("%s layer %d: %w", section, i, err)
		}
		layers = append(layers, l)
	}
	return layers, nil
}

func runChain(layers []*layer, x *mat.Dense) *mat.Dense {
	for _, l := range layers {
		x = l.forward(x)
	}
	return x
}

func (nw *network) forward(x *mat.Dense) *mat.Dense {
	h := runChain(nw.trunk, x)
	switch {
	case nw.classical != nil && nw.astero != nil:
		c := runChain(nw.classical, h)
		a := nw.ipca.forward(runChain(nw.astero, h))
		var out mat.Dense
		out.Augment(c, a)
		return &out
	case nw.classical != nil:
		return runChain(nw.classical, h)
	default:
		return nw.ipca.forward(runChain(nw.astero, h))
	}
}
