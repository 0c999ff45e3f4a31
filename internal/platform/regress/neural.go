package regress

import (
	"fmt"
	"math"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NetworkConfig sizes the feed-forward regressor. Zero values take defaults
// small enough for sliding-window training sets.
type NetworkConfig struct {
	HiddenSizes []int
	Epochs      int
	LearnRate   float64
}

func (c NetworkConfig) withDefaults() NetworkConfig {
	if len(c.HiddenSizes) == 0 {
		c.HiddenSizes = []int{8}
	}
	if c.Epochs <= 0 {
		c.Epochs = 500
	}
	if c.LearnRate <= 0 {
		c.LearnRate = 2e-2
	}
	return c
}

// Network is a small dense feed-forward net with ReLU hidden layers, trained
// full-batch under Adam on mean squared error. Fit builds a gorgonia graph
// and copies the learned parameters out, so prediction is a plain forward
// pass with no machine state left behind.
type Network struct {
	cfg    NetworkConfig
	width  int
	layers []denseLayer
}

type denseLayer struct {
	in, out int
	weights []float64 // row-major (in, out)
	bias    []float64
	rectify bool
}

func NewNetwork(cfg NetworkConfig) *Network {
	return &Network{cfg: cfg.withDefaults()}
}

func (m *Network) Name() string { return NameNeural }

func (m *Network) Fit(features [][]float64, targets []float64) error {
	width, err := validateTrainingSet(features, targets)
	if err != nil {
		return fmt.Errorf("network fit: %w", err)
	}

	rows := len(features)
	sizes := append(append([]int{width}, m.cfg.HiddenSizes...), 1)

	g := gorgonia.NewGraph()
	x := gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(rows, width),
		gorgonia.WithName("x"))
	y := gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(rows, 1),
		gorgonia.WithName("y"))

	weights := make([]*gorgonia.Node, len(sizes)-1)
	biases := make([]*gorgonia.Node, len(sizes)-1)
	out := x
	for i := 0; i < len(sizes)-1; i++ {
		weights[i] = gorgonia.NewMatrix(g, tensor.Float64,
			gorgonia.WithShape(sizes[i], sizes[i+1]),
			gorgonia.WithInit(gorgonia.GlorotU(1.0)),
			gorgonia.WithName(fmt.Sprintf("w%d", i)))
		biases[i] = gorgonia.NewMatrix(g, tensor.Float64,
			gorgonia.WithShape(1, sizes[i+1]),
			gorgonia.WithInit(gorgonia.Zeroes()),
			gorgonia.WithName(fmt.Sprintf("b%d", i)))

		out = gorgonia.Must(gorgonia.Mul(out, weights[i]))
		out = gorgonia.Must(gorgonia.BroadcastAdd(out, biases[i], nil, []byte{0}))
		if i < len(sizes)-2 {
			out = gorgonia.Must(gorgonia.Rectify(out))
		}
	}

	diff := gorgonia.Must(gorgonia.Sub(out, y))
	loss := gorgonia.Must(gorgonia.Mean(gorgonia.Must(gorgonia.Square(diff))))

	learnables := make(gorgonia.Nodes, 0, 2*len(weights))
	learnables = append(learnables, weights...)
	learnables = append(learnables, biases...)

	if _, err := gorgonia.Grad(loss, learnables...); err != nil {
		return fmt.Errorf("network fit: build gradients: %w", err)
	}

	machine := gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(learnables...))
	defer machine.Close()

	xT := tensor.New(tensor.WithBacking(flatten(features)), tensor.WithShape(rows, width))
	yT := tensor.New(tensor.WithBacking(append([]float64(nil), targets...)), tensor.WithShape(rows, 1))
	if err := gorgonia.Let(x, xT); err != nil {
		return fmt.Errorf("network fit: bind inputs: %w", err)
	}
	if err := gorgonia.Let(y, yT); err != nil {
		return fmt.Errorf("network fit: bind targets: %w", err)
	}

	solver := gorgonia.NewAdamSolver(gorgonia.WithLearnRate(m.cfg.LearnRate))
	for epoch := 0; epoch < m.cfg.Epochs; epoch++ {
		if err := machine.RunAll(); err != nil {
			return fmt.Errorf("network fit: epoch %d: %w", epoch, err)
		}
		if err := solver.Step(gorgonia.NodesToValueGrads(learnables)); err != nil {
			return fmt.Errorf("network fit: epoch %d step: %w", epoch, err)
		}
		machine.Reset()
	}

	layers := make([]denseLayer, len(weights))
	for i := range weights {
		layers[i] = denseLayer{
			in:      sizes[i],
			out:     sizes[i+1],
			weights: valueSlice(weights[i].Value()),
			bias:    valueSlice(biases[i].Value()),
			rectify: i < len(weights)-1,
		}
	}

	m.width = width
	m.layers = layers

	return nil
}

func (m *Network) Predict(features []float64) (float64, error) {
	if len(m.layers) == 0 {
		return 0, fmt.Errorf("network predict: model is not fitted")
	}
	if len(features) != m.width {
		return 0, fmt.Errorf("network predict: feature width %d, want %d", len(features), m.width)
	}

	current := features
	for _, layer := range m.layers {
		next := make([]float64, layer.out)
		for c := 0; c < layer.out; c++ {
			sum := layer.bias[c]
			for r, v := range current {
				sum += v * layer.weights[r*layer.out+c]
			}
			if layer.rectify && sum < 0 {
				sum = 0
			}
			next[c] = sum
		}
		current = next
	}

	out := current[0]
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("network predict: diverged to non-finite output")
	}

	return out, nil
}

func flatten(rows [][]float64) []float64 {
	width := len(rows[0])
	flat := make([]float64, 0, len(rows)*width)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	return flat
}

// valueSlice copies a tensor's backing out as a flat slice. Single-element
// tensors come back from gorgonia as bare scalars.
func valueSlice(v gorgonia.Value) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return append([]float64(nil), data...)
	case float64:
		return []float64{data}
	}
	return nil
}
