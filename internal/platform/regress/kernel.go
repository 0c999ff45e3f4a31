package regress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// KernelConfig tunes RBF kernel ridge regression. Zero values take defaults
// suited to min-max scaled inputs.
type KernelConfig struct {
	// Gamma is the RBF width. Zero derives 1/width at fit time.
	Gamma float64

	// Lambda is the ridge penalty added to the gram diagonal.
	Lambda float64
}

func (c KernelConfig) withDefaults() KernelConfig {
	if c.Lambda <= 0 {
		c.Lambda = 1e-2
	}
	return c
}

// KernelRidge solves (K + lambda*I) alpha = y over an RBF gram matrix and
// predicts through weighted kernel evaluations against the stored inputs.
type KernelRidge struct {
	cfg    KernelConfig
	gamma  float64
	inputs [][]float64
	alpha  []float64
}

func NewKernelRidge(cfg KernelConfig) *KernelRidge {
	return &KernelRidge{cfg: cfg.withDefaults()}
}

func (m *KernelRidge) Name() string { return NameKernel }

func (m *KernelRidge) Fit(features [][]float64, targets []float64) error {
	width, err := validateTrainingSet(features, targets)
	if err != nil {
		return fmt.Errorf("kernel fit: %w", err)
	}

	gamma := m.cfg.Gamma
	if gamma <= 0 {
		gamma = 1 / float64(width)
	}

	// Prediction keeps referencing the training rows, so detach them from
	// whatever backing array the caller sliced them out of.
	rows := len(features)
	inputs := make([][]float64, rows)
	for i, row := range features {
		inputs[i] = append([]float64(nil), row...)
	}

	gram := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := i; j < rows; j++ {
			gram.SetSym(i, j, rbf(inputs[i], inputs[j], gamma))
		}
	}

	y := mat.NewVecDense(rows, append([]float64(nil), targets...))

	var chol mat.Cholesky
	lambda := m.cfg.Lambda
	factorized := false
	for attempt := 0; attempt < 3 && !factorized; attempt++ {
		shifted := mat.NewSymDense(rows, nil)
		shifted.CopySym(gram)
		for i := 0; i < rows; i++ {
			shifted.SetSym(i, i, shifted.At(i, i)+lambda)
		}
		factorized = chol.Factorize(shifted)
		lambda *= 10
	}
	if !factorized {
		return fmt.Errorf("kernel fit: gram matrix is not positive definite")
	}

	var alphaVec mat.VecDense
	if err := chol.SolveVecTo(&alphaVec, y); err != nil {
		return fmt.Errorf("kernel fit: solve dual weights: %w", err)
	}

	alpha := make([]float64, rows)
	for i := range alpha {
		alpha[i] = alphaVec.AtVec(i)
	}

	m.gamma = gamma
	m.inputs = inputs
	m.alpha = alpha

	return nil
}

func (m *KernelRidge) Predict(features []float64) (float64, error) {
	if len(m.alpha) == 0 {
		return 0, fmt.Errorf("kernel predict: model is not fitted")
	}
	if len(features) != len(m.inputs[0]) {
		return 0, fmt.Errorf("kernel predict: feature width %d, want %d", len(features), len(m.inputs[0]))
	}

	var out float64
	for i, x := range m.inputs {
		out += m.alpha[i] * rbf(features, x, m.gamma)
	}

	return out, nil
}

func rbf(a, b []float64, gamma float64) float64 {
	var dist float64
	for i := range a {
		d := a[i] - b[i]
		dist += d * d
	}
	return math.Exp(-gamma * dist)
}
