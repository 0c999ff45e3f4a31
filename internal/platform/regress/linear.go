package regress

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ridgeEpsilon keeps the normal equations solvable when the design matrix is
// wide or collinear, which short sliding-window training sets usually are.
const ridgeEpsilon = 1e-8

// Linear is ordinary least squares with an intercept term, solved through
// lightly regularized normal equations.
type Linear struct {
	weights []float64
}

func NewLinear() *Linear {
	return &Linear{}
}

func (m *Linear) Name() string { return NameLinear }

func (m *Linear) Fit(features [][]float64, targets []float64) error {
	width, err := validateTrainingSet(features, targets)
	if err != nil {
		return fmt.Errorf("linear fit: %w", err)
	}

	rows := len(features)
	cols := width + 1

	a := mat.NewDense(rows, cols, nil)
	for i, row := range features {
		a.Set(i, 0, 1)
		for j, v := range row {
			a.Set(i, j+1, v)
		}
	}
	b := mat.NewVecDense(rows, append([]float64(nil), targets...))

	var xtx mat.Dense
	xtx.Mul(a.T(), a)
	for i := 0; i < cols; i++ {
		xtx.Set(i, i, xtx.At(i, i)+ridgeEpsilon)
	}

	var xty mat.VecDense
	xty.MulVec(a.T(), b)

	var w mat.VecDense
	if err := w.SolveVec(&xtx, &xty); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("linear fit: solve normal equations: %w", err)
		}
	}

	m.weights = make([]float64, cols)
	for i := 0; i < cols; i++ {
		m.weights[i] = w.AtVec(i)
	}

	return nil
}

func (m *Linear) Predict(features []float64) (float64, error) {
	if len(m.weights) == 0 {
		return 0, fmt.Errorf("linear predict: model is not fitted")
	}
	if len(features)+1 != len(m.weights) {
		return 0, fmt.Errorf("linear predict: feature width %d, want %d", len(features), len(m.weights)-1)
	}

	out := m.weights[0]
	for j, v := range features {
		out += m.weights[j+1] * v
	}

	return out, nil
}
