// Package regress carries the small regression menu the prediction engine
// trains per metric: ordinary least squares, a CART tree, a bagged-tree
// ensemble, RBF kernel ridge and a feed-forward network. All models consume
// flattened feature rows and produce one continuous output.
package regress

import "fmt"

// Model names, used for champion bookkeeping.
const (
	NameLinear = "linear_regression"
	NameTree   = "decision_tree"
	NameForest = "random_forest"
	NameKernel = "kernel_ridge"
	NameNeural = "neural_network"
)

// Model is a single-output regressor over flattened feature rows.
type Model interface {
	Name() string
	Fit(features [][]float64, targets []float64) error
	Predict(features []float64) (float64, error)
}

// MSE is the mean squared error between predictions and observations.
func MSE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("mse: length mismatch %d vs %d", len(predicted), len(actual))
	}
	if len(predicted) == 0 {
		return 0, fmt.Errorf("mse: no observations")
	}

	var sum float64
	for i := range predicted {
		d := predicted[i] - actual[i]
		sum += d * d
	}

	return sum / float64(len(predicted)), nil
}

func validateTrainingSet(features [][]float64, targets []float64) (int, error) {
	if len(features) == 0 {
		return 0, fmt.Errorf("empty training set")
	}
	if len(features) != len(targets) {
		return 0, fmt.Errorf("feature rows %d do not match targets %d", len(features), len(targets))
	}

	width := len(features[0])
	if width == 0 {
		return 0, fmt.Errorf("feature rows are empty")
	}
	for i, row := range features {
		if len(row) != width {
			return 0, fmt.Errorf("feature row %d width %d, want %d", i, len(row), width)
		}
	}

	return width, nil
}
