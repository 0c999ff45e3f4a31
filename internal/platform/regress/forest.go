package regress

import (
	"fmt"
	"math"
	"math/rand"
)

// ForestConfig bounds the bagged tree ensemble. Zero values take defaults
// sized for short per-metric histories.
type ForestConfig struct {
	Trees int
	Tree  TreeConfig

	// Seed fixes the bootstrap and subspace sampling so repeated fits over
	// the same data produce the same ensemble.
	Seed int64
}

func (c ForestConfig) withDefaults() ForestConfig {
	if c.Trees <= 0 {
		c.Trees = 25
	}
	c.Tree = c.Tree.withDefaults()
	return c
}

// Forest bags CART trees over bootstrap resamples, each split drawing from a
// random feature subspace. Prediction averages the trees.
type Forest struct {
	cfg   ForestConfig
	trees []*Tree
}

func NewForest(cfg ForestConfig) *Forest {
	return &Forest{cfg: cfg.withDefaults()}
}

func (f *Forest) Name() string { return NameForest }

func (f *Forest) Fit(features [][]float64, targets []float64) error {
	width, err := validateTrainingSet(features, targets)
	if err != nil {
		return fmt.Errorf("forest fit: %w", err)
	}

	treeCfg := f.cfg.Tree
	if treeCfg.MaxFeatures <= 0 {
		treeCfg.MaxFeatures = subspaceWidth(width)
	}

	rng := rand.New(rand.NewSource(f.cfg.Seed))
	rows := len(features)
	trees := make([]*Tree, f.cfg.Trees)
	for i := range trees {
		sampleF := make([][]float64, rows)
		sampleT := make([]float64, rows)
		for k := 0; k < rows; k++ {
			idx := rng.Intn(rows)
			sampleF[k] = features[idx]
			sampleT[k] = targets[idx]
		}

		tree := newSubspaceTree(treeCfg, rng)
		if err := tree.Fit(sampleF, sampleT); err != nil {
			return fmt.Errorf("forest fit: tree %d: %w", i, err)
		}
		trees[i] = tree
	}

	f.trees = trees

	return nil
}

func (f *Forest) Predict(features []float64) (float64, error) {
	if len(f.trees) == 0 {
		return 0, fmt.Errorf("forest predict: model is not fitted")
	}

	var sum float64
	for _, tree := range f.trees {
		v, err := tree.Predict(features)
		if err != nil {
			return 0, fmt.Errorf("forest predict: %w", err)
		}
		sum += v
	}

	return sum / float64(len(f.trees)), nil
}

// subspaceWidth is the usual square-root heuristic for per-split feature
// sampling.
func subspaceWidth(width int) int {
	w := int(math.Sqrt(float64(width)) + 0.5)
	if w < 1 {
		w = 1
	}
	return w
}
