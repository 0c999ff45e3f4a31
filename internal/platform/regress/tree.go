package regress

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TreeConfig bounds a CART regression tree. Zero values take the defaults
// used for shallow per-metric models.
type TreeConfig struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int

	// MaxFeatures limits how many candidate features each split considers.
	// Zero considers all. Requires rng when set.
	MaxFeatures int
}

func (c TreeConfig) withDefaults() TreeConfig {
	if c.MaxDepth <= 0 {
		c.MaxDepth = 3
	}
	if c.MinSamplesSplit <= 0 {
		c.MinSamplesSplit = 3
	}
	if c.MinSamplesLeaf <= 0 {
		c.MinSamplesLeaf = 2
	}
	return c
}

// Tree is a CART regression tree splitting on squared-error reduction.
type Tree struct {
	cfg  TreeConfig
	rng  *rand.Rand
	root *treeNode
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func NewTree(cfg TreeConfig) *Tree {
	return &Tree{cfg: cfg.withDefaults()}
}

// newSubspaceTree builds a tree whose splits sample features through rng.
// Used by the bagged ensemble.
func newSubspaceTree(cfg TreeConfig, rng *rand.Rand) *Tree {
	return &Tree{cfg: cfg.withDefaults(), rng: rng}
}

func (t *Tree) Name() string { return NameTree }

func (t *Tree) Fit(features [][]float64, targets []float64) error {
	if _, err := validateTrainingSet(features, targets); err != nil {
		return fmt.Errorf("tree fit: %w", err)
	}

	t.root = t.grow(features, targets, 1)

	return nil
}

func (t *Tree) Predict(features []float64) (float64, error) {
	if t.root == nil {
		return 0, fmt.Errorf("tree predict: model is not fitted")
	}

	node := t.root
	for !node.leaf {
		if features[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}

	return node.value, nil
}

func (t *Tree) grow(features [][]float64, targets []float64, depth int) *treeNode {
	node := &treeNode{leaf: true, value: mean(targets)}

	if depth > t.cfg.MaxDepth || len(targets) < t.cfg.MinSamplesSplit {
		return node
	}

	feature, threshold, ok := t.bestSplit(features, targets)
	if !ok {
		return node
	}

	leftF, leftT, rightF, rightT := partition(features, targets, feature, threshold)
	if len(leftT) < t.cfg.MinSamplesLeaf || len(rightT) < t.cfg.MinSamplesLeaf {
		return node
	}

	node.leaf = false
	node.feature = feature
	node.threshold = threshold
	node.left = t.grow(leftF, leftT, depth+1)
	node.right = t.grow(rightF, rightT, depth+1)

	return node
}

func (t *Tree) bestSplit(features [][]float64, targets []float64) (int, float64, bool) {
	bestSSE := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	for _, j := range t.candidateFeatures(len(features[0])) {
		values := make([]float64, len(features))
		for i, row := range features {
			values[i] = row[j]
		}
		for _, threshold := range splitThresholds(values) {
			sse, ok := splitSSE(values, targets, threshold, t.cfg.MinSamplesLeaf)
			if !ok {
				continue
			}
			if sse < bestSSE {
				bestSSE = sse
				bestFeature = j
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func (t *Tree) candidateFeatures(width int) []int {
	all := make([]int, width)
	for j := range all {
		all[j] = j
	}
	if t.cfg.MaxFeatures <= 0 || t.cfg.MaxFeatures >= width || t.rng == nil {
		return all
	}

	t.rng.Shuffle(width, func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	picked := all[:t.cfg.MaxFeatures]
	sort.Ints(picked)

	return picked
}

// splitThresholds returns midpoints between consecutive distinct values.
func splitThresholds(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	out := make([]float64, 0, len(sorted))
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			continue
		}
		out = append(out, (sorted[i]+sorted[i-1])/2)
	}

	return out
}

func splitSSE(values, targets []float64, threshold float64, minLeaf int) (float64, bool) {
	var leftT, rightT []float64
	for i, v := range values {
		if v <= threshold {
			leftT = append(leftT, targets[i])
		} else {
			rightT = append(rightT, targets[i])
		}
	}
	if len(leftT) < minLeaf || len(rightT) < minLeaf {
		return 0, false
	}

	return sse(leftT) + sse(rightT), true
}

func partition(features [][]float64, targets []float64, feature int, threshold float64) ([][]float64, []float64, [][]float64, []float64) {
	var leftF, rightF [][]float64
	var leftT, rightT []float64
	for i, row := range features {
		if row[feature] <= threshold {
			leftF = append(leftF, row)
			leftT = append(leftT, targets[i])
		} else {
			rightF = append(rightF, row)
			rightT = append(rightT, targets[i])
		}
	}
	return leftF, leftT, rightF, rightT
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sse(values []float64) float64 {
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum
}
