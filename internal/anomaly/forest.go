package anomaly

import (
	"math"
	"math/rand"
)

// eulerGamma is used in the harmonic number approximation.
const eulerGamma = 0.5772156649

// isolationForest is an ensemble of random isolation trees. Points that are
// isolated after few splits score close to 1.
type isolationForest struct {
	trees      []*isoNode
	sampleSize int
}

type isoNode struct {
	feature     int
	split       float64
	left, right *isoNode
	size        int // number of samples reaching a leaf
}

// fitForest builds trees over random subsamples of X without replacement.
// Each tree grows until its samples are isolated or it reaches
// ceil(log2(sampleSize)) levels.
func fitForest(X [][]float64, trees, sampleSize int, rng *rand.Rand) *isolationForest {
	n := len(X)
	if sampleSize > n {
		sampleSize = n
	}
	limit := int(math.Ceil(math.Log2(float64(max(sampleSize, 2)))))

	f := &isolationForest{sampleSize: sampleSize}
	for i := 0; i < trees; i++ {
		perm := rng.Perm(n)[:sampleSize]
		sample := make([][]float64, sampleSize)
		for i, idx := range perm {
			sample[i] = X[idx]
		}
		f.trees = append(f.trees, growTree(sample, 0, limit, rng))
	}
	return f
}

func growTree(X [][]float64, depth, limit int, rng *rand.Rand) *isoNode {
	if depth >= limit || len(X) <= 1 {
		return &isoNode{size: len(X)}
	}

	// Only features with spread can split the node.
	var candidates []int
	mins := make([]float64, len(X[0]))
	maxs := make([]float64, len(X[0]))
	for j := range X[0] {
		mins[j], maxs[j] = X[0][j], X[0][j]
		for _, x := range X[1:] {
			mins[j] = math.Min(mins[j], x[j])
			maxs[j] = math.Max(maxs[j], x[j])
		}
		if maxs[j] > mins[j] {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &isoNode{size: len(X)}
	}

	feature := candidates[rng.Intn(len(candidates))]
	split := mins[feature] + rng.Float64()*(maxs[feature]-mins[feature])

	var left, right [][]float64
	for _, x := range X {
		if x[feature] < split {
			left = append(left, x)
		} else {
			right = append(right, x)
		}
	}
	return &isoNode{
		feature: feature,
		split:   split,
		left:    growTree(left, depth+1, limit, rng),
		right:   growTree(right, depth+1, limit, rng),
	}
}

func (n *isoNode) pathLength(x []float64, depth int) float64 {
	if n.left == nil {
		return float64(depth) + averagePathLength(n.size)
	}
	if x[n.feature] < n.split {
		return n.left.pathLength(x, depth+1)
	}
	return n.right.pathLength(x, depth+1)
}

// score returns the anomaly score 2^(-E[h(x)]/c(sampleSize)).
func (f *isolationForest) score(x []float64) float64 {
	total := 0.0
	for _, t := range f.trees {
		total += t.pathLength(x, 0)
	}
	mean := total / float64(len(f.trees))
	c := averagePathLength(f.sampleSize)
	if c == 0 {
		return 0.5
	}
	return math.Pow(2, -mean/c)
}

// averagePathLength is the expected path length of an unsuccessful search
// in a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// standardize rescales each column to zero mean and unit variance.
// Constant columns become zero.
func standardize(X [][]float64) [][]float64 {
	if len(X) == 0 {
		return nil
	}
	cols := len(X[0])
	out := make([][]float64, len(X))
	for i := range out {
		out[i] = make([]float64, cols)
	}
	for j := 0; j < cols; j++ {
		mean := 0.0
		for _, x := range X {
			mean += x[j]
		}
		mean /= float64(len(X))
		variance := 0.0
		for _, x := range X {
			d := x[j] - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(len(X)))
		if std == 0 {
			std = 1
		}
		for i, x := range X {
			out[i][j] = (x[j] - mean) / std
		}
	}
	return out
}
