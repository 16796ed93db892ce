// Package model implements the initiation classifier: a random forest
// of Gini CART trees with bootstrap bagging, sqrt-feature subsampling
// and balanced class weights. Training is fully deterministic for a
// fixed seed.
package model

import (
	"math"
	"math/rand"
	"sort"
)

// node is one tree node in flattened form. Leaf nodes carry the
// weighted positive-class probability; internal nodes route on
// feature <= threshold to Left, else Right.
type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Prob      float64 `json:"p"`
	Leaf      bool    `json:"leaf"`
}

// tree is a single CART tree.
type tree struct {
	Nodes []node `json:"nodes"`
}

// Forest is a fitted binary classifier.
type Forest struct {
	Trees        []tree    `json:"trees"`
	FeatureNames []string  `json:"feature_names"`
	Importances  []float64 `json:"importances"`
	Seed         int64     `json:"seed"`
}

// forestParams bundle the knobs the builder needs.
type forestParams struct {
	trees      int
	maxDepth   int // 0 = unlimited
	seed       int64
	minSamples int
}

// fitForest trains a forest on X (rows of feature vectors) and binary
// labels y, with per-sample weights. Each tree gets its own derived
// seed so tree construction order never matters.
func fitForest(p forestParams, X [][]float64, y []int, weights []float64) *Forest {
	d := 0
	if len(X) > 0 {
		d = len(X[0])
	}

	f := &Forest{
		Trees:       make([]tree, p.trees),
		Importances: make([]float64, d),
	}

	rawImportance := make([]float64, d)
	for t := 0; t < p.trees; t++ {
		rng := rand.New(rand.NewSource(p.seed + int64(t)))

		// Bootstrap sample with replacement.
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = rng.Intn(len(X))
		}

		b := &treeBuilder{
			X:          X,
			y:          y,
			weights:    weights,
			maxDepth:   p.maxDepth,
			minSamples: p.minSamples,
			mtry:       mtry(d),
			rng:        rng,
			importance: rawImportance,
		}
		b.build(idx, 0)
		f.Trees[t] = tree{Nodes: b.nodes}
	}

	// Normalize importances to sum to 1, like the original report.
	total := 0.0
	for _, v := range rawImportance {
		total += v
	}
	if total > 0 {
		for i, v := range rawImportance {
			f.Importances[i] = v / total
		}
	}
	f.Seed = p.seed
	return f
}

// mtry is the number of candidate features per split, sqrt(d) with a
// floor of 1.
func mtry(d int) int {
	m := int(math.Sqrt(float64(d)))
	if m < 1 {
		m = 1
	}
	return m
}

type treeBuilder struct {
	X          [][]float64
	y          []int
	weights    []float64
	maxDepth   int
	minSamples int
	mtry       int
	rng        *rand.Rand
	importance []float64
	nodes      []node
}

// build grows the subtree over samples idx and returns its node index.
func (b *treeBuilder) build(idx []int, depth int) int {
	w0, w1 := b.classWeights(idx)
	prob := 0.0
	if w0+w1 > 0 {
		prob = w1 / (w0 + w1)
	}

	if w0 == 0 || w1 == 0 ||
		len(idx) < b.minSamples ||
		(b.maxDepth > 0 && depth >= b.maxDepth) {
		return b.leaf(prob)
	}

	feature, threshold, gain := b.bestSplit(idx, w0, w1)
	if feature < 0 {
		return b.leaf(prob)
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return b.leaf(prob)
	}

	b.importance[feature] += gain

	self := len(b.nodes)
	b.nodes = append(b.nodes, node{Feature: feature, Threshold: threshold})
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self].Left = l
	b.nodes[self].Right = r
	return self
}

func (b *treeBuilder) leaf(prob float64) int {
	b.nodes = append(b.nodes, node{Leaf: true, Prob: prob})
	return len(b.nodes) - 1
}

func (b *treeBuilder) classWeights(idx []int) (w0, w1 float64) {
	for _, i := range idx {
		if b.y[i] == 1 {
			w1 += b.weights[i]
		} else {
			w0 += b.weights[i]
		}
	}
	return w0, w1
}

// bestSplit scans mtry random features for the threshold with the
// largest weighted Gini decrease. Returns feature -1 when no split
// improves on the parent node.
func (b *treeBuilder) bestSplit(idx []int, w0, w1 float64) (feature int, threshold, gain float64) {
	total := w0 + w1
	parentGini := gini(w0, w1)

	d := len(b.X[idx[0]])
	candidates := b.rng.Perm(d)[:b.mtry]
	sort.Ints(candidates) // deterministic evaluation order

	feature = -1
	type vw struct {
		v float64
		y int
		w float64
	}
	for _, f := range candidates {
		vals := make([]vw, len(idx))
		for k, i := range idx {
			vals[k] = vw{v: b.X[i][f], y: b.y[i], w: b.weights[i]}
		}
		sort.Slice(vals, func(a, c int) bool { return vals[a].v < vals[c].v })

		var lw0, lw1 float64
		for k := 0; k < len(vals)-1; k++ {
			if vals[k].y == 1 {
				lw1 += vals[k].w
			} else {
				lw0 += vals[k].w
			}
			if vals[k].v == vals[k+1].v {
				continue
			}
			rw0 := w0 - lw0
			rw1 := w1 - lw1
			g := parentGini -
				(lw0+lw1)/total*gini(lw0, lw1) -
				(rw0+rw1)/total*gini(rw0, rw1)
			if g > gain {
				gain = g
				feature = f
				threshold = (vals[k].v + vals[k+1].v) / 2
			}
		}
	}
	return feature, threshold, gain
}

func gini(w0, w1 float64) float64 {
	total := w0 + w1
	if total == 0 {
		return 0
	}
	p0 := w0 / total
	p1 := w1 / total
	return 1 - p0*p0 - p1*p1
}

// PredictProba returns the probability of the positive class for one
// feature vector: the mean of the leaf probabilities across trees.
func (f *Forest) PredictProba(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.Trees))
}

// Predict returns 1 when PredictProba exceeds 0.5.
func (f *Forest) Predict(x []float64) int {
	if f.PredictProba(x) > 0.5 {
		return 1
	}
	return 0
}

func (t *tree) predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Prob
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
