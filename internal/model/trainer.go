package model

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// ErrNoPositiveLabels is returned when the labeled set contains no
// initiation rows. Training on an all-negative set is meaningless and
// must be reported, not silently fitted.
var ErrNoPositiveLabels = errors.New("no positive labels in training set")

// ErrNoSamples is returned for an empty training matrix.
var ErrNoSamples = errors.New("no training samples")

// TrainParams configure a training run.
type TrainParams struct {
	Trees        int
	MaxDepth     int // 0 = unlimited
	Seed         int64
	TestFraction float64
}

// TrainResult is a fitted forest plus its held-out evaluation.
type TrainResult struct {
	Forest      *Forest
	Report      ClassificationReport
	Importances []FeatureImportance
}

// FeatureImportance pairs a feature name with its normalized Gini
// importance.
type FeatureImportance struct {
	Name       string
	Importance float64
}

// SelectFeatures picks the model's feature set from engineered column
// names: every column whose name contains "lag", "mean" or "std", plus
// factor_tps itself. Returns the selected names and their indices into
// the full vector.
func SelectFeatures(columns []string) ([]string, []int) {
	var names []string
	var idx []int
	for i, c := range columns {
		if c == "factor_tps" ||
			strings.Contains(c, "lag") ||
			strings.Contains(c, "mean") ||
			strings.Contains(c, "std") {
			names = append(names, c)
			idx = append(idx, i)
		}
	}
	return names, idx
}

// Project extracts the selected feature columns from a full vector.
func Project(vector []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = vector[i]
	}
	return out
}

// Train fits a forest on a stratified 1-TestFraction split and
// evaluates on the held-out remainder. Class weights are balanced so
// the rare initiation class is not drowned out.
func Train(p TrainParams, featureNames []string, X [][]float64, y []int) (*TrainResult, error) {
	if len(X) == 0 {
		return nil, ErrNoSamples
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("sample/label length mismatch: %d vs %d", len(X), len(y))
	}

	positives := 0
	for _, label := range y {
		if label == 1 {
			positives++
		}
	}
	if positives == 0 {
		return nil, ErrNoPositiveLabels
	}

	trainIdx, testIdx := stratifiedSplit(y, p.TestFraction, p.Seed)

	trainX := make([][]float64, len(trainIdx))
	trainY := make([]int, len(trainIdx))
	for k, i := range trainIdx {
		trainX[k] = X[i]
		trainY[k] = y[i]
	}

	weights := balancedWeights(trainY)
	forest := fitForest(forestParams{
		trees:      p.Trees,
		maxDepth:   p.MaxDepth,
		seed:       p.Seed,
		minSamples: 2,
	}, trainX, trainY, weights)
	forest.FeatureNames = featureNames

	// Held-out evaluation.
	var predictions, truth []int
	for _, i := range testIdx {
		predictions = append(predictions, forest.Predict(X[i]))
		truth = append(truth, y[i])
	}

	result := &TrainResult{
		Forest:      forest,
		Report:      buildReport(truth, predictions),
		Importances: rankImportances(featureNames, forest.Importances),
	}
	return result, nil
}

// stratifiedSplit shuffles each class separately with the seeded RNG
// and carves off testFraction per class, so the rare-positive ratio
// survives the split.
func stratifiedSplit(y []int, testFraction float64, seed int64) (trainIdx, testIdx []int) {
	var pos, neg []int
	for i, label := range y {
		if label == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	for _, class := range [][]int{neg, pos} {
		rng.Shuffle(len(class), func(i, j int) {
			class[i], class[j] = class[j], class[i]
		})
		nTest := int(float64(len(class)) * testFraction)
		testIdx = append(testIdx, class[:nTest]...)
		trainIdx = append(trainIdx, class[nTest:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return trainIdx, testIdx
}

// balancedWeights gives each class total weight n/2, the "balanced"
// class-weight scheme.
func balancedWeights(y []int) []float64 {
	n := len(y)
	pos := 0
	for _, label := range y {
		if label == 1 {
			pos++
		}
	}
	neg := n - pos

	weights := make([]float64, n)
	for i, label := range y {
		if label == 1 && pos > 0 {
			weights[i] = float64(n) / (2 * float64(pos))
		} else if label == 0 && neg > 0 {
			weights[i] = float64(n) / (2 * float64(neg))
		}
	}
	return weights
}

// rankImportances pairs names with importances, sorted descending.
func rankImportances(names []string, importances []float64) []FeatureImportance {
	out := make([]FeatureImportance, 0, len(names))
	for i, name := range names {
		v := 0.0
		if i < len(importances) {
			v = importances[i]
		}
		out = append(out, FeatureImportance{Name: name, Importance: v})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out
}
