package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separableData builds a synthetic set where the positive class lives
// in a clearly higher feature range.
func separableData(n int, seed int64) (X [][]float64, y []int) {
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		positive := i%5 == 0 // 20% positives
		var base float64
		if positive {
			base = 5000
		} else {
			base = 100
		}
		row := []float64{
			base + rng.Float64()*200,
			base/2 + rng.Float64()*100,
			rng.Float64() * 10, // noise column
		}
		X = append(X, row)
		if positive {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	return X, y
}

var testTrainParams = TrainParams{
	Trees:        25,
	MaxDepth:     0,
	Seed:         42,
	TestFraction: 0.3,
}

func TestTrainOnSeparableData(t *testing.T) {
	X, y := separableData(300, 7)
	names := []string{"factor_tps", "factor_tps_mean_5", "noise"}

	result, err := Train(testTrainParams, names, X, y)
	require.NoError(t, err)
	require.NotNil(t, result.Forest)

	assert.Greater(t, result.Report.Accuracy, 0.95,
		"cleanly separable classes should be near-perfectly classified")
	assert.Greater(t, result.Report.Positive.Recall, 0.9)

	// The noise column should never dominate the informative ones.
	require.Len(t, result.Importances, 3)
	assert.NotEqual(t, "noise", result.Importances[0].Name)
}

func TestTrainRefusesAllNegative(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}}
	y := []int{0, 0, 0}

	_, err := Train(testTrainParams, []string{"factor_tps"}, X, y)
	assert.ErrorIs(t, err, ErrNoPositiveLabels)
}

func TestTrainRefusesEmptySet(t *testing.T) {
	_, err := Train(testTrainParams, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestTrainRejectsLengthMismatch(t *testing.T) {
	_, err := Train(testTrainParams, []string{"f"}, [][]float64{{1}, {2}}, []int{1})
	assert.Error(t, err)
}

func TestTrainIsDeterministic(t *testing.T) {
	X, y := separableData(200, 3)
	names := []string{"a", "b", "c"}

	first, err := Train(testTrainParams, names, X, y)
	require.NoError(t, err)
	second, err := Train(testTrainParams, names, X, y)
	require.NoError(t, err)

	assert.Equal(t, first.Report, second.Report)
	assert.Equal(t, first.Forest.Importances, second.Forest.Importances)
	for i := range X {
		assert.Equal(t, first.Forest.PredictProba(X[i]), second.Forest.PredictProba(X[i]))
	}
}

func TestStratifiedSplitPreservesClassRatio(t *testing.T) {
	y := make([]int, 100)
	for i := 0; i < 20; i++ {
		y[i] = 1
	}

	trainIdx, testIdx := stratifiedSplit(y, 0.3, 42)
	assert.Len(t, trainIdx, 70)
	assert.Len(t, testIdx, 30)

	testPos := 0
	for _, i := range testIdx {
		if y[i] == 1 {
			testPos++
		}
	}
	assert.Equal(t, 6, testPos, "30% of the 20 positives belong to the test split")
}

func TestBalancedWeights(t *testing.T) {
	y := []int{1, 0, 0, 0}
	w := balancedWeights(y)

	// Each class carries total weight n/2.
	assert.InDelta(t, 2.0, w[0], 1e-12)
	for _, wi := range w[1:] {
		assert.InDelta(t, 4.0/6.0, wi, 1e-12)
	}
}

func TestSelectFeatures(t *testing.T) {
	columns := []string{
		"factor_tps",
		"factor_tps_lag_1", "factor_tps_lag_2",
		"factor_tps_mean_5", "factor_tps_std_5",
		"price_velocity_5",
	}
	names, idx := SelectFeatures(columns)

	assert.Equal(t, []string{
		"factor_tps",
		"factor_tps_lag_1", "factor_tps_lag_2",
		"factor_tps_mean_5", "factor_tps_std_5",
	}, names, "price velocity is not a model feature")
	assert.Equal(t, []int{0, 1, 2, 3, 4}, idx)
}

func TestProject(t *testing.T) {
	v := []float64{10, 20, 30, 40}
	assert.Equal(t, []float64{10, 30}, Project(v, []int{0, 2}))
}
