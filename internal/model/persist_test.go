package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	X, y := separableData(150, 11)
	result, err := Train(testTrainParams, []string{"a", "b", "c"}, X, y)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, Save(path, result.Forest))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, result.Forest.FeatureNames, loaded.FeatureNames)
	assert.Equal(t, result.Forest.Seed, loaded.Seed)
	for i := range X {
		assert.Equal(t, result.Forest.PredictProba(X[i]), loaded.PredictProba(X[i]),
			"a reloaded model must score identically")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	data, err := json.Marshal(modelFile{Version: 99, Forest: &Forest{}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = Load(path)
	assert.ErrorContains(t, err, "version")
}

func TestLoadRejectsMissingForest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1}`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
