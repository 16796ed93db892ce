package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// modelFormatVersion guards against loading files written by an
// incompatible layout.
const modelFormatVersion = 1

type modelFile struct {
	Version int     `json:"version"`
	Forest  *Forest `json:"forest"`
}

// Save writes the fitted forest to path as JSON.
func Save(path string, f *Forest) error {
	data, err := json.Marshal(modelFile{Version: modelFormatVersion, Forest: f})
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write model file: %w", err)
	}
	return nil
}

// Load reads a fitted forest from path.
func Load(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if mf.Version != modelFormatVersion {
		return nil, fmt.Errorf("unsupported model format version %d", mf.Version)
	}
	if mf.Forest == nil {
		return nil, fmt.Errorf("model file has no forest")
	}
	return mf.Forest, nil
}
