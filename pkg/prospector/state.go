package prospector

import (
	"encoding/json"
	"os"

	"github.com/google/renameio/v2"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

// consideredState is the persisted set of document ids already considered,
// atomically written the same way pkg/anchor and pkg/supervisor persist
// their state files.
type consideredState struct {
	IDs         map[string]bool `json:"ids"`
	Temperature float64         `json:"temperature"`
	PassCount   int             `json:"pass_count"`
}

func loadConsideredState(path string) (consideredState, error) {
	if path == "" {
		return consideredState{IDs: map[string]bool{}, Temperature: defaultTemperature}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return consideredState{IDs: map[string]bool{}, Temperature: defaultTemperature}, nil
	}
	if err != nil {
		return consideredState{}, herrors.Wrap(herrors.KindInternal, "read prospector state", err)
	}
	var s consideredState
	if err := json.Unmarshal(data, &s); err != nil {
		return consideredState{}, herrors.Wrap(herrors.KindParseFailed, "decode prospector state", err)
	}
	if s.IDs == nil {
		s.IDs = map[string]bool{}
	}
	return s, nil
}

func persistConsideredState(path string, s consideredState) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return herrors.Wrap(herrors.KindInternal, "marshal prospector state", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return herrors.Wrap(herrors.KindInternal, "persist prospector state", err)
	}
	return nil
}

const defaultTemperature = 0.2
