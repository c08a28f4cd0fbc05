package compiler

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

// persist writes p atomically to <stateDir>/<wish_id>.json, the same
// renameio pattern pkg/anchor and pkg/supervisor use for their state
// files.
func (c *Compiler) persist(p *Pipeline) error {
	if c.stateDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.stateDir, 0o755); err != nil {
		return herrors.Wrap(herrors.KindInternal, "create pipeline state dir", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return herrors.Wrap(herrors.KindInternal, "marshal pipeline state", err)
	}
	if err := renameio.WriteFile(pipelinePath(c.stateDir, p.WishID), data, 0o644); err != nil {
		return herrors.Wrap(herrors.KindInternal, "write pipeline state", err)
	}
	return nil
}

func loadPipeline(stateDir, wishID string) (*Pipeline, error) {
	data, err := os.ReadFile(pipelinePath(stateDir, wishID))
	if err != nil {
		return nil, err
	}
	var p Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func pipelinePath(stateDir, wishID string) string {
	return filepath.Join(stateDir, wishID+".json")
}

// listPipelines returns every wish_id with a persisted pipeline file in
// stateDir, sorted by filename.
func listPipelines(stateDir string) ([]string, error) {
	if stateDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(stateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, herrors.Wrap(herrors.KindInternal, "list pipeline state dir", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, name[:len(name)-len(".json")])
	}
	return ids, nil
}
