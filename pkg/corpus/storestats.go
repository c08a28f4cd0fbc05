package corpus

import (
	"context"

	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// StoreStatsAdapter adapts stigmergy.Store.Stats's struct return onto
// probe.StoreStats's tuple-shaped contract.
type StoreStatsAdapter struct {
	Store *stigmergy.Store
}

func (a StoreStatsAdapter) Stats(ctx context.Context) (docCount, eventCount int, ftsOk bool, err error) {
	stats, err := a.Store.Stats(ctx)
	if err != nil {
		return 0, 0, false, err
	}
	return stats.DocCount, stats.EventCount, stats.FTSOk, nil
}
