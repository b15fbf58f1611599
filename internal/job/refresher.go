package job

import (
	"context"
	"log"
	"time"

	"card-ledger/internal/service"
)

// AssetRefresher runs the batch price refresh on a fixed interval.
type AssetRefresher struct {
	refresher    BatchRefresher
	pollInterval time.Duration
}

type BatchRefresher interface {
	RefreshAll(ctx context.Context) (*service.RefreshSummary, error)
}

func NewAssetRefresher(refresher BatchRefresher, pollIntervalSecs int) *AssetRefresher {
	return &AssetRefresher{
		refresher:    refresher,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
	}
}

// Start launches the background refresh loop. Blocks until ctx is cancelled.
func (r *AssetRefresher) Start(ctx context.Context) {
	log.Println("Asset refresher starting...")

	// Run immediately on start
	if _, err := r.refresher.RefreshAll(ctx); err != nil {
		log.Printf("refresher initial run error: %v", err)
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Asset refresher stopped")
			return
		case <-ticker.C:
			if _, err := r.refresher.RefreshAll(ctx); err != nil {
				log.Printf("refresher run error: %v", err)
			}
		}
	}
}
