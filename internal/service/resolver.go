package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"card-ledger/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const defaultSearchLimit = 5

// GradedSource is the HTML scraper's surface: graded-tier search and
// tethered detail-page lookups.
type GradedSource interface {
	SearchWithGradedPrices(ctx context.Context, query string, limit int) ([]*domain.NormalizedPriceItem, error)
	FetchTetheredPrice(ctx context.Context, detailURL, gradeHint string) (*float64, error)
}

// CardSource is the card-specialized REST adapter.
type CardSource interface {
	Search(ctx context.Context, query, setFilter string, limit int) ([]*domain.NormalizedPriceItem, error)
}

// SealedSource is the sealed-product REST adapter.
type SealedSource interface {
	SearchSealed(ctx context.Context, query, setFilter string, limit int) ([]*domain.NormalizedPriceItem, error)
}

type AssetStore interface {
	GetAssets(ctx context.Context) ([]*domain.Asset, error)
	UpdateAssetPrice(ctx context.Context, id int64, price float64, updatedAt time.Time) error
}

type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, assetID int64, price float64, source string) error
	GetSnapshots(ctx context.Context, assetID int64, from, to time.Time) ([]*domain.PriceSnapshot, error)
}

// Resolution is one authoritative market price plus its source tag.
type Resolution struct {
	Price  float64 `json:"price"`
	Source string  `json:"source"`
}

// RefreshSummary reports one batch refresh run.
type RefreshSummary struct {
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Snapshots int `json:"snapshots"`
}

// Resolver decides, per asset, which price source to consult and in what
// order: tethered vendor lookup, graded scrape, then the REST adapters.
type Resolver struct {
	tracer    trace.Tracer
	scraper   GradedSource
	cards     CardSource
	sealed    SealedSource
	assets    AssetStore
	snapshots SnapshotStore

	staleness    time.Duration
	scraperDelay time.Duration
	searchLimit  int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func NewResolver(
	tracer trace.Tracer,
	scraper GradedSource,
	cards CardSource,
	sealed SealedSource,
	assets AssetStore,
	snapshots SnapshotStore,
	staleness time.Duration,
	scraperDelay time.Duration,
	searchLimit int,
) *Resolver {
	if searchLimit <= 0 {
		searchLimit = defaultSearchLimit
	}
	return &Resolver{
		tracer:       tracer,
		scraper:      scraper,
		cards:        cards,
		sealed:       sealed,
		assets:       assets,
		snapshots:    snapshots,
		staleness:    staleness,
		scraperDelay: scraperDelay,
		searchLimit:  searchLimit,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// RefreshAll resolves every stale asset sequentially, then runs a second
// pass recording a snapshot for every asset that has any current price.
// The second pass keeps the historical series dense even when nothing
// needed refreshing. One asset's failure
// never aborts the batch.
func (r *Resolver) RefreshAll(ctx context.Context) (*RefreshSummary, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.refresh-all")
	defer span.End()

	assets, err := r.assets.GetAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	summary := &RefreshSummary{}
	for _, asset := range assets {
		switch r.refreshOne(ctx, asset) {
		case refreshUpdated:
			summary.Updated++
		case refreshSkipped:
			summary.Skipped++
		case refreshFailed:
			summary.Failed++
		}
	}

	// Density pass: every priced asset gets a snapshot, stale or not.
	for _, asset := range assets {
		if asset.CurrentPrice == nil {
			continue
		}
		source := "recorded"
		if err := r.snapshots.InsertSnapshot(ctx, asset.ID, *asset.CurrentPrice, source); err != nil {
			log.Printf("snapshot pass failed for asset %d: %v", asset.ID, err)
			continue
		}
		summary.Snapshots++
	}

	log.Printf("Refresh complete: updated=%d skipped=%d failed=%d snapshots=%d",
		summary.Updated, summary.Skipped, summary.Failed, summary.Snapshots)
	return summary, nil
}

type refreshOutcome int

const (
	refreshUpdated refreshOutcome = iota
	refreshSkipped
	refreshFailed
)

func (r *Resolver) refreshOne(ctx context.Context, asset *domain.Asset) refreshOutcome {
	if asset.ManualPrice && !asset.Tethered() {
		return refreshSkipped
	}
	if !asset.Stale(r.staleness, r.now()) {
		return refreshSkipped
	}

	res, err := r.ResolveAsset(ctx, asset)
	if err != nil {
		// Total exhaustion of the lookup tiers is a skip, not a batch
		// failure. The asset stays untouched and the batch moves on.
		if errors.Is(err, domain.ErrNoPrice) {
			log.Printf("no price found for asset %d (%s)", asset.ID, asset.Name)
		} else {
			log.Printf("price resolution failed for asset %d (%s): %v", asset.ID, asset.Name, err)
		}
		return refreshSkipped
	}

	now := r.now()
	if err := r.assets.UpdateAssetPrice(ctx, asset.ID, res.Price, now); err != nil {
		log.Printf("price update failed for asset %d: %v", asset.ID, err)
		return refreshFailed
	}
	if err := r.snapshots.InsertSnapshot(ctx, asset.ID, res.Price, res.Source); err != nil {
		log.Printf("snapshot insert failed for asset %d: %v", asset.ID, err)
	}

	// Keep the in-memory record current so the density pass sees the
	// fresh price.
	asset.CurrentPrice = &res.Price
	asset.PriceUpdatedAt = &now
	return refreshUpdated
}

// ResolveAsset produces one authoritative price for an asset. Lookup tiers
// cascade silently: a tethered lookup failure falls through to graded, a
// graded miss to standard. Only total exhaustion surfaces, as ErrNoPrice.
func (r *Resolver) ResolveAsset(ctx context.Context, asset *domain.Asset) (*Resolution, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.resolve-asset")
	defer span.End()

	if asset.Tethered() {
		if res := r.tetheredLookup(ctx, asset); res != nil {
			return res, nil
		}
	}

	if asset.Type == domain.AssetCard && asset.PSAGrade != nil && *asset.PSAGrade != "" {
		if res := r.gradedLookup(ctx, asset); res != nil {
			return res, nil
		}
	}

	return r.standardLookup(ctx, asset)
}

func (r *Resolver) tetheredLookup(ctx context.Context, asset *domain.Asset) *Resolution {
	r.sleep(ctx, r.scraperDelay)

	price, err := r.scraper.FetchTetheredPrice(ctx, asset.PCURL, asset.PCGradeField)
	if err != nil {
		log.Printf("tethered lookup failed for asset %d, falling through: %v", asset.ID, err)
		return nil
	}
	if price == nil {
		return nil
	}
	return &Resolution{Price: *price, Source: "pricecharting"}
}

func (r *Resolver) gradedLookup(ctx context.Context, asset *domain.Asset) *Resolution {
	r.sleep(ctx, r.scraperDelay)

	items, err := r.scraper.SearchWithGradedPrices(ctx, asset.Name, r.searchLimit)
	if err != nil {
		log.Printf("graded lookup failed for asset %d, falling through: %v", asset.ID, err)
		return nil
	}
	if len(items) == 0 {
		return nil
	}

	tier := domain.TierForGrade(*asset.PSAGrade)
	price := items[0].Price(tier)
	if price == nil {
		return nil
	}
	return &Resolution{Price: *price, Source: items[0].Source}
}

func (r *Resolver) standardLookup(ctx context.Context, asset *domain.Asset) (*Resolution, error) {
	var items []*domain.NormalizedPriceItem
	var err error

	if asset.Type == domain.AssetSealed {
		items, err = r.sealed.SearchSealed(ctx, asset.Name, "", r.searchLimit)
		if err != nil {
			// Best-effort cross-provider fallback. The card adapter
			// returns card-shaped results for a sealed asset; that
			// mismatch is accepted over returning nothing.
			log.Printf("sealed lookup failed for asset %d, retrying card adapter: %v", asset.ID, err)
			items, err = r.cards.Search(ctx, asset.Name, "", r.searchLimit)
		}
	} else {
		items, err = r.cards.Search(ctx, asset.Name, "", r.searchLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("standard lookup for asset %d: %w", asset.ID, err)
	}
	if len(items) == 0 {
		return nil, domain.ErrNoPrice
	}

	item := items[0]
	if asset.ExternalID != "" {
		for _, candidate := range items {
			if candidate.ID == asset.ExternalID {
				item = candidate
				break
			}
		}
	}

	price := item.Price(domain.TierUngraded)
	if price == nil {
		return nil, domain.ErrNoPrice
	}
	return &Resolution{Price: *price, Source: item.Source}, nil
}
