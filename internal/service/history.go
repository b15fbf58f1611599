package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"card-ledger/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// HistoryProvider is the REST adapter surface for provider-side price
// history.
type HistoryProvider interface {
	GetHistory(ctx context.Context, itemID string, from, to time.Time, nameHint string) ([]domain.HistoryPoint, error)
}

// AssetReader is the read-only persistence surface the history engine
// needs.
type AssetReader interface {
	GetAsset(ctx context.Context, id int64) (*domain.Asset, error)
	GetAssets(ctx context.Context) ([]*domain.Asset, error)
}

// PortfolioPoint is one day's summed portfolio value, broken down by
// category.
type PortfolioPoint struct {
	Date   string  `json:"date"`
	Raw    float64 `json:"raw"`
	Graded float64 `json:"graded"`
	Sealed float64 `json:"sealed"`
	Total  float64 `json:"total"`
}

// HistoryService blends locally recorded snapshots with provider history
// into one chronological series per asset, and aggregates per-category
// portfolio series across assets.
type HistoryService struct {
	tracer    trace.Tracer
	assets    AssetReader
	snapshots SnapshotStore
	provider  HistoryProvider

	now func() time.Time
}

func NewHistoryService(tracer trace.Tracer, assets AssetReader, snapshots SnapshotStore, provider HistoryProvider) *HistoryService {
	return &HistoryService{
		tracer:    tracer,
		assets:    assets,
		snapshots: snapshots,
		provider:  provider,
		now:       time.Now,
	}
}

// AssetHistory returns one price point per calendar day for an asset over
// the trailing window. Snapshots are de-duplicated by day with the last
// inserted winning. Two or more distinct snapshot days are considered
// dense enough to skip the provider call; below that, provider history is
// merged in with snapshot points taking precedence on date collisions.
// An empty series is a valid result, not an error.
func (h *HistoryService) AssetHistory(ctx context.Context, assetID int64, days int) ([]domain.HistoryPoint, error) {
	ctx, span := h.tracer.Start(ctx, "history.asset-history")
	defer span.End()

	asset, err := h.assets.GetAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("load asset %d: %w", assetID, err)
	}

	to := h.now()
	from := to.AddDate(0, 0, -days)

	snaps, err := h.snapshots.GetSnapshots(ctx, assetID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load snapshots for asset %d: %w", assetID, err)
	}

	byDay := dedupeByDay(snaps)
	if len(byDay) >= 2 {
		return sortedPoints(byDay), nil
	}

	merged := make(map[string]domain.HistoryPoint)
	if h.provider != nil && asset.ExternalID != "" {
		points, err := h.provider.GetHistory(ctx, asset.ExternalID, from, to, asset.Name)
		if err != nil {
			// Provider history is supplementary. A failed call degrades
			// to snapshots alone rather than failing the chart.
			log.Printf("provider history unavailable for asset %d: %v", assetID, err)
		}
		for _, p := range points {
			merged[p.Date] = p
		}
	}
	for day, point := range byDay {
		merged[day] = point
	}

	return sortedPoints(merged), nil
}

// PortfolioHistory emits one summed point per calendar day across the
// union of every asset's snapshot days. Each asset contributes its most
// recent known price as of each day, never a future value, and its
// purchase price before its first snapshot.
func (h *HistoryService) PortfolioHistory(ctx context.Context, days int) ([]PortfolioPoint, error) {
	ctx, span := h.tracer.Start(ctx, "history.portfolio-history")
	defer span.End()

	assets, err := h.assets.GetAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	to := h.now()
	from := to.AddDate(0, 0, -days)

	type series struct {
		asset *domain.Asset
		days  []string
		byDay map[string]domain.HistoryPoint
	}

	all := make([]*series, 0, len(assets))
	dateSet := make(map[string]struct{})
	for _, asset := range assets {
		snaps, err := h.snapshots.GetSnapshots(ctx, asset.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("load snapshots for asset %d: %w", asset.ID, err)
		}
		byDay := dedupeByDay(snaps)
		s := &series{asset: asset, byDay: byDay}
		for day := range byDay {
			s.days = append(s.days, day)
			dateSet[day] = struct{}{}
		}
		sort.Strings(s.days)
		all = append(all, s)
	}

	dates := make([]string, 0, len(dateSet))
	for day := range dateSet {
		dates = append(dates, day)
	}
	sort.Strings(dates)

	points := make([]PortfolioPoint, 0, len(dates))
	cursor := make([]int, len(all))
	last := make([]float64, len(all))
	for i, s := range all {
		last[i] = s.asset.PurchasePrice
	}

	for _, date := range dates {
		point := PortfolioPoint{Date: date}
		for i, s := range all {
			for cursor[i] < len(s.days) && s.days[cursor[i]] <= date {
				last[i] = s.byDay[s.days[cursor[i]]].Price
				cursor[i]++
			}
			switch categoryOf(s.asset) {
			case domain.KindGraded:
				point.Graded += last[i]
			case domain.KindSealed:
				point.Sealed += last[i]
			default:
				point.Raw += last[i]
			}
		}
		point.Total = point.Raw + point.Graded + point.Sealed
		points = append(points, point)
	}
	return points, nil
}

func categoryOf(asset *domain.Asset) domain.ItemKind {
	if asset.Type == domain.AssetSealed {
		return domain.KindSealed
	}
	if asset.PSAGrade != nil && *asset.PSAGrade != "" {
		return domain.KindGraded
	}
	return domain.KindCard
}

// dedupeByDay collapses snapshots onto calendar days. Input order is
// insertion order, so later snapshots overwrite earlier ones for the
// same day.
func dedupeByDay(snaps []*domain.PriceSnapshot) map[string]domain.HistoryPoint {
	byDay := make(map[string]domain.HistoryPoint, len(snaps))
	for _, s := range snaps {
		byDay[s.Day()] = domain.HistoryPoint{Date: s.Day(), Price: s.Price, Source: s.Source}
	}
	return byDay
}

// sortedPoints flattens a date-keyed map into an ascending series. ISO
// dates sort lexicographically, which is also chronological.
func sortedPoints(byDay map[string]domain.HistoryPoint) []domain.HistoryPoint {
	points := make([]domain.HistoryPoint, 0, len(byDay))
	for _, p := range byDay {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}
