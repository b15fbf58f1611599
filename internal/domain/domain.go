package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// GradeTier is one point on the normalized condition/grade axis shared by
// every price source. Distinct grading authorities (PSA/CGC/BGS) collapse
// onto this single axis by numeric grade.
type GradeTier string

const (
	TierUngraded GradeTier = "ungraded"
	TierGrade7   GradeTier = "grade7"
	TierGrade8   GradeTier = "grade8"
	TierGrade9   GradeTier = "grade9"
	TierGrade95  GradeTier = "grade9_5"
	TierGrade10  GradeTier = "grade10"
)

// GradeTiers lists all tiers in ascending grade order.
var GradeTiers = []GradeTier{
	TierUngraded,
	TierGrade7,
	TierGrade8,
	TierGrade9,
	TierGrade95,
	TierGrade10,
}

// TierForGrade maps a free-form grade label (e.g. "PSA 10", "CGC 9.5",
// "BGS 9") to a tier. Substring checks run in a fixed priority order so
// that "9" never shadows "9.5" or "10". Unrecognized labels default to
// grade9.
func TierForGrade(label string) GradeTier {
	switch {
	case strings.Contains(label, "10"):
		return TierGrade10
	case strings.Contains(label, "9.5"):
		return TierGrade95
	case strings.Contains(label, "9"):
		return TierGrade9
	case strings.Contains(label, "8"):
		return TierGrade8
	case strings.Contains(label, "7"):
		return TierGrade7
	default:
		return TierGrade9
	}
}

// ItemKind classifies a priced item.
type ItemKind string

const (
	KindCard   ItemKind = "card"
	KindSealed ItemKind = "sealed"
	KindGraded ItemKind = "graded"
)

// AssetType classifies a tracked asset.
type AssetType string

const (
	AssetCard   AssetType = "card"
	AssetSealed AssetType = "sealed"
)

// NormalizedPriceItem is the canonical search-result record every price
// source normalizes into. IDs are provider-scoped: the same physical item
// may carry different IDs per provider.
type NormalizedPriceItem struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	SetName     string                 `json:"set_name,omitempty"`
	Kind        ItemKind               `json:"kind"`
	PriceByTier map[GradeTier]*float64 `json:"price_by_tier"`
	ImageURL    string                 `json:"image_url,omitempty"`
	SourceURL   string                 `json:"source_url,omitempty"`
	Source      string                 `json:"source"`
}

// Price returns the item's price for a tier, or nil when the tier is
// absent. A nil entry means "no resolvable price", never zero.
func (i *NormalizedPriceItem) Price(tier GradeTier) *float64 {
	if i.PriceByTier == nil {
		return nil
	}
	return i.PriceByTier[tier]
}

// Asset is a tracked collectible. Persistence owns its lifecycle; the
// pricing pipeline reads it and writes back CurrentPrice/PriceUpdatedAt.
type Asset struct {
	ID             int64      `json:"id"`
	ExternalID     string     `json:"external_id"`
	Name           string     `json:"name"`
	Type           AssetType  `json:"type"`
	PSAGrade       *string    `json:"psa_grade,omitempty"`
	ManualPrice    bool       `json:"manual_price"`
	PurchasePrice  float64    `json:"purchase_price"`
	CurrentPrice   *float64   `json:"current_price,omitempty"`
	PriceUpdatedAt *time.Time `json:"price_updated_at,omitempty"`
	PCURL          string     `json:"pc_url,omitempty"`
	PCGradeField   string     `json:"pc_grade_field,omitempty"`
}

// Tethered reports whether the asset is bound to a vendor detail-page URL,
// bypassing fuzzy search for its lookups.
func (a *Asset) Tethered() bool {
	return a.PCURL != ""
}

// Stale reports whether the asset's price is outside the staleness window
// and eligible for refresh.
func (a *Asset) Stale(window time.Duration, now time.Time) bool {
	if a.PriceUpdatedAt == nil {
		return true
	}
	return now.Sub(*a.PriceUpdatedAt) >= window
}

// PriceSnapshot is one immutable recorded price observation. Snapshots are
// append-only; duplicates per day are expected and resolved at read time.
type PriceSnapshot struct {
	ID         int64     `json:"id"`
	AssetID    int64     `json:"asset_id"`
	Price      float64   `json:"price"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Day returns the snapshot's calendar day in UTC as YYYY-MM-DD.
func (s *PriceSnapshot) Day() string {
	return s.RecordedAt.UTC().Format("2006-01-02")
}

// HistoryPoint is a view-time chart point keyed by calendar day. It is
// computed per request and never persisted.
type HistoryPoint struct {
	Date   string  `json:"date"`
	Price  float64 `json:"price"`
	Source string  `json:"source,omitempty"`
}

// ErrNoPrice is the terminal "no market price found" state. It is not a
// failure: callers leave the asset untouched and log it.
var ErrNoPrice = errors.New("no market price found")

// UpstreamError reports a non-2xx response or timeout from an external
// price source. It is recoverable: the resolver falls through to the next
// tier on seeing one.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error %d: %s", e.Provider, e.Status, e.Body)
}

// CredentialError reports a missing API credential. It is a fatal
// configuration error, raised at call time rather than load time.
type CredentialError struct {
	Provider string
	EnvVar   string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s credential missing: set %s", e.Provider, e.EnvVar)
}
