package service

import (
	"context"
	"errors"
	"testing"

	"card-ledger/internal/domain"
)

func TestSearchAllMergesBothProviders(t *testing.T) {
	t.Parallel()

	cards := &fakeCards{items: []*domain.NormalizedPriceItem{cardItem("xy-1", 42.50)}}
	sealed := &fakeSealed{
		items: []*domain.NormalizedPriceItem{{
			ID: "bb-1", Name: "Booster Box", Kind: domain.KindSealed, Source: "pricetracker",
		}},
		cardItems: []*domain.NormalizedPriceItem{{
			ID: "pt-9", Name: "Alt Card", Kind: domain.KindCard, Source: "pricetracker",
		}},
	}
	s := NewSearchService(testTracer, cards, sealed)

	items, err := s.SearchAll(context.Background(), "pokemon", "", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected merged results from all endpoints, got %d", len(items))
	}
}

func TestSearchAllToleratesOneFailure(t *testing.T) {
	t.Parallel()

	cards := &fakeCards{items: []*domain.NormalizedPriceItem{cardItem("xy-1", 42.50)}}
	sealed := &fakeSealed{err: &domain.UpstreamError{Provider: "pricetracker", Status: 503}}
	s := NewSearchService(testTracer, cards, sealed)

	items, err := s.SearchAll(context.Background(), "pokemon", "", 5)
	if err != nil {
		t.Fatalf("one-sided failure must not fail the search: %v", err)
	}
	if len(items) != 1 || items[0].ID != "xy-1" {
		t.Fatalf("expected surviving provider's results, got %+v", items)
	}
}

func TestSearchAllFailsWhenBothFail(t *testing.T) {
	t.Parallel()

	cards := &fakeCards{err: errors.New("boom")}
	sealed := &fakeSealed{err: errors.New("also boom"), cardErr: errors.New("still boom")}
	s := NewSearchService(testTracer, cards, sealed)

	if _, err := s.SearchAll(context.Background(), "pokemon", "", 5); err == nil {
		t.Fatal("expected error when both providers fail")
	}
}
