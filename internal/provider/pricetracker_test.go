package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"card-ledger/internal/domain"
)

func TestPriceTrackerSearchSealed(t *testing.T) {
	t.Parallel()

	p := NewPriceTrackerProvider("key", testTracer)
	p.baseURL = "http://example"
	p.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/sealed" {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			return jsonResponse(http.StatusOK, `{"data":[{
				"id": "seal-77",
				"name": "Base Set Booster Box",
				"setName": "Base Set",
				"prices": {"market": 32000}
			}]}`), nil
		}),
	}

	items, err := p.SearchSealed(context.Background(), "Base Set Booster Box", "", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Kind != domain.KindSealed || items[0].Source != SourcePriceTracker {
		t.Fatalf("unexpected items: %+v", items)
	}
	if price := items[0].Price(domain.TierUngraded); price == nil || *price != 32000 {
		t.Fatalf("unexpected price: %v", price)
	}
}

func TestPriceTrackerSearchCardsUsesAlternateEndpoint(t *testing.T) {
	t.Parallel()

	p := NewPriceTrackerProvider("key", testTracer)
	p.baseURL = "http://example"
	p.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/cards" {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			return jsonResponse(http.StatusOK, `{"data":[]}`), nil
		}),
	}

	if _, err := p.SearchCards(context.Background(), "Pikachu", "", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPriceTrackerHistoryGranularity(t *testing.T) {
	t.Parallel()

	var granularities []string
	p := NewPriceTrackerProvider("key", testTracer)
	p.baseURL = "http://example"
	p.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			granularities = append(granularities, req.URL.Query().Get("granularity"))
			return jsonResponse(http.StatusOK, `{"data":[
				{"date":"2024-01-02","price":10},
				{"date":"2024-01-03","price":0},
				{"date":"","price":4}
			]}`), nil
		}),
	}

	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	points, err := p.GetHistory(context.Background(), "seal-77", to.AddDate(0, 0, -7), to, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.GetHistory(context.Background(), "seal-77", to.AddDate(0, 0, -90), to, "Booster Box"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(granularities) != 2 || granularities[0] != "daily" || granularities[1] != "weekly" {
		t.Fatalf("unexpected granularities: %v", granularities)
	}
	// Zero-priced and dateless rows are dropped, never returned as 0.
	if len(points) != 1 || points[0].Price != 10 || points[0].Date != "2024-01-02" {
		t.Fatalf("unexpected points: %+v", points)
	}
}

func TestPriceTrackerMissingCredential(t *testing.T) {
	t.Parallel()

	p := NewPriceTrackerProvider("", testTracer)
	_, err := p.SearchSealed(context.Background(), "Booster Box", "", 1)
	var ce *domain.CredentialError
	if !errors.As(err, &ce) {
		t.Fatalf("expected credential error, got %v", err)
	}
	_, err = p.GetHistory(context.Background(), "x", time.Now().AddDate(0, 0, -1), time.Now(), "")
	if !errors.As(err, &ce) {
		t.Fatalf("expected credential error, got %v", err)
	}
}
