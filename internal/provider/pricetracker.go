package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"card-ledger/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	priceTrackerBaseURL = "https://api.pokemonpricetracker.io/api"

	SourcePriceTracker = "pricetracker"
)

// PriceTrackerProvider is the sealed-product-specialized pricing API. It
// also exposes an alternate card endpoint and the price-history endpoint
// used for chart reconciliation.
type PriceTrackerProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
}

func NewPriceTrackerProvider(apiKey string, tracer trace.Tracer) *PriceTrackerProvider {
	return &PriceTrackerProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: priceTrackerBaseURL,
		apiKey:  apiKey,
		tracer:  tracer,
	}
}

type priceTrackerItem struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	SetName  string         `json:"setName"`
	ImageURL string         `json:"image"`
	URL      string         `json:"url"`
	Prices   *PriceBlock    `json:"prices"`
	Price    *float64       `json:"price"`
	Loose    *float64       `json:"loosePrice"`
	History  []HistoryEntry `json:"priceHistory"`
}

type priceTrackerSearchResponse struct {
	Data []priceTrackerItem `json:"data"`
}

type priceTrackerHistoryResponse struct {
	Data []HistoryEntry `json:"data"`
}

// SearchSealed queries the sealed-product endpoint.
func (p *PriceTrackerProvider) SearchSealed(ctx context.Context, query, setFilter string, limit int) ([]*domain.NormalizedPriceItem, error) {
	return p.search(ctx, "/sealed", query, setFilter, limit, domain.KindSealed)
}

// SearchCards queries the alternate card endpoint.
func (p *PriceTrackerProvider) SearchCards(ctx context.Context, query, setFilter string, limit int) ([]*domain.NormalizedPriceItem, error) {
	return p.search(ctx, "/cards", query, setFilter, limit, domain.KindCard)
}

func (p *PriceTrackerProvider) search(ctx context.Context, endpoint, query, setFilter string, limit int, kind domain.ItemKind) ([]*domain.NormalizedPriceItem, error) {
	_, span := p.tracer.Start(ctx, "pricetracker.search"+endpoint)
	defer span.End()

	if p.apiKey == "" {
		return nil, &domain.CredentialError{Provider: SourcePriceTracker, EnvVar: "PRICETRACKER_API_KEY"}
	}

	params := url.Values{}
	params.Set("q", SanitizeQuery(query))
	params.Set("limit", fmt.Sprint(limit))
	if setFilter != "" {
		params.Set("set", setFilter)
	}

	body, err := p.doRequest(ctx, p.baseURL+endpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var payload priceTrackerSearchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse pricetracker response: %w", err)
	}

	items := make([]*domain.NormalizedPriceItem, 0, len(payload.Data))
	for i := range payload.Data {
		items = append(items, normalizePriceTrackerItem(&payload.Data[i], kind))
	}
	return items, nil
}

// GetHistory fetches the provider's own price series for an item.
// Granularity is a cost/granularity trade-off dictated by the provider API:
// spans up to 31 days request daily points, longer spans weekly.
func (p *PriceTrackerProvider) GetHistory(ctx context.Context, itemID string, from, to time.Time, nameHint string) ([]domain.HistoryPoint, error) {
	_, span := p.tracer.Start(ctx, "pricetracker.get-history")
	defer span.End()

	if p.apiKey == "" {
		return nil, &domain.CredentialError{Provider: SourcePriceTracker, EnvVar: "PRICETRACKER_API_KEY"}
	}

	granularity := "daily"
	if to.Sub(from) > 31*24*time.Hour {
		granularity = "weekly"
	}

	params := url.Values{}
	params.Set("id", itemID)
	params.Set("start", from.UTC().Format("2006-01-02"))
	params.Set("end", to.UTC().Format("2006-01-02"))
	params.Set("granularity", granularity)
	if nameHint != "" {
		params.Set("name", nameHint)
	}

	body, err := p.doRequest(ctx, p.baseURL+"/history?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var payload priceTrackerHistoryResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse pricetracker history: %w", err)
	}

	points := make([]domain.HistoryPoint, 0, len(payload.Data))
	for _, entry := range payload.Data {
		if entry.Date == "" || entry.Price == 0 {
			continue
		}
		points = append(points, domain.HistoryPoint{
			Date:   entry.Date,
			Price:  entry.Price,
			Source: SourcePriceTracker,
		})
	}
	return points, nil
}

func (p *PriceTrackerProvider) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: SourcePriceTracker, Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &domain.UpstreamError{Provider: SourcePriceTracker, Status: resp.StatusCode, Body: string(body)}
	}

	return io.ReadAll(resp.Body)
}

func normalizePriceTrackerItem(item *priceTrackerItem, kind domain.ItemKind) *domain.NormalizedPriceItem {
	out := &domain.NormalizedPriceItem{
		ID:          item.ID,
		Name:        item.Name,
		SetName:     item.SetName,
		Kind:        kind,
		ImageURL:    item.ImageURL,
		SourceURL:   item.URL,
		Source:      SourcePriceTracker,
		PriceByTier: map[domain.GradeTier]*float64{},
	}

	env := &PriceEnvelope{
		Prices:  item.Prices,
		History: item.History,
		Flat: []FlatPrice{
			{Name: "price", Value: item.Price},
			{Name: "loosePrice", Value: item.Loose},
		},
	}
	if price := env.MarketPrice(); price != nil {
		out.PriceByTier[domain.TierUngraded] = price
	}
	return out
}
