package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"card-ledger/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	tcgBaseURL = "https://api.tcgpricing.io/v1"

	// SourceTCGPlayer tags prices resolved through the card API, whose
	// market figures are TCGplayer's.
	SourceTCGPlayer = "tcgplayer"
)

// TCGProvider is the card-specialized pricing API. A single logical card
// comes back as dozens of variants differing by condition and printing;
// normalization collapses them to one benchmark price per item.
type TCGProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
}

func NewTCGProvider(apiKey string, tracer trace.Tracer) *TCGProvider {
	return &TCGProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: tcgBaseURL,
		apiKey:  apiKey,
		tracer:  tracer,
	}
}

type tcgVariant struct {
	Condition string   `json:"condition"`
	Printing  string   `json:"printing"`
	Price     *float64 `json:"marketPrice"`
}

type tcgItem struct {
	ProductID   int64                 `json:"productId"`
	Name        string                `json:"name"`
	GroupName   string                `json:"groupName"`
	ImageURL    string                `json:"imageUrl"`
	URL         string                `json:"url"`
	Variants    []tcgVariant          `json:"variants"`
	Prices      *PriceBlock           `json:"prices"`
	Marketplace map[string]PriceBlock `json:"marketplacePrices"`
	LoosePrice  *float64              `json:"loosePrice"`
	ValueUSD    *float64              `json:"value"`
	History     []HistoryEntry        `json:"priceHistory"`
}

type tcgSearchResponse struct {
	Results []tcgItem `json:"results"`
}

// Search queries the card API and normalizes each result. setFilter may be
// empty; limit caps the number of returned candidates.
func (p *TCGProvider) Search(ctx context.Context, query, setFilter string, limit int) ([]*domain.NormalizedPriceItem, error) {
	_, span := p.tracer.Start(ctx, "tcgplayer.search")
	defer span.End()

	if p.apiKey == "" {
		return nil, &domain.CredentialError{Provider: SourceTCGPlayer, EnvVar: "TCG_API_KEY"}
	}

	params := url.Values{}
	params.Set("q", SanitizeQuery(query))
	params.Set("limit", fmt.Sprint(limit))
	if setFilter != "" {
		params.Set("set", setFilter)
	}

	body, err := p.doRequest(ctx, p.baseURL+"/products?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var payload tcgSearchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse tcg search response: %w", err)
	}

	items := make([]*domain.NormalizedPriceItem, 0, len(payload.Results))
	for i := range payload.Results {
		items = append(items, normalizeTCGItem(&payload.Results[i]))
	}
	return items, nil
}

func (p *TCGProvider) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		// Timeouts and transport failures behave like an unavailable
		// upstream so callers fall through to the next tier.
		return nil, &domain.UpstreamError{Provider: SourceTCGPlayer, Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &domain.UpstreamError{Provider: SourceTCGPlayer, Status: resp.StatusCode, Body: string(body)}
	}

	return io.ReadAll(resp.Body)
}

func normalizeTCGItem(item *tcgItem) *domain.NormalizedPriceItem {
	out := &domain.NormalizedPriceItem{
		ID:          fmt.Sprint(item.ProductID),
		Name:        item.Name,
		SetName:     item.GroupName,
		Kind:        classifyTCGItem(item),
		ImageURL:    item.ImageURL,
		SourceURL:   item.URL,
		Source:      SourceTCGPlayer,
		PriceByTier: map[domain.GradeTier]*float64{},
	}

	if price := selectVariantPrice(item.Variants); price != nil {
		out.PriceByTier[domain.TierUngraded] = price
		return out
	}

	env := &PriceEnvelope{
		Prices:  item.Prices,
		History: item.History,
		Flat: []FlatPrice{
			{Name: "loosePrice", Value: item.LoosePrice},
			{Name: "value", Value: item.ValueUSD},
		},
	}
	for _, name := range []string{"cardmarket", "ebay"} {
		if block, ok := item.Marketplace[name]; ok {
			env.SubProviders = append(env.SubProviders, SubProviderBlock{Name: name, Prices: block})
		}
	}
	if price := env.MarketPrice(); price != nil {
		out.PriceByTier[domain.TierUngraded] = price
	}
	return out
}

// selectVariantPrice picks the benchmark price among a card's variants.
// "Market price" for a TCG card conventionally means the common ungraded
// near-mint benchmark, so:
//
//  1. variants whose condition contains "near mint"
//  2. among those, a "normal" or "holofoil" printing, else the first
//  3. no priced near-mint variant: the highest-priced variant overall
//  4. nothing priced at all: nil (caller treats as no market price)
func selectVariantPrice(variants []tcgVariant) *float64 {
	var nearMint []tcgVariant
	for _, v := range variants {
		if strings.Contains(strings.ToLower(v.Condition), "near mint") {
			nearMint = append(nearMint, v)
		}
	}

	if len(nearMint) > 0 {
		for _, v := range nearMint {
			printing := strings.ToLower(v.Printing)
			if (printing == "normal" || printing == "holofoil") && v.Price != nil {
				return v.Price
			}
		}
		if nearMint[0].Price != nil {
			return nearMint[0].Price
		}
	}

	var best *float64
	for _, v := range variants {
		if v.Price == nil {
			continue
		}
		if best == nil || *v.Price > *best {
			best = v.Price
		}
	}
	return best
}

// classifyTCGItem flags sealed product when any variant reports a "sealed"
// condition. Missing card number/rarity is deliberately not used as a
// signal: incompletely-catalogued cards would come back as false positives.
func classifyTCGItem(item *tcgItem) domain.ItemKind {
	for _, v := range item.Variants {
		cond := strings.ToLower(strings.TrimSpace(v.Condition))
		if cond == "sealed" || cond == "s" {
			return domain.KindSealed
		}
	}
	return domain.KindCard
}
