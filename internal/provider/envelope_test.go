package provider

import "testing"

func f(v float64) *float64 { return &v }

func TestMarketPricePrefersDirectPrices(t *testing.T) {
	t.Parallel()

	env := &PriceEnvelope{
		Prices: &PriceBlock{Market: f(10)},
		Flat:   []FlatPrice{{Name: "price", Value: f(99)}},
	}
	if got := env.MarketPrice(); got == nil || *got != 10 {
		t.Fatalf("expected prices.market to win, got %v", got)
	}
}

func TestMarketPriceLowWhenNoMarket(t *testing.T) {
	t.Parallel()

	env := &PriceEnvelope{Prices: &PriceBlock{Low: f(7.5)}}
	if got := env.MarketPrice(); got == nil || *got != 7.5 {
		t.Fatalf("expected prices.low, got %v", got)
	}
}

func TestMarketPriceSubProviderBeforeFlat(t *testing.T) {
	t.Parallel()

	env := &PriceEnvelope{
		SubProviders: []SubProviderBlock{
			{Name: "cardmarket", Prices: PriceBlock{Market: f(3)}},
		},
		Flat: []FlatPrice{{Name: "price", Value: f(99)}},
	}
	if got := env.MarketPrice(); got == nil || *got != 3 {
		t.Fatalf("expected sub-provider market, got %v", got)
	}
}

func TestMarketPriceFlatAliasOrder(t *testing.T) {
	t.Parallel()

	env := &PriceEnvelope{
		Flat: []FlatPrice{
			{Name: "price", Value: nil},
			{Name: "loosePrice", Value: f(4)},
			{Name: "value", Value: f(8)},
		},
	}
	if got := env.MarketPrice(); got == nil || *got != 4 {
		t.Fatalf("expected first non-nil alias, got %v", got)
	}
}

func TestMarketPriceMostRecentHistory(t *testing.T) {
	t.Parallel()

	env := &PriceEnvelope{
		History: []HistoryEntry{
			{Date: "2024-01-01", Price: 5},
			{Date: "2024-03-01", Price: 9},
			{Date: "2024-02-01", Price: 7},
		},
	}
	if got := env.MarketPrice(); got == nil || *got != 9 {
		t.Fatalf("expected latest history entry, got %v", got)
	}
}

func TestMarketPriceSkipsZeroHistory(t *testing.T) {
	t.Parallel()

	env := &PriceEnvelope{
		History: []HistoryEntry{
			{Date: "2024-03-01", Price: 0},
			{Date: "2024-01-01", Price: 5},
		},
	}
	if got := env.MarketPrice(); got == nil || *got != 5 {
		t.Fatalf("zero history entry should be skipped, got %v", got)
	}
}

func TestMarketPriceExhausted(t *testing.T) {
	t.Parallel()

	env := &PriceEnvelope{}
	if got := env.MarketPrice(); got != nil {
		t.Fatalf("expected nil for empty envelope, got %v", got)
	}
}

func TestSanitizeQuery(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Pikachu - 025":        "Pikachu",
		"Pikachu #025":         "Pikachu",
		"Pikachu 025/185":      "Pikachu",
		"Farfetch’d":           "Farfetch'd",
		"“Rocket’s” Mewtwo":    `"Rocket's" Mewtwo`,
		"Charizard VMAX":       "Charizard VMAX",
		"Blastoise ex - 9/102": "Blastoise ex",
	}
	for in, expected := range tests {
		if got := SanitizeQuery(in); got != expected {
			t.Fatalf("%q: expected %q, got %q", in, expected, got)
		}
	}
}
