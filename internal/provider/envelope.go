package provider

// PriceBlock is a prices sub-object. Market is the benchmark field; Low is
// its stand-in when the provider has no market estimate.
type PriceBlock struct {
	Market *float64 `json:"market"`
	Low    *float64 `json:"low"`
}

func (b *PriceBlock) pick() *float64 {
	if b == nil {
		return nil
	}
	if b.Market != nil {
		return b.Market
	}
	return b.Low
}

// SubProviderBlock is a prices sub-object nested under a named key, e.g. a
// secondary marketplace aggregator embedded in the response.
type SubProviderBlock struct {
	Name   string
	Prices PriceBlock
}

// FlatPrice is a top-level price-like field, one of several known alias
// names providers use interchangeably.
type FlatPrice struct {
	Name  string
	Value *float64
}

// HistoryEntry is one point of an embedded price-history collection, keyed
// by an ISO-8601 date.
type HistoryEntry struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// PriceEnvelope is the explicit model for the price-bearing portion of a
// provider response item. Each adapter fills it from its own JSON shape so
// the extraction cascade below is the single place market price is decided.
type PriceEnvelope struct {
	Prices       *PriceBlock
	SubProviders []SubProviderBlock
	Flat         []FlatPrice
	History      []HistoryEntry
}

// MarketPrice extracts one market price from the envelope, stopping at the
// first non-nil hit:
//
//  1. market/low on the direct prices sub-object
//  2. market/low under each named sub-provider block, in order
//  3. flat top-level aliases, in order
//  4. the most recent embedded history entry; ISO dates compare
//     lexicographically, which equals chronological order
//
// Returns nil only when all four tiers are exhausted. A zero-valued history
// entry counts as absent, never as a zero price.
func (e *PriceEnvelope) MarketPrice() *float64 {
	if p := e.Prices.pick(); p != nil {
		return p
	}
	for _, sub := range e.SubProviders {
		if p := sub.Prices.pick(); p != nil {
			return p
		}
	}
	for _, flat := range e.Flat {
		if flat.Value != nil {
			return flat.Value
		}
	}

	var latest *HistoryEntry
	for i := range e.History {
		h := &e.History[i]
		if h.Date == "" || h.Price == 0 {
			continue
		}
		if latest == nil || h.Date > latest.Date {
			latest = h
		}
	}
	if latest != nil {
		price := latest.Price
		return &price
	}
	return nil
}
