package scraper

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"card-ledger/internal/domain"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	priceChartingBaseURL = "https://www.pricecharting.com"

	SourcePriceCharting = "pricecharting"
)

// PageCache holds fetched vendor pages for a bounded duration. Implemented
// by cache.PageCache; a nil value disables caching.
type PageCache interface {
	Get(ctx context.Context, url string) ([]byte, bool)
	Set(ctx context.Context, url string, body []byte)
}

// detailAnchors maps the six fixed anchor identifiers on a detail page to
// grade tiers. The vendor reuses its video-game column names for graded
// cards: "complete" is grade 7, "new" is grade 8, "box only" is grade 9.5,
// "manual only" is grade 10.
var detailAnchors = map[string]domain.GradeTier{
	"used_price":        domain.TierUngraded,
	"complete_price":    domain.TierGrade7,
	"new_price":         domain.TierGrade8,
	"graded_price":      domain.TierGrade9,
	"box_only_price":    domain.TierGrade95,
	"manual_only_price": domain.TierGrade10,
}

// Search-results rows carry only the first three price columns.
var searchColumns = map[string]domain.GradeTier{
	"used_price": domain.TierUngraded,
	"cib_price":  domain.TierGrade7,
	"new_price":  domain.TierGrade8,
}

// Extraction is pattern-based over raw HTML rather than a DOM walk, which
// keeps the scraper free of a browser/DOM dependency at the cost of
// structural fragility. All patterns live here so a structured parser could
// replace them without touching callers.
var (
	searchRowPattern = regexp.MustCompile(`(?s)<tr[^>]*\bid="product-(\d+)"[^>]*>(.*?)</tr>`)
	titleLinkPattern = regexp.MustCompile(`(?s)<td[^>]*class="title[^"]*"[^>]*>\s*<a\s+href="([^"]+)"[^>]*>\s*(.*?)\s*</a>`)
	consolePattern   = regexp.MustCompile(`(?s)<td[^>]*class="console[^"]*"[^>]*>\s*(.*?)\s*</td>`)
	imagePattern     = regexp.MustCompile(`<img[^>]*\bsrc="([^"]+)"`)
	tagPattern       = regexp.MustCompile(`<[^>]+>`)
)

func columnPattern(anchor string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)\b` + anchor + `\b[^>]*>(.*?)</td>`)
}

func anchorPattern(anchor string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)\bid="` + anchor + `"[^>]*>(.*?)</(?:td|div|span)>`)
}

// PriceChartingScraper retrieves graded-collectible prices from a vendor
// that exposes no JSON API, by parsing its server-rendered search and
// detail pages.
type PriceChartingScraper struct {
	client      *http.Client
	baseURL     string
	tracer      trace.Tracer
	cache       PageCache
	limiter     *RateLimiter
	concurrency int
}

func NewPriceChartingScraper(tracer trace.Tracer, cache PageCache, concurrency int) *PriceChartingScraper {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &PriceChartingScraper{
		client:      &http.Client{Timeout: 15 * time.Second},
		baseURL:     priceChartingBaseURL,
		tracer:      tracer,
		cache:       cache,
		limiter:     NewRateLimiter(4, time.Second),
		concurrency: concurrency,
	}
}

// SearchByName runs the vendor's product search restricted to the Pokémon
// card category. Result items carry only the three search-page tiers
// (ungraded, grade7, grade8); detail-page tiers require FetchDetailPrices.
// Structurally malformed rows are skipped, not fatal to the page.
func (s *PriceChartingScraper) SearchByName(ctx context.Context, query string) ([]*domain.NormalizedPriceItem, error) {
	_, span := s.tracer.Start(ctx, "pricecharting.search")
	defer span.End()

	searchURL := s.baseURL + "/search-products?type=prices&console=pokemon-cards&q=" + url.QueryEscape(query)
	page, err := s.fetchPage(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	rows := searchRowPattern.FindAllStringSubmatch(string(page), -1)
	items := make([]*domain.NormalizedPriceItem, 0, len(rows))
	for _, row := range rows {
		item, ok := s.parseSearchRow(row[1], row[2])
		if !ok {
			log.Printf("pricecharting: skipping malformed search row (product %s)", row[1])
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *PriceChartingScraper) parseSearchRow(productID, row string) (*domain.NormalizedPriceItem, bool) {
	title := titleLinkPattern.FindStringSubmatch(row)
	if title == nil {
		return nil, false
	}

	href := title[1]
	if !strings.HasPrefix(href, "http") {
		href = s.baseURL + href
	}

	item := &domain.NormalizedPriceItem{
		ID:          productID,
		Name:        stripTags(title[2]),
		Kind:        domain.KindGraded,
		Source:      SourcePriceCharting,
		SourceURL:   href,
		PriceByTier: map[domain.GradeTier]*float64{},
	}
	if m := consolePattern.FindStringSubmatch(row); m != nil {
		item.SetName = stripTags(m[1])
	}
	if m := imagePattern.FindStringSubmatch(row); m != nil {
		item.ImageURL = m[1]
	}
	for anchor, tier := range searchColumns {
		if m := columnPattern(anchor).FindStringSubmatch(row); m != nil {
			item.PriceByTier[tier] = parsePrice(m[1])
		}
	}
	return item, true
}

// FetchDetailPrices parses a detail page's six fixed price anchors into a
// partial tier map. A missing or zero-valued anchor yields an absent entry:
// the vendor renders $0.00 for "not currently for sale".
func (s *PriceChartingScraper) FetchDetailPrices(ctx context.Context, detailURL string) (map[domain.GradeTier]*float64, error) {
	_, span := s.tracer.Start(ctx, "pricecharting.fetch-detail")
	defer span.End()

	page, err := s.fetchPage(ctx, detailURL)
	if err != nil {
		return nil, err
	}

	prices := map[domain.GradeTier]*float64{}
	for anchor, tier := range detailAnchors {
		if m := anchorPattern(anchor).FindStringSubmatch(string(page)); m != nil {
			if p := parsePrice(m[1]); p != nil {
				prices[tier] = p
			}
		}
	}
	return prices, nil
}

// SearchWithGradedPrices composes search and detail lookups: the first
// limit candidates have their detail pages fetched concurrently (bounded
// fan-out) and the two partial tier maps merged. A candidate whose detail
// fetch fails is dropped entirely rather than failing the whole call.
func (s *PriceChartingScraper) SearchWithGradedPrices(ctx context.Context, query string, limit int) ([]*domain.NormalizedPriceItem, error) {
	ctx, span := s.tracer.Start(ctx, "pricecharting.search-graded")
	defer span.End()

	candidates, err := s.SearchByName(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	detailMaps := make([]map[domain.GradeTier]*float64, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, candidate := range candidates {
		g.Go(func() error {
			prices, err := s.FetchDetailPrices(gctx, candidate.SourceURL)
			if err != nil {
				log.Printf("pricecharting: dropping %s, detail fetch failed: %v", candidate.ID, err)
				return nil
			}
			detailMaps[i] = prices
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]*domain.NormalizedPriceItem, 0, len(candidates))
	for i, candidate := range candidates {
		if detailMaps[i] == nil {
			continue
		}
		for tier, price := range detailMaps[i] {
			if candidate.PriceByTier[tier] == nil {
				candidate.PriceByTier[tier] = price
			}
		}
		merged = append(merged, candidate)
	}
	return merged, nil
}

// FetchTetheredPrice skips search for an asset already bound to a vendor
// detail URL and returns the one tier matching gradeHint. Hints that match
// neither an anchor id nor a tier name fall back to grade9, as does an
// absent hint.
func (s *PriceChartingScraper) FetchTetheredPrice(ctx context.Context, detailURL, gradeHint string) (*float64, error) {
	ctx, span := s.tracer.Start(ctx, "pricecharting.fetch-tethered")
	defer span.End()

	prices, err := s.FetchDetailPrices(ctx, detailURL)
	if err != nil {
		return nil, err
	}
	return prices[tierForHint(gradeHint)], nil
}

func tierForHint(hint string) domain.GradeTier {
	hint = strings.TrimSpace(strings.ToLower(hint))
	if tier, ok := detailAnchors[hint]; ok {
		return tier
	}
	for _, tier := range domain.GradeTiers {
		if hint == string(tier) {
			return tier
		}
	}
	return domain.TierGrade9
}

func (s *PriceChartingScraper) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	if s.cache != nil {
		if body, ok := s.cache.Get(ctx, pageURL); ok {
			return body, nil
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; card-ledger/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: SourcePriceCharting, Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &domain.UpstreamError{Provider: SourcePriceCharting, Status: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, pageURL, body)
	}
	return body, nil
}

func stripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

// parsePrice converts vendor price text ("$1,234.56") to a float. All
// characters except digits and '.' are stripped first. An unparsable value
// or exactly zero both mean "no price", never a zero price.
func parsePrice(text string) *float64 {
	var b strings.Builder
	for _, r := range stripTags(text) {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || v == 0 {
		return nil
	}
	return &v
}
