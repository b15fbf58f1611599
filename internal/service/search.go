package service

import (
	"context"
	"log"
	"sync"

	"card-ledger/internal/domain"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// SealedCatalog extends the sealed adapter with its alternate card
// endpoint, consulted only in search-all mode.
type SealedCatalog interface {
	SealedSource
	SearchCards(ctx context.Context, query, setFilter string, limit int) ([]*domain.NormalizedPriceItem, error)
}

// SearchService fans one query out to both REST providers and merges the
// results. It backs the "search everything" flow used when adding a new
// asset, where the user does not yet know which provider carries the item.
type SearchService struct {
	tracer trace.Tracer
	cards  CardSource
	sealed SealedCatalog
}

func NewSearchService(tracer trace.Tracer, cards CardSource, sealed SealedCatalog) *SearchService {
	return &SearchService{tracer: tracer, cards: cards, sealed: sealed}
}

// SearchAll queries the card and sealed providers concurrently. One
// provider's failure is tolerated as long as the other returns results;
// the call errors only when both sides fail.
func (s *SearchService) SearchAll(ctx context.Context, query, setFilter string, limit int) ([]*domain.NormalizedPriceItem, error) {
	ctx, span := s.tracer.Start(ctx, "search.search-all")
	defer span.End()

	var (
		mu        sync.Mutex
		items     []*domain.NormalizedPriceItem
		failures  []error
		successes int
	)

	collect := func(results []*domain.NormalizedPriceItem, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures = append(failures, err)
			return
		}
		successes++
		items = append(items, results...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		collect(s.cards.Search(gctx, query, setFilter, limit))
		return nil
	})
	g.Go(func() error {
		collect(s.sealed.SearchSealed(gctx, query, setFilter, limit))
		return nil
	})
	g.Go(func() error {
		collect(s.sealed.SearchCards(gctx, query, setFilter, limit))
		return nil
	})
	_ = g.Wait()

	if successes == 0 && len(failures) > 0 {
		return nil, failures[0]
	}
	for _, err := range failures {
		log.Printf("partial search failure for %q: %v", query, err)
	}
	return items, nil
}
