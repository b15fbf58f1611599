package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"card-ledger/internal/domain"
	"card-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type stubRefresher struct {
	summary *service.RefreshSummary
	err     error
	calls   int
}

func (s *stubRefresher) RefreshAll(ctx context.Context) (*service.RefreshSummary, error) {
	s.calls++
	return s.summary, s.err
}

type stubHistorian struct {
	assetPoints     []domain.HistoryPoint
	portfolioPoints []service.PortfolioPoint
	err             error
}

func (s *stubHistorian) AssetHistory(ctx context.Context, assetID int64, days int) ([]domain.HistoryPoint, error) {
	return s.assetPoints, s.err
}

func (s *stubHistorian) PortfolioHistory(ctx context.Context, days int) ([]service.PortfolioPoint, error) {
	return s.portfolioPoints, s.err
}

type stubSearcher struct {
	items []*domain.NormalizedPriceItem
	err   error
}

func (s *stubSearcher) SearchAll(ctx context.Context, query, setFilter string, limit int) ([]*domain.NormalizedPriceItem, error) {
	return s.items, s.err
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func TestHealth(t *testing.T) {
	h := New(testTracer, &stubRefresher{}, &stubHistorian{}, &stubSearcher{}, "")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestRefreshRequiresToken(t *testing.T) {
	refresher := &stubRefresher{summary: &service.RefreshSummary{Updated: 2}}
	h := New(testTracer, refresher, &stubHistorian{}, &stubSearcher{}, "secret")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/refresh", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if refresher.calls != 0 {
		t.Fatal("refresh must not run without authorization")
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/refresh", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/refresh", nil)
	req.Header.Set("Authorization", "Bearer secret")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", w.Code)
	}

	var summary service.RefreshSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if summary.Updated != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRefreshAuthDisabledWhenTokenEmpty(t *testing.T) {
	refresher := &stubRefresher{summary: &service.RefreshSummary{}}
	h := New(testTracer, refresher, &stubHistorian{}, &stubSearcher{}, "")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/refresh", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected auth no-op with empty token, got %d", w.Code)
	}
}

func TestAssetHistoryValidatesID(t *testing.T) {
	h := New(testTracer, &stubRefresher{}, &stubHistorian{}, &stubSearcher{}, "")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/assets/abc/history", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestAssetHistoryReturnsPoints(t *testing.T) {
	historian := &stubHistorian{assetPoints: []domain.HistoryPoint{
		{Date: "2024-03-01", Price: 42.50, Source: "tcgplayer"},
	}}
	h := New(testTracer, &stubRefresher{}, historian, &stubSearcher{}, "")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/assets/1/history?days=30", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		AssetID int64                 `json:"asset_id"`
		Days    int                   `json:"days"`
		Points  []domain.HistoryPoint `json:"points"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.AssetID != 1 || body.Days != 30 || len(body.Points) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestPortfolioHistory(t *testing.T) {
	historian := &stubHistorian{portfolioPoints: []service.PortfolioPoint{
		{Date: "2024-03-01", Raw: 10, Graded: 100, Sealed: 50, Total: 160},
	}}
	h := New(testTracer, &stubRefresher{}, historian, &stubSearcher{}, "")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/portfolio/history", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	h := New(testTracer, &stubRefresher{}, &stubHistorian{}, &stubSearcher{}, "")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/search", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without q, got %d", w.Code)
	}
}

func TestSearchReturnsItems(t *testing.T) {
	searcher := &stubSearcher{items: []*domain.NormalizedPriceItem{
		{ID: "xy-1", Name: "Test Card", Kind: domain.KindCard, Source: "tcgplayer"},
	}}
	h := New(testTracer, &stubRefresher{}, &stubHistorian{}, searcher, "")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/search?q=charizard", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRefreshServiceError(t *testing.T) {
	refresher := &stubRefresher{err: errors.New("database unavailable")}
	h := New(testTracer, refresher, &stubHistorian{}, &stubSearcher{}, "")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/refresh", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
