package handler

import (
	"context"

	"card-ledger/internal/domain"
	"card-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Refresher interface {
	RefreshAll(ctx context.Context) (*service.RefreshSummary, error)
}

type Historian interface {
	AssetHistory(ctx context.Context, assetID int64, days int) ([]domain.HistoryPoint, error)
	PortfolioHistory(ctx context.Context, days int) ([]service.PortfolioPoint, error)
}

type Searcher interface {
	SearchAll(ctx context.Context, query, setFilter string, limit int) ([]*domain.NormalizedPriceItem, error)
}

type Handler struct {
	tracer    trace.Tracer
	refresher Refresher
	history   Historian
	search    Searcher
	authToken string
}

func New(tracer trace.Tracer, refresher Refresher, history Historian, search Searcher, authToken string) *Handler {
	return &Handler{
		tracer:    tracer,
		refresher: refresher,
		history:   history,
		search:    search,
		authToken: authToken,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/search", h.Search)
	r.GET("/api/assets/:id/history", h.AssetHistory)
	r.GET("/api/portfolio/history", h.PortfolioHistory)
	r.POST("/api/refresh", BearerAuth(h.authToken), h.Refresh)
}
