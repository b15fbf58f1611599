package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const defaultHistoryDays = 90

// AssetHistory godoc
// @Summary      Get price history for one asset
// @Description  Returns one price point per calendar day, blending recorded snapshots with provider history
// @Tags         history
// @Produce      json
// @Param        id    path   int  true   "Asset ID"
// @Param        days  query  int  false  "Trailing window in days"  default(90)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/assets/{id}/history [get]
func (h *Handler) AssetHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.asset-history")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id: " + c.Param("id")})
		return
	}
	span.SetAttributes(attribute.Int64("asset.id", id))

	days := parseDays(c)
	points, err := h.history.AssetHistory(ctx, id, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asset_id": id,
		"days":     days,
		"points":   points,
	})
}

// PortfolioHistory godoc
// @Summary      Get aggregated portfolio history
// @Description  Returns one summed point per calendar day across all assets, broken down by category
// @Tags         history
// @Produce      json
// @Param        days  query  int  false  "Trailing window in days"  default(90)
// @Success      200  {object}  map[string]interface{}
// @Router       /api/portfolio/history [get]
func (h *Handler) PortfolioHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.portfolio-history")
	defer span.End()

	days := parseDays(c)
	points, err := h.history.PortfolioHistory(ctx, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"days":   days,
		"points": points,
	})
}

func parseDays(c *gin.Context) int {
	days := defaultHistoryDays
	if d := c.Query("days"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}
	return days
}
