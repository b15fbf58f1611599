package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Refresh godoc
// @Summary      Refresh all asset prices
// @Description  Resolves a fresh market price for every stale tracked asset and records snapshots
// @Tags         refresh
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  service.RefreshSummary
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.refresh")
	defer span.End()

	summary, err := h.refresher.RefreshAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
