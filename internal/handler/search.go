package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Search godoc
// @Summary      Search all price providers
// @Description  Fans the query out to the card and sealed providers and merges the results
// @Tags         search
// @Produce      json
// @Param        q      query  string  true   "Search query"
// @Param        set    query  string  false  "Set name filter"
// @Param        limit  query  int     false  "Max results per provider (default 10, max 50)"  default(10)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/search [get]
func (h *Handler) Search(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.search")
	defer span.End()

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter: q"})
		return
	}
	span.SetAttributes(attribute.String("query", query))

	limit := 10
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	items, err := h.search.SearchAll(ctx, query, c.Query("set"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query": query,
		"items": items,
	})
}
