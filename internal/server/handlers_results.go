package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupscope/dashboard/internal/results"
	"go.uber.org/zap"
)

func (h *httpHandler) handleListPosts(c *gin.Context) {
	query := results.Query{
		Table:   c.Query("table"),
		Page:    queryInt(c, "page"),
		Limit:   queryInt(c, "limit"),
		Keyword: c.Query("keyword"),
	}
	page, err := h.results.Posts(c.Request.Context(), query)
	switch {
	case err == nil:
	case errors.Is(err, results.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied to this table"})
		return
	case errors.Is(err, results.ErrTableNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Table not found"})
		return
	default:
		h.logger.Error("failed to fetch posts", zap.String("table", query.Table), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"posts":      page.Posts,
		"pagination": page.Pagination,
	})
}

func (h *httpHandler) handleListTables(c *gin.Context) {
	tables, err := h.results.Tables(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list results tables", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": messageInternal})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tables": tables})
}
