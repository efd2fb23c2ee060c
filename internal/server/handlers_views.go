package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupscope/dashboard/internal/airtable"
	"go.uber.org/zap"
)

type viewPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type createViewRequestPayload struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (h *httpHandler) handleListViews(c *gin.Context) {
	table, views, err := h.views.ListViews(c.Request.Context())
	if err != nil {
		h.respondViewError(c, err, "Failed to fetch Airtable views")
		return
	}

	payload := make([]viewPayload, 0, len(views))
	for _, view := range views {
		payload = append(payload, viewPayload{ID: view.Name, Name: view.Name, Type: view.Type})
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"views":     payload,
		"tableName": table.Name,
		"tableId":   table.ID,
	})
}

func (h *httpHandler) handleCreateView(c *gin.Context) {
	if _, err := h.profiles.GrantAdmin(c.Request.Context(), c.GetString(userIDContextKey)); err != nil {
		h.respondAdminError(c, err, "Failed to create view")
		return
	}

	var request createViewRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	view, err := h.views.CreateView(c.Request.Context(), airtable.ViewRequest{Name: request.Name, Type: request.Type})
	if err != nil {
		h.respondViewError(c, err, "Failed to create view")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"view":    viewPayload{ID: view.Name, Name: view.Name, Type: view.Type},
	})
}

func (h *httpHandler) respondViewError(c *gin.Context, err error, failure string) {
	var apiErr *airtable.APIError
	switch {
	case errors.Is(err, airtable.ErrMissingViewName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "View name is required"})
	case errors.Is(err, airtable.ErrTableNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Table not found"})
	case errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity):
		h.logger.Warn("airtable rejected request", zap.Int("status", apiErr.StatusCode), zap.Error(err))
		c.JSON(apiErr.StatusCode, gin.H{"error": failure, "details": apiErr.Message})
	default:
		h.logger.Error("airtable request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure})
	}
}
