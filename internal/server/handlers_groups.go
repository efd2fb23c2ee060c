package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/groupscope/dashboard/internal/groups"
	"go.uber.org/zap"
)

type createGroupPayload struct {
	GroupName string `json:"group_name"`
	GroupURL  string `json:"group_url"`
}

func (h *httpHandler) handleListGroups(c *gin.Context) {
	result, err := h.groups.List(c.Request.Context(), groups.Query{
		Page:  queryInt(c, "page"),
		Limit: queryInt(c, "limit"),
		View:  c.Query("view"),
	})
	if err != nil {
		h.logger.Error("failed to fetch groups", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"groups":     result.Groups,
		"pagination": result.Pagination,
	})
}

func (h *httpHandler) handleCreateGroup(c *gin.Context) {
	var payload createGroupPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	id, err := h.groups.Create(c.Request.Context(), groups.CreateRequest{
		GroupName: payload.GroupName,
		GroupURL:  payload.GroupURL,
	})
	if err != nil {
		h.logger.Error("failed to create group", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// queryInt reads a numeric query parameter; missing or malformed values read as zero
// so the callee applies its default.
func queryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return value
}
