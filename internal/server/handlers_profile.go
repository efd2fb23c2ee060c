package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupscope/dashboard/internal/admin"
	"github.com/groupscope/dashboard/internal/profiles"
	"go.uber.org/zap"
)

const messageProfileCreated = "Profile created. Waiting for admin approval."

type profileResponsePayload struct {
	Profile   profiles.Profile `json:"profile"`
	IsNewUser bool             `json:"isNewUser"`
	Message   string           `json:"message,omitempty"`
}

func (h *httpHandler) handleGetProfile(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": messageUnauthorized})
		return
	}

	profile, created, err := h.profiles.Ensure(c.Request.Context(), identity)
	if err != nil {
		h.logger.Error("failed to resolve profile", zap.String("user_id", identity.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	response := profileResponsePayload{Profile: profile, IsNewUser: created}
	if created {
		response.Message = messageProfileCreated
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondAdminError(c, err, "Failed to fetch users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *httpHandler) handleUpdateUser(c *gin.Context) {
	callerID := c.GetString(userIDContextKey)
	if _, err := h.profiles.GrantAdmin(c.Request.Context(), callerID); err != nil {
		h.respondAdminError(c, err, "Failed to update profile")
		return
	}

	var request admin.UpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	profile, err := h.users.UpdateUser(c.Request.Context(), callerID, request)
	if err != nil {
		h.respondAdminError(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *httpHandler) respondAdminError(c *gin.Context, err error, failure string) {
	switch {
	case errors.Is(err, profiles.ErrAdminRequired):
		c.JSON(http.StatusForbidden, gin.H{"error": messageAdminRequired})
	case errors.Is(err, admin.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, profiles.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
	default:
		h.logger.Error("admin operation failed", zap.String("user_id", c.GetString(userIDContextKey)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure})
	}
}
