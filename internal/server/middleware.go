package server

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/groupscope/dashboard/internal/auth"
	"github.com/groupscope/dashboard/internal/profiles"
	"go.uber.org/zap"
)

const (
	messageUnauthorized  = "Unauthorized"
	messageNeedsApproval = "Access denied. Please contact admin for approval."
	messageAdminRequired = "Admin access required"
	messageInternal      = "Internal server error"
)

// corsMiddleware only sends credentials to an explicit origin list. An empty list or
// "*" allows any origin without credentials.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
		config.AllowCredentials = true
	}
	return cors.New(config)
}

func (h *httpHandler) authenticate(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingSessionToken):
			h.logger.Debug("session token missing", zap.String("path", c.Request.URL.Path))
		case errors.Is(err, auth.ErrExpiredSessionToken):
			h.logger.Info("token validation failed", zap.Error(err))
		default:
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": messageUnauthorized})
		return
	}
	identity := claims.Identity()
	c.Set(userIDContextKey, identity.UserID)
	c.Set(identityContextKey, identity)
	c.Next()
}

func (h *httpHandler) requireActive(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": messageUnauthorized})
		return
	}
	_, err := h.profiles.Authorize(c.Request.Context(), userID)
	switch {
	case err == nil:
		c.Next()
	case errors.Is(err, profiles.ErrApprovalRequired):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": messageNeedsApproval, "needsApproval": true})
	case errors.Is(err, profiles.ErrInactive):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": messageNeedsApproval, "needsApproval": false})
	default:
		h.logger.Error("profile authorization failed", zap.String("user_id", userID), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": messageInternal})
	}
}

func currentIdentity(c *gin.Context) (auth.Identity, bool) {
	value, ok := c.Get(identityContextKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok && identity.UserID != ""
}
