package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-duel/internal/core/services"
)

const (
	authorizationHeader = "Authorization"
	authorizationType   = "Bearer"
	ContextUserIDKey    = "userID"
)

var (
	errMissingHeader = errors.New("authorization header required")
	errHeaderFormat  = errors.New("invalid authorization header format")
)

// AuthMiddleware puts the caller's user id in the context. A token that is
// malformed, expired or points at a deleted account is a 401; a failing user
// lookup is a 503 so clients retry instead of logging out.
func AuthMiddleware(tokenService *services.TokenService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader(authorizationHeader))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		userID, err := tokenService.ValidateToken(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, services.ErrTokenUser):
			logger.Debug("[AUTH] token for a deleted account", zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
			return
		case errors.Is(err, services.ErrInvalidToken):
			logger.Debug("[AUTH] rejected token", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		default:
			logger.Warn("[AUTH] token check failed", zap.Error(err))
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication temporarily unavailable"})
			return
		}

		c.Set(ContextUserIDKey, userID)

		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingHeader
	}

	fields := strings.Fields(header)
	if len(fields) != 2 || fields[0] != authorizationType {
		return "", errHeaderFormat
	}
	return fields[1], nil
}

func GetUserID(c *gin.Context) (string, bool) {
	id, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	idStr, ok := id.(string)
	return idStr, ok
}
