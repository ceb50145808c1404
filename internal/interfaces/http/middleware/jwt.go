package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerdash/backend/internal/infrastructure/auth"
	"github.com/sellerdash/backend/internal/interfaces/http/dto"
)

const (
	// TokenClaimsKey is the gin context key of validated token claims
	TokenClaimsKey = "token_claims"
	bearerPrefix   = "Bearer "
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	Enabled() bool
	Validate(token string) (*auth.Claims, error)
}

// RequireToken requires a bearer token granting scope. When the validator has
// no secret configured the routes stay open.
func RequireToken(tokens TokenValidator, scope string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokens == nil || !tokens.Enabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) || strings.TrimPrefix(header, bearerPrefix) == "" {
			abortAuth(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Missing bearer token")
			return
		}

		claims, err := tokens.Validate(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			logger.Warn("Token rejected",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", GetRequestID(c)),
			)
			if errors.Is(err, auth.ErrExpiredToken) {
				abortAuth(c, http.StatusUnauthorized, dto.ErrCodeTokenExpired, "Token has expired")
				return
			}
			abortAuth(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid token")
			return
		}

		if scope != "" && !claims.HasScope(scope) {
			abortAuth(c, http.StatusForbidden, dto.ErrCodeForbidden, "Token lacks scope "+scope)
			return
		}

		c.Set(TokenClaimsKey, claims)
		c.Next()
	}
}

func abortAuth(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}
