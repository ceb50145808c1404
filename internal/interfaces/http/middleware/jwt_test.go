package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdash/backend/internal/infrastructure/auth"
	"github.com/sellerdash/backend/internal/infrastructure/config"
	"github.com/sellerdash/backend/internal/interfaces/http/dto"
)

func newTokenService(secret string) *auth.TokenService {
	return auth.NewTokenService(config.AuthConfig{
		JWTSecret: secret,
		Issuer:    "sellerdash",
		TokenTTL:  time.Hour,
	})
}

func protectedEngine(tokens TokenValidator) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.POST("/sync", RequireToken(tokens, auth.ScopeSyncWrite, nil), func(c *gin.Context) {
		claims, _ := c.Get(TokenClaimsKey)
		subject := ""
		if cl, ok := claims.(*auth.Claims); ok {
			subject = cl.Subject
		}
		c.String(http.StatusOK, subject)
	})
	return r
}

func post(r http.Handler, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestRequireToken(t *testing.T) {
	tokens := newTokenService("test-secret-key-at-least-32-chars")
	r := protectedEngine(tokens)

	t.Run("valid token", func(t *testing.T) {
		token, _, err := tokens.Issue("ops", []string{auth.ScopeSyncWrite}, 0)
		require.NoError(t, err)

		w := post(r, token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ops", w.Body.String())
	})

	t.Run("missing token", func(t *testing.T) {
		w := post(r, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, errorCode(t, w))
	})

	t.Run("invalid token", func(t *testing.T) {
		w := post(r, "garbage")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing scope", func(t *testing.T) {
		token, _, err := tokens.Issue("viewer", []string{auth.ScopeReadOnly}, 0)
		require.NoError(t, err)

		w := post(r, token)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, w))
	})
}

func TestRequireToken_OpenWithoutSecret(t *testing.T) {
	w := post(protectedEngine(newTokenService("")), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSwaggerProtection(t *testing.T) {
	r := gin.New()
	r.GET("/swagger/index.html", SwaggerProtection([]string{"10.0.0.0/8", "192.168.1.5"}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		remote string
		want   int
	}{
		{"10.1.2.3:5000", http.StatusOK},
		{"192.168.1.5:5000", http.StatusOK},
		{"192.168.1.6:5000", http.StatusForbidden},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
		req.RemoteAddr = tt.remote
		r.ServeHTTP(w, req)
		assert.Equal(t, tt.want, w.Code, tt.remote)
	}
}
