package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quickcert/certbackend/models"
)

const principalKey = "principal"

// Authenticator verifies a raw bearer token.
type Authenticator interface {
	Authenticate(token string) (models.Principal, error)
}

// AuthMiddleware rejects requests without a bearer token (401) or with one
// that fails verification (403, carrying the verifier's message).
func AuthMiddleware(auth Authenticator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, tokenStr, _ := strings.Cut(header, " ")
		tokenStr = strings.TrimSpace(tokenStr)
		if !strings.EqualFold(scheme, "Bearer") || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token missing"})
			return
		}

		principal, err := auth.Authenticate(tokenStr)
		if err != nil {
			logger.Warn("token verification failed",
				slog.String("path", c.FullPath()),
				slog.String("error", err.Error()),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": err.Error()})
			return
		}

		c.Set(principalKey, principal)
		c.Set("userID", principal.ID)
		c.Set("role", string(principal.Role))
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok || !slices.Contains(roles, p.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "You don't have permission to view this."})
			return
		}
		c.Next()
	}
}
