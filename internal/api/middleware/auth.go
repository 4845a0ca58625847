package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	jwtpkg "github.com/driftline/market-sandbox/pkg/jwt"
)

const clientIDKey = "client_id"

// Auth guards operator endpoints with a bearer token issued by the token
// endpoint.
func Auth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := jwtManager.Verify(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(clientIDKey, claims.ClientID)
		c.Next()
	}
}

// GetClientID extracts the authenticated client id from the request context.
func GetClientID(c *gin.Context) (string, error) {
	value, exists := c.Get(clientIDKey)
	if !exists {
		return "", ErrClientNotFound
	}

	clientID, ok := value.(string)
	if !ok {
		return "", ErrInvalidClientID
	}
	return clientID, nil
}

var (
	ErrClientNotFound  = &AuthError{message: "client not found in context"}
	ErrInvalidClientID = &AuthError{message: "invalid client id in context"}
)

// AuthError represents an authentication error.
type AuthError struct {
	message string
}

func (e *AuthError) Error() string {
	return e.message
}
