package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	jwtpkg "github.com/driftline/market-sandbox/pkg/jwt"
)

// AuthHandler issues tokens for the operator endpoints.
type AuthHandler struct {
	jwtManager *jwtpkg.Manager
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(jwtManager *jwtpkg.Manager) *AuthHandler {
	return &AuthHandler{jwtManager: jwtManager}
}

type tokenRequest struct {
	ClientID string `json:"client_id" binding:"required,min=3,max=64"`
}

// Token issues a short-lived bearer token for a client id.
// POST /api/v1/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id is required"})
		return
	}

	token, err := h.jwtManager.Generate(req.ClientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int64(h.jwtManager.Expiry().Seconds()),
	})
}
