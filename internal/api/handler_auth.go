package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"device-allocation-backend/internal/auth"
	"device-allocation-backend/internal/mw"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.directory.Authenticate(req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, expires, err := h.issuer.Issue(user)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Info("user logged in", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": expires.UTC(), "user": user})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := mw.Claims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	user, err := h.directory.Lookup(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
