package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/service"
)

type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	authResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, "account")
		return
	}

	c.JSON(http.StatusOK, authResp)
}

// Signup handles POST /api/v1/auth/signup. The account stays pending
// until an admin approves it, so no tokens are returned.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	authResp, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, "account")
		return
	}

	c.JSON(http.StatusCreated, authResp)
}

// Logout handles POST /api/v1/auth/logout. Tokens are dropped client side;
// the server only records the event.
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), user); err != nil {
		writeError(c, err, "session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}
