package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fvorders/fvorders-api/logging"
	"github.com/fvorders/fvorders-api/services"
)

// LoginRequest represents the request body for admin login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthController issues admin tokens
type AuthController struct {
	admins *services.AdminAuthenticator
	tokens *services.TokenIssuer
}

func NewAuthController(admins *services.AdminAuthenticator, tokens *services.TokenIssuer) *AuthController {
	return &AuthController{admins: admins, tokens: tokens}
}

// Login handles POST /api/admin/login
func (a *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "email and password are required")
		return
	}

	if !a.admins.Authenticate(req.Email, req.Password) {
		logging.FromContext(c.Request.Context()).Warn("admin login failed")
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	token, expiresAt, err := a.tokens.Issue(req.Email)
	if err != nil {
		respondInternal(c, "TOKEN_ERROR", "Failed to issue token", err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt})
}
