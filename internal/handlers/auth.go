package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/auth"
	"airdrop-platform/internal/services"
	"airdrop-platform/internal/utils"
)

// AuthHandler handles registration and session endpoints
type AuthHandler struct {
	accounts *services.AccountService
	botToken string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts *services.AccountService, botToken string) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		botToken: botToken,
	}
}

// Register creates an account and issues a session token.
// POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username      string `json:"username"`
		WalletAddress string `json:"walletAddress"`
		ReferredBy    string `json:"referredBy"`
		Fingerprint   string `json:"fingerprint"`
		CaptchaToken  string `json:"captchaToken"`
		BotToken      string `json:"botToken"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request: " + err.Error()})
		return
	}

	// The captcha is solved client-side; the server only refuses requests
	// that skipped the widget entirely.
	if strings.TrimSpace(req.CaptchaToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "captcha verification required"})
		return
	}

	botOrigin := h.botToken != "" && req.BotToken == h.botToken

	username := strings.TrimSpace(req.Username)
	if username == "" && botOrigin {
		generated, err := utils.GenerateUsername()
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		username = generated
	}

	user, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		Username:      username,
		WalletAddress: req.WalletAddress,
		ReferredBy:    req.ReferredBy,
		IPAddress:     c.ClientIP(),
		Fingerprint:   req.Fingerprint,
		BotOrigin:     botOrigin,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  user,
	})
}

// Login resolves a username and issues a fresh session token.
// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request: " + err.Error()})
		return
	}

	user, err := h.accounts.Login(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout handles user logout (stateless JWT, client-side only)
// POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out",
	})
}
