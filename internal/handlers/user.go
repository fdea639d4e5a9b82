package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/auth"
	"airdrop-platform/internal/models"
	"airdrop-platform/internal/services"
)

// UserHandler handles account endpoints
type UserHandler struct {
	accounts *services.AccountService
	tasks    *services.TaskService
	admins   *services.AdminService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(accounts *services.AccountService, tasks *services.TaskService, admins *services.AdminService) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		tasks:    tasks,
		admins:   admins,
	}
}

// GetProfile returns the current user's account with completion history.
// GET /api/user
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	user, completions, err := h.accounts.GetUserWithCompletions(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	response := gin.H{
		"user":        user,
		"completions": completions,
	}
	if h.admins.IsAdmin(c.Request.Context(), userID) {
		response["role"] = "admin"
	}

	c.JSON(http.StatusOK, response)
}

// SetWallet binds a wallet address and auto-completes the wallet task.
// POST /api/wallet
func (h *UserHandler) SetWallet(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	var req struct {
		WalletAddress string `json:"walletAddress" binding:"required"`
		CaptchaToken  string `json:"captchaToken"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request: " + err.Error()})
		return
	}

	if strings.TrimSpace(req.CaptchaToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "captcha verification required"})
		return
	}

	user, err := h.accounts.SetWalletAddress(c.Request.Context(), userID, req.WalletAddress)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	// Binding a wallet is itself a catalog task. Completing it a second time
	// is a no-op; the bind above already succeeded.
	address := *user.WalletAddress
	result, err := h.tasks.CompleteTask(c.Request.Context(), userID, models.TaskWalletSubmit, &address)
	if err != nil && !errors.Is(err, apperr.AlreadyCompleted) && !errors.Is(err, apperr.NotFound) {
		apperr.Respond(c, err)
		return
	}

	if result != nil {
		c.JSON(http.StatusOK, gin.H{
			"user":        result.User,
			"completions": result.Completions,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
