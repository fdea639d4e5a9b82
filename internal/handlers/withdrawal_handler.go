package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/auth"
	"airdrop-platform/internal/services"
)

// WithdrawalHandler handles user-facing withdrawal endpoints
type WithdrawalHandler struct {
	withdrawals *services.WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler
func NewWithdrawalHandler(withdrawals *services.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawals: withdrawals,
	}
}

// GetConfig returns the public withdrawal policy.
// GET /api/withdrawals/config
func (h *WithdrawalHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"config": h.withdrawals.GetPolicy()})
}

// Create requests a withdrawal of tokens to the bound wallet.
// POST /api/withdrawals
func (h *WithdrawalHandler) Create(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	var req struct {
		Amount int64 `json:"amount" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request: " + err.Error()})
		return
	}

	withdrawal, err := h.withdrawals.Request(c.Request.Context(), userID, req.Amount)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"withdrawal": withdrawal})
}

// List returns the caller's withdrawals, newest first.
// GET /api/withdrawals
func (h *WithdrawalHandler) List(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	withdrawals, err := h.withdrawals.ListForUser(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawals": withdrawals})
}

// SubmitFee records the network-fee transaction hash on a pending withdrawal.
// POST /api/withdrawals/:id/fee
func (h *WithdrawalHandler) SubmitFee(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	withdrawalID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid withdrawal id"})
		return
	}

	var req struct {
		TxHash string `json:"txHash" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request: " + err.Error()})
		return
	}

	withdrawal, err := h.withdrawals.SubmitFeeProof(c.Request.Context(), userID, uint(withdrawalID), req.TxHash)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawal})
}
