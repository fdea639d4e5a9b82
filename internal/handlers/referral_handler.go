package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/auth"
	"airdrop-platform/internal/services"
)

// ReferralHandler handles referral endpoints
type ReferralHandler struct {
	referrals *services.ReferralService
}

// NewReferralHandler creates a new ReferralHandler
func NewReferralHandler(referrals *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{
		referrals: referrals,
	}
}

// GetStats returns the caller's referral summary.
// GET /api/referrals
func (h *ReferralHandler) GetStats(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	stats, err := h.referrals.GetStats(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
