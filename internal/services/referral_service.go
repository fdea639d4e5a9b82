package services

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/models"
	"airdrop-platform/internal/repository"
)

// ReferralService credits referrers when accounts they invited register
type ReferralService struct {
	db   *gorm.DB
	repo *repository.Repository
}

// NewReferralService creates a new ReferralService
func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{
		db:   db,
		repo: repository.NewRepository(db),
	}
}

// Apply resolves referrerCode and credits the referrer for newUser's
// registration. An unknown code, a self-referral, a referrer at the cap, or
// an account that was already referred all no-op silently: registration must
// never fail because of the referral leg.
func (s *ReferralService) Apply(ctx context.Context, referrerCode string, newUser *models.User) *models.Referral {
	var referrer models.User
	err := s.db.WithContext(ctx).Where("referral_code = ?", referrerCode).First(&referrer).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("referral lookup failed for code %q: %v", referrerCode, err)
		}
		return nil
	}

	if referrer.ID == newUser.ID {
		return nil
	}

	referral := models.Referral{
		ReferrerID:     referrer.ID,
		ReferredUserID: newUser.ID,
		Amount:         models.ReferralReward,
	}

	if err := s.repo.CreateReferralAndCredit(ctx, &referral); err != nil {
		switch {
		case errors.Is(err, repository.ErrReferralCapReached):
			log.Printf("referral cap reached for user %d; skipping credit for user %d", referrer.ID, newUser.ID)
		case errors.Is(err, gorm.ErrDuplicatedKey):
			log.Printf("user %d already has a referrer; skipping", newUser.ID)
		default:
			log.Printf("failed to create referral for user %d: %v", newUser.ID, err)
		}
		return nil
	}

	log.Printf("Referral credited: user %d referred by %s (+%d points)",
		newUser.ID, referrer.Username, referral.Amount)
	return &referral
}

// ReferralStats holds the referral summary returned to the referrer.
// ReferralTokens is the lifetime amount earned through referrals; withdrawals
// do not reduce it.
type ReferralStats struct {
	ReferralCode   string            `json:"referralCode"`
	ReferralCount  int               `json:"referralCount"`
	ReferralTokens int64             `json:"referralTokens"`
	MaxReferrals   int               `json:"maxReferrals"`
	Referrals      []models.Referral `json:"referrals"`
}

// GetStats returns the referral summary for a user
func (s *ReferralService) GetStats(ctx context.Context, userID uint) (*ReferralStats, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, err
	}

	referrals, err := s.repo.GetReferrerReferrals(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ReferralStats{
		ReferralCode:   user.ReferralCode,
		ReferralCount:  user.ReferralCount,
		ReferralTokens: user.ReferralPoints,
		MaxReferrals:   models.MaxReferrals,
		Referrals:      referrals,
	}, nil
}
