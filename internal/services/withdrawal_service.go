package services

import (
	"context"
	"errors"
	"log"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/chainscan"
	"airdrop-platform/internal/config"
	"airdrop-platform/internal/models"
	"airdrop-platform/internal/repository"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// WithdrawalService drives the withdrawal lifecycle:
// pending -> processing -> completed/failed, or pending -> rejected.
// Rejection and failure refund the reserved points in the transaction that
// flips the status.
type WithdrawalService struct {
	db      *gorm.DB
	repo    *repository.Repository
	cfg     config.WithdrawalConfig
	scanner *chainscan.Client
}

// NewWithdrawalService creates a new WithdrawalService
func NewWithdrawalService(db *gorm.DB, cfg config.WithdrawalConfig, scanner *chainscan.Client) *WithdrawalService {
	return &WithdrawalService{
		db:      db,
		repo:    repository.NewRepository(db),
		cfg:     cfg,
		scanner: scanner,
	}
}

// Request creates a pending withdrawal and reserves the points by debiting
// the balance in the same transaction.
func (s *WithdrawalService) Request(ctx context.Context, userID uint, amount int64) (*models.Withdrawal, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, err
	}

	if user.Banned {
		return nil, apperr.New(apperr.Forbidden, "account is banned")
	}
	if amount < s.cfg.MinAmount {
		return nil, apperr.New(apperr.BelowMinimum, "minimum withdrawal is %d tokens", s.cfg.MinAmount)
	}
	if user.WalletAddress == nil {
		return nil, apperr.New(apperr.Validation, "bind a wallet address before withdrawing")
	}

	withdrawal := models.Withdrawal{
		Reference:     uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		WalletAddress: *user.WalletAddress,
		Status:        models.WithdrawalStatusPending,
	}

	if err := s.repo.CreateWithdrawalAndDebit(ctx, &withdrawal); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, apperr.InsufficientBalance
		}
		return nil, err
	}

	log.Printf("Withdrawal %s created: user %d, %d tokens to %s",
		withdrawal.Reference, userID, amount, withdrawal.WalletAddress)
	return &withdrawal, nil
}

// Policy is the public withdrawal policy shown before requesting
type Policy struct {
	MinAmount     int64           `json:"minAmount"`
	NetworkFeeBNB decimal.Decimal `json:"networkFeeBnb"`
}

// GetPolicy returns the configured withdrawal policy
func (s *WithdrawalService) GetPolicy() Policy {
	return Policy{
		MinAmount:     s.cfg.MinAmount,
		NetworkFeeBNB: s.cfg.NetworkFeeBNB,
	}
}

// ListForUser returns the caller's withdrawals, newest first
func (s *WithdrawalService) ListForUser(ctx context.Context, userID uint) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&withdrawals).Error
	if err != nil {
		return nil, err
	}
	return withdrawals, nil
}

// ListAll returns all withdrawals for the admin console
func (s *WithdrawalService) ListAll(ctx context.Context, status string) ([]models.Withdrawal, error) {
	query := s.db.WithContext(ctx).Preload("User").Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var withdrawals []models.Withdrawal
	if err := query.Find(&withdrawals).Error; err != nil {
		return nil, err
	}
	return withdrawals, nil
}

// SubmitFeeProof records the network-fee transaction hash on a pending
// withdrawal. Status does not change; approval stays an admin decision. When
// a chainscan client is configured the hash is looked up best-effort and the
// result stored as a hint.
func (s *WithdrawalService) SubmitFeeProof(ctx context.Context, userID, withdrawalID uint, txHash string) (*models.Withdrawal, error) {
	if !txHashPattern.MatchString(txHash) {
		return nil, apperr.New(apperr.Validation, "invalid transaction hash")
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, err
	}
	if user.Banned {
		return nil, apperr.New(apperr.Forbidden, "account is banned")
	}

	withdrawal, err := s.getOwned(ctx, userID, withdrawalID)
	if err != nil {
		return nil, err
	}

	if withdrawal.Status != models.WithdrawalStatusPending {
		return nil, apperr.New(apperr.Validation, "fee proof can only be submitted while pending")
	}

	updates := map[string]interface{}{
		"fee_collected": true,
		"fee_tx_hash":   txHash,
	}

	if s.scanner.Enabled() {
		seen, err := s.scanner.TxExists(ctx, txHash)
		if err != nil {
			log.Printf("fee-proof lookup failed for %s: %v", txHash, err)
		} else {
			updates["fee_tx_seen"] = seen
		}
	}

	err = s.db.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("id = ?", withdrawalID).
		Updates(updates).Error
	if err != nil {
		return nil, err
	}

	return s.getOwned(ctx, userID, withdrawalID)
}

func (s *WithdrawalService) getOwned(ctx context.Context, userID, withdrawalID uint) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", withdrawalID, userID).
		First(&withdrawal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "withdrawal not found")
		}
		return nil, err
	}
	return &withdrawal, nil
}

// DecideInput carries an admin decision on a withdrawal
type DecideInput struct {
	Action          string `json:"action" binding:"required"` // approve, reject, complete, fail
	Notes           string `json:"notes"`
	RejectionReason string `json:"rejectionReason"`
	TxHash          string `json:"txHash"`
}

// Decide applies an admin decision. Transitions use conditional updates on
// the expected current status, so two admins racing on the same withdrawal
// cannot double-apply a refund or revive a terminal state.
func (s *WithdrawalService) Decide(ctx context.Context, adminID, withdrawalID uint, input DecideInput) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := s.db.WithContext(ctx).Where("id = ?", withdrawalID).First(&withdrawal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "withdrawal not found")
		}
		return nil, err
	}

	if withdrawal.Status.Terminal() {
		return nil, apperr.New(apperr.Validation, "withdrawal is already %s", withdrawal.Status)
	}

	now := time.Now()

	switch input.Action {
	case "approve":
		if withdrawal.Status != models.WithdrawalStatusPending {
			return nil, apperr.New(apperr.Validation, "only pending withdrawals can be approved")
		}
		if !withdrawal.FeeCollected {
			return nil, apperr.New(apperr.Validation, "network fee proof required before approval")
		}
		err = s.transition(ctx, withdrawalID, models.WithdrawalStatusPending, map[string]interface{}{
			"status":      models.WithdrawalStatusProcessing,
			"admin_notes": orNil(input.Notes),
			"approved_by": adminID,
			"approved_at": now,
		}, nil)

	case "reject":
		if withdrawal.Status != models.WithdrawalStatusPending {
			return nil, apperr.New(apperr.Validation, "only pending withdrawals can be rejected")
		}
		err = s.transition(ctx, withdrawalID, models.WithdrawalStatusPending, map[string]interface{}{
			"status":           models.WithdrawalStatusRejected,
			"rejection_reason": orNil(input.RejectionReason),
			"admin_notes":      orNil(input.Notes),
		}, &withdrawal)

	case "complete":
		if withdrawal.Status != models.WithdrawalStatusProcessing {
			return nil, apperr.New(apperr.Validation, "only processing withdrawals can be completed")
		}
		err = s.transition(ctx, withdrawalID, models.WithdrawalStatusProcessing, map[string]interface{}{
			"status":         models.WithdrawalStatusCompleted,
			"payout_tx_hash": orNil(input.TxHash),
			"admin_notes":    orNil(input.Notes),
		}, nil)

	case "fail":
		if withdrawal.Status != models.WithdrawalStatusProcessing {
			return nil, apperr.New(apperr.Validation, "only processing withdrawals can be failed")
		}
		err = s.transition(ctx, withdrawalID, models.WithdrawalStatusProcessing, map[string]interface{}{
			"status":      models.WithdrawalStatusFailed,
			"admin_notes": orNil(input.Notes),
		}, &withdrawal)

	default:
		return nil, apperr.New(apperr.Validation, "unknown action %q", input.Action)
	}

	if err != nil {
		return nil, err
	}

	log.Printf("Withdrawal %s: %s by admin %d", withdrawal.Reference, input.Action, adminID)

	var updated models.Withdrawal
	if err := s.db.WithContext(ctx).Where("id = ?", withdrawalID).First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// transition flips the status iff the row is still in the expected state.
// refund, when set, is applied in the same transaction.
func (s *WithdrawalService) transition(ctx context.Context, withdrawalID uint, expected models.WithdrawalStatus, updates map[string]interface{}, refund *models.Withdrawal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Withdrawal{}).
			Where("id = ? AND status = ?", withdrawalID, expected).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.Validation, "withdrawal changed state; reload and retry")
		}

		if refund != nil {
			return s.repo.RefundWithdrawal(tx, refund)
		}
		return nil
	})
}

func orNil(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
