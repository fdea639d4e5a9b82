package repository

import (
	"context"
	"errors"

	"airdrop-platform/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrInsufficientBalance is returned when a conditional debit touches no
	// rows because the balance guard failed.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrReferralCapReached is returned when the referrer already holds the
	// maximum number of credited referrals.
	ErrReferralCapReached = errors.New("referral cap reached")
)

// Repository owns the ledger's transactional primitives. Every balance
// mutation in here is an atomic column increment guarded by the surrounding
// transaction; callers never read-modify-write point balances.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetActiveTaskByName retrieves an active catalog task by its stable name
func (r *Repository) GetActiveTaskByName(ctx context.Context, name string) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Where("name = ? AND active = ?", name, true).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetCompletion retrieves a completion for a (user, task) pair
func (r *Repository) GetCompletion(ctx context.Context, userID uint, taskName string) (*models.TaskCompletion, error) {
	var completion models.TaskCompletion
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND task_name = ?", userID, taskName).
		First(&completion).Error
	if err != nil {
		return nil, err
	}
	return &completion, nil
}

// GetUserCompletions retrieves all completions for a user, newest first
func (r *Repository) GetUserCompletions(ctx context.Context, userID uint) ([]models.TaskCompletion, error) {
	var completions []models.TaskCompletion
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Find(&completions).Error
	if err != nil {
		return nil, err
	}
	return completions, nil
}

// CreateCompletionAndCredit inserts a completion snapshot and credits the
// user's balance in one transaction. Concurrent duplicates for the same
// (user, task) pair hit the unique index, the transaction rolls back whole,
// and gorm.ErrDuplicatedKey is returned, so exactly one credit survives.
func (r *Repository) CreateCompletionAndCredit(ctx context.Context, completion *models.TaskCompletion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(completion).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ?", completion.UserID).
			Update("total_points", gorm.Expr("total_points + ?", completion.Reward)).Error
	})
}

// RevokeCompletionAndDebit removes a completion and takes back its snapshot
// reward in one transaction. The balance never goes below zero.
func (r *Repository) RevokeCompletionAndDebit(ctx context.Context, completionID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var completion models.TaskCompletion
		if err := tx.Where("id = ?", completionID).First(&completion).Error; err != nil {
			return err
		}

		if err := tx.Delete(&completion).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ?", completion.UserID).
			Update("total_points", gorm.Expr(
				"CASE WHEN total_points >= ? THEN total_points - ? ELSE 0 END",
				completion.Reward, completion.Reward,
			)).Error
	})
}

// CreateReferralAndCredit inserts a referral row and credits the referrer's
// balance and counters in one transaction. Returns ErrReferralCapReached when
// the referrer already holds MaxReferrals credited referrals; the unique
// index on referred_user_id rejects a second referral for the same account.
func (r *Repository) CreateReferralAndCredit(ctx context.Context, referral *models.Referral) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Referral{}).
			Where("referrer_id = ?", referral.ReferrerID).
			Count(&count).Error
		if err != nil {
			return err
		}

		if count >= models.MaxReferrals {
			return ErrReferralCapReached
		}

		if err := tx.Create(referral).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ?", referral.ReferrerID).
			Updates(map[string]interface{}{
				"total_points":    gorm.Expr("total_points + ?", referral.Amount),
				"referral_points": gorm.Expr("referral_points + ?", referral.Amount),
				"referral_count":  gorm.Expr("referral_count + 1"),
			}).Error
	})
}

// GetReferrerReferrals retrieves all referrals credited to a referrer
func (r *Repository) GetReferrerReferrals(ctx context.Context, referrerID uint) ([]models.Referral, error) {
	var referrals []models.Referral
	err := r.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Preload("ReferredUser").
		Order("created_at DESC").
		Find(&referrals).Error
	if err != nil {
		return nil, err
	}
	return referrals, nil
}

// CreateWithdrawalAndDebit reserves the requested amount by debiting the
// balance and creating the pending withdrawal in one transaction. The debit
// is conditional on the balance covering the amount, so concurrent requests
// cannot overdraw.
func (r *Repository) CreateWithdrawalAndDebit(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ? AND total_points >= ?", withdrawal.UserID, withdrawal.Amount).
			Update("total_points", gorm.Expr("total_points - ?", withdrawal.Amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		return tx.Create(withdrawal).Error
	})
}

// RefundWithdrawal returns a withdrawal's amount to the user's balance.
// Must run inside the transaction that flips the status, so a crash cannot
// leave the refund half-applied.
func (r *Repository) RefundWithdrawal(tx *gorm.DB, withdrawal *models.Withdrawal) error {
	return tx.Model(&models.User{}).
		Where("id = ?", withdrawal.UserID).
		Update("total_points", gorm.Expr("total_points + ?", withdrawal.Amount)).Error
}
