package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/models"
	"airdrop-platform/internal/repository"
)

// AdminService implements the admin control surface. Callers are trusted to
// be admins (the middleware gates on an AdminUser row); there is no per-user
// ownership check here. Every mutation is appended to the audit log.
type AdminService struct {
	db   *gorm.DB
	repo *repository.Repository
}

// NewAdminService creates a new AdminService
func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{
		db:   db,
		repo: repository.NewRepository(db),
	}
}

// IsAdmin checks if a user is an admin
func (s *AdminService) IsAdmin(ctx context.Context, userID uint) bool {
	var admin models.AdminUser
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&admin)
	return result.Error == nil
}

// GetAdminByUserID gets admin by user ID
func (s *AdminService) GetAdminByUserID(ctx context.Context, userID uint) (*models.AdminUser, error) {
	var admin models.AdminUser
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// PromoteUserToAdmin promotes a user to admin
func (s *AdminService) PromoteUserToAdmin(ctx context.Context, userID uint, role string, promotedByAdminID uint) (*models.AdminUser, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, err
	}

	var existing models.AdminUser
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error; err == nil {
		return nil, apperr.New(apperr.Conflict, "user is already an admin")
	}

	adminUser := models.AdminUser{
		UserID: userID,
		Role:   role,
	}

	if err := s.db.WithContext(ctx).Create(&adminUser).Error; err != nil {
		return nil, fmt.Errorf("failed to promote user: %w", err)
	}

	s.LogAdminAction(ctx, promotedByAdminID, "PROMOTE_USER", "USER", &userID, map[string]interface{}{
		"role": role,
	})

	log.Printf("User %d promoted to %s", userID, role)
	return &adminUser, nil
}

// LogAdminAction logs an admin action
func (s *AdminService) LogAdminAction(ctx context.Context, adminID uint, action string, resourceType string,
	resourceID *uint, details map[string]interface{}) error {

	adminLog := models.AdminLog{
		AdminID:      adminID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      models.JSONB(details),
	}

	return s.db.WithContext(ctx).Create(&adminLog).Error
}

// GetAllUsers returns users with optional username filtering
func (s *AdminService) GetAllUsers(ctx context.Context, limit, offset int, search string) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	query := s.db.WithContext(ctx).Model(&models.User{})
	if search != "" {
		query = query.Where("lower(username) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	query.Count(&total)
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// BanUser bans a user. Idempotent.
func (s *AdminService) BanUser(ctx context.Context, adminID, userID uint, reason string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"banned":     true,
			"ban_reason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}

	s.LogAdminAction(ctx, adminID, "BAN_USER", "USER", &userID, map[string]interface{}{"reason": reason})
	log.Printf("User %d banned: %s", userID, reason)
	return nil
}

// UnbanUser lifts a ban. Idempotent.
func (s *AdminService) UnbanUser(ctx context.Context, adminID, userID uint) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"banned":     false,
			"ban_reason": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}

	s.LogAdminAction(ctx, adminID, "UNBAN_USER", "USER", &userID, nil)
	return nil
}

// ResetUserTokens zeroes a user's balances but keeps completion history
func (s *AdminService) ResetUserTokens(ctx context.Context, adminID, userID uint) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"total_points":    0,
			"referral_points": 0,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}

	s.LogAdminAction(ctx, adminID, "RESET_TOKENS", "USER", &userID, nil)
	return nil
}

// ResetUserTasks deletes a user's completions but keeps the balance
func (s *AdminService) ResetUserTasks(ctx context.Context, adminID, userID uint) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.TaskCompletion{}).Error
	if err != nil {
		return err
	}

	s.LogAdminAction(ctx, adminID, "RESET_TASKS", "USER", &userID, nil)
	return nil
}

// ResetUserData performs a full reset of one user: completions, balances,
// wallet and device identity. Referral rows are kept; they are part of other
// accounts' history.
func (s *AdminService) ResetUserData(ctx context.Context, adminID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.TaskCompletion{}).Error; err != nil {
			return err
		}

		result := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"total_points":    0,
				"referral_points": 0,
				"wallet_address":  nil,
				"ip_address":      nil,
				"fingerprint":     nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.NotFound, "user not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.LogAdminAction(ctx, adminID, "RESET_DATA", "USER", &userID, nil)
	return nil
}

// DeleteUser permanently removes a user and everything that references them
func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.TaskCompletion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("referrer_id = ? OR referred_user_id = ?", userID, userID).Delete(&models.Referral{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Withdrawal{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.AdminUser{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", userID).Delete(&models.User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.NotFound, "user not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.LogAdminAction(ctx, adminID, "DELETE_USER", "USER", &userID, nil)
	log.Printf("User %d deleted by admin %d", userID, adminID)
	return nil
}

// DeleteAllUsers wipes every account and their dependent rows. The admin
// rows themselves survive so the caller's session stays valid.
func (s *AdminService) DeleteAllUsers(ctx context.Context, adminID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.TaskCompletion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.Referral{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.Withdrawal{}).Error; err != nil {
			return err
		}
		return tx.Where("id NOT IN (?)",
			tx.Model(&models.AdminUser{}).Select("user_id"),
		).Delete(&models.User{}).Error
	})
	if err != nil {
		return err
	}

	s.LogAdminAction(ctx, adminID, "DELETE_ALL_USERS", "SYSTEM", nil, nil)
	log.Printf("All users deleted by admin %d", adminID)
	return nil
}

// ResetAllTasks deletes every completion system-wide, keeping balances
func (s *AdminService) ResetAllTasks(ctx context.Context, adminID uint) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&models.TaskCompletion{}).Error; err != nil {
		return err
	}

	s.LogAdminAction(ctx, adminID, "RESET_ALL_TASKS", "SYSTEM", nil, nil)
	log.Printf("All task completions reset by admin %d", adminID)
	return nil
}

// GetAdminLogs returns admin activity logs
func (s *AdminService) GetAdminLogs(ctx context.Context, limit, offset int) ([]models.AdminLog, error) {
	var logs []models.AdminLog
	err := s.db.WithContext(ctx).Preload("Admin").Preload("Admin.User").
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// GetPlatformStats returns platform statistics for a date, computing and
// caching the row on first request.
func (s *AdminService) GetPlatformStats(ctx context.Context, date time.Time) (*models.PlatformStats, error) {
	dateOnly := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	var stats models.PlatformStats
	result := s.db.WithContext(ctx).Where("date = ?", dateOnly).First(&stats)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		stats = s.calculatePlatformStats(ctx, dateOnly)
		if err := s.db.WithContext(ctx).Create(&stats).Error; err != nil {
			return nil, err
		}
		return &stats, nil
	}

	return &stats, result.Error
}

func (s *AdminService) calculatePlatformStats(ctx context.Context, date time.Time) models.PlatformStats {
	db := s.db.WithContext(ctx)

	var totalUsers, activeUsers, totalCompletions, pendingWithdrawals int64
	var pointsAwarded, pointsWithdrawn int64

	db.Model(&models.User{}).Count(&totalUsers)
	db.Model(&models.User{}).Where("updated_at >= ?", date).Count(&activeUsers)
	db.Model(&models.TaskCompletion{}).Count(&totalCompletions)
	db.Model(&models.Withdrawal{}).Where("status = ?", models.WithdrawalStatusPending).Count(&pendingWithdrawals)

	row := db.Model(&models.TaskCompletion{}).Select("COALESCE(SUM(reward), 0)").Row()
	row.Scan(&pointsAwarded)

	row = db.Model(&models.Withdrawal{}).
		Where("status = ?", models.WithdrawalStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").Row()
	row.Scan(&pointsWithdrawn)

	return models.PlatformStats{
		Date:               date,
		TotalUsers:         int(totalUsers),
		ActiveUsers:        int(activeUsers),
		TotalCompletions:   int(totalCompletions),
		PointsAwarded:      pointsAwarded,
		PointsWithdrawn:    pointsWithdrawn,
		PendingWithdrawals: int(pendingWithdrawals),
	}
}

// UserActivity returns the most recent completions across all users
func (s *AdminService) UserActivity(ctx context.Context, limit int) ([]models.TaskCompletion, error) {
	var completions []models.TaskCompletion
	err := s.db.WithContext(ctx).Preload("User").
		Order("completed_at DESC").Limit(limit).Find(&completions).Error
	if err != nil {
		return nil, err
	}
	return completions, nil
}

// TaskStat aggregates completion counts per catalog task
type TaskStat struct {
	TaskName      string `json:"task_name"`
	Completions   int64  `json:"completions"`
	PointsAwarded int64  `json:"points_awarded"`
}

// TaskStats returns per-task completion aggregates
func (s *AdminService) TaskStats(ctx context.Context) ([]TaskStat, error) {
	var stats []TaskStat
	err := s.db.WithContext(ctx).Model(&models.TaskCompletion{}).
		Select("task_name, COUNT(*) AS completions, COALESCE(SUM(reward), 0) AS points_awarded").
		Group("task_name").
		Order("points_awarded DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// TokenAllocation breaks down where awarded points sit
type TokenAllocation struct {
	TaskPoints      int64           `json:"task_points"`
	ReferralPoints  int64           `json:"referral_points"`
	WithdrawnPoints int64           `json:"withdrawn_points"`
	TaskShare       decimal.Decimal `json:"task_share"`
	ReferralShare   decimal.Decimal `json:"referral_share"`
	WithdrawnShare  decimal.Decimal `json:"withdrawn_share"`
}

// GetTokenAllocation computes the platform-wide token allocation breakdown
func (s *AdminService) GetTokenAllocation(ctx context.Context) (*TokenAllocation, error) {
	db := s.db.WithContext(ctx)

	var taskPoints, referralPoints, withdrawnPoints int64

	row := db.Model(&models.TaskCompletion{}).Select("COALESCE(SUM(reward), 0)").Row()
	if err := row.Scan(&taskPoints); err != nil {
		return nil, err
	}

	row = db.Model(&models.Referral{}).Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&referralPoints); err != nil {
		return nil, err
	}

	row = db.Model(&models.Withdrawal{}).
		Where("status = ?", models.WithdrawalStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&withdrawnPoints); err != nil {
		return nil, err
	}

	allocation := &TokenAllocation{
		TaskPoints:      taskPoints,
		ReferralPoints:  referralPoints,
		WithdrawnPoints: withdrawnPoints,
	}

	total := decimal.NewFromInt(taskPoints + referralPoints + withdrawnPoints)
	if total.IsZero() {
		return allocation, nil
	}

	hundred := decimal.NewFromInt(100)
	allocation.TaskShare = decimal.NewFromInt(taskPoints).Mul(hundred).DivRound(total, 2)
	allocation.ReferralShare = decimal.NewFromInt(referralPoints).Mul(hundred).DivRound(total, 2)
	allocation.WithdrawnShare = decimal.NewFromInt(withdrawnPoints).Mul(hundred).DivRound(total, 2)

	return allocation, nil
}

// PendingVerifications lists unreviewed completions awaiting admin review.
// Only tasks flagged for verification qualify; other completions carry
// payloads too (the wallet task stores the bound address) and must not enter
// the review queue.
func (s *AdminService) PendingVerifications(ctx context.Context) ([]models.TaskCompletion, error) {
	var completions []models.TaskCompletion
	err := s.db.WithContext(ctx).Preload("User").
		Joins("JOIN tasks ON tasks.name = task_completions.task_name AND tasks.requires_verification = ?", true).
		Where("task_completions.verification_data IS NOT NULL AND task_completions.reviewed IS NULL").
		Order("task_completions.completed_at ASC").
		Find(&completions).Error
	if err != nil {
		return nil, err
	}
	return completions, nil
}

// checkReviewable rejects review decisions on completions whose task is not
// flagged for verification.
func (s *AdminService) checkReviewable(ctx context.Context, completionID uint) error {
	var completion models.TaskCompletion
	if err := s.db.WithContext(ctx).Where("id = ?", completionID).First(&completion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "completion not found")
		}
		return err
	}

	var task models.Task
	if err := s.db.WithContext(ctx).Where("name = ?", completion.TaskName).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "task not found")
		}
		return err
	}
	if !task.RequiresVerification {
		return apperr.New(apperr.Validation, "completion is not subject to verification review")
	}
	return nil
}

// ApproveVerification marks a completion's verification payload as reviewed
func (s *AdminService) ApproveVerification(ctx context.Context, adminID, completionID uint) error {
	if err := s.checkReviewable(ctx, completionID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Model(&models.TaskCompletion{}).
		Where("id = ?", completionID).
		Update("reviewed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "completion not found")
	}

	s.LogAdminAction(ctx, adminID, "APPROVE_VERIFICATION", "COMPLETION", &completionID, nil)
	return nil
}

// RejectVerification revokes a completion and takes back its snapshot reward
func (s *AdminService) RejectVerification(ctx context.Context, adminID, completionID uint) error {
	if err := s.checkReviewable(ctx, completionID); err != nil {
		return err
	}

	err := s.repo.RevokeCompletionAndDebit(ctx, completionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "completion not found")
		}
		return err
	}

	s.LogAdminAction(ctx, adminID, "REJECT_VERIFICATION", "COMPLETION", &completionID, nil)
	return nil
}
