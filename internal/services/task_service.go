package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/models"
	"airdrop-platform/internal/repository"
)

// TaskService owns the catalog and the completion workflow
type TaskService struct {
	db       *gorm.DB
	repo     *repository.Repository
	accounts *AccountService
}

// NewTaskService creates a new TaskService
func NewTaskService(db *gorm.DB, accounts *AccountService) *TaskService {
	return &TaskService{
		db:       db,
		repo:     repository.NewRepository(db),
		accounts: accounts,
	}
}

// ListTasks returns the active catalog, required tasks first
func (s *TaskService) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("required DESC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask returns an active task by name
func (s *TaskService) GetTask(ctx context.Context, name string) (*models.Task, error) {
	task, err := s.repo.GetActiveTaskByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "task not found")
		}
		return nil, err
	}
	return task, nil
}

// CompleteResult is the refreshed account view returned after a completion
type CompleteResult struct {
	User        *models.User            `json:"user"`
	Completions []models.TaskCompletion `json:"completions"`
	Completion  *models.TaskCompletion  `json:"completion"`
}

// CompleteTask runs the completion workflow: resolve the task, reject
// duplicates, handle the two-phase verification flow, record the snapshot and
// credit the reward. The insert and the credit share one transaction, and the
// unique completion index settles concurrent duplicates.
func (s *TaskService) CompleteTask(ctx context.Context, userID uint, taskName string, verificationData *string) (*CompleteResult, error) {
	user, err := s.accounts.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Banned {
		return nil, apperr.New(apperr.Forbidden, "account is banned")
	}

	task, err := s.GetTask(ctx, taskName)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetCompletion(ctx, userID, taskName); err == nil {
		return nil, apperr.AlreadyCompleted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	payload := ""
	if verificationData != nil {
		payload = strings.TrimSpace(*verificationData)
	}

	if task.RequiresVerification && payload == "" {
		return nil, apperr.PendingVerification
	}

	// The wallet task's payload is the wallet address itself; bind it before
	// recording the completion so a rejected address never awards points.
	if task.Name == models.TaskWalletSubmit {
		if payload == "" {
			return nil, apperr.New(apperr.Validation, "wallet address is required")
		}
		bound, err := s.accounts.SetWalletAddress(ctx, userID, payload)
		if err != nil {
			return nil, err
		}
		payload = *bound.WalletAddress
	}

	completion := models.TaskCompletion{
		UserID:    userID,
		TaskName:  task.Name,
		Completed: true,
		Reward:    task.Reward,
	}
	if payload != "" {
		completion.VerificationData = &payload
	}

	if err := s.repo.CreateCompletionAndCredit(ctx, &completion); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.AlreadyCompleted
		}
		return nil, err
	}

	log.Printf("Task %s completed by user %d (+%d points)", task.Name, userID, task.Reward)

	refreshed, completions, err := s.accounts.GetUserWithCompletions(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &CompleteResult{
		User:        refreshed,
		Completions: completions,
		Completion:  &completion,
	}, nil
}

// TaskInput carries admin create/update fields
type TaskInput struct {
	Name                 string  `json:"name" binding:"required"`
	Description          string  `json:"description"`
	Reward               int64   `json:"reward" binding:"required"`
	Required             bool    `json:"required"`
	Icon                 string  `json:"icon"`
	Link                 *string `json:"link"`
	RequiresVerification bool    `json:"requires_verification"`
}

// CreateTask adds a catalog task (admin only)
func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*models.Task, error) {
	if input.Reward < 0 {
		return nil, apperr.New(apperr.Validation, "reward must not be negative")
	}

	task := models.Task{
		Name:                 input.Name,
		Description:          input.Description,
		Reward:               input.Reward,
		Required:             input.Required,
		Icon:                 input.Icon,
		Link:                 input.Link,
		RequiresVerification: input.RequiresVerification,
		Active:               true,
	}

	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.Conflict, "task name already exists")
		}
		return nil, err
	}

	return &task, nil
}

// UpdateTask edits a catalog task. The name is immutable once referenced by
// completions; reward changes never rewrite recorded snapshots.
func (s *TaskService) UpdateTask(ctx context.Context, taskID uint, input TaskInput) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "task not found")
		}
		return nil, err
	}

	if input.Name != task.Name {
		var count int64
		err := s.db.WithContext(ctx).Model(&models.TaskCompletion{}).
			Where("task_name = ?", task.Name).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, apperr.New(apperr.Validation, "task name cannot change once completions reference it")
		}
	}

	if input.Reward < 0 {
		return nil, apperr.New(apperr.Validation, "reward must not be negative")
	}

	task.Name = input.Name
	task.Description = input.Description
	task.Reward = input.Reward
	task.Required = input.Required
	task.Icon = input.Icon
	task.Link = input.Link
	task.RequiresVerification = input.RequiresVerification

	if err := s.db.WithContext(ctx).Save(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.Conflict, "task name already exists")
		}
		return nil, err
	}

	return &task, nil
}

// DeactivateTask removes a task from the catalog. Completions and awarded
// points are kept: history stays intact and nothing is clawed back.
func (s *TaskService) DeactivateTask(ctx context.Context, taskID uint) error {
	result := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", taskID).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "task not found")
	}
	return nil
}

// ListAllTasks returns the full catalog including deactivated tasks (admin)
func (s *TaskService) ListAllTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
