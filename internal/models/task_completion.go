package models

import (
	"time"
)

// TaskCompletion records that a user finished a specific task exactly once.
// The composite unique index is what makes concurrent duplicate claims lose:
// the second insert violates it and the surrounding transaction rolls back.
// Reward is a snapshot of the task's reward at completion time; later catalog
// edits never change it.
type TaskCompletion struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;uniqueIndex:idx_completions_user_task" json:"user_id"`
	User             *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TaskName         string    `gorm:"size:100;not null;uniqueIndex:idx_completions_user_task" json:"task_name"`
	Completed        bool      `gorm:"not null;default:true" json:"completed"`
	Reward           int64     `gorm:"not null" json:"reward"`
	VerificationData *string   `gorm:"type:text" json:"verification_data,omitempty"`
	Reviewed         *bool     `json:"reviewed,omitempty"`
	CompletedAt      time.Time `gorm:"autoCreateTime" json:"completed_at"`
}

// TableName specifies the table name for TaskCompletion model
func (TaskCompletion) TableName() string {
	return "task_completions"
}
