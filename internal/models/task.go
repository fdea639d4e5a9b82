package models

import (
	"time"
)

// TaskWalletSubmit is the catalog task whose verification payload is the
// user's wallet address.
const TaskWalletSubmit = "wallet_submit"

// Task is a catalog definition, not a per-user record. Name is the stable key
// referenced by completions. Removal deactivates the task instead of deleting
// it, so historical completions and awarded points stay intact.
type Task struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Name                 string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description          string    `gorm:"type:text" json:"description"`
	Reward               int64     `gorm:"not null" json:"reward"`
	Required             bool      `gorm:"default:false" json:"required"`
	Icon                 string    `gorm:"size:100" json:"icon"`
	Link                 *string   `gorm:"size:500" json:"link,omitempty"`
	RequiresVerification bool      `gorm:"default:false" json:"requires_verification"`
	Active               bool      `gorm:"default:true;index" json:"active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName specifies the table name for Task model
func (Task) TableName() string {
	return "tasks"
}
