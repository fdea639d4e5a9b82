package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSONB for PostgreSQL JSON support
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &j)
}

// AdminUser marks a user as an admin. The admin surface is gated on the
// existence of this row, never on the route path alone.
type AdminUser struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"size:20;not null" json:"role"` // SUPER_ADMIN, MODERATOR
	CreatedAt time.Time `json:"created_at"`
}

func (AdminUser) TableName() string {
	return "admin_users"
}

// AdminLog records admin actions for audit trail
type AdminLog struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AdminID      uint       `gorm:"not null;index" json:"admin_id"`
	Admin        *AdminUser `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	Action       string     `gorm:"size:100;not null" json:"action"`
	ResourceType string     `gorm:"size:50" json:"resource_type"`
	ResourceID   *uint      `json:"resource_id"`
	Details      JSONB      `gorm:"type:jsonb" json:"details"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (AdminLog) TableName() string {
	return "admin_logs"
}

// PlatformStats stores daily platform statistics
type PlatformStats struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Date               time.Time `gorm:"uniqueIndex;not null" json:"date"`
	TotalUsers         int       `gorm:"default:0" json:"total_users"`
	ActiveUsers        int       `gorm:"default:0" json:"active_users"`
	TotalCompletions   int       `gorm:"default:0" json:"total_completions"`
	PointsAwarded      int64     `gorm:"default:0" json:"points_awarded"`
	PointsWithdrawn    int64     `gorm:"default:0" json:"points_withdrawn"`
	PendingWithdrawals int       `gorm:"default:0" json:"pending_withdrawals"`
	CreatedAt          time.Time `json:"created_at"`
}

func (PlatformStats) TableName() string {
	return "platform_stats"
}
