package models

import (
	"time"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
)

// Terminal reports whether no further transitions are accepted from s.
func (s WithdrawalStatus) Terminal() bool {
	switch s {
	case WithdrawalStatusCompleted, WithdrawalStatusFailed, WithdrawalStatusRejected:
		return true
	}
	return false
}

// Withdrawal is a request to move earned points off-platform. The amount is
// debited from the user's balance in the same transaction that creates the
// row, and refunded when the request is rejected or fails.
type Withdrawal struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Reference       string           `gorm:"uniqueIndex;size:36;not null" json:"reference"`
	UserID          uint             `gorm:"not null;index" json:"user_id"`
	User            *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount          int64            `gorm:"not null" json:"amount"`
	WalletAddress   string           `gorm:"size:64;not null" json:"wallet_address"`
	Status          WithdrawalStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	FeeCollected    bool             `gorm:"default:false" json:"fee_collected"`
	FeeTxHash       *string          `gorm:"size:80" json:"fee_tx_hash,omitempty"`
	FeeTxSeen       *bool            `json:"fee_tx_seen,omitempty"`
	PayoutTxHash    *string          `gorm:"size:80" json:"payout_tx_hash,omitempty"`
	AdminNotes      *string          `gorm:"type:text" json:"admin_notes,omitempty"`
	RejectionReason *string          `gorm:"type:text" json:"rejection_reason,omitempty"`
	ApprovedBy      *uint            `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName specifies the table name for Withdrawal model
func (Withdrawal) TableName() string {
	return "withdrawals"
}
