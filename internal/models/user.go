package models

import (
	"time"
)

// User represents a registered airdrop participant.
// TotalPoints is the spendable balance; ReferralPoints is a lifetime-earned
// counter that only grows with referral credits. Debits (withdrawals,
// revocations) reduce TotalPoints alone, so TotalPoints can legitimately drop
// below ReferralPoints. Both are mutated with atomic column increments, never
// read-modify-write.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	WalletAddress  *string   `gorm:"uniqueIndex;size:64" json:"wallet_address,omitempty"`
	ReferralCode   string    `gorm:"uniqueIndex;size:50;not null" json:"referral_code"`
	ReferredBy     *string   `gorm:"size:50" json:"referred_by,omitempty"`
	TotalPoints    int64     `gorm:"not null;default:0" json:"total_points"`
	ReferralPoints int64     `gorm:"not null;default:0" json:"referral_points"`
	ReferralCount  int       `gorm:"not null;default:0" json:"referral_count"`
	IPAddress      *string   `gorm:"size:45" json:"-"`
	Fingerprint    *string   `gorm:"size:128" json:"-"`
	Banned         bool      `gorm:"default:false" json:"banned"`
	BanReason      *string   `gorm:"type:text" json:"ban_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
