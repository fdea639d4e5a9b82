package models

import (
	"time"
)

const (
	// ReferralReward is the point amount credited to the referrer, captured
	// as a snapshot on each Referral row.
	ReferralReward int64 = 5

	// MaxReferrals caps how many referrals a single account can be credited
	// for. Enforced at write time inside the referral transaction.
	MaxReferrals = 50
)

// Referral is the credit record for one referral relationship. A user can be
// referred at most once, at registration time only.
type Referral struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ReferrerID     uint      `gorm:"not null;index" json:"referrer_id"`
	Referrer       *User     `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`
	ReferredUserID uint      `gorm:"uniqueIndex;not null" json:"referred_user_id"`
	ReferredUser   *User     `gorm:"foreignKey:ReferredUserID" json:"referred_user,omitempty"`
	Amount         int64     `gorm:"not null" json:"amount"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for Referral model
func (Referral) TableName() string {
	return "referrals"
}
