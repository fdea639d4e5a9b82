package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/config"
	"airdrop-platform/internal/models"
)

func newWithdrawalService(db *gorm.DB) *WithdrawalService {
	cfg := config.WithdrawalConfig{
		MinAmount:     10,
		NetworkFeeBNB: decimal.RequireFromString("0.0015"),
	}
	return NewWithdrawalService(db, cfg, nil)
}

// fundedWallets makes each fundedUser bind a distinct address: the wallet
// column is unique system-wide, so a shared constant would collide when a
// test funds more than one user.
var fundedWallets uint64

func fundedUser(t *testing.T, db *gorm.DB, username string, balance int64) *models.User {
	user := registerUser(t, db, username)
	address := fmt.Sprintf("0x%040x", atomic.AddUint64(&fundedWallets, 1))
	bound, err := newAccountService(db).SetWalletAddress(context.Background(), user.ID, address)
	if err != nil {
		t.Fatalf("SetWalletAddress failed: %v", err)
	}
	db.Model(&models.User{}).Where("id = ?", user.ID).Update("total_points", balance)
	bound.TotalPoints = balance
	return bound
}

func TestWithdrawalRequestDebitsBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)
	user := fundedUser(t, db, "alice", 100)

	withdrawal, err := svc.Request(context.Background(), user.ID, 40)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if withdrawal.Status != models.WithdrawalStatusPending {
		t.Errorf("expected pending, got %s", withdrawal.Status)
	}
	if withdrawal.Reference == "" {
		t.Error("expected a reference")
	}
	if withdrawal.WalletAddress != *user.WalletAddress {
		t.Errorf("destination should be the bound wallet")
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	if fresh.TotalPoints != 60 {
		t.Errorf("expected balance 60 after reserve, got %d", fresh.TotalPoints)
	}
}

func TestWithdrawalKeepsLifetimeReferralEarnings(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)
	accounts := newAccountService(db)

	referrer := registerUser(t, db, "alice")
	for i := 0; i < 10; i++ {
		if _, err := accounts.Register(context.Background(), RegisterInput{
			Username:   fmt.Sprintf("invitee_%d", i),
			ReferredBy: "alice",
		}); err != nil {
			t.Fatalf("Register invitee %d failed: %v", i, err)
		}
	}

	address := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	if _, err := accounts.SetWalletAddress(context.Background(), referrer.ID, address); err != nil {
		t.Fatalf("SetWalletAddress failed: %v", err)
	}

	earned := int64(10) * models.ReferralReward
	if _, err := svc.Request(context.Background(), referrer.ID, 40); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	var fresh models.User
	db.First(&fresh, referrer.ID)

	// The spendable balance drops; the lifetime referral counter does not.
	if fresh.TotalPoints != earned-40 {
		t.Errorf("expected balance %d, got %d", earned-40, fresh.TotalPoints)
	}
	if fresh.ReferralPoints != earned {
		t.Errorf("referral earnings changed on withdrawal: got %d, want %d", fresh.ReferralPoints, earned)
	}
	if fresh.TotalPoints < 0 || fresh.ReferralPoints < 0 {
		t.Errorf("negative balance after withdrawal: total=%d referral=%d", fresh.TotalPoints, fresh.ReferralPoints)
	}

	// The counter still matches the sum of referral rows
	var rowSum int64
	db.Model(&models.Referral{}).Where("referrer_id = ?", referrer.ID).
		Select("COALESCE(SUM(amount), 0)").Row().Scan(&rowSum)
	if rowSum != fresh.ReferralPoints {
		t.Errorf("referral_points (%d) diverged from referral row sum (%d)", fresh.ReferralPoints, rowSum)
	}

	// And the stats surface reports lifetime earnings
	stats, err := NewReferralService(db).GetStats(context.Background(), referrer.ID)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.ReferralTokens != earned {
		t.Errorf("stats referral tokens: got %d, want %d", stats.ReferralTokens, earned)
	}
}

func TestWithdrawalRequestBelowMinimum(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)
	user := fundedUser(t, db, "alice", 100)

	_, err := svc.Request(context.Background(), user.ID, 9)
	if !errors.Is(err, apperr.BelowMinimum) {
		t.Fatalf("expected BelowMinimum, got %v", err)
	}
}

func TestWithdrawalRequestInsufficientBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)
	user := fundedUser(t, db, "alice", 30)

	_, err := svc.Request(context.Background(), user.ID, 40)
	if !errors.Is(err, apperr.InsufficientBalance) {
		t.Fatalf("expected InsufficientBalance, got %v", err)
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	if fresh.TotalPoints != 30 {
		t.Errorf("balance changed on failed request: got %d", fresh.TotalPoints)
	}

	var count int64
	db.Model(&models.Withdrawal{}).Count(&count)
	if count != 0 {
		t.Errorf("withdrawal row created despite failed debit")
	}
}

func TestWithdrawalRequestWithoutWallet(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)
	user := registerUser(t, db, "alice")
	db.Model(&models.User{}).Where("id = ?", user.ID).Update("total_points", 100)

	_, err := svc.Request(context.Background(), user.ID, 40)
	if !errors.Is(err, apperr.Validation) {
		t.Fatalf("expected Validation without a wallet, got %v", err)
	}
}

func TestWithdrawalFeeProof(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)
	user := fundedUser(t, db, "alice", 100)

	withdrawal, err := svc.Request(context.Background(), user.ID, 40)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	txHash := "0x" + "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"
	updated, err := svc.SubmitFeeProof(context.Background(), user.ID, withdrawal.ID, txHash)
	if err != nil {
		t.Fatalf("SubmitFeeProof failed: %v", err)
	}

	if !updated.FeeCollected {
		t.Error("fee not marked collected")
	}
	if updated.FeeTxHash == nil || *updated.FeeTxHash != txHash {
		t.Error("fee tx hash not recorded")
	}

	// Malformed hash
	if _, err := svc.SubmitFeeProof(context.Background(), user.ID, withdrawal.ID, "nonsense"); !errors.Is(err, apperr.Validation) {
		t.Errorf("expected Validation for bad hash, got %v", err)
	}

	// Not the owner
	other := fundedUser(t, db, "bob", 100)
	if _, err := svc.SubmitFeeProof(context.Background(), other.ID, withdrawal.ID, txHash); !errors.Is(err, apperr.NotFound) {
		t.Errorf("expected NotFound for foreign withdrawal, got %v", err)
	}
}

func TestWithdrawalFeeProofBanned(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)
	user := fundedUser(t, db, "alice", 100)

	withdrawal, err := svc.Request(context.Background(), user.ID, 40)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	db.Model(&models.User{}).Where("id = ?", user.ID).Update("banned", true)

	txHash := "0x" + "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"
	if _, err := svc.SubmitFeeProof(context.Background(), user.ID, withdrawal.ID, txHash); !errors.Is(err, apperr.Forbidden) {
		t.Fatalf("expected Forbidden for banned user, got %v", err)
	}

	var fresh models.Withdrawal
	db.First(&fresh, withdrawal.ID)
	if fresh.FeeCollected {
		t.Error("fee marked collected despite ban")
	}
}

func submitFee(t *testing.T, svc *WithdrawalService, userID, withdrawalID uint) {
	txHash := "0x" + "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"
	if _, err := svc.SubmitFeeProof(context.Background(), userID, withdrawalID, txHash); err != nil {
		t.Fatalf("SubmitFeeProof failed: %v", err)
	}
}

func TestWithdrawalApproveRequiresFee(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)
	user := fundedUser(t, db, "alice", 100)

	withdrawal, _ := svc.Request(context.Background(), user.ID, 40)

	_, err := svc.Decide(context.Background(), 1, withdrawal.ID, DecideInput{Action: "approve"})
	if !errors.Is(err, apperr.Validation) {
		t.Fatalf("expected Validation before fee proof, got %v", err)
	}

	submitFee(t, svc, user.ID, withdrawal.ID)

	updated, err := svc.Decide(context.Background(), 1, withdrawal.ID, DecideInput{Action: "approve", Notes: "ok"})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if updated.Status != models.WithdrawalStatusProcessing {
		t.Errorf("expected processing, got %s", updated.Status)
	}
	if updated.ApprovedBy == nil || *updated.ApprovedBy != 1 {
		t.Error("approving admin not recorded")
	}
	if updated.ApprovedAt == nil {
		t.Error("approval time not recorded")
	}
}

func TestWithdrawalRejectRefunds(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)
	user := fundedUser(t, db, "alice", 100)

	withdrawal, _ := svc.Request(context.Background(), user.ID, 40)

	updated, err := svc.Decide(context.Background(), 1, withdrawal.ID, DecideInput{
		Action:          "reject",
		RejectionReason: "suspicious activity",
	})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	if updated.Status != models.WithdrawalStatusRejected {
		t.Errorf("expected rejected, got %s", updated.Status)
	}
	if updated.RejectionReason == nil || *updated.RejectionReason != "suspicious activity" {
		t.Error("rejection reason not recorded")
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	if fresh.TotalPoints != 100 {
		t.Errorf("expected full refund to 100, got %d", fresh.TotalPoints)
	}
}

func TestWithdrawalCompleteLifecycle(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)
	user := fundedUser(t, db, "alice", 100)

	withdrawal, _ := svc.Request(context.Background(), user.ID, 40)
	submitFee(t, svc, user.ID, withdrawal.ID)

	if _, err := svc.Decide(context.Background(), 1, withdrawal.ID, DecideInput{Action: "approve"}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	payout := "0x" + "1111111111111111111111111111111111111111111111111111111111111111"
	updated, err := svc.Decide(context.Background(), 1, withdrawal.ID, DecideInput{Action: "complete", TxHash: payout})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if updated.Status != models.WithdrawalStatusCompleted {
		t.Errorf("expected completed, got %s", updated.Status)
	}
	if updated.PayoutTxHash == nil || *updated.PayoutTxHash != payout {
		t.Error("payout tx hash not recorded")
	}

	// Points stay withdrawn
	var fresh models.User
	db.First(&fresh, user.ID)
	if fresh.TotalPoints != 60 {
		t.Errorf("expected balance 60 after completion, got %d", fresh.TotalPoints)
	}

	// Terminal: no further transitions
	if _, err := svc.Decide(context.Background(), 1, withdrawal.ID, DecideInput{Action: "fail"}); !errors.Is(err, apperr.Validation) {
		t.Errorf("expected Validation on terminal state, got %v", err)
	}
}

func TestWithdrawalFailRefunds(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)
	user := fundedUser(t, db, "alice", 100)

	withdrawal, _ := svc.Request(context.Background(), user.ID, 40)
	submitFee(t, svc, user.ID, withdrawal.ID)

	if _, err := svc.Decide(context.Background(), 1, withdrawal.ID, DecideInput{Action: "approve"}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	updated, err := svc.Decide(context.Background(), 1, withdrawal.ID, DecideInput{Action: "fail", Notes: "payout bounced"})
	if err != nil {
		t.Fatalf("fail failed: %v", err)
	}
	if updated.Status != models.WithdrawalStatusFailed {
		t.Errorf("expected failed, got %s", updated.Status)
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	if fresh.TotalPoints != 100 {
		t.Errorf("expected refund to 100, got %d", fresh.TotalPoints)
	}
}

func TestWithdrawalIllegalTransitions(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)
	user := fundedUser(t, db, "alice", 100)

	withdrawal, _ := svc.Request(context.Background(), user.ID, 40)

	// complete and fail require processing
	for _, action := range []string{"complete", "fail"} {
		if _, err := svc.Decide(context.Background(), 1, withdrawal.ID, DecideInput{Action: action}); !errors.Is(err, apperr.Validation) {
			t.Errorf("action %s on pending: expected Validation, got %v", action, err)
		}
	}

	// unknown action
	if _, err := svc.Decide(context.Background(), 1, withdrawal.ID, DecideInput{Action: "launder"}); !errors.Is(err, apperr.Validation) {
		t.Errorf("expected Validation for unknown action, got %v", err)
	}

	submitFee(t, svc, user.ID, withdrawal.ID)
	if _, err := svc.Decide(context.Background(), 1, withdrawal.ID, DecideInput{Action: "approve"}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	// approve and reject require pending
	for _, action := range []string{"approve", "reject"} {
		if _, err := svc.Decide(context.Background(), 1, withdrawal.ID, DecideInput{Action: action}); !errors.Is(err, apperr.Validation) {
			t.Errorf("action %s on processing: expected Validation, got %v", action, err)
		}
	}
}

func TestWithdrawalPolicy(t *testing.T) {
	db := setupTestDB(t)
	svc := newWithdrawalService(db)

	policy := svc.GetPolicy()
	if policy.MinAmount != 10 {
		t.Errorf("expected min 10, got %d", policy.MinAmount)
	}
	if !policy.NetworkFeeBNB.Equal(decimal.RequireFromString("0.0015")) {
		t.Errorf("unexpected network fee: %s", policy.NetworkFeeBNB)
	}
}
