package services

import (
	"context"
	"fmt"
	"testing"

	"airdrop-platform/internal/models"
)

func TestReferralCreditedOnRegistration(t *testing.T) {
	db := setupTestDB(t)
	accounts := newAccountService(db)

	referrer, err := accounts.Register(context.Background(), RegisterInput{Username: "alice"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := accounts.Register(context.Background(), RegisterInput{
		Username:   "bob",
		ReferredBy: "alice",
	}); err != nil {
		t.Fatalf("Register with referral failed: %v", err)
	}

	var fresh models.User
	db.First(&fresh, referrer.ID)

	if fresh.TotalPoints != models.ReferralReward {
		t.Errorf("expected total points %d, got %d", models.ReferralReward, fresh.TotalPoints)
	}
	if fresh.ReferralPoints != models.ReferralReward {
		t.Errorf("expected referral points %d, got %d", models.ReferralReward, fresh.ReferralPoints)
	}
	if fresh.ReferralCount != 1 {
		t.Errorf("expected referral count 1, got %d", fresh.ReferralCount)
	}

	var referral models.Referral
	if err := db.Where("referrer_id = ?", referrer.ID).First(&referral).Error; err != nil {
		t.Fatalf("referral row missing: %v", err)
	}
	if referral.Amount != models.ReferralReward {
		t.Errorf("expected snapshot amount %d, got %d", models.ReferralReward, referral.Amount)
	}
}

func TestReferralUnknownCodeNoop(t *testing.T) {
	db := setupTestDB(t)
	accounts := newAccountService(db)

	// Registration must succeed even when the code resolves to nothing
	user, err := accounts.Register(context.Background(), RegisterInput{
		Username:   "bob",
		ReferredBy: "no-such-code",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("user not created")
	}

	var count int64
	db.Model(&models.Referral{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no referral rows, got %d", count)
	}
}

func TestReferralSelfReferralNoop(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	accounts := newAccountService(db)

	alice, err := accounts.Register(context.Background(), RegisterInput{Username: "alice"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if referral := svc.Apply(context.Background(), "alice", alice); referral != nil {
		t.Errorf("self-referral should no-op, got %+v", referral)
	}

	var fresh models.User
	db.First(&fresh, alice.ID)
	if fresh.TotalPoints != 0 {
		t.Errorf("self-referral awarded points: %d", fresh.TotalPoints)
	}
}

func TestReferralDoubleCreditRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	accounts := newAccountService(db)

	if _, err := accounts.Register(context.Background(), RegisterInput{Username: "alice"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	carol, _ := accounts.Register(context.Background(), RegisterInput{Username: "carol"})
	bob, err := accounts.Register(context.Background(), RegisterInput{Username: "bob", ReferredBy: "alice"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// A second credit for the same referred account must not land, even
	// through a different referrer's code.
	if referral := svc.Apply(context.Background(), "carol", bob); referral != nil {
		t.Errorf("second referral for same account should no-op")
	}

	var count int64
	db.Model(&models.Referral{}).Where("referred_user_id = ?", bob.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 referral row for bob, got %d", count)
	}

	var freshCarol models.User
	db.First(&freshCarol, carol.ID)
	if freshCarol.TotalPoints != 0 {
		t.Errorf("carol credited for an already-referred account: %d", freshCarol.TotalPoints)
	}
}

func TestReferralCap(t *testing.T) {
	db := setupTestDB(t)
	accounts := newAccountService(db)

	referrer, err := accounts.Register(context.Background(), RegisterInput{Username: "alice"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	for i := 0; i < models.MaxReferrals; i++ {
		if _, err := accounts.Register(context.Background(), RegisterInput{
			Username:   fmt.Sprintf("invitee_%d", i),
			ReferredBy: "alice",
		}); err != nil {
			t.Fatalf("Register invitee %d failed: %v", i, err)
		}
	}

	// One past the cap: registration succeeds, no credit lands
	if _, err := accounts.Register(context.Background(), RegisterInput{
		Username:   "one_too_many",
		ReferredBy: "alice",
	}); err != nil {
		t.Fatalf("Register past cap failed: %v", err)
	}

	var fresh models.User
	db.First(&fresh, referrer.ID)

	if fresh.ReferralCount != models.MaxReferrals {
		t.Errorf("expected referral count %d, got %d", models.MaxReferrals, fresh.ReferralCount)
	}
	wantPoints := int64(models.MaxReferrals) * models.ReferralReward
	if fresh.TotalPoints != wantPoints {
		t.Errorf("expected total points %d, got %d", wantPoints, fresh.TotalPoints)
	}

	var count int64
	db.Model(&models.Referral{}).Where("referrer_id = ?", referrer.ID).Count(&count)
	if count != int64(models.MaxReferrals) {
		t.Errorf("expected %d referral rows, got %d", models.MaxReferrals, count)
	}
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	accounts := newAccountService(db)

	alice, err := accounts.Register(context.Background(), RegisterInput{Username: "alice"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := accounts.Register(context.Background(), RegisterInput{Username: "bob", ReferredBy: "alice"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	stats, err := svc.GetStats(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats.ReferralCode != "alice" {
		t.Errorf("expected code alice, got %s", stats.ReferralCode)
	}
	if stats.ReferralCount != 1 {
		t.Errorf("expected count 1, got %d", stats.ReferralCount)
	}
	if stats.ReferralTokens != models.ReferralReward {
		t.Errorf("expected tokens %d, got %d", models.ReferralReward, stats.ReferralTokens)
	}
	if stats.MaxReferrals != models.MaxReferrals {
		t.Errorf("expected max %d, got %d", models.MaxReferrals, stats.MaxReferrals)
	}
	if len(stats.Referrals) != 1 || stats.Referrals[0].ReferredUser == nil {
		t.Errorf("expected 1 referral with the referred account preloaded")
	}
}
