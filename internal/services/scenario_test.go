package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/models"
)

// Walks the canonical happy path end to end: registration, a task credit, a
// referral credit, and a duplicate-completion race.
func TestAirdropScenario(t *testing.T) {
	db := setupTestDB(t)
	accounts := newAccountService(db)
	tasks := NewTaskService(db, accounts)

	createTask(t, db, models.Task{Name: "telegram_group", Reward: 10, Required: true})

	// alice registers with no referral
	alice, err := accounts.Register(context.Background(), RegisterInput{Username: "alice"})
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	if alice.TotalPoints != 0 {
		t.Fatalf("alice should start at 0, got %d", alice.TotalPoints)
	}

	// alice completes telegram_group
	result, err := tasks.CompleteTask(context.Background(), alice.ID, "telegram_group", nil)
	if err != nil {
		t.Fatalf("alice completes telegram_group: %v", err)
	}
	if result.User.TotalPoints != 10 {
		t.Fatalf("alice balance after task: got %d, want 10", result.User.TotalPoints)
	}
	if len(result.Completions) != 1 {
		t.Fatalf("alice completions: got %d, want 1", len(result.Completions))
	}

	// bob registers referred by alice
	bob, err := accounts.Register(context.Background(), RegisterInput{Username: "bob", ReferredBy: "alice"})
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}

	var referral models.Referral
	if err := db.Where("referrer_id = ? AND referred_user_id = ?", alice.ID, bob.ID).First(&referral).Error; err != nil {
		t.Fatalf("referral row alice->bob missing: %v", err)
	}
	if referral.Amount != 5 {
		t.Errorf("referral amount: got %d, want 5", referral.Amount)
	}

	var freshAlice models.User
	db.First(&freshAlice, alice.ID)
	if freshAlice.TotalPoints != 15 {
		t.Errorf("alice balance after referral: got %d, want 15", freshAlice.TotalPoints)
	}
	if freshAlice.ReferralCount != 1 {
		t.Errorf("alice referral count: got %d, want 1", freshAlice.ReferralCount)
	}

	// bob hammers telegram_group twice in rapid succession
	var wg sync.WaitGroup
	outcomes := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tasks.CompleteTask(context.Background(), bob.ID, "telegram_group", nil)
			outcomes <- err
		}()
	}
	wg.Wait()
	close(outcomes)

	var wins int
	for err := range outcomes {
		if err == nil {
			wins++
		} else if !errors.Is(err, apperr.AlreadyCompleted) {
			t.Errorf("unexpected error in race: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly 1 winning completion, got %d", wins)
	}

	var bobCompletions int64
	db.Model(&models.TaskCompletion{}).Where("user_id = ?", bob.ID).Count(&bobCompletions)
	if bobCompletions != 1 {
		t.Errorf("bob completion rows: got %d, want 1", bobCompletions)
	}

	var freshBob models.User
	db.First(&freshBob, bob.ID)
	if freshBob.TotalPoints != 10 {
		t.Errorf("bob balance: got %d, want 10 (credited exactly once)", freshBob.TotalPoints)
	}
}
