package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/database"
	"airdrop-platform/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// cache=shared keeps one memory DB behind the pool; a single connection
	// serializes writers so sqlite never reports a busy table under the
	// concurrency tests.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// The shared memory DB outlives individual tests; start each from clean.
	for _, table := range []string{
		"admin_logs", "admin_users", "platform_stats",
		"withdrawals", "referrals", "task_completions", "tasks", "users",
	} {
		db.Exec("DELETE FROM " + table)
	}

	return db
}

func newAccountService(db *gorm.DB) *AccountService {
	return NewAccountService(db, NewReferralService(db), "demo-device")
}

func TestRegisterReferralCodeEqualsUsername(t *testing.T) {
	db := setupTestDB(t)
	svc := newAccountService(db)

	user, err := svc.Register(context.Background(), RegisterInput{Username: "alice"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if user.ReferralCode != "alice" {
		t.Errorf("expected referral code %q, got %q", "alice", user.ReferralCode)
	}
	if user.TotalPoints != 0 {
		t.Errorf("expected zero starting balance, got %d", user.TotalPoints)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	svc := newAccountService(db)

	if _, err := svc.Register(context.Background(), RegisterInput{Username: "alice"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), RegisterInput{Username: "alice"})
	if !errors.Is(err, apperr.Conflict) {
		t.Fatalf("expected Conflict for duplicate username, got %v", err)
	}
}

func TestRegisterInvalidUsername(t *testing.T) {
	db := setupTestDB(t)
	svc := newAccountService(db)

	for _, username := range []string{"ab", "has space", "bad!chars", ""} {
		_, err := svc.Register(context.Background(), RegisterInput{Username: username})
		if !errors.Is(err, apperr.Validation) {
			t.Errorf("username %q: expected Validation, got %v", username, err)
		}
	}
}

func TestRegisterDuplicateDevice(t *testing.T) {
	db := setupTestDB(t)
	svc := newAccountService(db)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username:    "alice",
		IPAddress:   "10.0.0.1",
		Fingerprint: "device-1",
	})
	if err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	_, err = svc.Register(context.Background(), RegisterInput{
		Username:    "bob",
		IPAddress:   "10.0.0.1",
		Fingerprint: "device-1",
	})
	if !errors.Is(err, apperr.Conflict) {
		t.Fatalf("expected Conflict for duplicate device, got %v", err)
	}

	// Same IP with a different fingerprint is fine
	if _, err := svc.Register(context.Background(), RegisterInput{
		Username:    "carol",
		IPAddress:   "10.0.0.1",
		Fingerprint: "device-2",
	}); err != nil {
		t.Fatalf("different fingerprint should register: %v", err)
	}

	// Bot-issued fingerprints are exempt
	if _, err := svc.Register(context.Background(), RegisterInput{
		Username:    "dave",
		IPAddress:   "10.0.0.1",
		Fingerprint: BotFingerprint(),
	}); err != nil {
		t.Fatalf("bot fingerprint should register: %v", err)
	}

	// So is the demo sentinel
	if _, err := svc.Register(context.Background(), RegisterInput{
		Username:    "erin",
		IPAddress:   "10.0.0.1",
		Fingerprint: "demo-device",
	}); err != nil {
		t.Fatalf("demo fingerprint should register: %v", err)
	}
}

func TestSetWalletAddress(t *testing.T) {
	db := setupTestDB(t)
	svc := newAccountService(db)

	alice, err := svc.Register(context.Background(), RegisterInput{Username: "alice"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	updated, err := svc.SetWalletAddress(context.Background(), alice.ID, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	if err != nil {
		t.Fatalf("SetWalletAddress failed: %v", err)
	}

	// Stored form is EIP-55 checksummed regardless of input casing
	if *updated.WalletAddress != "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed" {
		t.Errorf("expected checksummed address, got %s", *updated.WalletAddress)
	}

	if _, err := svc.SetWalletAddress(context.Background(), alice.ID, "not-an-address"); !errors.Is(err, apperr.Validation) {
		t.Errorf("expected Validation for malformed address, got %v", err)
	}

	bob, err := svc.Register(context.Background(), RegisterInput{Username: "bob"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Same address, different casing, different account
	_, err = svc.SetWalletAddress(context.Background(), bob.ID, "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED")
	if !errors.Is(err, apperr.Conflict) {
		t.Errorf("expected Conflict for wallet bound elsewhere, got %v", err)
	}

	// Re-binding your own address is a no-op, not a conflict
	if _, err := svc.SetWalletAddress(context.Background(), alice.ID, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"); err != nil {
		t.Errorf("rebinding own address should succeed: %v", err)
	}
}

func TestSetWalletAddressBanned(t *testing.T) {
	db := setupTestDB(t)
	svc := newAccountService(db)

	user, err := svc.Register(context.Background(), RegisterInput{Username: "alice"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	db.Model(&models.User{}).Where("id = ?", user.ID).Update("banned", true)

	_, err = svc.SetWalletAddress(context.Background(), user.ID, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	if !errors.Is(err, apperr.Forbidden) {
		t.Fatalf("expected Forbidden for banned user, got %v", err)
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	if fresh.WalletAddress != nil {
		t.Error("wallet bound despite ban")
	}
}

func TestRegisterDuplicateWalletMessage(t *testing.T) {
	db := setupTestDB(t)
	svc := newAccountService(db)

	address := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	if _, err := svc.Register(context.Background(), RegisterInput{Username: "alice", WalletAddress: address}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	// A wallet collision must be reported as a wallet conflict, not blamed on
	// the username.
	_, err := svc.Register(context.Background(), RegisterInput{Username: "bob", WalletAddress: address})
	if !errors.Is(err, apperr.Conflict) {
		t.Fatalf("expected Conflict for duplicate wallet, got %v", err)
	}
	if !strings.Contains(err.Error(), "wallet") {
		t.Errorf("conflict message should name the wallet, got %q", err.Error())
	}

	// And a plain username collision still names the username
	_, err = svc.Register(context.Background(), RegisterInput{Username: "alice"})
	if !errors.Is(err, apperr.Conflict) {
		t.Fatalf("expected Conflict for duplicate username, got %v", err)
	}
	if !strings.Contains(err.Error(), "username") {
		t.Errorf("conflict message should name the username, got %q", err.Error())
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := newAccountService(db)

	if _, err := svc.Register(context.Background(), RegisterInput{Username: "alice"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	user, err := svc.Login(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("expected alice, got %s", user.Username)
	}

	if _, err := svc.Login(context.Background(), "nobody"); !errors.Is(err, apperr.Unauthorized) {
		t.Errorf("expected Unauthorized for unknown username, got %v", err)
	}

	db.Model(&models.User{}).Where("username = ?", "alice").Update("banned", true)

	if _, err := svc.Login(context.Background(), "alice"); !errors.Is(err, apperr.Forbidden) {
		t.Errorf("expected Forbidden for banned user, got %v", err)
	}
}
