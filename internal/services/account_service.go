package services

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/models"
	"airdrop-platform/internal/repository"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

// botFingerprintPrefix marks registrations arriving through the messaging-bot
// entry point. Those are exempt from the duplicate-device check because the
// bot proxies many users from the same addresses.
const botFingerprintPrefix = "bot:"

// AccountService handles registration, login and wallet binding
type AccountService struct {
	db              *gorm.DB
	repo            *repository.Repository
	referrals       *ReferralService
	demoFingerprint string
}

// NewAccountService creates a new AccountService
func NewAccountService(db *gorm.DB, referrals *ReferralService, demoFingerprint string) *AccountService {
	return &AccountService{
		db:              db,
		repo:            repository.NewRepository(db),
		referrals:       referrals,
		demoFingerprint: demoFingerprint,
	}
}

// RegisterInput carries the registration request fields
type RegisterInput struct {
	Username      string
	WalletAddress string
	ReferredBy    string
	IPAddress     string
	Fingerprint   string
	BotOrigin     bool
}

// BotFingerprint generates a fingerprint for a bot-originated registration
func BotFingerprint() string {
	return botFingerprintPrefix + uuid.NewString()
}

// Register creates a new account. The referral code equals the username, and
// the referral workflow runs inside the same request when ReferredBy resolves.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if !usernamePattern.MatchString(username) {
		return nil, apperr.New(apperr.Validation, "username must be 3-50 characters of letters, digits, underscore or hyphen")
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, apperr.New(apperr.Conflict, "username already taken")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fingerprint := input.Fingerprint
	if input.BotOrigin && fingerprint == "" {
		fingerprint = BotFingerprint()
	}

	if err := s.checkDuplicateDevice(ctx, input.IPAddress, fingerprint); err != nil {
		return nil, err
	}

	user := models.User{
		Username:     username,
		ReferralCode: username,
	}
	if input.WalletAddress != "" {
		checksummed, err := normalizeWalletAddress(input.WalletAddress)
		if err != nil {
			return nil, err
		}
		if err := s.checkWalletAvailable(ctx, checksummed, 0); err != nil {
			return nil, err
		}
		user.WalletAddress = &checksummed
	}
	if input.ReferredBy != "" {
		referredBy := input.ReferredBy
		user.ReferredBy = &referredBy
	}
	if input.IPAddress != "" {
		ip := input.IPAddress
		user.IPAddress = &ip
	}
	if fingerprint != "" {
		fp := fingerprint
		user.Fingerprint = &fp
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// The insert can lose a race on either unique column; re-check the
			// wallet so the conflict message names the right one.
			if user.WalletAddress != nil {
				if werr := s.checkWalletAvailable(ctx, *user.WalletAddress, 0); werr != nil {
					return nil, werr
				}
			}
			return nil, apperr.New(apperr.Conflict, "username already taken")
		}
		return nil, err
	}

	log.Printf("New user registered: %s (ID: %d)", user.Username, user.ID)

	if input.ReferredBy != "" {
		// A code that does not resolve is a silent no-op; registration stands.
		s.referrals.Apply(ctx, input.ReferredBy, &user)
	}

	return &user, nil
}

// checkDuplicateDevice rejects a registration whose (ip, fingerprint) pair is
// already on file. Bot-issued and demo fingerprints are exempt.
func (s *AccountService) checkDuplicateDevice(ctx context.Context, ipAddress, fingerprint string) error {
	if ipAddress == "" || fingerprint == "" {
		return nil
	}
	if strings.HasPrefix(fingerprint, botFingerprintPrefix) || fingerprint == s.demoFingerprint {
		return nil
	}

	var existing models.User
	err := s.db.WithContext(ctx).
		Where("ip_address = ? AND fingerprint = ?", ipAddress, fingerprint).
		First(&existing).Error
	if err == nil {
		return apperr.New(apperr.Conflict, "an account already exists for this device")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

// Login resolves a username to its account and rejects banned users
func (s *AccountService) Login(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized
		}
		return nil, err
	}

	if user.Banned {
		return nil, apperr.New(apperr.Forbidden, "account is banned")
	}

	return &user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AccountService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

// GetUserWithCompletions returns the account plus its completion history
func (s *AccountService) GetUserWithCompletions(ctx context.Context, userID uint) (*models.User, []models.TaskCompletion, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	completions, err := s.repo.GetUserCompletions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	return user, completions, nil
}

// SetWalletAddress binds a BSC wallet address to the account. The address is
// checksummed before storage and must be unique system-wide.
func (s *AccountService) SetWalletAddress(ctx context.Context, userID uint, address string) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Banned {
		return nil, apperr.New(apperr.Forbidden, "account is banned")
	}

	checksummed, err := normalizeWalletAddress(address)
	if err != nil {
		return nil, err
	}

	if err := s.checkWalletAvailable(ctx, checksummed, userID); err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("wallet_address", checksummed)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.Conflict, "wallet address already in use")
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}

	return s.GetUserByID(ctx, userID)
}

func (s *AccountService) checkWalletAvailable(ctx context.Context, address string, ownerID uint) error {
	var existing models.User
	err := s.db.WithContext(ctx).Where("wallet_address = ?", address).First(&existing).Error
	if err == nil {
		if existing.ID == ownerID {
			return nil
		}
		return apperr.New(apperr.Conflict, "wallet address already in use")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

// normalizeWalletAddress validates an EVM address and returns its EIP-55
// checksummed form.
func normalizeWalletAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", apperr.New(apperr.Validation, "invalid wallet address")
	}
	return common.HexToAddress(address).Hex(), nil
}
