package database

import (
	"fmt"
	"log"

	"airdrop-platform/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate runs automatic migrations for all models on the given handle.
func Migrate(db *gorm.DB) error {
	// Core models first: later groups reference them.
	coreModels := []interface{}{
		&models.User{},
		&models.Task{},
		&models.TaskCompletion{},
		&models.Referral{},
	}

	for _, model := range coreModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	withdrawalModels := []interface{}{
		&models.Withdrawal{},
	}

	for _, model := range withdrawalModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	adminModels := []interface{}{
		&models.AdminUser{},
		&models.AdminLog{},
		&models.PlatformStats{},
	}

	for _, model := range adminModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	return nil
}

// SeedTasks inserts the default task catalog. Existing tasks are left
// untouched so admin edits survive restarts.
func SeedTasks(db *gorm.DB) error {
	link := func(s string) *string { return &s }

	tasks := []models.Task{
		{Name: "telegram_group", Description: "Join our Telegram group", Reward: 10, Required: true, Icon: "telegram", Link: link("https://t.me/airdrop_group")},
		{Name: "telegram_channel", Description: "Subscribe to our Telegram channel", Reward: 10, Required: true, Icon: "telegram", Link: link("https://t.me/airdrop_channel")},
		{Name: "twitter_follow", Description: "Follow us on X", Reward: 10, Icon: "twitter", Link: link("https://x.com/airdrop"), RequiresVerification: true},
		{Name: "twitter_retweet", Description: "Repost the pinned announcement", Reward: 5, Icon: "twitter", Link: link("https://x.com/airdrop/status/1"), RequiresVerification: true},
		{Name: "youtube_subscribe", Description: "Subscribe to our YouTube channel", Reward: 5, Icon: "youtube", Link: link("https://youtube.com/@airdrop"), RequiresVerification: true},
		{Name: "website_visit", Description: "Visit the project website", Reward: 5, Icon: "globe", Link: link("https://airdrop.example.com")},
		{Name: models.TaskWalletSubmit, Description: "Submit your BEP-20 wallet address", Reward: 20, Required: true, Icon: "wallet"},
	}

	for _, task := range tasks {
		task.Active = true
		if err := db.Where(models.Task{Name: task.Name}).FirstOrCreate(&task).Error; err != nil {
			return fmt.Errorf("failed to seed task %s: %w", task.Name, err)
		}
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
