package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"airdrop-platform/internal/auth"
	"airdrop-platform/internal/chainscan"
	"airdrop-platform/internal/config"
	"airdrop-platform/internal/database"
	"airdrop-platform/internal/handlers"
	"airdrop-platform/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed the task catalog
	if err := database.SeedTasks(database.GetDB()); err != nil {
		log.Fatalf("Failed to seed tasks: %v", err)
	}

	db := database.GetDB()

	// Initialize services
	referralService := services.NewReferralService(db)
	accountService := services.NewAccountService(db, referralService, cfg.App.DemoFingerprint)
	taskService := services.NewTaskService(db, accountService)
	adminService := services.NewAdminService(db)
	scanner := chainscan.NewClient(cfg.BscScan.BaseURL, cfg.BscScan.APIKey)
	withdrawalService := services.NewWithdrawalService(db, cfg.Withdrawal, scanner)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(accountService, cfg.Bot.Token)
	userHandler := handlers.NewUserHandler(accountService, taskService, adminService)
	taskHandler := handlers.NewTaskHandler(taskService)
	referralHandler := handlers.NewReferralHandler(referralService)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService)
	adminHandler := handlers.NewAdminHandler(adminService, taskService, withdrawalService)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	router.POST("/api/register", authHandler.Register)
	router.POST("/api/login", authHandler.Login)
	router.POST("/api/logout", authHandler.Logout)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.GET("/user", userHandler.GetProfile)
		api.POST("/wallet", userHandler.SetWallet)
		api.GET("/tasks", taskHandler.ListTasks)
		api.POST("/tasks/complete", taskHandler.CompleteTask)
		api.GET("/referrals", referralHandler.GetStats)

		api.GET("/withdrawals/config", withdrawalHandler.GetConfig)
		api.POST("/withdrawals", withdrawalHandler.Create)
		api.GET("/withdrawals", withdrawalHandler.List)
		api.POST("/withdrawals/:id/fee", withdrawalHandler.SubmitFee)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(adminHandler.AdminMiddleware())
	{
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/logs", adminHandler.GetLogs)
		admin.GET("/user-activity", adminHandler.GetUserActivity)
		admin.GET("/task-stats", adminHandler.GetTaskStats)
		admin.GET("/token-allocation", adminHandler.GetTokenAllocation)

		// User management
		admin.GET("/users", adminHandler.GetUsers)
		admin.DELETE("/users", adminHandler.DeleteAllUsers)
		admin.POST("/users/:id/ban", adminHandler.BanUser)
		admin.POST("/users/:id/unban", adminHandler.UnbanUser)
		admin.POST("/users/:id/reset-tokens", adminHandler.ResetUserTokens)
		admin.POST("/users/:id/reset-tasks", adminHandler.ResetUserTasks)
		admin.POST("/users/:id/reset", adminHandler.ResetUserData)
		admin.POST("/users/:id/promote", adminHandler.PromoteUser)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)

		// Task catalog management
		admin.GET("/tasks", adminHandler.ListTasks)
		admin.POST("/tasks", adminHandler.CreateTask)
		admin.POST("/tasks/reset-all", adminHandler.ResetAllTasks)
		admin.PUT("/tasks/:id", adminHandler.UpdateTask)
		admin.DELETE("/tasks/:id", adminHandler.DeleteTask)

		// Withdrawal review
		admin.GET("/withdrawals", adminHandler.GetWithdrawals)
		admin.PUT("/withdrawals/:id", adminHandler.DecideWithdrawal)

		// Verification review
		admin.GET("/verifications", adminHandler.GetVerifications)
		admin.POST("/verifications/:id/approve", adminHandler.ApproveVerification)
		admin.POST("/verifications/:id/reject", adminHandler.RejectVerification)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
