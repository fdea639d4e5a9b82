package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Promotes an existing user to admin by username.
// Usage: go run scripts/promote_admin.go <username> [role]
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/promote_admin.go <username> [role]")
	}
	username := os.Args[1]
	role := "SUPER_ADMIN"
	if len(os.Args) > 2 {
		role = os.Args[2]
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("DB_HOST"), os.Getenv("DB_PORT"), os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"))

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var userID int64
	err = db.QueryRow("SELECT id FROM users WHERE username = $1", username).Scan(&userID)
	if err == sql.ErrNoRows {
		log.Fatalf("User %q not found", username)
	}
	if err != nil {
		log.Fatalf("Failed to look up user: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO admin_users (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role
	`, userID, role)
	if err != nil {
		log.Fatalf("Failed to promote user: %v", err)
	}

	log.Printf("✅ User %s (ID %d) is now %s", username, userID, role)
}
