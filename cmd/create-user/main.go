// CLI tool to create a user with a bcrypt-hashed password and a role, plus
// the empty profile, preference and schedule rows every user starts with.
// Usage: go run ./cmd/create-user
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

var validRoles = map[string]bool{"athlete": true, "coach": true, "admin": true}

func main() {
	// .env is optional; DB_URL may come from the environment.
	_ = godotenv.Load()

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, os.Getenv("DB_URL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		s, _ := reader.ReadString('\n')
		return strings.TrimSpace(s)
	}

	username := prompt("Username: ")
	email := prompt("Email: ")
	password := prompt("Password: ")
	role := prompt("Role [athlete]: ")
	if role == "" {
		role = "athlete"
	}

	if username == "" || email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "Username, email and password are required")
		os.Exit(1)
	}
	if !validRoles[role] {
		fmt.Fprintf(os.Stderr, "Unknown role %q (expected athlete, coach or admin)\n", role)
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
		os.Exit(1)
	}

	var userID int
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO users (username, email, password, role)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			username, email, string(hash), role,
		).Scan(&userID); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		for _, table := range []string{"athlete_profiles", "user_preferences", "athlete_schedules"} {
			if _, err := tx.Exec(ctx, "INSERT INTO "+table+" (user_id) VALUES ($1)", userID); err != nil {
				return fmt.Errorf("create %s row: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nUser created successfully!\n")
	fmt.Printf("  ID:       %d\n", userID)
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Role:     %s\n", role)
}
