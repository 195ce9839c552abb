package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slotbook/slotbook/internal/auth"
	"github.com/slotbook/slotbook/internal/model"
	"github.com/slotbook/slotbook/internal/repository"
)

type output struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
	Created bool   `json:"created"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "admin@slotbook.local", "Admin email")
		name        = flag.String("name", "Administrator", "Admin display name")
		password    = flag.String("password", os.Getenv("ADMIN_PASSWORD"), "Admin password (or ADMIN_PASSWORD env)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if len(*password) < 8 {
		fmt.Fprintln(os.Stderr, "password must be at least 8 characters")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}

	normalized := strings.ToLower(strings.TrimSpace(*email))

	hash, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash password:", err)
		os.Exit(1)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        normalized,
		Name:         *name,
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    time.Now().UTC(),
	}

	created := true
	if err := repo.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrEmailExists) {
			fmt.Fprintln(os.Stderr, "create user:", err)
			os.Exit(1)
		}
		// Idempotent rerun: report the existing account instead of failing.
		existing, getErr := repo.GetUserByEmail(ctx, normalized)
		if getErr != nil {
			fmt.Fprintln(os.Stderr, "lookup existing user:", getErr)
			os.Exit(1)
		}
		user = existing
		created = false
	}

	out := output{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.Name,
		IsAdmin: user.IsAdmin,
		Created: created,
	}

	switch strings.ToLower(*format) {
	case "plain":
		if created {
			fmt.Printf("created admin %s (%s)\n", out.Email, out.UserID)
		} else {
			fmt.Printf("admin %s already exists (%s)\n", out.Email, out.UserID)
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}
