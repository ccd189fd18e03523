// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev organizer (dev@example.com) already exists.
package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"attendance-control-plane/internal/config"
	"attendance-control-plane/internal/db"
	"attendance-control-plane/internal/security"
)

const (
	devOrganizerEmail = "dev@example.com"
	devPassword       = "Dev-password-123!"
	devRosterRef      = "class-algorithms"
)

// devPolicyRules is a sample organizer policy that loosens the device quota
// for workshops where students share lab machines.
const devPolicyRules = `package acp.checkin

default device_blocking_enabled = true
default max_uses = 2
default window_seconds = 7200
default scope = "session"
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("seed: DATABASE_URL is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var exists bool
	err = conn.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM organizers WHERE email = $1)`, devOrganizerEmail).Scan(&exists)
	if err != nil {
		log.Fatalf("seed: check organizer: %v", err)
	}
	if exists {
		log.Printf("seed: %s already exists, nothing to do", devOrganizerEmail)
		return
	}

	hasher := security.NewHasher(bcrypt.DefaultCost)
	hash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("seed: hash password: %v", err)
	}

	now := time.Now().UTC()
	organizerID := uuid.New().String()
	sessionID := uuid.New().String()

	if err := seedAll(ctx, conn, organizerID, sessionID, hash, now); err != nil {
		log.Fatalf("seed: %v", err)
	}

	log.Printf("seed: organizer %s (password %q), session %s, roster %s", devOrganizerEmail, devPassword, sessionID, devRosterRef)
}

func seedAll(ctx context.Context, conn *sql.DB, organizerID, sessionID, passwordHash string, now time.Time) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO organizers (id, email, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		organizerID, devOrganizerEmail, "Dev Organizer", passwordHash, now)
	if err != nil {
		return err
	}

	students := []struct{ identity, name string }{
		{"s001", "Ada Lovelace"},
		{"s002", "Alan Turing"},
		{"s003", "Grace Hopper"},
	}
	for _, s := range students {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO students (id, identity, display_name, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (identity) DO NOTHING`,
			uuid.New().String(), s.identity, s.name, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO class_rosters (roster_ref, identity)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			devRosterRef, s.identity); err != nil {
			return err
		}
	}

	start := now.Add(-10 * time.Minute)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, name, organizer_id, start_time, end_time, late_threshold_seconds, status, roster_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'active', $7, $8)`,
		sessionID, "Algorithms Lecture", organizerID, start, start.Add(2*time.Hour), int64((15*time.Minute).Seconds()), devRosterRef, now)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tokens (value, session_id, issued_at, consumed)
		VALUES ($1, $2, $3, FALSE)`,
		uuid.New().String(), sessionID, now)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO policies (id, organizer_id, name, rules, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)`,
		uuid.New().String(), organizerID, "shared lab machines", devPolicyRules, now)
	if err != nil {
		return err
	}

	return tx.Commit()
}
