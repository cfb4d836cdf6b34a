package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Migrate creates the portal schema if it does not exist. Statements are
// idempotent; re-running is safe.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	ts := "TIMESTAMP"
	if Driver() == "mysql" {
		// MySQL requires an explicit default for the second TIMESTAMP column.
		ts = "TIMESTAMP NULL DEFAULT NULL"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			website VARCHAR(255),
			phone VARCHAR(64),
			created_at ` + ts + `,
			updated_at ` + ts + `
		)`,
		`CREATE TABLE IF NOT EXISTS locations (
			id VARCHAR(36) PRIMARY KEY,
			company_id VARCHAR(36) NOT NULL,
			name VARCHAR(255) NOT NULL,
			address VARCHAR(255),
			city VARCHAR(128),
			state VARCHAR(64),
			zip VARCHAR(32),
			phone VARCHAR(64)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			full_name VARCHAR(255) NOT NULL,
			avatar_url VARCHAR(512),
			role VARCHAR(32) NOT NULL,
			company_id VARCHAR(36),
			created_at ` + ts + `,
			updated_at ` + ts + `
		)`,
		`CREATE TABLE IF NOT EXISTS clients (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			company_id VARCHAR(36) NOT NULL,
			location_id VARCHAR(36),
			job_title VARCHAR(128),
			phone VARCHAR(64)
		)`,
		`CREATE TABLE IF NOT EXISTS technicians (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			specialization VARCHAR(128),
			phone VARCHAR(64)
		)`,
		`CREATE TABLE IF NOT EXISTS tickets (
			id VARCHAR(36) PRIMARY KEY,
			client_id VARCHAR(36) NOT NULL,
			technician_id VARCHAR(36),
			title VARCHAR(255) NOT NULL,
			description TEXT,
			type VARCHAR(32) NOT NULL,
			status VARCHAR(32) NOT NULL,
			priority VARCHAR(32),
			created_at ` + ts + `,
			updated_at ` + ts + `
		)`,
		`CREATE TABLE IF NOT EXISTS chats (
			id VARCHAR(36) PRIMARY KEY,
			ticket_id VARCHAR(36) NOT NULL UNIQUE,
			subject VARCHAR(255),
			status VARCHAR(32) NOT NULL,
			last_activity ` + ts + `,
			created_at ` + ts + `,
			updated_at ` + ts + `
		)`,
		`CREATE TABLE IF NOT EXISTS chat_participants (
			id VARCHAR(36) PRIMARY KEY,
			chat_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id VARCHAR(36) PRIMARY KEY,
			chat_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			content TEXT NOT NULL,
			` + ReadColumn() + ` BOOLEAN NOT NULL DEFAULT FALSE,
			created_at ` + ts + `,
			updated_at ` + ts + `
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			title VARCHAR(255) NOT NULL,
			message TEXT,
			` + ReadColumn() + ` BOOLEAN NOT NULL DEFAULT FALSE,
			created_at ` + ts + `,
			updated_at ` + ts + `
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_client ON tickets (client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages (chat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_user ON chat_participants (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			// MySQL has no CREATE INDEX IF NOT EXISTS; a duplicate index is fine.
			if strings.Contains(stmt, "CREATE INDEX") && Driver() == "mysql" {
				continue
			}
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
