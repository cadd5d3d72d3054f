// Package settings persists the user-editable credentials between runs.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"meal-dashboard/internal/config"
)

// Keys under which the credentials are stored.
const (
	KeyAirtableToken  = "airtableToken"
	KeyTelegramToken  = "telegramToken"
	KeyTelegramChatID = "telegramChatId"
)

// Store keeps the credentials in the settings table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a Store on an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Load returns the saved credentials. saved is false when nothing was ever
// saved, in which case the caller keeps its own defaults.
func (s *Store) Load(ctx context.Context) (creds config.Credentials, saved bool, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE key IN (?, ?, ?)`,
		KeyAirtableToken, KeyTelegramToken, KeyTelegramChatID)
	if err != nil {
		return config.Credentials{}, false, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return config.Credentials{}, false, fmt.Errorf("failed to scan setting: %w", err)
		}
		saved = true
		switch key {
		case KeyAirtableToken:
			creds.AirtableToken = value
		case KeyTelegramToken:
			creds.TelegramToken = value
		case KeyTelegramChatID:
			creds.TelegramChatID = value
		}
	}
	if err := rows.Err(); err != nil {
		return config.Credentials{}, false, fmt.Errorf("failed to read settings: %w", err)
	}
	return creds, saved, nil
}

// Save writes the three credentials in one transaction.
func (s *Store) Save(ctx context.Context, creds config.Credentials) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()
	values := map[string]string{
		KeyAirtableToken:  creds.AirtableToken,
		KeyTelegramToken:  creds.TelegramToken,
		KeyTelegramChatID: creds.TelegramChatID,
	}
	for key, value := range values {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now)
		if err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}
