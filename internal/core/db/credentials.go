package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/neilberkman/docchat/internal/core/models"
)

// Vault persists the credentials of one API server.
type Vault struct {
	db      *DB
	baseURL string
}

// Vault returns the credential store for baseURL
func (db *DB) Vault(baseURL string) *Vault {
	return &Vault{db: db, baseURL: baseURL}
}

// Load returns the saved credentials, or nil if there are none.
func (v *Vault) Load() (*models.Credentials, error) {
	var token, userJSON string
	err := v.db.conn.QueryRow(`
		SELECT token, user_json FROM credentials WHERE base_url = ?
	`, v.baseURL).Scan(&token, &userJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	creds := &models.Credentials{Token: token}
	if err := json.Unmarshal([]byte(userJSON), &creds.User); err != nil {
		return nil, fmt.Errorf("decode stored user: %w", err)
	}
	return creds, nil
}

// Save replaces the stored credentials in one transaction.
func (v *Vault) Save(creds models.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	userJSON, err := json.Marshal(creds.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	tx, err := v.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO credentials (base_url, token, user_json, saved_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(base_url) DO UPDATE SET
			token = excluded.token,
			user_json = excluded.user_json,
			saved_at = CURRENT_TIMESTAMP
	`, v.baseURL, creds.Token, string(userJSON))
	if err != nil {
		return fmt.Errorf("upsert credentials: %w", err)
	}

	return tx.Commit()
}

// Clear removes the stored credentials and the preferences tied to them.
func (v *Vault) Clear() error {
	tx, err := v.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM credentials WHERE base_url = ?`, v.baseURL); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM preferences WHERE base_url = ?`, v.baseURL); err != nil {
		return fmt.Errorf("delete preferences: %w", err)
	}

	return tx.Commit()
}

// Preference returns a stored preference value, or "" if unset.
func (v *Vault) Preference(key string) (string, error) {
	var value string
	err := v.db.conn.QueryRow(`
		SELECT value FROM preferences WHERE base_url = ? AND key = ?
	`, v.baseURL, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetPreference stores a preference value
func (v *Vault) SetPreference(key, value string) error {
	_, err := v.db.conn.Exec(`
		INSERT INTO preferences (base_url, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(base_url, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, v.baseURL, key, value)
	return err
}
