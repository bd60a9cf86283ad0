package loam

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Settings returns all site settings. Values that parse as JSON come back as
// decoded maps/slices, everything else as plain strings.
func (s *Store) Settings() (map[string]any, error) {
	rows, err := s.db.Queryx(`SELECT key, value FROM site_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]any)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = jsonOrString(v)
	}
	return out, rows.Err()
}

// SettingString returns a single setting as a string, "" when absent.
func (s *Store) SettingString(key string) string {
	var v string
	if err := s.db.Get(&v, `SELECT value FROM site_settings WHERE key = ?`, key); err != nil {
		return ""
	}
	return v
}

// UpdateSettings upserts the given settings. Non-string values are stored as
// JSON.
func (s *Store) UpdateSettings(values map[string]any) error {
	ts := now()
	for k, v := range values {
		var raw string
		switch t := v.(type) {
		case string:
			raw = t
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode setting %q: %w", k, err)
			}
			raw = string(b)
		}
		_, err := s.db.Exec(`
			INSERT INTO site_settings (key, value, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			k, raw, ts, ts)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetAdmin returns the admin row, or ErrNotFound before setup has run.
func (s *Store) GetAdmin() (*AdminAccount, error) {
	var a AdminAccount
	err := s.db.Get(&a, `SELECT * FROM admin_setup LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// IsSetupComplete reports whether the admin account has been configured.
func (s *Store) IsSetupComplete() bool {
	a, err := s.GetAdmin()
	return err == nil && a.IsConfigured
}

// CompleteSetup creates the singleton admin row. It fails once an admin
// exists; setup is single shot.
func (s *Store) CompleteSetup(username, passwordHash, email string) error {
	if s.IsSetupComplete() {
		return errors.New("loam: setup already completed")
	}
	ts := now()
	_, err := s.db.Exec(`
		INSERT INTO admin_setup (is_configured, username, password, email, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)`,
		username, passwordHash, email, ts, ts)
	return err
}

// Enable2FA persists a verified TOTP secret and turns the flag on.
func (s *Store) Enable2FA(secret string) error {
	_, err := s.db.Exec(
		`UPDATE admin_setup SET two_fa_secret = ?, two_fa_enabled = 1, updated_at = ?`,
		secret, now())
	return err
}

// Disable2FA clears the secret and the flag.
func (s *Store) Disable2FA() error {
	_, err := s.db.Exec(
		`UPDATE admin_setup SET two_fa_secret = '', two_fa_enabled = 0, updated_at = ?`,
		now())
	return err
}
