package repositories

import (
	"database/sql"
	"fmt"
)

// Setting keys persisted in the settings table.
const (
	SettingAnthropicKey     = "anthropic_api_key"
	SettingDeveloperToken   = "apple_music_developer_token"
	SettingMusicUserToken   = "apple_music_user_token"
	SettingTheme            = "theme"
	SettingMusicUserTokenAt = "apple_music_user_token_at"
)

// CredentialKeys are cleared together when the user changes keys.
var CredentialKeys = []string{
	SettingAnthropicKey, SettingDeveloperToken, SettingMusicUserToken, SettingMusicUserTokenAt,
}

// withTx runs fn inside a transaction, committing only if fn succeeds.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
