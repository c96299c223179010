// Package repositories implements SQLite persistence for settings, the active
// review session and export history.
//
// Key Implementations:
//   - [SettingsRepository] : durable key-value settings (credentials, user token, theme)
//   - [SessionRepository] : the single active [models.SessionSnapshot]
//   - [ExportRepository] : history of playlists committed to the library
//
// A snapshot that fails to decode or validate is treated as absent: Load
// reports no session and deletes the row.
package repositories
