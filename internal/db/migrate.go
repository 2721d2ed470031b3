package db

import (
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	version int
	name    string
	stmts   []string
}

// Migrations are applied once, in order, and recorded in
// schema_migrations. Individual statements must be safe to run exactly
// once; the version ledger guarantees they are not run again.
var migrations = []migration{
	{
		version: 1,
		name:    "init",
		stmts: []string{
			`CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				verified INTEGER NOT NULL DEFAULT 0,
				verification_token TEXT,
				is_moderator INTEGER NOT NULL DEFAULT 0,
				is_admin INTEGER NOT NULL DEFAULT 0,
				banned INTEGER NOT NULL DEFAULT 0,
				ban_reason TEXT,
				banned_by INTEGER REFERENCES users(id),
				banned_at TIMESTAMP,
				bio TEXT NOT NULL DEFAULT '',
				picture TEXT NOT NULL DEFAULT '',
				website TEXT NOT NULL DEFAULT '',
				twitter TEXT NOT NULL DEFAULT '',
				instagram TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE UNIQUE INDEX idx_users_email ON users(lower(email))`,
			`CREATE TABLE images (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				filename TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				owner_id INTEGER NOT NULL REFERENCES users(id),
				reviewed_by INTEGER REFERENCES users(id),
				rejection_reason TEXT,
				is_public INTEGER NOT NULL DEFAULT 1,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX idx_images_owner ON images(owner_id)`,
			`CREATE INDEX idx_images_status ON images(status)`,
			`CREATE TABLE albums (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				cover_image_id INTEGER REFERENCES images(id),
				owner_id INTEGER NOT NULL REFERENCES users(id),
				is_public INTEGER NOT NULL DEFAULT 1,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX idx_albums_owner ON albums(owner_id)`,
			`CREATE TABLE album_images (
				album_id INTEGER NOT NULL REFERENCES albums(id),
				image_id INTEGER NOT NULL REFERENCES images(id),
				added_at TEXT NOT NULL,
				PRIMARY KEY (album_id, image_id)
			)`,
		},
	},
	{
		version: 2,
		name:    "users_theme",
		stmts: []string{
			`ALTER TABLE users ADD COLUMN theme TEXT NOT NULL DEFAULT 'light'`,
		},
	},
	{
		version: 3,
		name:    "moderation_indexes",
		stmts: []string{
			`CREATE INDEX idx_images_status_updated ON images(status, updated_at)`,
			`CREATE INDEX idx_album_images_image ON album_images(image_id)`,
		},
	},
}

// Migrate brings the schema up to the latest version.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		for _, stmt := range m.stmts {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations(version,name,applied_at) VALUES(?,?,?)`,
			m.version, m.name, time.Now().UTC()); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}
