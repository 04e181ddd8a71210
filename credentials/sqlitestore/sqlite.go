// Package sqlitestore keeps the credential slot in a local SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/qeem-client/credentials"
	apperrors "github.com/jrsteele09/qeem-client/internal/errors"

	_ "modernc.org/sqlite" // SQLite driver.
)

// slotID is the only row: one identity is held at a time.
const slotID = 1

// Blob implements credentials.Blob on a single-row table
type Blob struct {
	db *sql.DB
}

var _ credentials.Blob = (*Blob)(nil)

// Open opens or creates the database and applies migrations
func Open(path string) (*Blob, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	b := &Blob{db: db}
	if err := b.migrate(); err != nil {
		// Best-effort close on migration failure.
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// Close closes the underlying database
func (b *Blob) Close() error {
	return b.db.Close()
}

func (b *Blob) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS credential (
			slot INTEGER PRIMARY KEY CHECK (slot = 1),
			data BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := b.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

func (b *Blob) Read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, `SELECT data FROM credential WHERE slot = ?`, slotID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}
	return data, nil
}

func (b *Blob) Write(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO credential (slot, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		slotID, data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	return nil
}

func (b *Blob) Delete(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM credential WHERE slot = ?`, slotID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
