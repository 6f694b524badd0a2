package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"registration/internal/registration"
)

// NewSQLite opens a SQLite database file, creating its directory if needed.
func NewSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serialises writers anyway.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// SQLiteDialect describes SQLite for the SQL repository.
func SQLiteDialect() registration.SQLDialect {
	return registration.SQLDialect{
		Name:     "sqlite",
		JSONType: "TEXT",
		BlobType: "BLOB",
		TimeType: "DATETIME",
		IsUniqueViolation: func(err error) bool {
			var sqErr sqlite3.Error
			return errors.As(err, &sqErr) &&
				(sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqErr.ExtendedCode == sqlite3.ErrConstraintUnique)
		},
	}
}
