package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// sqliteBusyTimeoutMS lets writers wait on a locked file instead of failing
// immediately when fan-out and request handlers write concurrently.
const sqliteBusyTimeoutMS = 5000

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn, err := buildSQLiteDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}

	if err := requireForeignKeys(db); err != nil {
		return nil, err
	}
	return db, nil
}

// buildSQLiteDSN maps Path onto a DSN. Empty or ":memory:" opens the shared
// in-memory database and "memory:<name>" a named one, which keeps parallel
// tests isolated. Anything else is a file path whose directory is created.
func buildSQLiteDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "", strings.EqualFold(path, ":memory:"):
		return "file::memory:?cache=shared&_foreign_keys=1", nil
	case strings.HasPrefix(path, "memory:"):
		return fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", strings.TrimPrefix(path, "memory:")), nil
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	return fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=%d",
		filepath.ToSlash(path), sqliteBusyTimeoutMS), nil
}

// requireForeignKeys fails when the connection ignored _foreign_keys, since
// deleting a user or post relies on cascades.
func requireForeignKeys(db *gorm.DB) error {
	var enabled int
	if err := db.Raw("PRAGMA foreign_keys").Scan(&enabled).Error; err != nil {
		return fmt.Errorf("check foreign keys: %w", err)
	}
	if enabled != 1 {
		return errors.New("sqlite foreign key enforcement is disabled")
	}
	return nil
}
