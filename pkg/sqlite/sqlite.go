package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Config points at the local profile database. An empty path disables it.
type Config struct {
	Path string `envconfig:"PROFILE_DB_PATH"`
}

// Enabled reports whether a database path was configured.
func (c *Config) Enabled() bool {
	return c.Path != ""
}

// Open opens the database, enables WAL and foreign keys, and applies schema.
func (c *Config) Open(ctx context.Context, schema string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", c.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer; modernc serialises anyway and this avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if schema != "" {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return db, nil
}
