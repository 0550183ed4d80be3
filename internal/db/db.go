// Package db opens the registry database.
package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSQLiteFile is used when no DSN is configured.
const DefaultSQLiteFile = "mcpbridge.db"

// NewDBConnection opens a connection to the database described by dsn.
// Postgres DSNs (postgres:// or postgresql://) use the Postgres driver; anything else is treated
// as a SQLite file path, and an empty dsn opens DefaultSQLiteFile in the current directory.
func NewDBConnection(dsn string) (*gorm.DB, error) {
	config := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var dialector gorm.Dialector
	switch {
	case isPostgresDSN(dsn):
		dialector = postgres.Open(dsn)
	case dsn == "":
		dialector = sqlite.Open(DefaultSQLiteFile)
	default:
		dialector = sqlite.Open(dsn)
	}

	conn, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}
	return conn, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
