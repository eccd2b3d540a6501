// Package database provides GORM-backed storage over SQLite or PostgreSQL.
package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database wraps a GORM connection.
type Database struct {
	db     *gorm.DB
	dbType string
}

// Supported database types.
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// NewDatabase opens a database connection from a URL. SQLite URLs use the
// form sqlite:///path/to/file.db; anything starting with postgres:// or
// postgresql:// is passed to the PostgreSQL driver as-is.
func NewDatabase(ctx context.Context, url string) (*Database, error) {
	gormCfg := &gorm.Config{Logger: auditLogger{}}

	switch {
	case strings.HasPrefix(url, "sqlite:///"):
		path := strings.TrimPrefix(url, "sqlite:///")
		db, err := gorm.Open(sqlite.Open(path), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		return &Database{db: db.WithContext(ctx), dbType: TypeSQLite}, nil

	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		db, err := gorm.Open(postgres.Open(url), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
		return &Database{db: db.WithContext(ctx), dbType: TypePostgres}, nil

	default:
		return nil, fmt.Errorf("unsupported database URL: %q", url)
	}
}

// Session returns a GORM session bound to the given context.
func (d *Database) Session(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx)
}

// IsSQLite reports whether the connection uses SQLite.
func (d *Database) IsSQLite() bool { return d.dbType == TypeSQLite }

// IsPostgres reports whether the connection uses PostgreSQL.
func (d *Database) IsPostgres() bool { return d.dbType == TypePostgres }

// Close closes the underlying connection.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("get sql database: %w", err)
	}
	return sqlDB.Close()
}
