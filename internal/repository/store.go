// Package repository opens the configured audit store.
package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"orderaudit/internal/config"
	"orderaudit/internal/port"
	"orderaudit/internal/repository/postgres"
	"orderaudit/internal/repository/sqlite"
)

// Store bundles the audit store's connection and repositories.
type Store struct {
	DB       *sqlx.DB
	Records  port.AuditRecordRepository
	Registry port.RunRegistry
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Open connects to the store selected by cfg.Driver. PostgreSQL schemas are
// managed by cmd/migrate; the SQLite schema is created on open.
func Open(cfg *config.DBConfig) (*Store, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		return &Store{DB: db, Records: postgres.NewAuditRecordRepo(db), Registry: postgres.NewRunRegistry(db)}, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Store{DB: db, Records: sqlite.NewAuditRecordRepo(db), Registry: sqlite.NewRunRegistry(db)}, nil
	default:
		return nil, fmt.Errorf("repository.Open: unsupported driver %q", cfg.Driver)
	}
}
