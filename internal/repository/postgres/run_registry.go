package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"orderaudit/internal/port"
)

type runRegistry struct {
	db *sqlx.DB
}

// NewRunRegistry creates a RunRegistry backed by the run_reservations table,
// shared by every process using the same database.
func NewRunRegistry(db *sqlx.DB) port.RunRegistry {
	return &runRegistry{db: db}
}

func (r *runRegistry) Reserve(ctx context.Context, key uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO run_reservations (run_key) VALUES ($1) ON CONFLICT (run_key) DO NOTHING", key)
	if err != nil {
		return false, fmt.Errorf("runRegistry.Reserve: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("runRegistry.Reserve rows: %w", err)
	}
	return rows == 1, nil
}

func (r *runRegistry) Release(ctx context.Context, key uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM run_reservations WHERE run_key = $1", key); err != nil {
		return fmt.Errorf("runRegistry.Release: %w", err)
	}
	return nil
}
