package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"orderaudit/internal/domain"
	"orderaudit/internal/port"
)

type auditRecordRepo struct {
	db *sqlx.DB
}

// NewAuditRecordRepo creates a SQLite-backed AuditRecordRepository.
func NewAuditRecordRepo(db *sqlx.DB) port.AuditRecordRepository {
	return &auditRecordRepo{db: db}
}

func (r *auditRecordRepo) InsertIfAbsent(ctx context.Context, rec *domain.AuditRecord) (bool, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("auditRecordRepo.InsertIfAbsent marshal: %w", err)
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO audit_records (id, folder_id, agency, ehr, status, rule_set_version, run_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.FolderID, rec.Agency, rec.EHR, string(rec.Status), rec.RuleSetVersion,
		rec.Timestamp.UnixNano(), string(payload))
	if err != nil {
		return false, fmt.Errorf("auditRecordRepo.InsertIfAbsent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("auditRecordRepo.InsertIfAbsent rows: %w", err)
	}
	return rows == 1, nil
}

func (r *auditRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	var payload string
	err := r.db.GetContext(ctx, &payload, "SELECT payload FROM audit_records WHERE id = ?", id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("auditRecordRepo.GetByID: %w", err)
	}
	var rec domain.AuditRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("auditRecordRepo.GetByID decode: %w", err)
	}
	return &rec, nil
}

func (r *auditRecordRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, "SELECT COUNT(1) FROM audit_records WHERE id = ?", id.String())
	if err != nil {
		return false, fmt.Errorf("auditRecordRepo.Exists: %w", err)
	}
	return n > 0, nil
}

func (r *auditRecordRepo) List(ctx context.Context, filter domain.RecordFilter) ([]domain.AuditRecord, error) {
	query := "SELECT payload FROM audit_records WHERE 1=1"
	var args []interface{}
	if filter.From != nil {
		query += " AND run_at >= ?"
		args = append(args, filter.From.UnixNano())
	}
	if filter.To != nil {
		query += " AND run_at <= ?"
		args = append(args, filter.To.UnixNano())
	}
	if filter.Agency != "" {
		query += " AND agency = ?"
		args = append(args, filter.Agency)
	}
	query += " ORDER BY run_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var payloads []string
	if err := r.db.SelectContext(ctx, &payloads, query, args...); err != nil {
		return nil, fmt.Errorf("auditRecordRepo.List: %w", err)
	}
	records := make([]domain.AuditRecord, 0, len(payloads))
	for _, p := range payloads {
		var rec domain.AuditRecord
		if err := json.Unmarshal([]byte(p), &rec); err != nil {
			return nil, fmt.Errorf("auditRecordRepo.List decode: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

type runRegistry struct {
	db *sqlx.DB
}

// NewRunRegistry creates a RunRegistry stored in the run_reservations table.
func NewRunRegistry(db *sqlx.DB) port.RunRegistry {
	return &runRegistry{db: db}
}

func (r *runRegistry) Reserve(ctx context.Context, key uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO run_reservations (run_key, reserved_at) VALUES (?, ?)",
		key.String(), time.Now().UTC().UnixNano())
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
	if _, err := r.db.ExecContext(ctx, "DELETE FROM run_reservations WHERE run_key = ?", key.String()); err != nil {
		return fmt.Errorf("runRegistry.Release: %w", err)
	}
	return nil
}
