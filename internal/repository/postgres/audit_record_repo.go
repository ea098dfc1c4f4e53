package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"orderaudit/internal/domain"
	"orderaudit/internal/port"
)

type auditRecordRepo struct {
	db *sqlx.DB
}

// NewAuditRecordRepo creates a new PostgreSQL-backed AuditRecordRepository.
func NewAuditRecordRepo(db *sqlx.DB) port.AuditRecordRepository {
	return &auditRecordRepo{db: db}
}

// The payload column is JSON, not JSONB: JSONB re-sorts object keys, and
// reason maps are ordered by first occurrence.
func encodePayload(rec *domain.AuditRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func decodePayload(payload []byte) (*domain.AuditRecord, error) {
	var rec domain.AuditRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *auditRecordRepo) InsertIfAbsent(ctx context.Context, rec *domain.AuditRecord) (bool, error) {
	payload, err := encodePayload(rec)
	if err != nil {
		return false, fmt.Errorf("auditRecordRepo.InsertIfAbsent marshal: %w", err)
	}

	query := `INSERT INTO audit_records (id, folder_id, agency, ehr, status, rule_set_version, run_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.FolderID, rec.Agency, rec.EHR, rec.Status, rec.RuleSetVersion, rec.Timestamp, payload)
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
	var payload []byte
	err := r.db.GetContext(ctx, &payload, "SELECT payload FROM audit_records WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("auditRecordRepo.GetByID: %w", err)
	}
	rec, err := decodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("auditRecordRepo.GetByID decode: %w", err)
	}
	return rec, nil
}

func (r *auditRecordRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM audit_records WHERE id = $1)", id)
	if err != nil {
		return false, fmt.Errorf("auditRecordRepo.Exists: %w", err)
	}
	return exists, nil
}

// buildListQuery constructs the filtered history query and its positional arguments.
func buildListQuery(filter domain.RecordFilter) (query string, args []interface{}) {
	query = "SELECT payload FROM audit_records WHERE 1=1"
	argN := 1

	if filter.From != nil {
		query += fmt.Sprintf(" AND run_at >= $%d", argN)
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND run_at <= $%d", argN)
		args = append(args, *filter.To)
		argN++
	}
	if filter.Agency != "" {
		query += fmt.Sprintf(" AND agency = $%d", argN)
		args = append(args, filter.Agency)
		argN++
	}
	query += " ORDER BY run_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, filter.Limit)
	}
	return query, args
}

func (r *auditRecordRepo) List(ctx context.Context, filter domain.RecordFilter) ([]domain.AuditRecord, error) {
	query, args := buildListQuery(filter)

	var payloads [][]byte
	if err := r.db.SelectContext(ctx, &payloads, query, args...); err != nil {
		return nil, fmt.Errorf("auditRecordRepo.List: %w", err)
	}

	records := make([]domain.AuditRecord, 0, len(payloads))
	for _, p := range payloads {
		rec, err := decodePayload(p)
		if err != nil {
			return nil, fmt.Errorf("auditRecordRepo.List decode: %w", err)
		}
		records = append(records, *rec)
	}
	return records, nil
}
