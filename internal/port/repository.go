package port

import (
	"context"

	"github.com/google/uuid"

	"orderaudit/internal/domain"
)

// AuditRecordRepository defines the contract for audit record persistence.
// Records are immutable once inserted.
type AuditRecordRepository interface {
	// InsertIfAbsent stores rec unless a record with the same id exists.
	// It reports whether rec was inserted.
	InsertIfAbsent(ctx context.Context, rec *domain.AuditRecord) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// List returns records newest first within the filter's time range.
	List(ctx context.Context, filter domain.RecordFilter) ([]domain.AuditRecord, error)
}

// RunRegistry reserves run keys so at most one run per key proceeds.
type RunRegistry interface {
	// Reserve atomically claims key, reporting false if it is already claimed.
	Reserve(ctx context.Context, key uuid.UUID) (bool, error)
	// Release drops a claim for a run that was aborted before persisting.
	Release(ctx context.Context, key uuid.UUID) error
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}
