package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"orderaudit/internal/domain"
	"orderaudit/internal/port"
)

// BuildInput is the complete output of one run's pipeline.
type BuildInput struct {
	Key            uuid.UUID
	FolderID       string
	Agency         string
	EHR            string
	Timestamp      time.Time
	RuleSetVersion string
	Results        []domain.FileScoreResult
	Pairs          []domain.PairResult
	Summaries      []domain.ReconciliationSummary
}

// Builder turns pipeline output into persisted AuditRecords.
type Builder struct {
	registry port.RunRegistry
	repo     port.AuditRecordRepository
}

// NewBuilder creates a Builder.
func NewBuilder(registry port.RunRegistry, repo port.AuditRecordRepository) *Builder {
	return &Builder{registry: registry, repo: repo}
}

// Exists reports whether a record for key has already been persisted.
func (b *Builder) Exists(ctx context.Context, key uuid.UUID) (bool, error) {
	ok, err := b.repo.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("audit.Exists: %w", err)
	}
	return ok, nil
}

// Reserve claims key for a new run. It returns *domain.DuplicateRunError
// when the key is already reserved or recorded.
func (b *Builder) Reserve(ctx context.Context, key uuid.UUID) error {
	exists, err := b.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return &domain.DuplicateRunError{RunKey: key}
	}
	ok, err := b.registry.Reserve(ctx, key)
	if err != nil {
		return fmt.Errorf("audit.Reserve: %w", err)
	}
	if !ok {
		return &domain.DuplicateRunError{RunKey: key}
	}
	return nil
}

// Release frees a reservation for a run that will not be built.
func (b *Builder) Release(ctx context.Context, key uuid.UUID) error {
	if err := b.registry.Release(ctx, key); err != nil {
		return fmt.Errorf("audit.Release: %w", err)
	}
	return nil
}

// Build assembles and persists the record for in. Nothing is stored unless
// the whole record is complete; a second build for the same key returns
// *domain.DuplicateRunError.
func (b *Builder) Build(ctx context.Context, in BuildInput) (*domain.AuditRecord, error) {
	if len(in.Results) == 0 {
		return nil, domain.ErrEmptyRun
	}
	if in.Key == uuid.Nil {
		return nil, fmt.Errorf("audit.Build: run key is required")
	}

	rec := &domain.AuditRecord{
		ID:                    in.Key,
		FolderID:              in.FolderID,
		Agency:                in.Agency,
		EHR:                   in.EHR,
		Status:                DeriveStatus(in.Results),
		Timestamp:             in.Timestamp.UTC().Truncate(time.Microsecond),
		RuleSetVersion:        in.RuleSetVersion,
		AuditResults:          append([]domain.FileScoreResult{}, in.Results...),
		PairedResults:         append([]domain.PairResult{}, in.Pairs...),
		ReconciliationSummary: append([]domain.ReconciliationSummary{}, in.Summaries...),
	}

	inserted, err := b.repo.InsertIfAbsent(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("audit.Build: %w", err)
	}
	if !inserted {
		return nil, &domain.DuplicateRunError{RunKey: in.Key}
	}
	return rec, nil
}

// DeriveStatus is Success when no file in the run has a failing row.
func DeriveStatus(results []domain.FileScoreResult) domain.RunStatus {
	for _, r := range results {
		if r.Stats.FailureCount > 0 {
			return domain.RunStatusFailed
		}
	}
	return domain.RunStatusSuccess
}
