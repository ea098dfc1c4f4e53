package port

import (
	"context"

	"orderaudit/internal/domain"
)

// EmailSender defines the contract for sending run notifications.
type EmailSender interface {
	SendAuditSummary(ctx context.Context, rec *domain.AuditRecord, alerts []domain.FileAlert) error
}
