package port

import (
	"context"

	"orderaudit/internal/domain"
)

// Notifier publishes a recorded run to an external channel.
type Notifier interface {
	NotifyAudit(ctx context.Context, rec *domain.AuditRecord, alerts []domain.FileAlert) error
}
