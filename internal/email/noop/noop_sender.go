package noop

import (
	"context"

	"github.com/rs/zerolog"

	"orderaudit/internal/domain"
	"orderaudit/internal/email"
	"orderaudit/internal/port"
)

type noopSender struct {
	log          zerolog.Logger
	dashboardURL string
}

// NewNoopSender creates an EmailSender that only logs the summary subject.
func NewNoopSender(log zerolog.Logger, dashboardURL string) port.EmailSender {
	return &noopSender{log: log, dashboardURL: dashboardURL}
}

func (s *noopSender) SendAuditSummary(_ context.Context, rec *domain.AuditRecord, alerts []domain.FileAlert) error {
	msg := email.BuildSummary(rec, alerts, s.dashboardURL)
	s.log.Info().
		Str("audit_id", rec.ID.String()).
		Int("alerts", len(alerts)).
		Str("subject", msg.Subject).
		Msg("noop email: audit summary")
	return nil
}
