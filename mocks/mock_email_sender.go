package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"orderaudit/internal/domain"
)

// MockEmailSender is a mock implementation of port.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendAuditSummary(ctx context.Context, rec *domain.AuditRecord, alerts []domain.FileAlert) error {
	args := m.Called(ctx, rec, alerts)
	return args.Error(0)
}
