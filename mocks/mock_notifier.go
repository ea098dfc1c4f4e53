package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"orderaudit/internal/domain"
)

// MockNotifier is a mock implementation of port.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyAudit(ctx context.Context, rec *domain.AuditRecord, alerts []domain.FileAlert) error {
	args := m.Called(ctx, rec, alerts)
	return args.Error(0)
}
