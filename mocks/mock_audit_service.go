package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"orderaudit/internal/domain"
	"orderaudit/internal/port"
	"orderaudit/internal/service"
)

// MockAuditService is a mock implementation of service.AuditService.
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Run(ctx context.Context, input domain.AgencyInput) (*domain.AuditRecord, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditRecord), args.Error(1)
}

func (m *MockAuditService) RunFolder(ctx context.Context, folderID string, triggeredAt time.Time) (*domain.AuditRecord, error) {
	args := m.Called(ctx, folderID, triggeredAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditRecord), args.Error(1)
}

func (m *MockAuditService) RunBatch(ctx context.Context, folderIDs []string, triggeredAt time.Time) []service.BatchResult {
	args := m.Called(ctx, folderIDs, triggeredAt)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]service.BatchResult)
}

func (m *MockAuditService) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditRecord), args.Error(1)
}

func (m *MockAuditService) List(ctx context.Context, filter domain.RecordFilter) ([]domain.AuditRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditRecord), args.Error(1)
}

func (m *MockAuditService) ArchiveURL(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockAuditService) ListExports(ctx context.Context, folderID string) ([]port.ExportObject, error) {
	args := m.Called(ctx, folderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.ExportObject), args.Error(1)
}
