package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"orderaudit/internal/domain"
)

// MockAuditRecordRepo is a mock implementation of port.AuditRecordRepository.
type MockAuditRecordRepo struct {
	mock.Mock
}

func (m *MockAuditRecordRepo) InsertIfAbsent(ctx context.Context, rec *domain.AuditRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuditRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditRecord), args.Error(1)
}

func (m *MockAuditRecordRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuditRecordRepo) List(ctx context.Context, filter domain.RecordFilter) ([]domain.AuditRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditRecord), args.Error(1)
}
