package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"orderaudit/internal/port"
)

// MockExportSource is a mock implementation of port.ExportSource.
type MockExportSource struct {
	mock.Mock
}

func (m *MockExportSource) ListExports(ctx context.Context, folderID string) ([]port.ExportObject, error) {
	args := m.Called(ctx, folderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.ExportObject), args.Error(1)
}

func (m *MockExportSource) FetchExport(ctx context.Context, folderID, name string) ([]byte, error) {
	args := m.Called(ctx, folderID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
