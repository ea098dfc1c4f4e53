package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockRunRegistry is a mock implementation of port.RunRegistry.
type MockRunRegistry struct {
	mock.Mock
}

func (m *MockRunRegistry) Reserve(ctx context.Context, key uuid.UUID) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockRunRegistry) Release(ctx context.Context, key uuid.UUID) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
