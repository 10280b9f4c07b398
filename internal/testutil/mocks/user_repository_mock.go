package mocks

import (
	"context"

	"github.com/mkaran/memflow/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Upsert(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateCalibrationBias(ctx context.Context, id int64, bias float64) error {
	args := m.Called(ctx, id, bias)
	return args.Error(0)
}

func (m *MockUserRepository) AddRecall(ctx context.Context, id int64, success bool) error {
	args := m.Called(ctx, id, success)
	return args.Error(0)
}

func (m *MockUserRepository) SetRecallAggregate(ctx context.Context, id int64, successes, failures int) error {
	args := m.Called(ctx, id, successes, failures)
	return args.Error(0)
}
