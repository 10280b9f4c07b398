package mocks

import (
	"context"

	"github.com/mkaran/memflow/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockProbeRepository is a mock implementation of repository.ProbeRepository
type MockProbeRepository struct {
	mock.Mock
}

func (m *MockProbeRepository) Insert(ctx context.Context, probe models.CalibrationProbe) error {
	args := m.Called(ctx, probe)
	return args.Error(0)
}

func (m *MockProbeRepository) Get(ctx context.Context, id string) (*models.CalibrationProbe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalibrationProbe), args.Error(1)
}

func (m *MockProbeRepository) Resolve(ctx context.Context, probe models.CalibrationProbe) error {
	args := m.Called(ctx, probe)
	return args.Error(0)
}

func (m *MockProbeRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]models.CalibrationProbe, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CalibrationProbe), args.Error(1)
}
