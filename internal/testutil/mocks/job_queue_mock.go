package mocks

import (
	"github.com/mkaran/memflow/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockJobQueue is a mock implementation of jobs.JobQueue
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) EnqueueArchive(sess models.Session) error {
	args := m.Called(sess)
	return args.Error(0)
}

func (m *MockJobQueue) EnqueueStatsRefresh(userID int64) error {
	args := m.Called(userID)
	return args.Error(0)
}
