package jobs

import (
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
	"github.com/mkaran/memflow/internal/session"
	"github.com/mkaran/memflow/internal/worker"
)

// WorkerQueue implements JobQueue using worker pools
type WorkerQueue struct {
	archivePool *worker.Pool
	statsPool   *worker.Pool
	sessionRepo repository.SessionRepository
	statsRepo   repository.StatsRepository
	registry    *session.Registry
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(
	archivePool *worker.Pool,
	statsPool *worker.Pool,
	sessionRepo repository.SessionRepository,
	statsRepo repository.StatsRepository,
	registry *session.Registry,
) JobQueue {
	return &WorkerQueue{
		archivePool: archivePool,
		statsPool:   statsPool,
		sessionRepo: sessionRepo,
		statsRepo:   statsRepo,
		registry:    registry,
	}
}

func (q *WorkerQueue) EnqueueArchive(sess models.Session) error {
	q.archivePool.Submit(&worker.ArchiveSessionJob{
		SessionRepo: q.sessionRepo,
		Registry:    q.registry,
		Session:     sess,
	})
	return nil
}

func (q *WorkerQueue) EnqueueStatsRefresh(userID int64) error {
	q.statsPool.Submit(&worker.RefreshUserStatsJob{
		StatsRepo: q.statsRepo,
		UserID:    userID,
	})
	return nil
}
