package jobs

import "github.com/mkaran/memflow/internal/models"

// JobQueue provides an abstraction for enqueueing background jobs
type JobQueue interface {
	EnqueueArchive(sess models.Session) error
	EnqueueStatsRefresh(userID int64) error
}
