package worker

import (
	"context"

	"github.com/mkaran/memflow/internal/logger"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
	"github.com/mkaran/memflow/internal/session"
)

// ArchiveSessionJob persists the final snapshot of an ended session and
// evicts its tracker from the in-flight registry.
type ArchiveSessionJob struct {
	SessionRepo repository.SessionRepository
	Registry    *session.Registry
	Session     models.Session
}

func (j *ArchiveSessionJob) Name() string { return "archive_session" }

func (j *ArchiveSessionJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("session_id", j.Session.ID)
	log.Debug("archiving session")

	if err := j.SessionRepo.Update(ctx, j.Session); err != nil {
		log.Error("failed to archive session: %v", err)
		return err
	}
	j.Registry.Remove(j.Session.ID)
	log.Info("session archived: cards=%d, rescues=%d", len(j.Session.Events), j.Session.RescueActivations)
	return nil
}

// RefreshUserStatsJob recomputes a user's recall aggregate from the
// review event log.
type RefreshUserStatsJob struct {
	StatsRepo repository.StatsRepository
	UserID    int64
}

func (j *RefreshUserStatsJob) Name() string { return "refresh_user_stats" }

func (j *RefreshUserStatsJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("user_id", j.UserID)
	log.Debug("refreshing user stats")
	return j.StatsRepo.RefreshUserAggregate(ctx, j.UserID)
}
