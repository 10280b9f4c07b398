package sqlite

import (
	"context"
	"database/sql"

	"github.com/mkaran/memflow/internal/logger"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
)

type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new StatsRepository implementation
func NewStatsRepository(db *sql.DB) repository.StatsRepository {
	return &statsRepository{db: db}
}

// Recent-window posterior prior. Mildly optimistic so a fresh user is
// not treated as a coin flip.
const (
	recentPriorAlpha = 2.0
	recentPriorBeta  = 1.0
)

func (r *statsRepository) UserStats(ctx context.Context, userID int64, recentWindow int) (*models.UserStats, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("computing user stats: user_id=%d, window=%d", userID, recentWindow)

	stats := &models.UserStats{UserID: userID}

	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN outcome >= 2 THEN 1 ELSE 0 END), 0)
FROM review_events
WHERE user_id = ?
`, userID).Scan(&stats.TotalReviews, &stats.Successes)
	if err != nil {
		log.Error("failed to aggregate review events: %v", err)
		return nil, err
	}
	stats.Failures = stats.TotalReviews - stats.Successes
	if stats.TotalReviews > 0 {
		stats.SuccessRate = float64(stats.Successes) / float64(stats.TotalReviews)
	}

	if recentWindow <= 0 {
		recentWindow = 20
	}
	var recentTotal, recentSuccesses int
	err = r.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN outcome >= 2 THEN 1 ELSE 0 END), 0)
FROM (
    SELECT outcome FROM review_events
    WHERE user_id = ?
    ORDER BY timestamp DESC, id DESC
    LIMIT ?
)
`, userID, recentWindow).Scan(&recentTotal, &recentSuccesses)
	if err != nil {
		log.Error("failed to aggregate recent review events: %v", err)
		return nil, err
	}
	stats.RecentAlpha = recentPriorAlpha + float64(recentSuccesses)
	stats.RecentBeta = recentPriorBeta + float64(recentTotal-recentSuccesses)

	err = r.db.QueryRowContext(ctx, `SELECT calibration_bias FROM users WHERE id = ?`, userID).Scan(&stats.CalibrationBias)
	if err != nil {
		log.Error("failed to read calibration bias: %v", err)
		return nil, err
	}
	return stats, nil
}

func (r *statsRepository) DeckStats(ctx context.Context, deckID int64) (*models.DeckStats, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("computing deck stats: deck_id=%d", deckID)

	stats := &models.DeckStats{DeckID: deckID}
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN last_reviewed IS NULL THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN last_reviewed IS NOT NULL
                         AND strftime('%s', last_reviewed) + interval_seconds <= strftime('%s', 'now')
                    THEN 1 ELSE 0 END), 0)
FROM cards
WHERE deck_id = ?
`, deckID).Scan(&stats.TotalCards, &stats.NewCards, &stats.DueCards)
	if err != nil {
		log.Error("failed to compute deck stats: %v", err)
		return nil, err
	}
	return stats, nil
}

func (r *statsRepository) RefreshUserAggregate(ctx context.Context, userID int64) error {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("refreshing user aggregate: user_id=%d", userID)

	return tx(ctx, r.db, func(t *sql.Tx) error {
		var total, successes int
		err := t.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN outcome >= 2 THEN 1 ELSE 0 END), 0)
FROM review_events
WHERE user_id = ?
`, userID).Scan(&total, &successes)
		if err != nil {
			log.Error("failed to aggregate review events: %v", err)
			return err
		}
		_, err = t.ExecContext(ctx, `
UPDATE users SET recall_successes = ?, recall_failures = ? WHERE id = ?
`, successes, total-successes, userID)
		if err != nil {
			log.Error("failed to update user aggregate: %v", err)
		}
		return err
	})
}
