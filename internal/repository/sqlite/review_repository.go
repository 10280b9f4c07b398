package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/mkaran/memflow/internal/logger"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
)

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new ReviewRepository implementation
func NewReviewRepository(db *sql.DB) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Insert(ctx context.Context, ev models.ReviewEvent) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")
	log.Debug("inserting review event: card_id=%d, outcome=%s", ev.CardID, ev.Outcome)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO review_events (card_id, user_id, session_id, timestamp, outcome, latency_ms)
VALUES (?, ?, ?, ?, ?, ?)
`, ev.CardID, ev.UserID, ev.SessionID, ev.Timestamp, int(ev.Outcome), ev.Latency.Milliseconds())
	if err != nil {
		log.Error("failed to insert review event: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get review event id: %v", err)
		return 0, err
	}
	return id, nil
}

func reviewFilterQuery(base squirrel.SelectBuilder, filter models.ReviewFilter) squirrel.SelectBuilder {
	if filter.CardID != 0 {
		base = base.Where(squirrel.Eq{"card_id": filter.CardID})
	}
	if filter.UserID != 0 {
		base = base.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.SessionID != "" {
		base = base.Where(squirrel.Eq{"session_id": filter.SessionID})
	}
	if filter.Since != nil {
		base = base.Where(squirrel.GtOrEq{"timestamp": *filter.Since})
	}
	return base
}

func (r *reviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewEvent, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")
	log.Debug("listing review events: card_id=%d, user_id=%d, session_id=%s", filter.CardID, filter.UserID, filter.SessionID)

	query := reviewFilterQuery(sqlBuilder.Select(
		"id", "card_id", "user_id", "session_id", "timestamp", "outcome", "latency_ms",
	).From("review_events"), filter).OrderBy("timestamp DESC", "id DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query = query.Limit(uint64(limit)).Offset(uint64(offset))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list review events: %v", err)
		return nil, err
	}
	defer rows.Close()

	var events []models.ReviewEvent
	for rows.Next() {
		var ev models.ReviewEvent
		var latencyMS int64
		if err := rows.Scan(&ev.ID, &ev.CardID, &ev.UserID, &ev.SessionID, &ev.Timestamp, &ev.Outcome, &latencyMS); err != nil {
			log.Error("failed to scan review event row: %v", err)
			return nil, err
		}
		ev.Latency = time.Duration(latencyMS) * time.Millisecond
		events = append(events, ev)
	}
	log.Debug("found %d review events", len(events))
	return events, rows.Err()
}

func (r *reviewRepository) Count(ctx context.Context, filter models.ReviewFilter) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")

	query := reviewFilterQuery(sqlBuilder.Select("COUNT(*)").From("review_events"), filter)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return 0, err
	}

	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		log.Error("failed to count review events: %v", err)
		return 0, err
	}
	return count, nil
}
