package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/mkaran/memflow/internal/logger"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
)

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository implementation
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Insert(ctx context.Context, sess models.Session) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("inserting session: id=%s, user_id=%d, deck_id=%d", sess.ID, sess.UserID, sess.DeckID)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (id, user_id, deck_id, name, start_time, state, rescue_activations, new_cards_served)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, sess.ID, sess.UserID, sess.DeckID, sess.Name, sess.StartTime, string(sess.State), sess.RescueActivations, sess.NewCardsServed)
	if err != nil {
		log.Error("failed to insert session: %v", err)
	}
	return err
}

func (r *sessionRepository) Update(ctx context.Context, sess models.Session) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("updating session: id=%s, state=%s", sess.ID, sess.State)

	var endTime any
	if sess.EndTime != nil {
		endTime = *sess.EndTime
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE sessions
SET name = ?, end_time = ?, state = ?, rescue_activations = ?, new_cards_served = ?
WHERE id = ?
`, sess.Name, endTime, string(sess.State), sess.RescueActivations, sess.NewCardsServed, sess.ID)
	if err != nil {
		log.Error("failed to update session: %v", err)
	}
	return err
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("getting session: id=%s", id)

	var s models.Session
	var state string
	var endTime sql.NullTime
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, deck_id, name, start_time, end_time, state, rescue_activations, new_cards_served
FROM sessions
WHERE id = ?
`, id).Scan(&s.ID, &s.UserID, &s.DeckID, &s.Name, &s.StartTime, &endTime, &state, &s.RescueActivations, &s.NewCardsServed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("session not found: id=%s", id)
		} else {
			log.Error("failed to get session: %v", err)
		}
		return nil, err
	}
	s.State = models.SessionState(state)
	if endTime.Valid {
		t := endTime.Time
		s.EndTime = &t
	}

	events, err := r.sessionEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Events = events

	probes, err := r.sessionProbes(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Probes = probes
	return &s, nil
}

func (r *sessionRepository) sessionEvents(ctx context.Context, sessionID string) ([]models.ReviewEvent, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	rows, err := r.db.QueryContext(ctx, `
SELECT id, card_id, user_id, session_id, timestamp, outcome, latency_ms
FROM review_events
WHERE session_id = ?
ORDER BY timestamp, id
`, sessionID)
	if err != nil {
		log.Error("failed to query session events: %v", err)
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
	return events, rows.Err()
}

func (r *sessionRepository) sessionProbes(ctx context.Context, sessionID string) ([]models.CalibrationProbe, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, card_id, predicted_confidence, actual_success, created_at, resolved_at
FROM calibration_probes
WHERE session_id = ?
ORDER BY created_at, id
`, sessionID)
	if err != nil {
		log.Error("failed to query session probes: %v", err)
		return nil, err
	}
	defer rows.Close()

	var probes []models.CalibrationProbe
	for rows.Next() {
		p, err := scanProbe(rows.Scan)
		if err != nil {
			log.Error("failed to scan probe row: %v", err)
			return nil, err
		}
		probes = append(probes, *p)
	}
	return probes, rows.Err()
}

func (r *sessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("listing sessions: user_id=%d, deck_id=%d, active_only=%t", filter.UserID, filter.DeckID, filter.ActiveOnly)

	query := sqlBuilder.Select(
		"id", "user_id", "deck_id", "name", "start_time", "end_time", "state",
		"rescue_activations", "new_cards_served",
	).From("sessions")

	if filter.UserID != 0 {
		query = query.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.DeckID != 0 {
		query = query.Where(squirrel.Eq{"deck_id": filter.DeckID})
	}
	if filter.ActiveOnly {
		query = query.Where("end_time IS NULL")
	}
	query = query.OrderBy("start_time DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
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
		log.Error("failed to list sessions: %v", err)
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		var state string
		var endTime sql.NullTime
		if err := rows.Scan(&s.ID, &s.UserID, &s.DeckID, &s.Name, &s.StartTime, &endTime, &state, &s.RescueActivations, &s.NewCardsServed); err != nil {
			log.Error("failed to scan session row: %v", err)
			return nil, err
		}
		s.State = models.SessionState(state)
		if endTime.Valid {
			t := endTime.Time
			s.EndTime = &t
		}
		sessions = append(sessions, s)
	}
	log.Debug("found %d sessions", len(sessions))
	return sessions, rows.Err()
}
