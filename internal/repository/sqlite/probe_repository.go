package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mkaran/memflow/internal/logger"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
)

type probeRepository struct {
	db *sql.DB
}

// NewProbeRepository creates a new ProbeRepository implementation
func NewProbeRepository(db *sql.DB) repository.ProbeRepository {
	return &probeRepository{db: db}
}

func scanProbe(scan func(...any) error) (*models.CalibrationProbe, error) {
	var p models.CalibrationProbe
	var actual sql.NullBool
	var resolvedAt sql.NullTime
	err := scan(&p.ID, &p.SessionID, &p.CardID, &p.PredictedConfidence, &actual, &p.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if actual.Valid {
		v := actual.Bool
		p.ActualSuccess = &v
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		p.ResolvedAt = &t
	}
	return &p, nil
}

func (r *probeRepository) Insert(ctx context.Context, probe models.CalibrationProbe) error {
	log := logger.FromContext(ctx).WithPrefix("probe_repo")
	log.Debug("inserting probe: id=%s, card_id=%d", probe.ID, probe.CardID)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO calibration_probes (id, session_id, card_id, predicted_confidence, created_at)
VALUES (?, ?, ?, ?, ?)
`, probe.ID, probe.SessionID, probe.CardID, probe.PredictedConfidence, probe.CreatedAt)
	if err != nil {
		log.Error("failed to insert probe: %v", err)
	}
	return err
}

func (r *probeRepository) Get(ctx context.Context, id string) (*models.CalibrationProbe, error) {
	log := logger.FromContext(ctx).WithPrefix("probe_repo")
	log.Debug("getting probe: id=%s", id)

	row := r.db.QueryRowContext(ctx, `
SELECT id, session_id, card_id, predicted_confidence, actual_success, created_at, resolved_at
FROM calibration_probes
WHERE id = ?
`, id)
	p, err := scanProbe(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("probe not found: id=%s", id)
		} else {
			log.Error("failed to get probe: %v", err)
		}
		return nil, err
	}
	return p, nil
}

func (r *probeRepository) Resolve(ctx context.Context, probe models.CalibrationProbe) error {
	log := logger.FromContext(ctx).WithPrefix("probe_repo")
	log.Debug("resolving probe: id=%s", probe.ID)

	var actual any
	if probe.ActualSuccess != nil {
		actual = *probe.ActualSuccess
	}
	var resolvedAt any
	if probe.ResolvedAt != nil {
		resolvedAt = *probe.ResolvedAt
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE calibration_probes
SET predicted_confidence = ?, actual_success = ?, resolved_at = ?
WHERE id = ?
`, probe.PredictedConfidence, actual, resolvedAt, probe.ID)
	if err != nil {
		log.Error("failed to resolve probe: %v", err)
	}
	return err
}

func (r *probeRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]models.CalibrationProbe, error) {
	log := logger.FromContext(ctx).WithPrefix("probe_repo")
	log.Debug("listing recent probes: user_id=%d, limit=%d", userID, limit)

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT p.id, p.session_id, p.card_id, p.predicted_confidence, p.actual_success, p.created_at, p.resolved_at
FROM calibration_probes p
JOIN sessions s ON s.id = p.session_id
WHERE s.user_id = ? AND p.resolved_at IS NOT NULL
ORDER BY p.resolved_at DESC
LIMIT ?
`, userID, limit)
	if err != nil {
		log.Error("failed to list recent probes: %v", err)
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
	log.Debug("found %d resolved probes", len(probes))
	return probes, rows.Err()
}
