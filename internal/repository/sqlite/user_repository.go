package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mkaran/memflow/internal/logger"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository implementation
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, global_decay, calibration_bias, pomodoro_seconds,
       recall_successes, recall_failures, created_at`

func scanUser(scan func(...any) error) (*models.User, error) {
	var u models.User
	var pomodoroSeconds int64
	err := scan(&u.ID, &u.Username, &u.GlobalDecay, &u.CalibrationBias, &pomodoroSeconds,
		&u.RecallSuccesses, &u.RecallFailures, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.PomodoroLength = time.Duration(pomodoroSeconds) * time.Second
	return &u, nil
}

func (r *userRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("getting user: id=%d", id)

	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found: id=%d", id)
		} else {
			log.Error("failed to get user: %v", err)
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("getting user: username=%s", username)

	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found: username=%s", username)
		} else {
			log.Error("failed to get user: %v", err)
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Upsert(ctx context.Context, username string) (*models.User, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("upserting user: username=%s", username)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (username) VALUES (?)
ON CONFLICT(username) DO NOTHING
`, username)
	if err != nil {
		log.Error("failed to upsert user: %v", err)
		return nil, err
	}
	return r.GetByUsername(ctx, username)
}

func (r *userRepository) UpdateCalibrationBias(ctx context.Context, id int64, bias float64) error {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("updating calibration bias: user_id=%d, bias=%.4f", id, bias)

	_, err := r.db.ExecContext(ctx, `UPDATE users SET calibration_bias = ? WHERE id = ?`, bias, id)
	if err != nil {
		log.Error("failed to update calibration bias: %v", err)
	}
	return err
}

func (r *userRepository) AddRecall(ctx context.Context, id int64, success bool) error {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("adding recall: user_id=%d, success=%t", id, success)

	column := "recall_failures"
	if success {
		column = "recall_successes"
	}
	_, err := r.db.ExecContext(ctx, `UPDATE users SET `+column+` = `+column+` + 1 WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to add recall: %v", err)
	}
	return err
}

func (r *userRepository) SetRecallAggregate(ctx context.Context, id int64, successes, failures int) error {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("setting recall aggregate: user_id=%d, successes=%d, failures=%d", id, successes, failures)

	_, err := r.db.ExecContext(ctx, `
UPDATE users SET recall_successes = ?, recall_failures = ? WHERE id = ?
`, successes, failures, id)
	if err != nil {
		log.Error("failed to set recall aggregate: %v", err)
	}
	return err
}
