package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/mkaran/memflow/internal/errors"
	"github.com/mkaran/memflow/internal/logger"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
)

// DefaultUsername is the account created on first boot for
// single-learner deployments.
const DefaultUsername = "default"

// UserService handles user lookup and bootstrap
type UserService interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// EnsureDefault creates the default user if missing and returns it.
	EnsureDefault(ctx context.Context) (*models.User, error)
}

type userService struct {
	users repository.UserRepository
}

// NewUserService creates a new UserService
func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("user", id)
		}
		return nil, errors.NewInternalError(err)
	}
	return user, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.NewValidationError("username", "must not be empty")
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("user", username)
		}
		return nil, errors.NewInternalError(err)
	}
	return user, nil
}

func (s *userService) EnsureDefault(ctx context.Context) (*models.User, error) {
	log := logger.FromContext(ctx)

	user, err := s.users.Upsert(ctx, DefaultUsername)
	if err != nil {
		log.Error("failed to ensure default user: %v", err)
		return nil, errors.NewInternalError(err)
	}
	log.Debug("default user ready: id=%d", user.ID)
	return user, nil
}
