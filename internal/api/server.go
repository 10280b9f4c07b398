package api

import (
	"github.com/go-playground/validator/v10"

	"github.com/mkaran/memflow/internal/services"
	"github.com/mkaran/memflow/internal/worker"
)

// Server carries the handler dependencies.
type Server struct {
	Study services.StudyService
	Decks services.DeckService
	Users services.UserService
	Stats services.StatsService

	ArchivePool *worker.Pool
	StatsPool   *worker.Pool

	// DefaultUserID is used when a request does not name a user.
	DefaultUserID int64

	validate *validator.Validate
}

// NewServer creates a Server with a shared request validator.
func NewServer(
	study services.StudyService,
	decks services.DeckService,
	users services.UserService,
	stats services.StatsService,
	archivePool, statsPool *worker.Pool,
	defaultUserID int64,
) *Server {
	return &Server{
		Study:         study,
		Decks:         decks,
		Users:         users,
		Stats:         stats,
		ArchivePool:   archivePool,
		StatsPool:     statsPool,
		DefaultUserID: defaultUserID,
		validate:      validator.New(),
	}
}
