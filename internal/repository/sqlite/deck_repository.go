package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mkaran/memflow/internal/logger"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
)

type deckRepository struct {
	db *sql.DB
}

// NewDeckRepository creates a new DeckRepository implementation
func NewDeckRepository(db *sql.DB) repository.DeckRepository {
	return &deckRepository{db: db}
}

func (r *deckRepository) Get(ctx context.Context, id int64) (*models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("getting deck: id=%d", id)

	var d models.Deck
	err := r.db.QueryRowContext(ctx, `
SELECT d.id, d.name, d.created_at, COUNT(c.id)
FROM decks d
LEFT JOIN cards c ON c.deck_id = d.id
WHERE d.id = ?
GROUP BY d.id
`, id).Scan(&d.ID, &d.Name, &d.CreatedAt, &d.CardCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("deck not found: id=%d", id)
		} else {
			log.Error("failed to get deck: %v", err)
		}
		return nil, err
	}
	return &d, nil
}

func (r *deckRepository) GetByName(ctx context.Context, name string) (*models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("getting deck: name=%s", name)

	var d models.Deck
	err := r.db.QueryRowContext(ctx, `
SELECT d.id, d.name, d.created_at, COUNT(c.id)
FROM decks d
LEFT JOIN cards c ON c.deck_id = d.id
WHERE d.name = ?
GROUP BY d.id
`, name).Scan(&d.ID, &d.Name, &d.CreatedAt, &d.CardCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("deck not found: name=%s", name)
		} else {
			log.Error("failed to get deck: %v", err)
		}
		return nil, err
	}
	return &d, nil
}

func (r *deckRepository) List(ctx context.Context) ([]models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("listing decks")

	rows, err := r.db.QueryContext(ctx, `
SELECT d.id, d.name, d.created_at, COUNT(c.id)
FROM decks d
LEFT JOIN cards c ON c.deck_id = d.id
GROUP BY d.id
ORDER BY d.name
`)
	if err != nil {
		log.Error("failed to list decks: %v", err)
		return nil, err
	}
	defer rows.Close()

	var decks []models.Deck
	for rows.Next() {
		var d models.Deck
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt, &d.CardCount); err != nil {
			log.Error("failed to scan deck row: %v", err)
			return nil, err
		}
		decks = append(decks, d)
	}
	log.Debug("found %d decks", len(decks))
	return decks, rows.Err()
}

func (r *deckRepository) Insert(ctx context.Context, deck models.Deck) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("inserting deck: name=%s", deck.Name)

	res, err := r.db.ExecContext(ctx, `INSERT INTO decks (name) VALUES (?)`, deck.Name)
	if err != nil {
		log.Error("failed to insert deck: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get deck id: %v", err)
		return 0, err
	}
	log.Debug("deck inserted: id=%d", id)
	return id, nil
}

func (r *deckRepository) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("deleting deck: id=%d", id)

	_, err := r.db.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to delete deck: %v", err)
	}
	return err
}
