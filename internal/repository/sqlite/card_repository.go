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

type cardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a new CardRepository implementation
func NewCardRepository(db *sql.DB) repository.CardRepository {
	return &cardRepository{db: db}
}

const cardColumns = `id, deck_id, front, back, payload, card_type,
       alpha, beta, decay_rate, decay_evidence, last_reviewed, interval_seconds,
       review_count, mature_streak, latency_mean, latency_m2, latency_count,
       version, created_at`

func scanCard(scan func(...any) error) (*models.Card, error) {
	var c models.Card
	var lastReviewed sql.NullTime
	var intervalSeconds int64
	err := scan(&c.ID, &c.DeckID, &c.Front, &c.Back, &c.Payload, &c.CardType,
		&c.Alpha, &c.Beta, &c.DecayRate, &c.DecayEvidence, &lastReviewed, &intervalSeconds,
		&c.ReviewCount, &c.MatureStreak, &c.LatencyMean, &c.LatencyM2, &c.LatencyCount,
		&c.Version, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time
		c.LastReviewed = &t
	}
	c.Interval = time.Duration(intervalSeconds) * time.Second
	return &c, nil
}

func (r *cardRepository) Get(ctx context.Context, id int64) (*models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("getting card: id=%d", id)

	row := r.db.QueryRowContext(ctx, `
SELECT `+cardColumns+`
FROM cards
WHERE id = ?
`, id)
	c, err := scanCard(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found: id=%d", id)
		} else {
			log.Error("failed to get card: %v", err)
		}
		return nil, err
	}
	return c, nil
}

func (r *cardRepository) ListByDeck(ctx context.Context, deckID int64) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("listing cards: deck_id=%d", deckID)

	rows, err := r.db.QueryContext(ctx, `
SELECT `+cardColumns+`
FROM cards
WHERE deck_id = ?
ORDER BY id
`, deckID)
	if err != nil {
		log.Error("failed to list cards: %v", err)
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		c, err := scanCard(rows.Scan)
		if err != nil {
			log.Error("failed to scan card row: %v", err)
			return nil, err
		}
		cards = append(cards, *c)
	}
	log.Debug("found %d cards", len(cards))
	return cards, rows.Err()
}

func (r *cardRepository) Insert(ctx context.Context, card models.Card) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("inserting card: deck_id=%d, type=%s", card.DeckID, card.CardType)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO cards (
    deck_id, front, back, payload, card_type,
    alpha, beta, decay_rate, decay_evidence, interval_seconds
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, card.DeckID, card.Front, card.Back, card.Payload, card.CardType,
		card.Alpha, card.Beta, card.DecayRate, card.DecayEvidence, int64(card.Interval/time.Second))
	if err != nil {
		log.Error("failed to insert card: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get card id: %v", err)
		return 0, err
	}
	log.Debug("card inserted: id=%d", id)
	return id, nil
}

func (r *cardRepository) UpdateContent(ctx context.Context, card models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("updating card content: id=%d", card.ID)

	_, err := r.db.ExecContext(ctx, `
UPDATE cards
SET front = ?, back = ?, payload = ?, card_type = ?
WHERE id = ?
`, card.Front, card.Back, card.Payload, card.CardType, card.ID)
	if err != nil {
		log.Error("failed to update card content: %v", err)
	}
	return err
}

func (r *cardRepository) UpdatePosterior(ctx context.Context, card models.Card, expectedVersion int64) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("updating card posterior: id=%d, version=%d", card.ID, expectedVersion)

	var lastReviewed any
	if card.LastReviewed != nil {
		lastReviewed = *card.LastReviewed
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE cards
SET alpha = ?, beta = ?, decay_rate = ?, decay_evidence = ?,
    last_reviewed = ?, interval_seconds = ?, review_count = ?, mature_streak = ?,
    latency_mean = ?, latency_m2 = ?, latency_count = ?,
    version = version + 1
WHERE id = ? AND version = ?
`, card.Alpha, card.Beta, card.DecayRate, card.DecayEvidence,
		lastReviewed, int64(card.Interval/time.Second), card.ReviewCount, card.MatureStreak,
		card.LatencyMean, card.LatencyM2, card.LatencyCount,
		card.ID, expectedVersion)
	if err != nil {
		log.Error("failed to update card posterior: %v", err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		log.Error("failed to read rows affected: %v", err)
		return err
	}
	if n == 0 {
		log.Debug("version conflict on card: id=%d, expected=%d", card.ID, expectedVersion)
		return repository.ErrVersionConflict
	}
	return nil
}

func (r *cardRepository) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("deleting card: id=%d", id)

	_, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to delete card: %v", err)
	}
	return err
}
