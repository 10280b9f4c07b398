// Package scheduler selects review intervals and orders the review
// queue. Intervals target a fixed desirable-difficulty recall
// probability by inverting the memory model's forgetting curve in closed
// form. Ranking is a pure read: it can be recomputed freely and
// concurrently, so the queue is lazy and restartable by construction.
package scheduler

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/mkaran/memflow/internal/memory"
	"github.com/mkaran/memflow/internal/models"
)

// ErrNoCardsDue signals an empty due set. It is a normal terminal
// condition for a session, not a failure. Use errors.Is to check.
var ErrNoCardsDue = errors.New("scheduler: no cards due")

// Config holds the scheduling tunables.
type Config struct {
	TargetRecall float64       // desirable-difficulty target, default 0.80
	MinInterval  time.Duration // default 10 minutes
	MaxInterval  time.Duration // default 2 years
	NewCardEvery int           // queue slots between new-card insertions
}

// DefaultConfig returns the scheduling defaults.
func DefaultConfig() Config {
	return Config{
		TargetRecall: 0.80,
		MinInterval:  10 * time.Minute,
		MaxInterval:  2 * 365 * 24 * time.Hour,
		NewCardEvery: 4,
	}
}

// Scheduler computes next intervals and due-card rankings from memory
// model outputs.
type Scheduler struct {
	cfg   Config
	model *memory.Model
}

// New creates a Scheduler. Zero-valued config fields fall back to defaults.
func New(model *memory.Model, cfg Config) *Scheduler {
	def := DefaultConfig()
	if cfg.TargetRecall <= 0 || cfg.TargetRecall >= 1 {
		cfg.TargetRecall = def.TargetRecall
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = def.MinInterval
	}
	if cfg.MaxInterval <= cfg.MinInterval {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.NewCardEvery <= 0 {
		cfg.NewCardEvery = def.NewCardEvery
	}
	return &Scheduler{cfg: cfg, model: model}
}

// NextInterval solves recall_probability(card, t*) == target for t* by
// inverting the exponential model: t* = ln(mean / target) / decay. A
// card whose posterior mean is already at or below the target is due
// again almost immediately and gets the minimum interval.
func (s *Scheduler) NextInterval(card models.Card, uc memory.UserContext) time.Duration {
	mean := s.model.CalibratedMean(card, uc)
	if mean <= s.cfg.TargetRecall {
		return s.cfg.MinInterval
	}

	decay := card.DecayRate
	if decay <= 0 {
		return s.cfg.MinInterval
	}

	daysOut := math.Log(mean/s.cfg.TargetRecall) / decay
	interval := time.Duration(daysOut * 24 * float64(time.Hour))

	if interval < s.cfg.MinInterval {
		return s.cfg.MinInterval
	}
	if interval > s.cfg.MaxInterval {
		return s.cfg.MaxInterval
	}
	return interval
}

// RankOptions alter ranking behavior for session state.
type RankOptions struct {
	// Rescue flips the ordering to prefer cards with higher current
	// recall probability (confidence-building items) and suspends new
	// card introduction.
	Rescue bool
	// NewCardBudget is the number of never-reviewed cards the queue may
	// still introduce; exhausted budget means review-only.
	NewCardBudget int
}

// RankDueCards orders the reviewable cards at now. Due cards come first,
// weakest memory first (ascending recall probability), tie-broken by
// longest time overdue, then by insertion order for full determinism.
// New cards are interleaved at a fixed stride rather than appended, so
// early learning does not starve review of older cards.
func (s *Scheduler) RankDueCards(cards []models.Card, uc memory.UserContext, now time.Time, opts RankOptions) []models.Card {
	type scored struct {
		card    models.Card
		recall  float64
		overdue time.Duration
	}

	var due []scored
	var fresh []models.Card
	for _, c := range cards {
		if c.LastReviewed == nil {
			fresh = append(fresh, c)
			continue
		}
		if !c.Due(now) {
			continue
		}
		due = append(due, scored{
			card:    c,
			recall:  s.model.RecallProbability(c, uc, now.Sub(*c.LastReviewed)),
			overdue: c.Overdue(now),
		})
	}

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].recall != due[j].recall {
			if opts.Rescue {
				return due[i].recall > due[j].recall
			}
			return due[i].recall < due[j].recall
		}
		return due[i].overdue > due[j].overdue
	})

	if opts.Rescue || opts.NewCardBudget <= 0 || len(fresh) == 0 {
		out := make([]models.Card, 0, len(due))
		for _, d := range due {
			out = append(out, d.card)
		}
		return out
	}

	// Interleave one new card every NewCardEvery slots until the budget
	// runs out, then drain whichever list remains.
	budget := opts.NewCardBudget
	if budget > len(fresh) {
		budget = len(fresh)
	}
	out := make([]models.Card, 0, len(due)+budget)
	di, fi := 0, 0
	for di < len(due) || fi < budget {
		takeNew := fi < budget && (len(out)%s.cfg.NewCardEvery == s.cfg.NewCardEvery-1 || di >= len(due))
		if takeNew {
			out = append(out, fresh[fi])
			fi++
		} else {
			out = append(out, due[di].card)
			di++
		}
	}
	return out
}

// NextCard returns the highest-ranked reviewable card, or ErrNoCardsDue
// when the queue is empty. Callers must treat ErrNoCardsDue as a normal
// session-end signal.
func (s *Scheduler) NextCard(cards []models.Card, uc memory.UserContext, now time.Time, opts RankOptions) (models.Card, error) {
	ranked := s.RankDueCards(cards, uc, now, opts)
	if len(ranked) == 0 {
		return models.Card{}, ErrNoCardsDue
	}
	return ranked[0], nil
}
