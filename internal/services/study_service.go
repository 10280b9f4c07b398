package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/mkaran/memflow/internal/calibration"
	"github.com/mkaran/memflow/internal/clock"
	"github.com/mkaran/memflow/internal/errors"
	"github.com/mkaran/memflow/internal/jobs"
	"github.com/mkaran/memflow/internal/logger"
	"github.com/mkaran/memflow/internal/memory"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
	"github.com/mkaran/memflow/internal/scheduler"
	"github.com/mkaran/memflow/internal/session"
)

// NextCard is a card handed out for review, with the model's current
// recall estimate and an optional calibration probe the learner should
// answer before flipping the card.
type NextCard struct {
	Card              models.Card              `json:"card"`
	RecallProbability float64                  `json:"recall_probability"`
	PomodoroLength    time.Duration            `json:"pomodoro_length"`
	Probe             *models.CalibrationProbe `json:"probe,omitempty"`
}

// ReviewInput is one graded review submission.
type ReviewInput struct {
	CardID              int64
	Outcome             models.Outcome
	Latency             time.Duration
	ProbeID             string
	PredictedConfidence float64
}

// ReviewOutcome reports the consequences of a review: the card's new
// memory state and interval, plus the session-level transitions it
// caused.
type ReviewOutcome struct {
	Card           models.Card         `json:"card"`
	NextInterval   time.Duration       `json:"next_interval"`
	State          models.SessionState `json:"state"`
	FatigueScore   float64             `json:"fatigue_score"`
	RescueActive   bool                `json:"rescue_active"`
	BreakSuggested bool                `json:"break_suggested"`
	EndSuggested   bool                `json:"end_suggested"`
}

// StudyService drives study sessions: creation, card selection, review
// submission, and calibration probes.
type StudyService interface {
	StartSession(ctx context.Context, userID, deckID int64, name string) (*models.Session, error)
	NextCard(ctx context.Context, sessionID string) (*NextCard, error)
	SubmitReview(ctx context.Context, sessionID string, input ReviewInput) (*ReviewOutcome, error)
	PendingProbe(ctx context.Context, sessionID string) (*models.CalibrationProbe, error)
	SubmitCalibration(ctx context.Context, probeID string, predicted float64, outcome models.Outcome) (float64, error)
	EndSession(ctx context.Context, sessionID string) (*models.SessionSummary, error)
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
}

// StudyConfig holds the service-level knobs not owned by a domain package.
type StudyConfig struct {
	CardUpdateRetries int // bounded CAS retries on posterior writes
	ProbeWindow       int // resolved probes considered for the bias
}

type studyService struct {
	cfg        StudyConfig
	sessionCfg session.Config

	cards    repository.CardRepository
	decks    repository.DeckRepository
	users    repository.UserRepository
	sessions repository.SessionRepository
	reviews  repository.ReviewRepository
	probes   repository.ProbeRepository

	registry *session.Registry
	model    *memory.Model
	sched    *scheduler.Scheduler
	calib    *calibration.Engine
	clk      clock.Clock
	queue    jobs.JobQueue
}

// NewStudyService creates a new StudyService
func NewStudyService(
	cfg StudyConfig,
	sessionCfg session.Config,
	cards repository.CardRepository,
	decks repository.DeckRepository,
	users repository.UserRepository,
	sessions repository.SessionRepository,
	reviews repository.ReviewRepository,
	probes repository.ProbeRepository,
	registry *session.Registry,
	model *memory.Model,
	sched *scheduler.Scheduler,
	calib *calibration.Engine,
	clk clock.Clock,
	queue jobs.JobQueue,
) StudyService {
	if cfg.CardUpdateRetries <= 0 {
		cfg.CardUpdateRetries = 3
	}
	if cfg.ProbeWindow <= 0 {
		cfg.ProbeWindow = 10
	}
	return &studyService{
		cfg:        cfg,
		sessionCfg: sessionCfg,
		cards:      cards,
		decks:      decks,
		users:      users,
		sessions:   sessions,
		reviews:    reviews,
		probes:     probes,
		registry:   registry,
		model:      model,
		sched:      sched,
		calib:      calib,
		clk:        clk,
		queue:      queue,
	}
}

func (s *studyService) StartSession(ctx context.Context, userID, deckID int64, name string) (*models.Session, error) {
	log := logger.FromContext(ctx)
	log.Debug("starting session: user_id=%d, deck_id=%d", userID, deckID)

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("user", userID)
		}
		return nil, errors.NewInternalError(err)
	}
	if _, err := s.decks.Get(ctx, deckID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("deck", deckID)
		}
		return nil, errors.NewInternalError(err)
	}

	cfg := s.sessionCfg
	if user.PomodoroLength > 0 {
		cfg.PomodoroLength = user.PomodoroLength
	}
	tracker := session.NewTracker(cfg, s.clk, models.Session{
		ID:     uuid.NewString(),
		UserID: userID,
		DeckID: deckID,
		Name:   name,
	})
	if err := tracker.Start(); err != nil {
		return nil, err
	}
	s.registry.Add(tracker)

	snap := tracker.Session()
	if err := s.sessions.Insert(ctx, snap); err != nil {
		s.registry.Remove(snap.ID)
		log.Error("failed to persist session: %v", err)
		return nil, errors.NewInternalError(err)
	}
	log.Info("session started: id=%s, deck_id=%d", snap.ID, deckID)
	return &snap, nil
}

// tracker resolves a live tracker or classifies why none exists.
func (s *studyService) tracker(ctx context.Context, sessionID string, op string) (*session.Tracker, error) {
	if t := s.registry.Get(sessionID); t != nil {
		return t, nil
	}
	archived, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("session", sessionID)
		}
		return nil, errors.NewInternalError(err)
	}
	return nil, errors.NewSessionStateError(string(archived.State), op)
}

func (s *studyService) NextCard(ctx context.Context, sessionID string) (*NextCard, error) {
	log := logger.FromContext(ctx)
	log.Debug("selecting next card: session_id=%s", sessionID)

	tracker, err := s.tracker(ctx, sessionID, "get next card")
	if err != nil {
		return nil, err
	}
	if tracker.State() == models.SessionEnded {
		return nil, errors.NewSessionStateError(string(models.SessionEnded), "get next card")
	}
	snap := tracker.Session()

	user, err := s.users.Get(ctx, snap.UserID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	uc := memory.UserContext{GlobalDecay: user.GlobalDecay, CalibrationBias: user.CalibrationBias}

	cards, err := s.cards.ListByDeck(ctx, snap.DeckID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	now := s.clk.Now()
	card, err := s.sched.NextCard(cards, uc, now, tracker.RankOptions())
	if err != nil {
		// scheduler.ErrNoCardsDue passes through for the handler to map.
		return nil, err
	}
	tracker.NoteCardServed(card)

	var elapsed time.Duration
	if card.LastReviewed != nil {
		elapsed = now.Sub(*card.LastReviewed)
	}
	next := &NextCard{
		Card:              card,
		RecallProbability: s.model.RecallProbability(card, uc, elapsed),
		PomodoroLength:    tracker.PomodoroLength(),
	}

	if probe := s.calib.MaybeProbe(tracker.Session(), card.ID, now); probe != nil {
		if err := s.probes.Insert(ctx, *probe); err != nil {
			log.Warn("failed to persist probe, skipping: %v", err)
		} else {
			tracker.NoteProbe(*probe)
			next.Probe = probe
		}
	}
	return next, nil
}

func (s *studyService) SubmitReview(ctx context.Context, sessionID string, input ReviewInput) (*ReviewOutcome, error) {
	log := logger.FromContext(ctx)
	log.Debug("submitting review: session_id=%s, card_id=%d, outcome=%s", sessionID, input.CardID, input.Outcome)

	if !input.Outcome.Valid() {
		return nil, errors.NewValidationError("outcome", "must be a grade between 0 (again) and 3 (easy)")
	}
	if input.Latency < 0 {
		return nil, errors.NewValidationError("latency_ms", "must not be negative")
	}

	tracker, err := s.tracker(ctx, sessionID, "submit review")
	if err != nil {
		return nil, err
	}
	snap := tracker.Session()
	if snap.Ended() {
		return nil, errors.NewSessionStateError(string(models.SessionEnded), "submit review")
	}

	user, err := s.users.Get(ctx, snap.UserID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	uc := memory.UserContext{GlobalDecay: user.GlobalDecay, CalibrationBias: user.CalibrationBias}

	now := s.clk.Now()
	updated, baseline, err := s.updateCard(ctx, snap.DeckID, uc, input, now)
	if err != nil {
		return nil, err
	}

	ev := models.ReviewEvent{
		CardID:    input.CardID,
		UserID:    snap.UserID,
		SessionID: sessionID,
		Timestamp: now,
		Outcome:   input.Outcome,
		Latency:   input.Latency,
	}
	result, err := tracker.RecordReview(ev, baseline)
	if err != nil {
		return nil, err
	}

	if _, err := s.reviews.Insert(ctx, ev); err != nil {
		// The in-memory session already counts the review; losing one
		// log row must not fail the submission.
		log.Warn("failed to store review event: %v", err)
	}
	if err := s.users.AddRecall(ctx, snap.UserID, input.Outcome.Success()); err != nil {
		log.Warn("failed to update recall aggregate: %v", err)
	}

	if input.ProbeID != "" {
		probe, err := s.loadProbe(ctx, input.ProbeID)
		if err != nil {
			return nil, err
		}
		if _, err := s.resolveProbe(ctx, tracker, snap.UserID, *probe, input.PredictedConfidence, input.Outcome.Success(), now); err != nil {
			return nil, err
		}
	}

	return &ReviewOutcome{
		Card:           updated,
		NextInterval:   updated.Interval,
		State:          result.State,
		FatigueScore:   result.FatigueScore,
		RescueActive:   result.RescueActive,
		BreakSuggested: result.BreakSuggested,
		EndSuggested:   result.EndSuggested,
	}, nil
}

// updateCard applies the memory model and persists the posterior under
// optimistic concurrency. Returns the updated card and the pre-review
// baseline used for latency scoring.
func (s *studyService) updateCard(ctx context.Context, deckID int64, uc memory.UserContext, input ReviewInput, now time.Time) (models.Card, models.Card, error) {
	log := logger.FromContext(ctx)

	for attempt := 0; attempt < s.cfg.CardUpdateRetries; attempt++ {
		card, err := s.cards.Get(ctx, input.CardID)
		if err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return models.Card{}, models.Card{}, errors.NewNotFoundError("card", input.CardID)
			}
			return models.Card{}, models.Card{}, errors.NewInternalError(err)
		}
		if card.DeckID != deckID {
			return models.Card{}, models.Card{}, errors.NewValidationError("card_id", "card does not belong to the session's deck")
		}

		var elapsed time.Duration
		if card.LastReviewed != nil {
			elapsed = now.Sub(*card.LastReviewed)
			if elapsed < 0 {
				// Clock skew between nodes is not the learner's problem.
				elapsed = 0
			}
		}

		updated, err := s.model.Update(*card, uc, input.Outcome, elapsed, now)
		if err != nil {
			return models.Card{}, models.Card{}, errors.NewValidationError("outcome", err.Error())
		}
		updated.Interval = s.sched.NextInterval(updated, uc)
		if input.Latency > 0 {
			session.UpdateLatencyBaseline(&updated, input.Latency)
		}

		err = s.cards.UpdatePosterior(ctx, updated, card.Version)
		if err == nil {
			return updated, *card, nil
		}
		if stderrors.Is(err, repository.ErrVersionConflict) {
			log.Debug("card version conflict, retrying: card_id=%d, attempt=%d", input.CardID, attempt+1)
			continue
		}
		return models.Card{}, models.Card{}, errors.NewInternalError(err)
	}
	return models.Card{}, models.Card{}, errors.NewTransientFailureError("card", input.CardID,
		errors.NewConcurrencyConflictError("card", input.CardID, repository.ErrVersionConflict))
}

func (s *studyService) loadProbe(ctx context.Context, probeID string) (*models.CalibrationProbe, error) {
	probe, err := s.probes.Get(ctx, probeID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("probe", probeID)
		}
		return nil, errors.NewInternalError(err)
	}
	return probe, nil
}

// resolveProbe marks the probe resolved and recomputes the user's
// calibration bias from the recent resolved window. Returns the new bias.
func (s *studyService) resolveProbe(ctx context.Context, tracker *session.Tracker, userID int64, probe models.CalibrationProbe, predicted float64, success bool, now time.Time) (float64, error) {
	log := logger.FromContext(ctx)

	if probe.SessionID != tracker.Session().ID {
		return 0, errors.NewValidationError("probe_id", "probe belongs to a different session")
	}
	if probe.Resolved() {
		return 0, errors.NewConflictError("probe already resolved")
	}
	if predicted < 0 || predicted > 1 {
		return 0, errors.NewValidationError("predicted_confidence", "must be between 0 and 1")
	}

	resolved := s.calib.ResolveProbe(probe, predicted, success, now)
	if err := s.probes.Resolve(ctx, resolved); err != nil {
		return 0, errors.NewInternalError(err)
	}
	tracker.ResolveProbe(resolved)

	recent, err := s.probes.RecentByUser(ctx, userID, s.cfg.ProbeWindow)
	if err != nil {
		log.Warn("failed to load recent probes for bias update: %v", err)
		return 0, nil
	}
	bias := s.calib.Bias(recent)
	if err := s.users.UpdateCalibrationBias(ctx, userID, bias); err != nil {
		log.Warn("failed to store calibration bias: %v", err)
	} else {
		log.Debug("calibration bias updated: user_id=%d, bias=%.4f", userID, bias)
	}
	return bias, nil
}

// PendingProbe returns the session's latest unresolved probe, or nil when
// the learner has nothing to predict.
func (s *studyService) PendingProbe(ctx context.Context, sessionID string) (*models.CalibrationProbe, error) {
	tracker, err := s.tracker(ctx, sessionID, "get calibration probe")
	if err != nil {
		return nil, err
	}
	snap := tracker.Session()
	for i := len(snap.Probes) - 1; i >= 0; i-- {
		if !snap.Probes[i].Resolved() {
			p := snap.Probes[i]
			return &p, nil
		}
	}
	return nil, nil
}

// SubmitCalibration resolves a probe outside the review flow, for
// clients that answer probes as a separate step.
func (s *studyService) SubmitCalibration(ctx context.Context, probeID string, predicted float64, outcome models.Outcome) (float64, error) {
	if !outcome.Valid() {
		return 0, errors.NewValidationError("outcome", "must be a grade between 0 (again) and 3 (easy)")
	}
	probe, err := s.loadProbe(ctx, probeID)
	if err != nil {
		return 0, err
	}
	tracker, err := s.tracker(ctx, probe.SessionID, "submit calibration")
	if err != nil {
		return 0, err
	}
	return s.resolveProbe(ctx, tracker, tracker.Session().UserID, *probe, predicted, outcome.Success(), s.clk.Now())
}

func (s *studyService) EndSession(ctx context.Context, sessionID string) (*models.SessionSummary, error) {
	log := logger.FromContext(ctx)
	log.Debug("ending session: id=%s", sessionID)

	tracker, err := s.tracker(ctx, sessionID, "end")
	if err != nil {
		return nil, err
	}
	summary, err := tracker.End()
	if err != nil {
		return nil, err
	}

	snap := tracker.Session()
	if err := s.queue.EnqueueArchive(snap); err != nil {
		log.Warn("failed to enqueue session archive: %v", err)
	}
	if err := s.queue.EnqueueStatsRefresh(snap.UserID); err != nil {
		log.Warn("failed to enqueue stats refresh: %v", err)
	}
	log.Info("session ended: id=%s, cards=%d, success_rate=%.2f", sessionID, summary.CardsStudied, summary.SuccessRate)
	return &summary, nil
}

func (s *studyService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if t := s.registry.Get(sessionID); t != nil {
		snap := t.Session()
		return &snap, nil
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("session", sessionID)
		}
		return nil, errors.NewInternalError(err)
	}
	return sess, nil
}

func (s *studyService) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return sessions, nil
}
