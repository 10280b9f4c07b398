// Package calibration injects meta-cognitive spot-checks into study
// sessions and turns their outcomes into a per-user bias correction for
// the memory model's recall estimates.
package calibration

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkaran/memflow/internal/models"
)

// Config holds the probe sampling tunables.
type Config struct {
	ProbeEvery int // inject a probe every Nth review, default 8
	Window     int // probes considered when computing bias, default 10
}

// DefaultConfig returns the calibration defaults.
func DefaultConfig() Config {
	return Config{ProbeEvery: 8, Window: 10}
}

// Engine decides when to probe and computes the calibration bias.
type Engine struct {
	cfg Config
}

// New creates an Engine. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.ProbeEvery <= 0 {
		cfg.ProbeEvery = def.ProbeEvery
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	return &Engine{cfg: cfg}
}

// MaybeProbe returns a new unresolved probe when the session is due for
// one, or nil. Probes fire at a fixed sampling rate while the session is
// Active and never during rescue mode, where an extra self-rating would
// only add cognitive load.
func (e *Engine) MaybeProbe(sess models.Session, cardID int64, now time.Time) *models.CalibrationProbe {
	if sess.State != models.SessionActive {
		return nil
	}
	n := len(sess.Events)
	if n == 0 || n%e.cfg.ProbeEvery != 0 {
		return nil
	}
	// One probe per sampling slot: skip if the latest probe already
	// covers this review index.
	if len(sess.Probes) > 0 && len(sess.Probes) >= n/e.cfg.ProbeEvery {
		return nil
	}
	return &models.CalibrationProbe{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		CardID:    cardID,
		CreatedAt: now,
	}
}

// ResolveProbe fills in the probe's actual outcome. The returned probe is
// a resolved copy; the input is not mutated.
func (e *Engine) ResolveProbe(probe models.CalibrationProbe, predicted float64, success bool, now time.Time) models.CalibrationProbe {
	p := probe
	p.PredictedConfidence = clamp01(predicted)
	p.ActualSuccess = &success
	p.ResolvedAt = &now
	return p
}

// Bias computes the signed difference between mean predicted confidence
// and mean actual success rate over the last Window resolved probes.
// Positive bias means overconfidence. With no resolved probes the bias
// is zero.
func (e *Engine) Bias(probes []models.CalibrationProbe) float64 {
	var resolved []models.CalibrationProbe
	for _, p := range probes {
		if p.Resolved() {
			resolved = append(resolved, p)
		}
	}
	if len(resolved) == 0 {
		return 0
	}
	if len(resolved) > e.cfg.Window {
		resolved = resolved[len(resolved)-e.cfg.Window:]
	}

	var predicted, actual float64
	for _, p := range resolved {
		predicted += p.PredictedConfidence
		if *p.ActualSuccess {
			actual++
		}
	}
	n := float64(len(resolved))
	return predicted/n - actual/n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
