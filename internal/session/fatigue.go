package session

import (
	"time"

	"github.com/mkaran/memflow/internal/models"
)

// pushWindow appends one review to the sliding fatigue window, trimming
// to the configured size. Callers hold the lock.
func (t *Tracker) pushWindow(ev models.ReviewEvent, card models.Card) {
	t.window = append(t.window, windowEntry{
		success:  ev.Outcome.Success(),
		latencyZ: LatencyZ(card, ev.Latency),
	})
	if len(t.window) > t.cfg.FatigueWindow {
		t.window = t.window[len(t.window)-t.cfg.FatigueWindow:]
	}
}

func (t *Tracker) windowAccuracy() float64 {
	if len(t.window) == 0 {
		return 1
	}
	var ok int
	for _, e := range t.window {
		if e.success {
			ok++
		}
	}
	return float64(ok) / float64(len(t.window))
}

func (t *Tracker) windowLatencyZ() float64 {
	if len(t.window) == 0 {
		return 0
	}
	var sum float64
	for _, e := range t.window {
		sum += e.latencyZ
	}
	return sum / float64(len(t.window))
}

// fatigueScore is a weighted combination of rolling inaccuracy and
// rolling latency deviation, clamped to [0, 1].
func (t *Tracker) fatigueScore() float64 {
	acc := t.windowAccuracy()
	z := t.windowLatencyZ()
	if z < 0 {
		z = 0
	}
	zTerm := z / t.cfg.FatigueZScale
	if zTerm > 1 {
		zTerm = 1
	}
	f := t.cfg.FatigueAccuracyWeight*(1-acc) + t.cfg.FatigueLatencyWeight*zTerm
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return f
}

// fatigueTriggered requires a full window showing both low accuracy and
// elevated latency before declaring fatigue.
func (t *Tracker) fatigueTriggered() bool {
	if len(t.window) < t.cfg.FatigueWindow {
		return false
	}
	return t.windowAccuracy() < t.cfg.AccuracyThreshold &&
		t.windowLatencyZ() > t.cfg.LatencyZThreshold
}

// LatencyZ returns the z-score of a response latency against the card's
// historical baseline, or 0 when the baseline has too little data.
func LatencyZ(card models.Card, latency time.Duration) float64 {
	std := card.LatencyStdDev()
	if std == 0 {
		return 0
	}
	return (latency.Seconds() - card.LatencyMean) / std
}

// UpdateLatencyBaseline folds one response latency into the card's
// running mean/variance using Welford's method.
func UpdateLatencyBaseline(card *models.Card, latency time.Duration) {
	x := latency.Seconds()
	card.LatencyCount++
	delta := x - card.LatencyMean
	card.LatencyMean += delta / float64(card.LatencyCount)
	card.LatencyM2 += delta * (x - card.LatencyMean)
}
