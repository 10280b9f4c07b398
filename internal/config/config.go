package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr     string
	DBPath   string
	LogLevel string

	// Scheduling
	TargetRecall float64
	MinInterval  time.Duration
	MaxInterval  time.Duration
	NewCardQuota int // new cards introduced per session
	NewCardEvery int // queue slots between new-card insertions

	// Memory model
	DefaultGlobalDecay    float64 // per day, seeds new users
	MinDecay              float64
	DecayShrinkage        float64 // k in w = n/(n+k)
	DecayEWARate          float64
	RecencyFloor          float64
	MatureStreakEase      float64
	MatureStreakThreshold int

	// Session pacing
	PomodoroLength        time.Duration
	IdleTimeout           time.Duration
	FatigueWindow         int
	AccuracyThreshold     float64
	LatencyZThreshold     float64
	FatigueAccuracyWeight float64
	FatigueLatencyWeight  float64
	FatigueZScale         float64
	RescueCooldownReviews int
	RescueCooldownTime    time.Duration
	MaxRescueCycles       int

	// Calibration
	ProbeEvery             int
	ProbeWindow            int
	CalibrationSensitivity float64

	// Stats
	RecentReviewWindow int // reviews in the recent-posterior window

	// Storage
	CardUpdateRetries int

	// Background jobs
	ArchiveWorkerCount int
	ArchiveQueueSize   int
	StatsWorkerCount   int
	StatsQueueSize     int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:     envOr("ADDR", ":8080"),
		DBPath:   envOr("DB_PATH", "file:memflow.db"),
		LogLevel: envOr("LOG_LEVEL", "INFO"),

		TargetRecall: envFloatOr("TARGET_RECALL", 0.80),
		MinInterval:  envDurationOr("MIN_INTERVAL", 10*time.Minute),
		MaxInterval:  envDurationOr("MAX_INTERVAL", 2*365*24*time.Hour),
		NewCardQuota: envIntOr("NEW_CARD_QUOTA", 10),
		NewCardEvery: envIntOr("NEW_CARD_EVERY", 4),

		DefaultGlobalDecay:    envFloatOr("DEFAULT_GLOBAL_DECAY", 0.1),
		MinDecay:              envFloatOr("MIN_DECAY", 1e-4),
		DecayShrinkage:        envFloatOr("DECAY_SHRINKAGE", 10.0),
		DecayEWARate:          envFloatOr("DECAY_EWA_RATE", 0.3),
		RecencyFloor:          envFloatOr("RECENCY_FLOOR", 0.25),
		MatureStreakEase:      envFloatOr("MATURE_STREAK_EASE", 0.9),
		MatureStreakThreshold: envIntOr("MATURE_STREAK_THRESHOLD", 3),

		PomodoroLength:        envDurationOr("POMODORO_LENGTH", 25*time.Minute),
		IdleTimeout:           envDurationOr("IDLE_TIMEOUT", 15*time.Minute),
		FatigueWindow:         envIntOr("FATIGUE_WINDOW", 5),
		AccuracyThreshold:     envFloatOr("ACCURACY_THRESHOLD", 0.5),
		LatencyZThreshold:     envFloatOr("LATENCY_Z_THRESHOLD", 1.0),
		FatigueAccuracyWeight: envFloatOr("FATIGUE_ACCURACY_WEIGHT", 0.6),
		FatigueLatencyWeight:  envFloatOr("FATIGUE_LATENCY_WEIGHT", 0.4),
		FatigueZScale:         envFloatOr("FATIGUE_Z_SCALE", 3.0),
		RescueCooldownReviews: envIntOr("RESCUE_COOLDOWN_REVIEWS", 3),
		RescueCooldownTime:    envDurationOr("RESCUE_COOLDOWN_TIME", 5*time.Minute),
		MaxRescueCycles:       envIntOr("MAX_RESCUE_CYCLES", 3),

		ProbeEvery:             envIntOr("PROBE_EVERY", 8),
		ProbeWindow:            envIntOr("PROBE_WINDOW", 10),
		CalibrationSensitivity: envFloatOr("CALIBRATION_SENSITIVITY", 1.0),

		RecentReviewWindow: envIntOr("RECENT_REVIEW_WINDOW", 20),

		CardUpdateRetries: envIntOr("CARD_UPDATE_RETRIES", 3),

		ArchiveWorkerCount: envIntOr("ARCHIVE_WORKER_COUNT", 1),
		ArchiveQueueSize:   envIntOr("ARCHIVE_QUEUE_SIZE", 32),
		StatsWorkerCount:   envIntOr("STATS_WORKER_COUNT", 1),
		StatsQueueSize:     envIntOr("STATS_QUEUE_SIZE", 32),
	}
}

// Validate checks the configuration and reports every problem found.
func (c Config) Validate() error {
	var problems []string

	if c.Addr == "" {
		problems = append(problems, "ADDR cannot be empty")
	}
	if c.DBPath == "" {
		problems = append(problems, "DB_PATH cannot be empty")
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q is not one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}
	if c.TargetRecall <= 0 || c.TargetRecall >= 1 {
		problems = append(problems, fmt.Sprintf("TARGET_RECALL %v must be in (0, 1)", c.TargetRecall))
	}
	if c.MinInterval <= 0 {
		problems = append(problems, "MIN_INTERVAL must be positive")
	}
	if c.MaxInterval <= c.MinInterval {
		problems = append(problems, "MAX_INTERVAL must exceed MIN_INTERVAL")
	}
	if c.NewCardQuota < 0 {
		problems = append(problems, "NEW_CARD_QUOTA cannot be negative")
	}
	if c.NewCardEvery <= 0 {
		problems = append(problems, "NEW_CARD_EVERY must be positive")
	}
	if c.DefaultGlobalDecay <= 0 {
		problems = append(problems, "DEFAULT_GLOBAL_DECAY must be positive")
	}
	if c.MinDecay <= 0 {
		problems = append(problems, "MIN_DECAY must be positive")
	}
	if c.DecayShrinkage <= 0 {
		problems = append(problems, "DECAY_SHRINKAGE must be positive")
	}
	if c.DecayEWARate <= 0 || c.DecayEWARate > 1 {
		problems = append(problems, "DECAY_EWA_RATE must be in (0, 1]")
	}
	if c.PomodoroLength <= 0 {
		problems = append(problems, "POMODORO_LENGTH must be positive")
	}
	if c.IdleTimeout <= 0 {
		problems = append(problems, "IDLE_TIMEOUT must be positive")
	}
	if c.FatigueWindow <= 0 {
		problems = append(problems, "FATIGUE_WINDOW must be positive")
	}
	if c.AccuracyThreshold <= 0 || c.AccuracyThreshold >= 1 {
		problems = append(problems, "ACCURACY_THRESHOLD must be in (0, 1)")
	}
	if c.FatigueZScale <= 0 {
		problems = append(problems, "FATIGUE_Z_SCALE must be positive")
	}
	if c.MaxRescueCycles <= 0 {
		problems = append(problems, "MAX_RESCUE_CYCLES must be positive")
	}
	if c.ProbeEvery <= 0 {
		problems = append(problems, "PROBE_EVERY must be positive")
	}
	if c.ProbeWindow <= 0 {
		problems = append(problems, "PROBE_WINDOW must be positive")
	}
	if c.RecentReviewWindow <= 0 {
		problems = append(problems, "RECENT_REVIEW_WINDOW must be positive")
	}
	if c.CardUpdateRetries <= 0 {
		problems = append(problems, "CARD_UPDATE_RETRIES must be positive")
	}
	if c.ArchiveWorkerCount <= 0 {
		problems = append(problems, "ARCHIVE_WORKER_COUNT must be positive")
	}
	if c.ArchiveQueueSize <= 0 {
		problems = append(problems, "ARCHIVE_QUEUE_SIZE must be positive")
	}
	if c.StatsWorkerCount <= 0 {
		problems = append(problems, "STATS_WORKER_COUNT must be positive")
	}
	if c.StatsQueueSize <= 0 {
		problems = append(problems, "STATS_QUEUE_SIZE must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envFloatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid value for %s=%q, using default %v", key, v, def)
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %v", key, v, def)
	}
	return def
}
