package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 0.80, cfg.TargetRecall)
	assert.Equal(t, 10*time.Minute, cfg.MinInterval)
	assert.Equal(t, 2*365*24*time.Hour, cfg.MaxInterval)
	assert.Equal(t, 25*time.Minute, cfg.PomodoroLength)
	assert.Equal(t, 15*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 5, cfg.FatigueWindow)
	assert.Equal(t, 3.0, cfg.FatigueZScale)
	assert.Equal(t, 8, cfg.ProbeEvery)
	assert.Equal(t, 3, cfg.CardUpdateRetries)
	assert.Equal(t, 0.1, cfg.DefaultGlobalDecay)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("TARGET_RECALL", "0.9")
	t.Setenv("POMODORO_LENGTH", "50m")
	t.Setenv("FATIGUE_WINDOW", "7")
	t.Setenv("FATIGUE_Z_SCALE", "2.5")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 0.9, cfg.TargetRecall)
	assert.Equal(t, 50*time.Minute, cfg.PomodoroLength)
	assert.Equal(t, 7, cfg.FatigueWindow)
	assert.Equal(t, 2.5, cfg.FatigueZScale)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("TARGET_RECALL", "ninety percent")
	t.Setenv("POMODORO_LENGTH", "half an hour")
	t.Setenv("FATIGUE_WINDOW", "several")

	cfg := Load()
	assert.Equal(t, 0.80, cfg.TargetRecall)
	assert.Equal(t, 25*time.Minute, cfg.PomodoroLength)
	assert.Equal(t, 5, cfg.FatigueWindow)
}

func TestValidateDefaults(t *testing.T) {
	require.NoError(t, Load().Validate())
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Load()
	cfg.TargetRecall = 1.5
	cfg.MinInterval = 0
	cfg.FatigueZScale = -1
	cfg.LogLevel = "LOUD"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "TARGET_RECALL"))
	assert.True(t, strings.Contains(err.Error(), "MIN_INTERVAL"))
	assert.True(t, strings.Contains(err.Error(), "FATIGUE_Z_SCALE"))
	assert.True(t, strings.Contains(err.Error(), "LOG_LEVEL"))
}

func TestValidateIntervalOrdering(t *testing.T) {
	cfg := Load()
	cfg.MinInterval = time.Hour
	cfg.MaxInterval = time.Minute

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "MAX_INTERVAL"))
}
