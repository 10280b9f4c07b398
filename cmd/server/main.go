package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkaran/memflow/internal/api"
	"github.com/mkaran/memflow/internal/calibration"
	"github.com/mkaran/memflow/internal/clock"
	"github.com/mkaran/memflow/internal/config"
	"github.com/mkaran/memflow/internal/db"
	"github.com/mkaran/memflow/internal/jobs"
	"github.com/mkaran/memflow/internal/logger"
	"github.com/mkaran/memflow/internal/memory"
	"github.com/mkaran/memflow/internal/repository/sqlite"
	"github.com/mkaran/memflow/internal/scheduler"
	"github.com/mkaran/memflow/internal/services"
	"github.com/mkaran/memflow/internal/session"
	"github.com/mkaran/memflow/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("Memflow Server Starting")
	log.Info("===========================================")
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("target_recall=%.2f", cfg.TargetRecall)
	log.Debug("pomodoro_length=%v", cfg.PomodoroLength)
	log.Debug("archive_worker_count=%d", cfg.ArchiveWorkerCount)
	log.Debug("stats_worker_count=%d", cfg.StatsWorkerCount)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	// Repositories
	cardRepo := sqlite.NewCardRepository(database.DB)
	deckRepo := sqlite.NewDeckRepository(database.DB)
	userRepo := sqlite.NewUserRepository(database.DB)
	sessionRepo := sqlite.NewSessionRepository(database.DB)
	reviewRepo := sqlite.NewReviewRepository(database.DB)
	probeRepo := sqlite.NewProbeRepository(database.DB)
	statsRepo := sqlite.NewStatsRepository(database.DB)

	// Domain engines
	model := memory.New(memory.Config{
		MinDecay:               cfg.MinDecay,
		DecayShrinkage:         cfg.DecayShrinkage,
		DecayEWARate:           cfg.DecayEWARate,
		RecencyFloor:           cfg.RecencyFloor,
		MatureStreakEase:       cfg.MatureStreakEase,
		MatureStreakThreshold:  cfg.MatureStreakThreshold,
		CalibrationSensitivity: cfg.CalibrationSensitivity,
	})
	sched := scheduler.New(model, scheduler.Config{
		TargetRecall: cfg.TargetRecall,
		MinInterval:  cfg.MinInterval,
		MaxInterval:  cfg.MaxInterval,
		NewCardEvery: cfg.NewCardEvery,
	})
	calib := calibration.New(calibration.Config{
		ProbeEvery: cfg.ProbeEvery,
		Window:     cfg.ProbeWindow,
	})
	sessionCfg := session.Config{
		PomodoroLength:        cfg.PomodoroLength,
		IdleTimeout:           cfg.IdleTimeout,
		FatigueWindow:         cfg.FatigueWindow,
		AccuracyThreshold:     cfg.AccuracyThreshold,
		LatencyZThreshold:     cfg.LatencyZThreshold,
		FatigueAccuracyWeight: cfg.FatigueAccuracyWeight,
		FatigueLatencyWeight:  cfg.FatigueLatencyWeight,
		FatigueZScale:         cfg.FatigueZScale,
		RescueCooldownReviews: cfg.RescueCooldownReviews,
		RescueCooldownTime:    cfg.RescueCooldownTime,
		MaxRescueCycles:       cfg.MaxRescueCycles,
		NewCardQuota:          cfg.NewCardQuota,
	}
	registry := session.NewRegistry()

	// Worker pools and job queue
	archivePool := worker.NewPool(cfg.ArchiveWorkerCount, cfg.ArchiveQueueSize)
	statsPool := worker.NewPool(cfg.StatsWorkerCount, cfg.StatsQueueSize)
	queue := jobs.NewWorkerQueue(archivePool, statsPool, sessionRepo, statsRepo, registry)

	// Services
	studyService := services.NewStudyService(
		services.StudyConfig{
			CardUpdateRetries: cfg.CardUpdateRetries,
			ProbeWindow:       cfg.ProbeWindow,
		},
		sessionCfg,
		cardRepo, deckRepo, userRepo, sessionRepo, reviewRepo, probeRepo,
		registry, model, sched, calib, clock.Real(), queue,
	)
	deckService := services.NewDeckService(deckRepo, cardRepo, userRepo, registry, model)
	userService := services.NewUserService(userRepo)
	statsService := services.NewStatsService(statsRepo, userRepo, deckRepo, reviewRepo, cfg.RecentReviewWindow)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defaultUser, err := userService.EnsureDefault(logger.NewContext(bootCtx, log))
	bootCancel()
	if err != nil {
		log.Error("failed to bootstrap default user: %v", err)
		os.Exit(1)
	}
	log.Info("default user ready: id=%d", defaultUser.ID)

	srv := api.NewServer(studyService, deckService, userService, statsService, archivePool, statsPool, defaultUser.ID)

	ctx, cancel := context.WithCancel(context.Background())
	archivePool.Start(ctx)
	statsPool.Start(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("stopping worker pools")
	cancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("stopping archive pool")
	archivePool.Stop()
	log.Debug("stopping stats pool")
	statsPool.Stop()

	log.Info("===========================================")
	log.Info("Memflow Server Stopped")
	log.Info("===========================================")
}
