package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/medley-app/medley/internal/api"
	"github.com/medley-app/medley/internal/catalog"
	"github.com/medley-app/medley/internal/catalog/musicbrainz"
	"github.com/medley-app/medley/internal/catalog/tmdb"
	"github.com/medley-app/medley/internal/completeness"
	"github.com/medley-app/medley/internal/config"
	"github.com/medley-app/medley/internal/database"
	"github.com/medley-app/medley/internal/jobs"
	"github.com/medley-app/medley/internal/logger"
	"github.com/medley-app/medley/internal/media"
	"github.com/medley-app/medley/internal/normalizer"
	"github.com/medley-app/medley/internal/probe"
	"github.com/medley-app/medley/internal/progress"
	"github.com/medley-app/medley/internal/provider"
	"github.com/medley-app/medley/internal/provider/folder"
	"github.com/medley-app/medley/internal/provider/jellyfin"
	"github.com/medley-app/medley/internal/provider/kodidb"
	"github.com/medley-app/medley/internal/quality"
	"github.com/medley-app/medley/internal/scheduler"
	"github.com/medley-app/medley/internal/websocket"
)

func main() {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	})
	defer log.Close()

	log.Info().
		Str("logLevel", cfg.Logging.Level).
		Msg("starting Medley")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	store := media.NewStore(db.Conn())
	records := completeness.NewRecords(db.Conn())

	classifier := quality.NewClassifier(quality.DefaultThresholds())

	var prober probe.Prober
	if p, err := probe.NewFFprobe(cfg.Probe.FFprobePath, log.Logger); err != nil {
		log.Warn().Err(err).Msg("ffprobe unavailable, folder files will rely on filename parsing")
	} else {
		prober = p
	}

	var videos catalog.VideoCatalog
	tmdbClient := tmdb.NewClient(cfg.Catalogs.TMDB, log.Logger)
	if tmdbClient.IsConfigured() {
		videos = tmdbClient
	} else {
		log.Warn().Msg("TMDB API key not set, catalog resolution and video completeness disabled")
	}
	mbClient := musicbrainz.NewClient(cfg.Catalogs.MusicBrainz,
		cfg.Analysis.IncludeEPs, cfg.Analysis.IncludeSingles, log.Logger)

	registry := provider.NewRegistry(
		jellyfin.New(log.Logger),
		kodidb.New(log.Logger),
		folder.New(log.Logger),
	)
	norm := normalizer.New(classifier, prober, videos, log.Logger)

	hub := websocket.NewHub()
	go hub.Run()
	progressManager := progress.NewManager(hub, log.Logger)

	queue := jobs.NewQueue(progressManager, log.Logger)
	scanRunner := jobs.NewScanRunner(store, registry, norm, log.Logger)
	queue.Register(jobs.TypeLibraryScan, scanRunner)
	queue.Register(jobs.TypeMusicScan, scanRunner)
	analysisRunner := jobs.NewAnalysisRunner(store, records, videos, mbClient,
		cfg.Analysis.LookupConcurrency, log.Logger)
	queue.Register(jobs.TypeMusicCompleteness, analysisRunner)
	if videos != nil {
		queue.Register(jobs.TypeSeriesCompleteness, analysisRunner)
		queue.Register(jobs.TypeCollectionCompleteness, analysisRunner)
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	queue.Start(workerCtx)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := scheduler.RegisterDefaultTasks(sched, queue, cfg.Scheduler); err != nil {
		log.Fatal().Err(err).Msg("failed to register scheduled tasks")
	}
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	server := api.NewServer(store, records, queue, sched, hub, log.Logger)
	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil {
			log.Info().Err(err).Msg("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	if err := sched.Stop(); err != nil {
		log.Warn().Err(err).Msg("scheduler shutdown error")
	}

	// Cancel the running job and wait for the worker to drain.
	queue.Stop()
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown error")
	}

	log.Info().Msg("shutdown complete")
}
