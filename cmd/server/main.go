package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/clinical-dss-server/internal/api"
	"github.com/clinical-dss-server/internal/config"
	"github.com/clinical-dss-server/internal/feedback"
	"github.com/clinical-dss-server/internal/knowledge"
	"github.com/clinical-dss-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	// The knowledge base must load and validate before any request is
	// served; a malformed catalog is a startup failure, not a 500.
	base, err := knowledge.Load(cfg.Knowledge, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load knowledge base")
	}

	matcher, err := service.NewMatcher(logger, base, cfg.Matcher.CacheSize)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create matcher")
	}

	store, err := newFeedbackStore(cfg.Feedback.Driver, cfg.Feedback.Path, cfg.Feedback.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open feedback store")
	}
	defer store.Close()

	server := api.NewServer(cfg, logger, base,
		matcher,
		service.NewValidator(logger, base),
		service.NewRiskScorer(logger, base),
		service.NewCodingEngine(logger, base),
		service.NewDeidentifier(logger),
		service.NewLabService(logger, base, matcher),
		store,
	)

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting clinical decision-support server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

func newFeedbackStore(driver, path, databaseURL string) (feedback.Store, error) {
	if driver == "postgres" {
		return feedback.NewPostgresStoreFromURL(databaseURL)
	}
	return feedback.NewSQLiteStore(path)
}
