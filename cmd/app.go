package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/cache"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/config"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/events"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories/casdoor"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories/postgres"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/services"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/validator"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/pkg"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	db          *gorm.DB
	redisClient *redis.Client
	repo        repositories.Repository
	services    services.ServiceManager
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

// bootstrap connects storage, events and services.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			// cache and session locks are optional
			logger.Warn("Failed to initialize Redis", "error", err)
			redisClient = nil
		}
	}

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		CasdoorConfig: casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		},
	})
	if err := repoManager.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	publisher, err := events.NewPublisherFromConfig(cfg.Events, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	locker := cache.NewSessionLocker(cache.NewCacheManager(redisClient), cfg.Session.LockTTL)

	serviceManager := services.NewServiceManager(
		repoManager.GetRepository(),
		logger,
		validator.New(),
		publisher,
		locker,
		services.ServiceManagerConfigFrom(cfg),
	)
	if err := serviceManager.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &app{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		repo:        repoManager.GetRepository(),
		services:    serviceManager,
	}, nil
}

// Close releases the publisher, database and redis connections.
func (a *app) Close(ctx context.Context) {
	if err := a.services.Shutdown(ctx); err != nil {
		a.logger.Error("Failed to shutdown services", "error", err)
	}
	if err := a.repo.Close(); err != nil {
		a.logger.Error("Failed to close repositories", "error", err)
	}
}
