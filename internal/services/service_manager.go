package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/config"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/events"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Session       SessionServiceConfig
	ExportEnabled bool
}

// ServiceManagerConfigFrom maps application config onto the services.
func ServiceManagerConfigFrom(cfg *config.Config) ServiceManagerConfig {
	defaults := models.DefaultAdaptiveParameters()
	defaults.InitialDifficulty = cfg.Session.InitialDifficulty
	defaults.MinQuestions = cfg.Session.MinQuestions
	defaults.MaxQuestions = cfg.Session.MaxQuestions
	defaults.ConfidenceThreshold = cfg.Session.ConfidenceThreshold

	return ServiceManagerConfig{
		Session: SessionServiceConfig{
			StaleAfter: cfg.Session.StaleAfter,
			Defaults:   defaults,
		},
		ExportEnabled: true,
	}
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	locker    SessionLock
	config    ServiceManagerConfig

	// Service instances
	sessionService          SessionService
	topicPerformanceService TopicPerformanceService
	exportService           ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, locker SessionLock, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		locker:    locker,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, locker SessionLock) ServiceManager {
	config := ServiceManagerConfig{
		Session:       DefaultSessionServiceConfig(),
		ExportEnabled: true,
	}
	return NewServiceManager(repo, logger, validator, publisher, locker, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.sessionService = NewSessionService(sm.repo, sm.logger, sm.validator, sm.publisher, sm.locker, sm.config.Session)
	sm.logger.Info("Session service initialized",
		"stale_after", sm.config.Session.StaleAfter,
		"max_questions", sm.config.Session.Defaults.MaxQuestions)

	sm.topicPerformanceService = NewTopicPerformanceService(sm.repo, sm.logger)
	sm.logger.Info("Topic performance service initialized")

	if sm.config.ExportEnabled {
		sm.exportService = NewExportService(sm.repo, sm.logger)
		sm.logger.Info("Export service initialized")
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.sessionService
}

func (sm *serviceManager) TopicPerformance() TopicPerformanceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.topicPerformanceService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.ExportEnabled && sm.exportService != nil {
		return sm.exportService
	}

	panic("export service not enabled or not initialized")
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}
