package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/handlers"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}

	logger := utils.NewSlogLogger(a.logger)

	authMiddleware := handlers.NewCasdoorAuthMiddleware(a.cfg.Casdoor, a.repo.User(), logger)
	handlerManager := handlers.NewHandlerManager(a.services, logger, authMiddleware, a.cfg.MetricsEnabled)

	if a.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", a.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", a.cfg.Port, "environment", a.cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			a.Close(context.Background())
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-quit:
	}

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	a.Close(ctx)

	logger.Info("Server exited")
	return nil
}
