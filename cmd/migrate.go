package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/cache"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/config"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/pkg"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := newLogger(cfg)

		// InitDatabase migrates on its own when DB_AUTO_MIGRATE is set
		cfg.Database.AutoMigrate = false
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		if err := pkg.Migrate(db); err != nil {
			return err
		}
		logger.Info("Database migrated")

		if flush, _ := cmd.Flags().GetBool("flush-cache"); flush && cfg.RedisURL != "" {
			redisClient, err := pkg.NewRedisClient(cfg)
			if err != nil {
				return err
			}
			defer redisClient.Close()

			cache.FlushQuestionCaches(cmd.Context(), cache.NewCacheManager(redisClient))
			logger.Info("Question caches flushed")
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("flush-cache", false, "Drop cached questions and topic lists after migrating")
}
