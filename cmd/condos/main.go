package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/maberbac/gestion-condos-sub001/internal/bridge"
	"github.com/maberbac/gestion-condos-sub001/internal/config"
	"github.com/maberbac/gestion-condos-sub001/internal/database"
	"github.com/maberbac/gestion-condos-sub001/internal/database/migrations"
	"github.com/maberbac/gestion-condos-sub001/internal/repository"
	"github.com/maberbac/gestion-condos-sub001/internal/utils"
)

const version = "v1.2.0"

func main() {
	var configPath string
	var migrateOnly bool
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&migrateOnly, "migrate-only", false, "Apply pending migrations and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogging(cfg)
	logger.Info().Str("version", version).Msg("Starting gestion-condos persistence service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	db := database.NewDatabase(cfg.Database)
	if err := db.Connect(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database")
		}
	}()

	// All repositories depend on this single runner; none runs migrations of
	// its own. A migration failure is fatal: the process must not start with
	// an inconsistent schema.
	runner := database.NewMigrationRunner(db, logger)
	runner.RegisterAll(migrations.GetMigrations())

	if cfg.Migrations.ScriptDir != "" {
		scripts, err := migrations.FromDir(cfg.Migrations.ScriptDir)
		if err != nil {
			logger.Fatal().Err(err).Str("dir", cfg.Migrations.ScriptDir).Msg("Failed to load migration scripts")
		}
		runner.RegisterAll(scripts)
	}

	if err := runner.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Migration run failed")
	}

	if migrateOnly {
		logger.Info().Msg("Migrations applied, exiting")
		return
	}

	projects, err := repository.NewProjectRepository(db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to construct project repository")
	}
	users, err := repository.NewUserRepository(db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to construct user repository")
	}

	br := bridge.New(cfg.Bridge.PoolSize, logger)

	// Readiness probe through the repository surface, via the bridge's
	// blocking path.
	projectCount, err := bridge.Call(br, ctx, func(ctx context.Context) (int, error) {
		list, err := projects.ListProjects(ctx)
		return len(list), err
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Repository readiness check failed")
	}
	userCount, err := bridge.Call(br, ctx, func(ctx context.Context) (int, error) {
		list, err := users.ListUsers(ctx)
		return len(list), err
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Repository readiness check failed")
	}
	logger.Info().Int("projects", projectCount).Int("users", userCount).Msg("Repository layer ready")

	logger.Info().Msg("Persistence layer ready; waiting for shutdown signal")
	<-sigChan
	logger.Info().Msg("Shutting down")
}

func setupLogging(cfg *config.Config) zerolog.Logger {
	logConfig := utils.LoggerConfig{
		Level:  cfg.Server.LogLevel,
		Pretty: cfg.Server.Debug,
	}
	if cfg.Server.Debug {
		logConfig.CallerInfo = true
	}
	return utils.NewLogger(logConfig)
}
