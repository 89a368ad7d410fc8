package admin

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/cloo-solutions/pawdocs/internal/config"
	"github.com/cloo-solutions/pawdocs/internal/logging"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the pgvector schema migrations",
		Long:  "Apply (or with --down, roll back) the SQL migrations of the pgvector backend against PAWDOCS_DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.DatabaseURL == "" {
				return errors.New("PAWDOCS_DATABASE_URL is required")
			}

			logger, err := logging.New(cfg.LogLevel, "console")
			if err != nil {
				return err
			}
			defer logger.Sync()

			dir, _ := cmd.Flags().GetString("path")
			down, _ := cmd.Flags().GetBool("down")
			if down {
				return rollbackMigrations(cfg.DatabaseURL, dir, logger)
			}
			return runMigrations(cfg.DatabaseURL, dir, logger)
		},
	}

	cmd.Flags().String("path", defaultMigrationsDir, "Directory holding the SQL migrations")
	cmd.Flags().Bool("down", false, "Roll back every migration")

	return cmd
}

func newMigrate(databaseURL, dir string) (*migrate.Migrate, func(), error) {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, func() { db.Close() }, nil
}

func runMigrations(databaseURL, dir string, logger *zap.Logger) error {
	m, closeDB, err := newMigrate(databaseURL, dir)
	if err != nil {
		return err
	}
	defer closeDB()

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("migrations: no migrations applied")
	case err != nil:
		return fmt.Errorf("failed to get migration version: %w", err)
	case dirty:
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.Info("migrations: database is up to date", zap.Uint("version", version))
	default:
		logger.Info("migrations: applied successfully", zap.Uint("version", version))
	}
	return nil
}

func rollbackMigrations(databaseURL, dir string, logger *zap.Logger) error {
	m, closeDB, err := newMigrate(databaseURL, dir)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	logger.Info("migrations: rolled back")
	return nil
}
