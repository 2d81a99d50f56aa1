package db

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"hotelsync/pkg/config"
)

const defaultMigrationsPath = "file://migrations"

// Migrate applies all pending up migrations.
func Migrate(cfg config.Config) error {
	return withMigrator(cfg, func(m *migrate.Migrate) error { return m.Up() })
}

// Rollback reverts the last steps migrations.
func Rollback(cfg config.Config, steps int) error {
	if steps <= 0 {
		return errors.New("rollback steps must be > 0")
	}
	return withMigrator(cfg, func(m *migrate.Migrate) error { return m.Steps(-steps) })
}

func withMigrator(cfg config.Config, fn func(*migrate.Migrate) error) error {
	m, err := migrate.New(migrationsSource(cfg), migrationConnString(cfg))
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := fn(m); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return err
	}
	return nil
}

func migrationsSource(cfg config.Config) string {
	if cfg.MigrationsPath == "" {
		return defaultMigrationsPath
	}
	return cfg.MigrationsPath
}
