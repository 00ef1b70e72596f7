// Package main provides a database migration runner for the postgres and
// sqlite backends. Migrations are embedded in the storage packages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"

	"github.com/cory-johannsen/sailor/internal/config"
	"github.com/cory-johannsen/sailor/internal/storage/postgres"
	"github.com/cory-johannsen/sailor/internal/storage/sqlite"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (empty = defaults and SAILOR_ env)")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	m, err := newMigrator(context.Background(), cfg)
	if err != nil {
		log.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	default:
		log.Fatalf("invalid direction %q: must be 'up' or 'down'", *direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration failed: %v", err)
	}

	version, dirty, _ := m.Version()
	elapsed := time.Since(start)

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintf(os.Stdout, "no changes (backend=%s version=%d dirty=%v) [%s]\n", cfg.Storage.Backend, version, dirty, elapsed)
	} else {
		fmt.Fprintf(os.Stdout, "migrated %s backend=%s to version=%d dirty=%v [%s]\n", *direction, cfg.Storage.Backend, version, dirty, elapsed)
	}
}

func newMigrator(ctx context.Context, cfg config.Config) (*migrate.Migrate, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		return postgres.NewMigrator(cfg.Database.DSN())
	case config.BackendSQLite:
		db, err := sqlite.OpenDB(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		m, err := sqlite.NewMigrator(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("backend %q has no schema to migrate", cfg.Storage.Backend)
	}
}
