// Package main applies and rolls back the players schema.
//
// Usage:
//
//	migrate [-config configs/dev.yaml] [-steps n] [up|down|version]
//
// Database settings come from the same config file and SKIRMISH_ environment
// overrides the battle server uses.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	steps := flag.Int("steps", 0, "number of steps for up or down (0 = all)")
	flag.Parse()

	action := flag.Arg(0)
	if action == "" {
		action = "up"
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, "migrate")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.Database.Enabled {
		logger.Fatal("database.enabled is false; set it or SKIRMISH_DATABASE_ENABLED=true to migrate")
	}

	dir, err := filepath.Abs(cfg.Database.MigrationsDir)
	if err != nil {
		logger.Fatal("resolving migrations directory", zap.Error(err))
	}
	m, err := migrate.New("file://"+filepath.ToSlash(dir), cfg.Database.DSN())
	if err != nil {
		logger.Fatal("creating migrator", zap.Error(err))
	}
	defer m.Close()

	res, err := run(m, action, *steps)
	if err != nil {
		logger.Fatal("migration failed", zap.String("action", action), zap.Error(err))
	}
	logger.Info("migration finished",
		zap.String("action", action),
		zap.Bool("changed", res.Changed),
		zap.Uint("version", res.Version),
		zap.Bool("dirty", res.Dirty),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// migrator is the subset of *migrate.Migrate that run drives.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
}

type result struct {
	Version uint
	Dirty   bool
	Changed bool
}

// run performs action against m. "version" only reports. A schema with no
// applied migrations reports version 0.
func run(m migrator, action string, steps int) (result, error) {
	var err error
	switch action {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
	default:
		return result{}, fmt.Errorf("unknown action %q: want up, down or version", action)
	}

	changed := action != "version"
	if errors.Is(err, migrate.ErrNoChange) {
		changed, err = false, nil
	}
	if err != nil {
		return result{}, fmt.Errorf("migrating %s: %w", action, err)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return result{Changed: changed}, nil
	}
	if err != nil {
		return result{}, fmt.Errorf("reading version: %w", err)
	}
	return result{Version: version, Dirty: dirty, Changed: changed}, nil
}
