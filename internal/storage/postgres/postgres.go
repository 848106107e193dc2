// Package postgres persists players in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
)

const (
	applicationName = "skirmish"
	readyTimeout    = 5 * time.Second
)

var (
	// ErrDisabled is returned by Open when database.enabled is false.
	ErrDisabled = errors.New("player persistence is disabled")
	// ErrSchemaMissing is returned when the players table has not been migrated.
	ErrSchemaMissing = errors.New("players table missing: run migrate up")
)

// Store owns the connection pool and the player repository built on it.
type Store struct {
	pool    *pgxpool.Pool
	Players *PlayerRepository
}

// PoolConfig translates cfg into pgx pool settings. Connections identify
// themselves to the server as the skirmish application.
//
// Precondition: cfg has passed config validation.
func PoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	return poolCfg, nil
}

// Open connects to the configured database and checks that the players
// schema is present.
//
// Postcondition: Returns a ready Store, ErrDisabled when persistence is off,
// ErrSchemaMissing when migrations have not been applied, or a connection error.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	s := &Store{pool: pool, Players: NewPlayerRepository(pool)}
	if err := s.Ready(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Ready reports whether the database answers within a short timeout and the
// players table exists.
func (s *Store) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	var table *string
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass('players')::text`).Scan(&table); err != nil {
		return fmt.Errorf("checking players schema: %w", err)
	}
	if table == nil {
		return ErrSchemaMissing
	}
	return nil
}

// Watch checks readiness every interval until ctx is done, then closes the
// pool. Failures are logged and do not stop the watch.
func (s *Store) Watch(ctx context.Context, interval time.Duration, logger *zap.Logger) error {
	defer s.Close()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := s.Ready(ctx); err != nil {
				logger.Warn("database not ready", zap.Error(err))
				continue
			}
			stat := s.pool.Stat()
			logger.Debug("database ready",
				zap.Int32("conns", stat.TotalConns()),
				zap.Int32("acquired", stat.AcquiredConns()),
				zap.Int32("idle", stat.IdleConns()),
			)
		}
	}
}

// Close releases all pool resources.
func (s *Store) Close() {
	s.pool.Close()
}
