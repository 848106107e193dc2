// Package main provides the battle server binary: it loads game content,
// spawns mobs and serves the battle gRPC service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/combatant"
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/server"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "gameserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	var src dice.Source
	if cfg.Battle.Seed != 0 {
		src = dice.NewSeededSource(cfg.Battle.Seed)
	} else {
		src = dice.NewCryptoSource()
	}
	roller := dice.NewLoggedRoller(src, logger)

	logger.Info("starting battle server", zap.String("grpc_addr", cfg.GameServer.Addr()))

	// Load content
	contentStart := time.Now()
	catalog, err := gamedata.Load(cfg.Content.GamedataFile, cfg.Content.ItemsDir, cfg.Content.AbilitiesDir)
	if err != nil {
		logger.Fatal("loading game data", zap.Error(err))
	}
	templates, err := combatant.LoadTemplates(cfg.Content.MobsDir, catalog)
	if err != nil {
		logger.Fatal("loading mob templates", zap.Error(err))
	}
	starting, err := combatant.LoadTemplateFile(cfg.Content.PlayerTemplate, catalog)
	if err != nil {
		logger.Fatal("loading player template", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("items", catalog.ItemCount()),
		zap.Int("abilities", catalog.AbilityCount()),
		zap.Int("mob_templates", len(templates)),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// Mob scripts are optional.
	var scripts *scripting.Manager
	if dir := cfg.Content.ScriptsDir; dir != "" {
		if _, statErr := os.Stat(dir); statErr == nil {
			scripts = scripting.NewManager(roller, logger)
			defer scripts.Close()
			namespaces, err := scripts.LoadDir(dir, cfg.Content.ScriptInstructionLimit)
			if err != nil {
				logger.Fatal("loading scripts", zap.Error(err))
			}
			logger.Info("scripts loaded", zap.Strings("namespaces", namespaces))
		}
	}

	world := gameserver.NewWorld()
	battles := battle.NewRegistry(catalog,
		battle.WithLogger(logger),
		battle.WithInitiatorBonus(cfg.Battle.InitiatorBonus),
		battle.WithMaxEat(cfg.Battle.MaxEat),
	)
	brain := gameserver.NewMobBrain(catalog, scripts, logger)
	respawner := gameserver.NewRespawner(templates)
	handler := gameserver.NewBattleHandler(
		catalog, world, battles, command.DefaultRegistry(), brain, respawner, roller,
		cfg.Battle.ExchangeLimit, logger,
	)
	spawned, err := handler.SpawnInitial(templates)
	if err != nil {
		logger.Fatal("spawning mobs", zap.Error(err))
	}
	logger.Info("mobs spawned", zap.Int("count", spawned))

	lifecycle := server.NewLifecycle(logger)

	// Player persistence
	var store gameserver.PlayerStore
	db, err := postgres.Open(ctx, cfg.Database)
	switch {
	case errors.Is(err, postgres.ErrDisabled):
		logger.Info("player persistence disabled")
	case err != nil:
		logger.Fatal("opening database", zap.Error(err))
	default:
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.String("name", cfg.Database.Name),
		)
		store = db.Players
		lifecycle.Add("postgres", server.ContextService(func(ctx context.Context) error {
			return db.Watch(ctx, cfg.Database.HealthInterval, logger)
		}))
	}

	service := gameserver.NewBattleService(handler, store, starting, logger)
	grpcServer := grpc.NewServer()
	service.Register(grpcServer)

	ticks := gameserver.NewTickManager(cfg.GameServer.TickInterval)
	ticks.RegisterTick("respawn", handler.Tick)
	if store != nil && cfg.GameServer.AutosaveInterval > 0 {
		var lastSave time.Time
		ticks.RegisterTick("autosave", func(now time.Time) {
			if now.Sub(lastSave) < cfg.GameServer.AutosaveInterval {
				return
			}
			lastSave = now
			service.Autosave(ctx)
		})
	}

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GameServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
			}
			logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			if active := handler.ActiveBattles(); len(active) > 0 {
				logger.Info("ending active battles", zap.Strings("battles", active))
			}
			service.LeaveAll(ctx)
			grpcServer.GracefulStop()
		},
	})
	lifecycle.Add("ticks", server.ContextService(ticks.Run))

	logger.Info("battle server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
