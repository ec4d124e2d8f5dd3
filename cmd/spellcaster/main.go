// Package main runs the ability engine against the in-memory reference world.
// It wires together configuration, logging, the ability catalog, Lua condition
// scripts, the simulated population, and the tick loop.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spelledmobs/internal/config"
	"github.com/cory-johannsen/spelledmobs/internal/engine"
	"github.com/cory-johannsen/spelledmobs/internal/game/ability"
	"github.com/cory-johannsen/spelledmobs/internal/game/dice"
	"github.com/cory-johannsen/spelledmobs/internal/observability"
	"github.com/cory-johannsen/spelledmobs/internal/scripting"
	"github.com/cory-johannsen/spelledmobs/internal/server"
	"github.com/cory-johannsen/spelledmobs/internal/sim"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/spellcaster.yaml", "path to configuration file; empty uses defaults")
	maxTicks := flag.Uint64("ticks", 0, "stop after this many ticks; 0 runs until signalled")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logging, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	logging.SetDebug(cfg.Engine.DebugLogging)
	logger := logging.Logger
	defer func() { _ = logger.Sync() }()

	catalog, err := loadCatalog(cfg.Engine, logging.Component("catalog"))
	if err != nil {
		logger.Fatal("loading ability catalog", zap.Error(err))
	}

	engCfg := engine.Config{
		MaxLevel: cfg.Engine.MaxLevel,
		Flags: engine.Flags{
			DebugLogging: cfg.Engine.DebugLogging,
			ShowEffects:  cfg.Engine.ShowEffects,
			SearchRadius: cfg.Engine.SearchRadius,
		},
	}
	var scripts *scripting.Manager
	if cfg.Engine.ScriptDir != "" {
		scripts = scripting.NewManager(logging.Component("lua"), cfg.Engine.InstructionLimit)
		if err := scripts.Load(cfg.Engine.ScriptDir); err != nil {
			logger.Fatal("loading condition scripts", zap.Error(err))
		}
		defer scripts.Close()
		engCfg.Scripts = scripts
	}

	weather, err := sim.ParseWeather(cfg.Simulation.Weather)
	if err != nil {
		logger.Fatal("parsing weather", zap.Error(err))
	}
	world := sim.NewWorld(sim.NewClock(cfg.Simulation.StartTimeOfDay, weather), logging.Component("world"))
	population, err := sim.LoadPopulation(cfg.Simulation.PopulationFile)
	if err != nil {
		logger.Fatal("loading population", zap.Error(err))
	}
	ids, err := world.Populate(population)
	if err != nil {
		logger.Fatal("spawning population", zap.Error(err))
	}
	logger.Info("population spawned",
		zap.String("file", cfg.Simulation.PopulationFile),
		zap.Int("agents", len(ids)),
	)

	src := dice.NewCryptoSource()
	if cfg.Engine.Seed != 0 {
		src = dice.NewSeededSource(cfg.Engine.Seed)
	}
	eng := engine.New(engCfg, world, catalog, src, logging.Component("engine"))
	world.OnDeparture(eng.AgentDeparted)

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	loop := engine.NewTickLoop(cfg.Engine.TickInterval)
	loop.Register(world.Tick)
	loop.Register(func(ctx context.Context, tick uint64) { eng.Tick(ctx, tick) })
	if *maxTicks > 0 {
		loop.Register(func(_ context.Context, tick uint64) {
			if tick >= *maxTicks {
				stop()
			}
		})
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("tickloop", &server.FuncService{
		StartFn: func() error {
			<-loop.Start(runCtx)
			return nil
		},
		StopFn: stop,
	})
	lifecycle.OnReload("catalog", func() error {
		c, err := loadCatalog(cfg.Engine, logging.Component("catalog"))
		if err != nil {
			return err
		}
		eng.Reload(c)
		return nil
	})
	if scripts != nil {
		lifecycle.OnReload("scripts", func() error {
			return scripts.Load(cfg.Engine.ScriptDir)
		})
	}

	logger.Info("spellcaster initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Duration("tick_interval", cfg.Engine.TickInterval),
		zap.Strings("agent_types", catalog.AgentTypes()),
	)

	if err := lifecycle.Run(runCtx); err != nil {
		logger.Fatal("spellcaster error", zap.Error(err))
	}
	logger.Info("simulation finished",
		zap.Uint64("ticks", loop.Current()),
		zap.Int("casts", len(world.Casts())),
	)
}

// loadCatalog loads the ability directory and logs every dropped entry.
func loadCatalog(cfg config.EngineConfig, logger *zap.Logger) (*ability.Catalog, error) {
	c, warnings, err := ability.LoadDirectory(cfg.CatalogDir, cfg.DefaultNamespace)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logger.Warn("ability catalog entry skipped", zap.Error(w))
	}
	logger.Info("ability catalog loaded",
		zap.String("dir", cfg.CatalogDir),
		zap.Int("agent_types", len(c.AgentTypes())),
		zap.Int("warnings", len(warnings)),
	)
	return c, nil
}
