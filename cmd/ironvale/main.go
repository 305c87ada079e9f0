package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ironvale/sim/internal/component"
	"github.com/ironvale/sim/internal/config"
	"github.com/ironvale/sim/internal/core/event"
	coresys "github.com/ironvale/sim/internal/core/system"
	"github.com/ironvale/sim/internal/data"
	"github.com/ironvale/sim/internal/persist"
	"github.com/ironvale/sim/internal/scripting"
	"github.com/ironvale/sim/internal/snapshot"
	"github.com/ironvale/sim/internal/system"
	"github.com/ironvale/sim/internal/tilemap"
	"github.com/ironvale/sim/internal/world"
)

const autosaveSlot = "autosave"
const autosaveKeep = 5

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 3. Connect to PostgreSQL and run migrations (optional)
	var repo *persist.SnapshotRepo
	if cfg.Database.Enabled {
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()

		if err := persist.Migrate(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		repo = persist.NewSnapshotRepo(db)
		log.Info("database connected")
	}

	// 4. Load content: scripts, archetypes, map
	scripts, err := scripting.NewEngine(cfg.Content.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer scripts.Close()

	archetypes, err := data.LoadArchetypeTable(cfg.Content.ArchetypesFile)
	if err != nil {
		return fmt.Errorf("load archetypes: %w", err)
	}
	log.Info("archetypes loaded", zap.Int("count", archetypes.Count()))

	terrain, mapFile, err := tilemap.LoadFile(cfg.Content.MapFile)
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	log.Info("map loaded",
		zap.String("name", mapFile.Name),
		zap.Int("width", terrain.Width()),
		zap.Int("height", terrain.Height()),
	)

	// 5. Build the simulation
	ws := world.NewState(log, terrain, world.Options{
		MaxEntities:        cfg.Simulation.MaxEntities,
		CellSize:           cfg.Grid.CellSize,
		ElevationThreshold: cfg.Nav.ElevationThreshold,
		LOSCacheSize:       cfg.Nav.LOSCacheSize,
		Seed:               cfg.Simulation.Seed,
	})
	sched := coresys.NewScheduler(log)
	system.RegisterAll(sched, ws, scripts)

	event.Subscribe(ws.Bus, func(event.PauseToggle) {
		sched.TogglePause()
	})

	// 6. Restore the latest autosave, or populate the map's spawns
	restored := false
	if repo != nil {
		restored, err = restoreLatest(ctx, ws, sched, repo, log)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	if !restored {
		persona := personaFrom(scripts)
		created, err := world.PopulateSpawns(ws, archetypes, mapFile.Spawns, persona)
		if err != nil {
			return fmt.Errorf("populate spawns: %w", err)
		}
		log.Info("entities spawned", zap.Int("count", created))
	}

	if cfg.Simulation.StartPaused {
		sched.Pause()
	}

	// 7. Run the loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	log.Info("simulation running",
		zap.Duration("tick_rate", cfg.Simulation.TickRate),
		zap.Int64("seed", cfg.Simulation.Seed),
	)

	for {
		select {
		case <-ticker.C:
			if !sched.Tick(cfg.Simulation.TickRate) {
				continue
			}
			if repo != nil && cfg.Simulation.AutosaveTicks > 0 &&
				sched.TickCount()%uint64(cfg.Simulation.AutosaveTicks) == 0 {
				saveSnapshot(ws, sched.TickCount(), repo, log)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			if repo != nil {
				saveSnapshot(ws, sched.TickCount(), repo, log)
			}
			log.Info("simulation stopped", zap.Uint64("tick", sched.TickCount()))
			return nil
		}
	}
}

// personaFrom bridges scripted personality overrides into spawn creation.
func personaFrom(scripts *scripting.Engine) world.PersonaFunc {
	if scripts == nil {
		return nil
	}
	return func(archetype string) (component.Personality, bool) {
		p := scripts.GetPersonality(archetype)
		if p == nil {
			return component.Personality{}, false
		}
		return component.Personality{
			Aggression: p.Aggression,
			Bravery:    p.Bravery,
			Curiosity:  p.Curiosity,
		}, true
	}
}

// restoreLatest loads the newest autosave into the empty world. Returns
// false when the slot is empty.
func restoreLatest(ctx context.Context, ws *world.State, sched *coresys.Scheduler, repo *persist.SnapshotRepo, log *zap.Logger) (bool, error) {
	row, err := repo.LoadLatest(ctx, autosaveSlot)
	if err != nil {
		return false, err
	}
	if row == nil {
		return false, nil
	}
	snap, err := snapshot.Decode(row.Payload)
	if err != nil {
		return false, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := snapshot.Apply(ws, snap); err != nil {
		return false, fmt.Errorf("apply snapshot: %w", err)
	}
	sched.SetTickCount(snap.Tick)
	log.Info("snapshot restored",
		zap.Uint64("tick", snap.Tick),
		zap.Int("entities", len(snap.Entities)),
	)
	return true, nil
}

func saveSnapshot(ws *world.State, tick uint64, repo *persist.SnapshotRepo, log *zap.Logger) {
	payload, err := snapshot.Encode(snapshot.Capture(ws, tick))
	if err != nil {
		log.Error("autosave encode failed", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.Save(ctx, autosaveSlot, tick, payload); err != nil {
		log.Error("autosave failed", zap.Error(err))
		return
	}
	if err := repo.Prune(ctx, autosaveSlot, autosaveKeep); err != nil {
		log.Error("autosave prune failed", zap.Error(err))
	}
	log.Info("autosave written", zap.Uint64("tick", tick), zap.Int("bytes", len(payload)))
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
