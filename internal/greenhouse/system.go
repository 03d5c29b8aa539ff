package greenhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/greenhouse-controller/db"
	"github.com/thatsimonsguy/greenhouse-controller/internal/clock"
	"github.com/thatsimonsguy/greenhouse-controller/internal/config"
	"github.com/thatsimonsguy/greenhouse-controller/internal/controllers/clockdriver"
	"github.com/thatsimonsguy/greenhouse-controller/internal/controllers/schedulecontroller"
	"github.com/thatsimonsguy/greenhouse-controller/internal/controllers/sensorsimulator"
	"github.com/thatsimonsguy/greenhouse-controller/internal/controllers/zonecontroller"
	"github.com/thatsimonsguy/greenhouse-controller/internal/datadog"
	"github.com/thatsimonsguy/greenhouse-controller/internal/history"
	"github.com/thatsimonsguy/greenhouse-controller/internal/influx"
	"github.com/thatsimonsguy/greenhouse-controller/internal/mqtt"
	"github.com/thatsimonsguy/greenhouse-controller/internal/notifications"
	"github.com/thatsimonsguy/greenhouse-controller/internal/store"
)

// System is a fully wired controller: storage, controllers, sinks and the
// running clock driver.
type System struct {
	Service   *Service
	Zones     *zonecontroller.Controller
	Evaluator *schedulecontroller.Evaluator
	Simulator *sensorsimulator.Simulator
	Driver    *clockdriver.Driver
	History   *history.Service

	memory   *store.Memory
	snapshot *store.SnapshotFile
	conn     *sql.DB
	mqtt     *mqtt.Publisher
	influx   *influx.Recorder

	shutdownOnce sync.Once
}

// InitializeSystem opens the configured backend, seeding it on first run,
// connects the optional sinks, wires the controllers and starts the clock
// driver. Sinks that cannot connect are logged and skipped.
func InitializeSystem(ctx context.Context, cfg *config.Config, clk clock.Clock) (*System, error) {
	sys := &System{}

	backend, err := sys.openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	loc := cfg.Location()
	sys.History = history.NewService(loc, history.DefaultDays, cfg.Seed.History)

	sys.Zones = zonecontroller.New(backend.Zones, backend.Events, clk, loc, cfg.ManualWateringWindow())
	if cfg.Ntfy.Topic != "" {
		sys.Zones.SetNotifier(notifications.Ntfy{})
	}

	if cfg.MQTT.Enabled {
		pub, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn().Err(err).Msg("MQTT unavailable, zone state will not be published")
		} else {
			sys.mqtt = pub
			sys.Zones.SetPublisher(pub)
		}
	}

	recorders := []sensorsimulator.Recorder{sys.History}
	if cfg.Datadog.Enabled {
		recorders = append(recorders, datadog.Gauges{})
	}
	if cfg.InfluxDB.Enabled {
		rec, err := influx.Connect(cfg.InfluxDB)
		if err != nil {
			log.Warn().Err(err).Msg("InfluxDB unavailable, readings will not be recorded")
		} else {
			sys.influx = rec
			recorders = append(recorders, rec)
		}
	}

	seed := cfg.Scheduler.RandomSeed
	if seed == 0 {
		seed = clk.Now().UnixNano()
	}
	sys.Simulator = sensorsimulator.New(backend.Zones, clk, rand.New(rand.NewSource(seed)), recorders...)
	sys.Evaluator = schedulecontroller.New(backend.Schedules, backend.Zones, sys.Zones, clk, loc)

	if err := sys.Zones.Resume(ctx, backend.Schedules); err != nil {
		log.Warn().Err(err).Msg("Failed to resume zone timers")
	}

	sys.Service = NewService(backend, sys.Zones, clk, Options{
		Location:        loc,
		LitersPerMinute: cfg.Water.LitersPerMinute,
		Forecast:        cfg.Seed.Forecast,
		History:         sys.History,
		Labels:          sys.Evaluator,
	})

	sys.Driver = clockdriver.New(clk, sys.Simulator, sys.Evaluator, cfg.SimulatorInterval(), cfg.EvaluatorInterval())
	if err := sys.Driver.Start(ctx); err != nil {
		sys.Shutdown()
		return nil, fmt.Errorf("starting clock driver: %w", err)
	}

	log.Info().
		Str("site", cfg.Site.Name).
		Str("timezone", loc.String()).
		Str("storage", cfg.Storage.Driver).
		Bool("mqtt", sys.mqtt != nil).
		Bool("influxdb", sys.influx != nil).
		Msg("Greenhouse system initialized")
	return sys, nil
}

func (sys *System) openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		conn, err := db.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return store.Backend{}, err
		}
		seeded, err := db.IsSeeded(ctx, conn)
		if err != nil {
			conn.Close()
			return store.Backend{}, err
		}
		if !seeded {
			snap, err := cfg.Seed.Snapshot()
			if err != nil {
				conn.Close()
				return store.Backend{}, err
			}
			if err := db.SeedDatabase(ctx, conn, snap); err != nil {
				conn.Close()
				return store.Backend{}, err
			}
		}
		sys.conn = conn
		log.Info().Str("path", cfg.Storage.SQLitePath).Msg("Using SQLite storage")
		return db.NewBackend(conn), nil

	default:
		snap, err := sys.loadSnapshot(cfg)
		if err != nil {
			return store.Backend{}, err
		}
		sys.memory = store.NewMemory(*snap)
		return sys.memory.Backend(), nil
	}
}

func (sys *System) loadSnapshot(cfg *config.Config) (*store.Snapshot, error) {
	if cfg.Storage.SnapshotFile != "" {
		sys.snapshot = store.NewSnapshotFile(cfg.Storage.SnapshotFile)
		snap, err := sys.snapshot.Load()
		if err == nil {
			log.Info().
				Str("path", sys.snapshot.Path()).
				Int("zones", len(snap.Zones)).
				Int("events", len(snap.Events)).
				Msg("Loaded state snapshot")
			return snap, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", sys.snapshot.Path()).Msg("Failed to load state snapshot, starting from seed data")
		}
	}

	snap, err := cfg.Seed.Snapshot()
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Shutdown stops all timers, persists the in-memory state and closes every
// connection. Zones that are active stay active; their timers are re-armed
// by the next InitializeSystem.
func (sys *System) Shutdown() {
	sys.shutdownOnce.Do(func() {
		if sys.Driver != nil {
			sys.Driver.Stop()
		}
		if sys.Zones != nil {
			sys.Zones.Stop()
		}

		if err := sys.SaveSnapshot(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to save state snapshot")
		}

		if sys.mqtt != nil {
			sys.mqtt.Close()
		}
		if sys.influx != nil {
			sys.influx.Close()
		}
		if sys.conn != nil {
			if err := sys.conn.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close database")
			}
		}
		log.Info().Msg("Greenhouse system shut down")
	})
}

// SaveSnapshot writes the in-memory state to the snapshot file. It does
// nothing for the SQLite backend.
func (sys *System) SaveSnapshot(ctx context.Context) error {
	if sys.memory == nil || sys.snapshot == nil {
		return nil
	}
	snap, err := sys.memory.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := sys.snapshot.Save(snap); err != nil {
		return err
	}
	log.Debug().Str("path", sys.snapshot.Path()).Msg("Saved state snapshot")
	return nil
}
