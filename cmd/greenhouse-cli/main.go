package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/greenhouse-controller/db"
	"github.com/thatsimonsguy/greenhouse-controller/internal/clock"
	"github.com/thatsimonsguy/greenhouse-controller/internal/config"
	"github.com/thatsimonsguy/greenhouse-controller/internal/controllers/schedulecontroller"
	"github.com/thatsimonsguy/greenhouse-controller/internal/greenhouse"
	"github.com/thatsimonsguy/greenhouse-controller/internal/store"
)

// app holds what every subcommand needs once the root command has run.
type app struct {
	configFile string
	cfg        config.Config
	conn       *sql.DB
	backend    store.Backend
	svc        *greenhouse.Service
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "greenhouse-cli",
		Short: "Operate a greenhouse controller database",
		Long: `greenhouse-cli inspects and edits the SQLite database used by the
greenhouse controller: zones, schedules, the action log and crops.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "config.yaml", "Path to controller config file")

	root.AddCommand(
		newZonesCmd(a),
		newSchedulesCmd(a),
		newEventsCmd(a),
		newCropsCmd(a),
		newSeedCmd(a),
		newStatusCmd(a),
		newInstallServiceCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.LoadFile(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	conn, err := db.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	a.conn = conn
	a.backend = db.NewBackend(conn)

	// The CLI never drives zones; it only edits schedules and reference data.
	labels := schedulecontroller.New(a.backend.Schedules, a.backend.Zones, nil, clock.Real(), cfg.Location())
	a.svc = greenhouse.NewService(a.backend, nil, clock.Real(), greenhouse.Options{
		Location:        cfg.Location(),
		LitersPerMinute: cfg.Water.LitersPerMinute,
		Forecast:        cfg.Seed.Forecast,
		Labels:          labels,
	})
	return nil
}

func (a *app) close() error {
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
