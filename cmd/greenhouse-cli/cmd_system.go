package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/greenhouse-controller/db"
	"github.com/thatsimonsguy/greenhouse-controller/system/startup"
)

func newSeedCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the configured seed data into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			seeded, err := db.IsSeeded(cmd.Context(), a.conn)
			if err != nil {
				return err
			}
			if seeded && !force {
				return fmt.Errorf("database %s is already seeded; use --force to overwrite", a.cfg.Storage.SQLitePath)
			}
			snap, err := a.cfg.Seed.Snapshot()
			if err != nil {
				return err
			}
			if err := db.SeedDatabase(cmd.Context(), a.conn, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d zones, %d schedules and %d crops\n", len(snap.Zones), len(snap.Schedules), len(snap.Crops))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite rows that already exist")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database row counts and the dashboard summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := db.TableCounts(cmd.Context(), a.conn)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", a.cfg.Storage.SQLitePath)

			tables := make([]string, 0, len(counts))
			for table := range counts {
				tables = append(tables, table)
			}
			sort.Strings(tables)
			for _, table := range tables {
				fmt.Fprintf(out, "  %-14s %d\n", table, counts[table])
			}

			ov, err := a.svc.Overview(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Active zones: %d/%d\n", ov.ActiveZones, ov.TotalZones)
			fmt.Fprintf(out, "Water usage (24h): %.1f L (%+.0f%%)\n", ov.WaterUsage, ov.WaterUsageChange)
			if ov.NextScheduledTime != "" {
				fmt.Fprintf(out, "Next run: %s %s, %s\n", ov.NextScheduledDay, ov.NextScheduledTime, ov.NextScheduledZones)
			}
			return nil
		},
	}
}

func newInstallServiceCmd(a *app) *cobra.Command {
	var (
		opts     startup.ServiceOptions
		unitPath string
		enable   bool
	)
	cmd := &cobra.Command{
		Use:   "install-service",
		Short: "Install the systemd unit for the controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ConfigFile == "" {
				abs, err := filepath.Abs(a.configFile)
				if err != nil {
					return err
				}
				opts.ConfigFile = abs
			}
			if opts.Binary == "" {
				exe, err := os.Executable()
				if err != nil {
					return err
				}
				opts.Binary = filepath.Join(filepath.Dir(exe), "greenhouse-controller")
			}
			if opts.WorkingDirectory == "" {
				opts.WorkingDirectory = filepath.Dir(opts.ConfigFile)
			}

			if err := startup.InstallService(unitPath, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", unitPath)

			if enable {
				return startup.EnableService(unitPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&unitPath, "unit-path", startup.DefaultUnitPath, "Where to write the unit file")
	cmd.Flags().StringVar(&opts.Binary, "binary", "", "Absolute path of the greenhouse-controller binary")
	cmd.Flags().StringVar(&opts.User, "user", "", "User to run the service as")
	cmd.Flags().StringVar(&opts.WorkingDirectory, "workdir", "", "Working directory for the service")
	cmd.Flags().StringVar(&opts.ConfigFile, "service-config", "", "Config file passed to the controller (defaults to --config)")
	cmd.Flags().BoolVar(&enable, "enable", false, "Run systemctl enable --now after writing the unit")
	return cmd
}
