package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

func newSchedulesCmd(a *app) *cobra.Command {
	schedules := &cobra.Command{
		Use:   "schedules",
		Short: "Manage watering schedules",
	}

	schedules.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.svc.ListSchedules(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTIME\tDAYS\tZONES\tMINUTES\tACTIVE\tACTIONS")
			for _, s := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%t\t%s\n",
					s.ID, s.Name, s.Time.Label(), s.Days, joinInts(s.Zones), s.Duration, s.Active, strings.Join(s.ActionLabels(), ","))
			}
			return w.Flush()
		},
	})

	var draft model.ScheduleDraft
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a schedule",
		Example: `  greenhouse-cli schedules add --name "Morning Routine" --time "5:30 AM" \
    --days Mon,Wed,Fri --zones 1,2,3 --duration 15 --actions Watering,Ventilation`,
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := a.svc.CreateSchedule(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created schedule %d (%s)\n", created.ID, created.Name)
			return nil
		},
	}
	add.Flags().StringVar(&draft.Name, "name", "", "Schedule name")
	add.Flags().StringVar(&draft.Time, "time", "", `Start time, "17:45" or "5:45 PM"`)
	add.Flags().StringSliceVar(&draft.Days, "days", nil, "Days of the week, e.g. Mon,Wed,Fri")
	add.Flags().IntSliceVar(&draft.Zones, "zones", nil, "Zone ids")
	add.Flags().IntVar(&draft.Duration, "duration", 0, "Duration in minutes")
	add.Flags().StringSliceVar(&draft.Actions, "actions", []string{string(model.ActionWatering)}, "Actions to perform")
	schedules.AddCommand(add)

	schedules.AddCommand(&cobra.Command{
		Use:   "toggle <id>",
		Short: "Enable or disable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sched, err := a.svc.ToggleSchedule(cmd.Context(), id)
			if err != nil {
				return err
			}
			state := "disabled"
			if sched.Active {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schedule %d %s\n", sched.ID, state)
			return nil
		},
	})

	schedules.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.DeleteSchedule(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted schedule %d\n", id)
			return nil
		},
	})

	return schedules
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
