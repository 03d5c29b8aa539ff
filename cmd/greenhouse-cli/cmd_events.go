package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

func newEventsCmd(a *app) *cobra.Command {
	events := &cobra.Command{
		Use:   "events",
		Short: "Inspect the action log",
	}

	var zoneID int
	list := &cobra.Command{
		Use:   "list",
		Short: "List action events, optionally for one zone",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				entries []model.ActionEvent
				err error
			)
			if zoneID > 0 {
				entries, err = a.svc.ZoneEvents(cmd.Context(), zoneID)
			} else {
				entries, err = a.svc.ListEvents(cmd.Context())
			}
			if err != nil {
				return err
			}

			loc := a.cfg.Location()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tZONE\tSTART\tEND\tSOURCE\tACTIONS")
			for _, e := range entries {
				end := "open"
				if e.EndTime != nil {
					end = e.EndTime.In(loc).Format(time.DateTime)
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
					e.ID, e.ZoneID, e.StartTime.In(loc).Format(time.DateTime), end, eventSource(e), strings.Join(e.Actions, ","))
			}
			return w.Flush()
		},
	}
	list.Flags().IntVar(&zoneID, "zone", 0, "Only show events for this zone")
	events.AddCommand(list)
	return events
}

func eventSource(e model.ActionEvent) string {
	switch {
	case e.IsScheduled && e.ScheduleID != nil:
		return fmt.Sprintf("schedule %d", *e.ScheduleID)
	case e.IsScheduled:
		return "schedule"
	case e.IsManual:
		return "manual"
	default:
		return "toggle"
	}
}
