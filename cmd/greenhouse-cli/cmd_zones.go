package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newZonesCmd(a *app) *cobra.Command {
	zones := &cobra.Command{
		Use:   "zones",
		Short: "Inspect greenhouse zones",
	}
	zones.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all zones with their latest readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.svc.ListZones(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tACTIVE\tTEMP\tHUMIDITY\tMOISTURE\tLIGHT\tCO2\tLAST WATERED\tNEXT")
			for _, z := range list {
				fmt.Fprintf(w, "%d\t%s\t%t\t%.1f\t%.0f\t%.0f\t%.0f\t%.0f\t%s\t%s\n",
					z.ID, z.Name, z.Active, z.Temperature, z.Humidity, z.Moisture, z.Light, z.CO2, z.LastWatered, z.NextScheduled)
			}
			return w.Flush()
		},
	})
	return zones
}
