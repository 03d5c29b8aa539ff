package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCropsCmd(a *app) *cobra.Command {
	crops := &cobra.Command{
		Use:   "crops",
		Short: "Inspect crop records",
	}
	crops.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all crops",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.svc.ListCrops(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTAGE\tPLANTED\tHARVEST")
			for _, c := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Type, c.GrowthStage, c.PlantedDate, c.HarvestDate)
			}
			return w.Flush()
		},
	})
	return crops
}
