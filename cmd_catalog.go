package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
)

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the available practicals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := model.LoadCatalog()
			if err != nil {
				return err
			}
			experiments := catalog.List()

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(experiments)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tKIND\tSUBJECT\tXP")
			for _, e := range experiments {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", e.ID, e.Title, e.Kind, e.Subject, e.RewardXP)
			}
			return w.Flush()
		},
	}
}
