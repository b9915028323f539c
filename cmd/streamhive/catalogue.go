package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCatalogueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogue",
		Short: "Browse the contents catalogue",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Search films and series by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing found")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tCATEGORY\tNAME\tURL")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Kind, r.Category, r.Name, r.URL)
			}
			return tw.Flush()
		},
	})

	return cmd
}
