package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/scenario.report/internal/oracle"
)

func newListCmd(reg *oracle.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered oracles and the flags they add to analyze",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, p := range reg.Plugins() {
				fmt.Fprintf(w, "%-14s %s\n", p.Name, p.Description)
				for _, f := range p.Flags {
					fmt.Fprintf(w, "%-14s   --%s  %s\n", "", f.Name, f.Usage)
				}
			}
			return nil
		},
	}
}
