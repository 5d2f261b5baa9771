package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vclock/timing"
)

func newFacilitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "facilities",
		Short: "List the facilities that can be mocked.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, f := range timing.AllFacilities() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", f, f.Alias())
			}
		},
	}
}
