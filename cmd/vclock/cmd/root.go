// Package cmd provides the command-line interface for vclock.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// NewRootCommand creates the vclock command with all its subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "vclock",
		Short: "vclock runs timer scenarios on a manually advanced clock.",
		Long: `vclock runs timer scenarios on a manually advanced clock. ` +
			`A scenario schedules timeouts and intervals, moves the ` +
			`virtual time and reads the mocked clock.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCommand(),
		newFacilitiesCommand(),
		newFiringsCommand(),
	)

	return root
}

// Execute runs the root command. Exit handlers, such as the ones flushing
// recordings, run before the process exits.
func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
