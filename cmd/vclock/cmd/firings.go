package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vclock/datarecording"
	"github.com/sarchlab/vclock/instrumentation/tracing"
)

func newFiringsCommand() *cobra.Command {
	var (
		session string
		limit   int
	)

	c := &cobra.Command{
		Use:   "firings <recording.sqlite3>",
		Short: "Print the firings stored by run --record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := datarecording.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			err = reader.MapTable(tracing.FireTableName, tracing.FireRecord{})
			if err != nil {
				return err
			}

			params := datarecording.QueryParams{
				OrderBy: "rowid",
				Limit:   limit,
			}

			if session != "" {
				params.Where = "Session = ?"
				params.Args = []any{session}
			}

			rows, total, err := reader.Query(
				cmd.Context(), tracing.FireTableName, params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, row := range rows {
				r := row.(*tracing.FireRecord)
				fmt.Fprintf(out, "%s %d due=%d fired=%d repeating=%t\n",
					r.Session, r.TimerID, r.ScheduledAt, r.FiredAt, r.Repeating)
			}

			fmt.Fprintf(out, "%d of %d firings\n", len(rows), total)

			return nil
		},
	}

	c.Flags().StringVar(&session, "session", "", "only show this session")
	c.Flags().IntVar(&limit, "limit", 0, "show at most this many firings")

	return c
}
