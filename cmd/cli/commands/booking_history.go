package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// BookingHistoryCmd creates the bookingHistory command
func BookingHistoryCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "bookingHistory <booking_id>",
		Short: "Show the audit trail of a booking, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			entries, err := app.Bookings.GetBookingHistory(app.Ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No history recorded for booking #%d\n", id)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIMESTAMP\tUSER\tACTION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.UserID, e.Action)
			}
			return tw.Flush()
		},
	}
}
