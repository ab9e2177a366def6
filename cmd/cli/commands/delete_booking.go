package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteBookingCmd creates the deleteBooking command
func DeleteBookingCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteBooking <booking_id>",
		Short: "Mark a booking as deleted (the record and its history are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			b, err := app.Bookings.DeleteBooking(app.Ctx, app.Actor, id)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Booking #%d marked as %s\n\n", b.ID, b.Status)
			return nil
		},
	}
}
