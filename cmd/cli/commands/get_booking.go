package commands

import (
	"github.com/spf13/cobra"
)

// GetBookingCmd creates the getBooking command
func GetBookingCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "getBooking <booking_id>",
		Short: "Print a booking with its clients, volunteers and attendees as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			view, err := app.Bookings.GetBooking(app.Ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
}
