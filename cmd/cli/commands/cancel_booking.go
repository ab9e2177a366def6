package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-bookings/pkg/core/services"
)

// CancelBookingCmd creates the cancelBooking command
func CancelBookingCmd(app *AppContext) *cobra.Command {
	var input services.CancelBookingInput
	cmd := &cobra.Command{
		Use:   "cancelBooking <booking_id>",
		Short: "Cancel a booking with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			b, err := app.Bookings.CancelBooking(app.Ctx, app.Actor, id, input)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Booking cancelled\n\n")
			printBooking(out, b)
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Reason, "reason", "", "Cancellation reason, e.g. \"Client - Health\"")
	cmd.Flags().StringVar(&input.Notes, "notes", "", "Free text cancellation notes")
	return cmd
}
