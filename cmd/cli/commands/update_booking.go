package commands

import (
	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-bookings/pkg/core/services"
)

// UpdateBookingCmd creates the updateBooking command
func UpdateBookingCmd(app *AppContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "updateBooking <booking_id>",
		Short: "Apply a partial JSON update to a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var patch services.UpdateBookingInput
			if err := readJSONInput(file, cmd.InOrStdin(), &patch); err != nil {
				return err
			}

			view, err := app.Bookings.UpdateBooking(app.Ctx, app.Actor, id, patch)
			return reportView(cmd.OutOrStdout(), "Booking updated successfully!", view, err)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON patch file, - for stdin")
	return cmd
}
