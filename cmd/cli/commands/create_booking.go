package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/pkg/core/services"
)

// CreateBookingCmd creates the createBooking command
func CreateBookingCmd(app *AppContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "createBooking",
		Short: "Create a booking from a JSON request",
		Long: `Create a service program or event booking. The request is read from --file
(or stdin with --file -) using the same JSON body as POST /api/v1/bookings.
A booking with an end date and recurrence frequency also creates its occurrences.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var input services.CreateBookingInput
			if err := readJSONInput(file, cmd.InOrStdin(), &input); err != nil {
				return err
			}

			app.Logger.Debug("createBooking command", zap.String("booking_type", input.BookingType), zap.String("date", input.Date))

			view, err := app.Bookings.CreateBooking(app.Ctx, app.Actor, input)
			return reportView(cmd.OutOrStdout(), "Booking created successfully!", view, err)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON request file, - for stdin")
	return cmd
}
