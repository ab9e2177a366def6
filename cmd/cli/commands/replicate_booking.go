package commands

import (
	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-bookings/pkg/core/services"
)

// ReplicateBookingCmd creates the replicateBooking command
func ReplicateBookingCmd(app *AppContext) *cobra.Command {
	var input services.ReplicateBookingInput
	cmd := &cobra.Command{
		Use:   "replicateBooking <booking_id>",
		Short: "Copy a booking onto a new date, optionally as a recurring series",
		Example: `  replicateBooking 12 --date 2024-01-01 --time 09:30
  replicateBooking 12 --date 2024-01-01 --time 09:30 --frequency Ongoing \
    --end-date 2024-01-31 --recurrence Weekly --days Mon,Fri`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			view, err := app.Bookings.ReplicateBooking(app.Ctx, app.Actor, id, input)
			return reportView(cmd.OutOrStdout(), "Booking replicated successfully!", view, err)
		},
	}
	cmd.Flags().StringVar(&input.Date, "date", "", "Date of the copy (YYYY-MM-DD)")
	cmd.Flags().StringVar(&input.Time, "time", "", "Start time of the copy (HH:MM)")
	cmd.Flags().StringVar(&input.Frequency, "frequency", "One-time", "Frequency type of the copy")
	cmd.Flags().StringVar(&input.EndDate, "end-date", "", "Last date of the series (YYYY-MM-DD)")
	cmd.Flags().StringVar(&input.RecurrenceFrequency, "recurrence", "", "Daily, Weekly, Bi-Weekly or Monthly")
	cmd.Flags().StringSliceVar(&input.RecurrenceDays, "days", nil, "Weekdays for weekly series, e.g. Mon,Fri")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}
