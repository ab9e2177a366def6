package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ExpandBookingCmd creates the expandBooking command
func ExpandBookingCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "expandBooking <parent_booking_id>",
		Short: "Create any occurrences missing from a recurring series",
		Long: `Re-run expansion of a parent booking. Dates that already have an occurrence are
skipped, so this completes a series whose expansion was interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			result, err := app.Bookings.ResumeExpansion(app.Ctx, app.Actor, id)
			if result != nil {
				printExpansion(cmd.OutOrStdout(), result)
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return err
		},
	}
}
