package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-bookings/pkg/core/services"
	"github.com/jakechorley/volunteer-bookings/pkg/db"
)

// ListBookingsCmd creates the listBookings command
func ListBookingsCmd(app *AppContext) *cobra.Command {
	var input services.ListBookingsInput
	cmd := &cobra.Command{
		Use:   "listBookings",
		Short: "List bookings ordered by date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := app.Bookings.ListBookings(app.Ctx, input)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(page.Bookings) == 0 {
				fmt.Fprintln(out, "No bookings found")
				return nil
			}

			printBookingTable(out, page.Bookings)
			fmt.Fprintf(out, "\nPage %d, %d of %d bookings\n", page.Page, len(page.Bookings), page.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Status, "status", "", "Only bookings with this status")
	cmd.Flags().StringVar(&input.BookingType, "type", "", "service_program or event")
	cmd.Flags().StringVar(&input.DateFrom, "from", "", "Earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&input.DateTo, "to", "", "Latest date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&input.ParentBookingID, "parent", 0, "Only occurrences of this parent booking")
	cmd.Flags().IntVar(&input.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&input.PageSize, "page-size", db.DefaultPageSize, "Bookings per page")
	return cmd
}
