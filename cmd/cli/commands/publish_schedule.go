package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-bookings/pkg/clients/sheetsclient"
	"github.com/jakechorley/volunteer-bookings/pkg/core/services"
)

// PublishScheduleCmd creates the publishSchedule command
func PublishScheduleCmd(app *AppContext) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "publishSchedule",
		Short: "Publish the week's active bookings to a new tab of the schedule spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := weekDate(date)
			if err != nil {
				return err
			}

			httpClient, err := app.GoogleClient()
			if err != nil {
				return fmt.Errorf("failed to authorise google client: %w", err)
			}
			sheets, err := sheetsclient.NewClient(app.Ctx, httpClient)
			if err != nil {
				return err
			}

			result, err := services.PublishSchedule(app.Ctx, app.Bookings, sheets, app.Logger, app.Cfg.ScheduleSheetID, at)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Published %d bookings to tab %q\n\n", len(result.Rows)-1, result.TabTitle)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Any date in the target week (YYYY-MM-DD), defaults to today")
	return cmd
}
