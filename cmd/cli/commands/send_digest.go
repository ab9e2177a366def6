package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/pkg/clients/gmailclient"
	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
	"github.com/jakechorley/volunteer-bookings/pkg/core/services"
)

// SendDigestCmd creates the sendDigest command
func SendDigestCmd(app *AppContext) *cobra.Command {
	var date string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sendDigest",
		Short: "Email the coordinator the week's bookings that still need a volunteer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := weekDate(date)
			if err != nil {
				return err
			}

			var mailer services.Mailer
			if !dryRun {
				httpClient, err := app.GoogleClient()
				if err != nil {
					return fmt.Errorf("failed to authorise google client: %w", err)
				}
				mailer, err = gmailclient.NewClient(app.Ctx, httpClient, app.Cfg.GmailUserID)
				if err != nil {
					return err
				}
			}

			app.Logger.Debug("sendDigest command", zap.Time("at", at), zap.Bool("dry_run", dryRun))

			result, err := services.SendUpcomingDigest(app.Ctx, app.Bookings, mailer, app.Logger, app.Cfg.CoordinatorEmail, at, dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Sent {
				fmt.Fprintf(out, "\n✓ Digest sent to %s (%d bookings)\n\n", app.Cfg.CoordinatorEmail, len(result.Bookings))
				return nil
			}
			fmt.Fprintf(out, "\nSubject: %s\n\n%s\n", result.Subject, result.Body)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Any date in the target week (YYYY-MM-DD), defaults to today")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the email instead of sending it")
	return cmd
}

func weekDate(date string) (time.Time, error) {
	if date == "" {
		return time.Now(), nil
	}
	t, err := model.ParseDate(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}
