package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/cmd/cli/commands"
	"github.com/jakechorley/volunteer-bookings/internal/config"
	"github.com/jakechorley/volunteer-bookings/pkg/core/enums"
	"github.com/jakechorley/volunteer-bookings/pkg/core/recurrence"
	"github.com/jakechorley/volunteer-bookings/pkg/core/services"
	"github.com/jakechorley/volunteer-bookings/pkg/db"
	"github.com/jakechorley/volunteer-bookings/pkg/postgres"
	"github.com/jakechorley/volunteer-bookings/pkg/sqlite"
	"github.com/jakechorley/volunteer-bookings/pkg/utils"
	"github.com/jakechorley/volunteer-bookings/pkg/utils/logging"
)

var (
	env     string
	user    string
	logDir  string
	verbose bool

	app     = &commands.AppContext{Ctx: context.Background()}
	closeDB func() error
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bookings",
		Short: "Volunteer bookings CLI - Manage service program and event bookings",
		Long: `A CLI tool for scheduling volunteer bookings: one-off and recurring service
programs, events, cancellations, history and the weekly coordinator digest.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if closeDB != nil {
				if err := closeDB(); err != nil {
					app.Logger.Warn("Failed to close database", zap.Error(err))
				}
			}
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment name, selects bookings_config.<env>.yaml")
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", "", "Acting user recorded in booking history (overrides actingUser)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "logs", "Directory for JSON log files, empty to disable")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")

	rootCmd.AddCommand(commands.CreateBookingCmd(app))
	rootCmd.AddCommand(commands.UpdateBookingCmd(app))
	rootCmd.AddCommand(commands.CancelBookingCmd(app))
	rootCmd.AddCommand(commands.DeleteBookingCmd(app))
	rootCmd.AddCommand(commands.ReplicateBookingCmd(app))
	rootCmd.AddCommand(commands.ExpandBookingCmd(app))
	rootCmd.AddCommand(commands.GetBookingCmd(app))
	rootCmd.AddCommand(commands.ListBookingsCmd(app))
	rootCmd.AddCommand(commands.BookingHistoryCmd(app))
	rootCmd.AddCommand(commands.SendDigestCmd(app))
	rootCmd.AddCommand(commands.PublishScheduleCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, store and the booking service
func initApp() error {
	var err error

	app.Env = env
	app.Logger, err = logging.InitLogger(env, logging.Options{Dir: logDir, Verbose: verbose})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Debug("Loading configuration", zap.String("environment", env))
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app.Actor = app.Cfg.ActingUser
	if user != "" {
		app.Actor = user
	}

	app.Logger.Debug("Opening store", zap.String("store", app.Cfg.Store))
	app.Store, closeDB, err = openStore(app.Ctx, app.Cfg)
	if err != nil {
		return err
	}

	calendar, err := recurrence.NewCalendar(app.Cfg.ClosureRules())
	if err != nil {
		return fmt.Errorf("failed to build closure calendar: %w", err)
	}
	engine := recurrence.NewEngine(calendar, app.Cfg.MaxOccurrences)
	resolver := enums.NewResolver(app.Cfg.Registry(), app.Logger)

	app.Bookings = services.NewBookingService(app.Store, resolver, engine, app.Logger)
	app.GoogleClient = googleClientOnce()

	return nil
}

// openStore connects to the configured database. The SQLite store applies its
// migrations on open; PostgreSQL is migrated with the migrate command.
func openStore(ctx context.Context, cfg *config.Config) (db.Store, func() error, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := postgres.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return pg, func() error { pg.Close(); return nil }, nil
	case config.StoreSQLite:
		lite, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return lite, lite.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// googleClientOnce defers loading OAuth credentials until a command talks to Google
func googleClientOnce() func() (*http.Client, error) {
	return sync.OnceValues(func() (*http.Client, error) {
		oauthCfg, err := config.LoadOAuthClientWithEnv(env)
		if err != nil {
			return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
		}

		tokens, err := utils.DefaultTokenStore()
		if err != nil {
			return nil, err
		}

		return tokens.HTTPClient(app.Ctx, oauthCfg, env, app.Logger)
	})
}
