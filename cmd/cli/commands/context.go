package commands

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/internal/config"
	"github.com/jakechorley/volunteer-bookings/pkg/core/services"
	"github.com/jakechorley/volunteer-bookings/pkg/db"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Env      string
	Store    db.Store
	Bookings *services.BookingService
	Logger   *zap.Logger
	Ctx      context.Context
	// Actor is recorded as the acting user of every write
	Actor string
	// GoogleClient returns an authorised client for the Gmail and Sheets APIs,
	// running the OAuth flow on first use
	GoogleClient func() (*http.Client, error)
}

// Migrator is implemented by stores whose schema is applied on demand
type Migrator interface {
	RunMigrations(ctx context.Context) error
}
