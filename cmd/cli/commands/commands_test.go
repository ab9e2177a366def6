package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/internal/config"
	"github.com/jakechorley/volunteer-bookings/pkg/core/enums"
	"github.com/jakechorley/volunteer-bookings/pkg/core/services"
	"github.com/jakechorley/volunteer-bookings/pkg/sqlite"
)

const visitJSON = `{
  "booking_type": "service_program",
  "date": "2024-01-01",
  "start_time": "09:30",
  "service_type": "Friendly Visit",
  "pickup_address": {"street": "1 High St", "city": "Ilford"},
  "clients": ["client-1"]
}`

const seriesJSON = `{
  "booking_type": "service_program",
  "frequency_type": "Ongoing",
  "date": "2024-01-01",
  "start_time": "09:30",
  "service_type": "Friendly Visit",
  "pickup_address": {"street": "1 High St", "city": "Ilford"},
  "clients": ["client-1"],
  "end_date": "2024-01-31",
  "recurrence_frequency": "Weekly",
  "recurrence_days": ["Mon", "Fri"]
}`

func newTestApp(t *testing.T) *AppContext {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := zap.NewNop()
	return &AppContext{
		Cfg: &config.Config{
			Store:            config.StoreSQLite,
			SQLitePath:       sqlite.MemoryPath,
			CoordinatorEmail: "coordinator@example.org",
			ServerAddr:       config.DefaultServerAddr,
		},
		Store:    store,
		Bookings: services.NewBookingService(store, enums.NewResolver(nil, logger), nil, logger),
		Logger:   logger,
		Ctx:      ctx,
		Actor:    "staff-1",
		GoogleClient: func() (*http.Client, error) {
			return nil, errors.New("offline")
		},
	}
}

func run(cmd *cobra.Command, stdin string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateBookingCmd(t *testing.T) {
	app := newTestApp(t)

	out, err := run(CreateBookingCmd(app), visitJSON)
	require.NoError(t, err)

	assert.Contains(t, out, "Booking created successfully!")
	assert.Contains(t, out, "Booking ID: 1")
	assert.Contains(t, out, "service_program - Friendly Visit")
	assert.Contains(t, out, "Not Assigned")
}

func TestCreateBookingCmd_Series(t *testing.T) {
	app := newTestApp(t)

	out, err := run(CreateBookingCmd(app), seriesJSON)
	require.NoError(t, err)

	assert.Contains(t, out, "Series of #1: 8 planned, 8 created, 0 already present")
}

func TestCreateBookingCmd_RejectsBadInput(t *testing.T) {
	app := newTestApp(t)

	_, err := run(CreateBookingCmd(app), `{"booking_type": "service_program", "colour": "blue"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse input")

	_, err = run(CreateBookingCmd(app), `{"booking_type": "service_program"}`)
	var validationErr *services.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	app.Actor = ""
	_, err = run(CreateBookingCmd(app), visitJSON)
	assert.ErrorAs(t, err, &validationErr)
}

func TestUpdateCancelDeleteAndHistory(t *testing.T) {
	app := newTestApp(t)
	_, err := run(CreateBookingCmd(app), visitJSON)
	require.NoError(t, err)

	out, err := run(UpdateBookingCmd(app), `{"volunteers": [{"volunteer_id": "v1", "status": "Assigned"}]}`, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:     Assigned")

	_, err = run(CancelBookingCmd(app), "", "1")
	var validationErr *services.ValidationError
	require.ErrorAs(t, err, &validationErr)

	out, err = run(CancelBookingCmd(app), "", "1", "--reason", "Weather", "--notes", "snow")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:     Cancelled")
	assert.Contains(t, out, "Cancelled:  Weather")

	out, err = run(DeleteBookingCmd(app), "", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Booking #1 marked as Deleted")

	out, err = run(BookingHistoryCmd(app), "", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "ACTION")
	assert.Contains(t, lines[1], "Booking deleted")
	assert.Contains(t, lines[2], "Booking cancelled: Weather - snow")
	assert.Contains(t, lines[4], "staff-1")
}

func TestGetBookingCmd(t *testing.T) {
	app := newTestApp(t)
	_, err := run(CreateBookingCmd(app), visitJSON)
	require.NoError(t, err)

	out, err := run(GetBookingCmd(app), "", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"booking_id": 1`)
	assert.Contains(t, out, `"client_id": "client-1"`)

	_, err = run(GetBookingCmd(app), "", "7")
	var notFoundErr *services.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)

	_, err = run(GetBookingCmd(app), "", "seven")
	var validationErr *services.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestReplicateAndListBookingsCmd(t *testing.T) {
	app := newTestApp(t)
	_, err := run(CreateBookingCmd(app), visitJSON)
	require.NoError(t, err)

	out, err := run(ReplicateBookingCmd(app), "", "1",
		"--date", "2024-01-01", "--time", "11:00", "--frequency", "Ongoing",
		"--end-date", "2024-01-31", "--recurrence", "Weekly", "--days", "Mon,Fri")
	require.NoError(t, err)
	assert.Contains(t, out, "Booking replicated successfully!")
	assert.Contains(t, out, "Booking ID: 2")
	assert.Contains(t, out, "8 planned")

	out, err = run(ListBookingsCmd(app), "", "--parent", "2", "--page-size", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Page 1, 3 of 8 bookings")
	assert.Contains(t, out, "#2")

	out, err = run(ListBookingsCmd(app), "", "--from", "2025-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "No bookings found")
}

func TestReplicateBookingCmd_RequiresDateAndTime(t *testing.T) {
	app := newTestApp(t)

	_, err := run(ReplicateBookingCmd(app), "", "1", "--date", "2024-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"time" not set`)
}

func TestExpandBookingCmd(t *testing.T) {
	app := newTestApp(t)
	_, err := run(CreateBookingCmd(app), seriesJSON)
	require.NoError(t, err)

	out, err := run(ExpandBookingCmd(app), "", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "0 created, 8 already present")

	_, err = run(CreateBookingCmd(app), visitJSON)
	require.NoError(t, err)
	_, err = run(ExpandBookingCmd(app), "", "10")
	var validationErr *services.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSendDigestCmd(t *testing.T) {
	app := newTestApp(t)
	_, err := run(CreateBookingCmd(app), visitJSON)
	require.NoError(t, err)

	out, err := run(SendDigestCmd(app), "", "--date", "2024-01-03", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Subject: Unassigned bookings for week of 1 Jan 2024")
	assert.Contains(t, out, "#1 service_program - Friendly Visit")

	_, err = run(SendDigestCmd(app), "", "--date", "2024-01-03")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")

	_, err = run(SendDigestCmd(app), "", "--date", "03/01/2024", "--dry-run")
	assert.Error(t, err)
}

func TestPublishScheduleCmd_NeedsGoogle(t *testing.T) {
	app := newTestApp(t)

	_, err := run(PublishScheduleCmd(app), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to authorise google client")
}

func TestMigrateCmd(t *testing.T) {
	app := newTestApp(t)

	out, err := run(MigrateCmd(app), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Database schema is up to date (sqlite)")
}
