package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
)

// mockMailer records sent emails
type mockMailer struct {
	sent    []sentEmail
	sendErr error
}

type sentEmail struct {
	to, subject, body string
}

func (m *mockMailer) SendEmail(to, subject, body string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentEmail{to: to, subject: subject, body: body})
	return nil
}

// mockSheets records created tabs and appended rows
type mockSheets struct {
	tabs      []string
	ranges    []string
	rows      [][]interface{}
	createErr error
}

func (m *mockSheets) CreateSheet(spreadsheetID, sheetTitle string) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.tabs = append(m.tabs, sheetTitle)
	return int64(len(m.tabs)), nil
}

func (m *mockSheets) AppendRows(spreadsheetID, sheetRange string, values [][]interface{}) error {
	m.ranges = append(m.ranges, sheetRange)
	m.rows = append(m.rows, values...)
	return nil
}

func seedWeek(t *testing.T, svc *BookingService) {
	t.Helper()
	ctx := context.Background()
	// Week of Monday 2024-01-08
	for _, day := range []string{"2024-01-07", "2024-01-08", "2024-01-10", "2024-01-14", "2024-01-15"} {
		in := driveInput()
		in.Date = day
		_, err := svc.CreateBooking(ctx, staff, in)
		require.NoError(t, err)
	}
	// 2024-01-10 gets a volunteer, 2024-01-14 is cancelled
	_, err := svc.UpdateBooking(ctx, staff, 3, UpdateBookingInput{
		Volunteers: []VolunteerInput{{VolunteerID: "v1", Status: "Assigned"}},
	})
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, staff, 4, CancelBookingInput{Reason: "Weather"})
	require.NoError(t, err)
}

func TestWeekOf(t *testing.T) {
	week := WeekOf(time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC))

	assert.Equal(t, "2024-01-08", week.Start.Format(model.DateLayout))
	assert.Equal(t, "2024-01-14", week.End.Format(model.DateLayout))

	sunday := WeekOf(time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-01-08", sunday.Start.Format(model.DateLayout))
}

func TestSendUpcomingDigest(t *testing.T) {
	svc, _ := newTestService(t)
	seedWeek(t, svc)
	mailer := &mockMailer{}

	result, err := SendUpcomingDigest(context.Background(), svc, mailer, zap.NewNop(),
		"coordinator@example.org", time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)

	assert.True(t, result.Sent)
	require.Len(t, result.Bookings, 1)
	assert.Equal(t, int64(2), result.Bookings[0].ID)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "coordinator@example.org", mailer.sent[0].to)
	assert.Equal(t, "Unassigned bookings for week of 8 Jan 2024", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "#2 service_program - Medical Appointment Drive (needs 1 volunteer)")
	assert.NotContains(t, mailer.sent[0].body, "#3")
}

func TestSendUpcomingDigest_DryRun(t *testing.T) {
	svc, _ := newTestService(t)
	mailer := &mockMailer{}

	result, err := SendUpcomingDigest(context.Background(), svc, mailer, zap.NewNop(),
		"coordinator@example.org", time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), true)
	require.NoError(t, err)

	assert.False(t, result.Sent)
	assert.Empty(t, mailer.sent)
	assert.Contains(t, result.Body, "None, every booking this week has a volunteer.")
}

func TestSendUpcomingDigest_Errors(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := SendUpcomingDigest(context.Background(), svc, &mockMailer{}, zap.NewNop(), "", time.Now(), false)
	assertValidation(t, err)

	_, err = SendUpcomingDigest(context.Background(), svc, &mockMailer{sendErr: errors.New("quota")}, zap.NewNop(),
		"coordinator@example.org", time.Now(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send digest")
}

func TestPublishSchedule(t *testing.T) {
	svc, _ := newTestService(t)
	seedWeek(t, svc)
	sheets := &mockSheets{}

	result, err := PublishSchedule(context.Background(), svc, sheets, zap.NewNop(), "sheet-123",
		time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "Week of 2024-01-08", result.TabTitle)
	assert.Equal(t, []string{"Week of 2024-01-08"}, sheets.tabs)
	assert.Equal(t, []string{"'Week of 2024-01-08'!A1"}, sheets.ranges)

	// header plus the NotAssigned and Assigned bookings; the cancelled one is left out
	require.Len(t, sheets.rows, 3)
	assert.Equal(t, scheduleHeader, sheets.rows[0])
	assert.Equal(t, "2024-01-08", sheets.rows[1][0])
	assert.Equal(t, int64(2), sheets.rows[1][2])
	assert.Equal(t, "Assigned", sheets.rows[2][5])
}

func TestPublishSchedule_Errors(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := PublishSchedule(context.Background(), svc, &mockSheets{}, zap.NewNop(), "", time.Now())
	assertValidation(t, err)

	_, err = PublishSchedule(context.Background(), svc, &mockSheets{createErr: errors.New("exists")}, zap.NewNop(), "sheet-123", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create schedule tab")
}
