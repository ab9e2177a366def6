package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
)

// SheetWriter creates and fills spreadsheet tabs
type SheetWriter interface {
	CreateSheet(spreadsheetID, sheetTitle string) (int64, error)
	AppendRows(spreadsheetID, sheetRange string, values [][]interface{}) error
}

var scheduleHeader = []interface{}{"Date", "Start", "Booking", "Type", "Description", "Status", "Volunteers Needed", "Confirmed", "Notes"}

// ScheduleResult describes a published schedule tab
type ScheduleResult struct {
	Week     Week
	TabTitle string
	Rows     [][]interface{}
}

// PublishSchedule writes the active bookings of the week containing at to a new
// tab of the schedule spreadsheet.
func PublishSchedule(
	ctx context.Context,
	lister BookingLister,
	sheets SheetWriter,
	logger *zap.Logger,
	spreadsheetID string,
	at time.Time,
) (*ScheduleResult, error) {
	if spreadsheetID == "" {
		return nil, invalid("schedule_sheet_id", "is required to publish a schedule")
	}

	week := WeekOf(at)
	bookings, err := listAll(ctx, lister, ListBookingsInput{
		DateFrom: week.Start.Format(model.DateLayout),
		DateTo:   week.End.Format(model.DateLayout),
	})
	if err != nil {
		return nil, err
	}

	rows := [][]interface{}{scheduleHeader}
	for _, b := range bookings {
		if !b.Status.IsActive() {
			continue
		}
		rows = append(rows, []interface{}{
			b.Date.Format(model.DateLayout),
			b.StartTime,
			b.ID,
			string(b.Type()),
			b.Details().Label(),
			string(b.Status),
			b.NumVolunteersNeeded,
			b.ClientConfirmation,
			b.Notes,
		})
	}

	title := "Week of " + week.Start.Format(model.DateLayout)
	logger.Debug("Publishing schedule", zap.String("tab", title), zap.Int("rows", len(rows)-1))

	if _, err := sheets.CreateSheet(spreadsheetID, title); err != nil {
		return nil, fmt.Errorf("failed to create schedule tab: %w", err)
	}
	if err := sheets.AppendRows(spreadsheetID, fmt.Sprintf("'%s'!A1", title), rows); err != nil {
		return nil, fmt.Errorf("failed to write schedule rows: %w", err)
	}

	logger.Info("Schedule published", zap.String("tab", title), zap.Int("bookings", len(rows)-1))
	return &ScheduleResult{Week: week, TabTitle: title, Rows: rows}, nil
}
