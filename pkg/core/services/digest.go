package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
	"github.com/jakechorley/volunteer-bookings/pkg/db"
)

// Mailer sends a plain-text email
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// BookingLister is the read side the digest and schedule exports need
type BookingLister interface {
	ListBookings(ctx context.Context, input ListBookingsInput) (*BookingPage, error)
}

// Week is a Monday to Sunday window
type Week struct {
	Start time.Time
	End   time.Time
}

// WeekOf returns the week containing t
func WeekOf(t time.Time) Week {
	cfg := &now.Config{WeekStartDay: time.Monday, TimeLocation: time.UTC}
	n := cfg.With(model.DateOnly(t))
	return Week{
		Start: model.DateOnly(n.BeginningOfWeek()),
		End:   model.DateOnly(n.EndOfWeek()),
	}
}

// DigestResult describes one digest run
type DigestResult struct {
	Week     Week
	Bookings []*model.Booking
	Subject  string
	Body     string
	Sent     bool
}

// SendUpcomingDigest emails the coordinator the bookings in the week containing at
// that still have no volunteer assigned. With dryRun the email is built but not sent.
func SendUpcomingDigest(
	ctx context.Context,
	lister BookingLister,
	mailer Mailer,
	logger *zap.Logger,
	to string,
	at time.Time,
	dryRun bool,
) (*DigestResult, error) {
	if to == "" {
		return nil, invalid("coordinator_email", "is required to send a digest")
	}

	week := WeekOf(at)
	logger.Debug("Building upcoming bookings digest",
		zap.String("week_start", week.Start.Format(model.DateLayout)),
		zap.String("week_end", week.End.Format(model.DateLayout)))

	bookings, err := listAll(ctx, lister, ListBookingsInput{
		Status:   string(model.StatusNotAssigned),
		DateFrom: week.Start.Format(model.DateLayout),
		DateTo:   week.End.Format(model.DateLayout),
	})
	if err != nil {
		return nil, err
	}

	result := &DigestResult{
		Week:     week,
		Bookings: bookings,
		Subject:  fmt.Sprintf("Unassigned bookings for week of %s", week.Start.Format("2 Jan 2006")),
		Body:     digestBody(week, bookings),
	}

	if dryRun {
		logger.Info("Dry run, digest not sent", zap.Int("bookings", len(bookings)))
		return result, nil
	}

	if err := mailer.SendEmail(to, result.Subject, result.Body); err != nil {
		return nil, fmt.Errorf("failed to send digest: %w", err)
	}
	result.Sent = true

	logger.Info("Digest sent", zap.String("to", to), zap.Int("bookings", len(bookings)))
	return result, nil
}

func digestBody(week Week, bookings []*model.Booking) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bookings from %s to %s still needing volunteers:\n\n",
		week.Start.Format(model.DateLayout), week.End.Format(model.DateLayout))
	if len(bookings) == 0 {
		b.WriteString("None, every booking this week has a volunteer.\n")
		return b.String()
	}
	for _, bk := range bookings {
		volunteers := "volunteers"
		if bk.NumVolunteersNeeded == 1 {
			volunteers = "volunteer"
		}
		fmt.Fprintf(&b, "%s %s  #%d %s (needs %d %s)\n",
			bk.Date.Format("Mon 02 Jan"), bk.StartTime, bk.ID, bk.Description(), bk.NumVolunteersNeeded, volunteers)
	}
	return b.String()
}

// listAll walks every page of a listing
func listAll(ctx context.Context, lister BookingLister, input ListBookingsInput) ([]*model.Booking, error) {
	input.PageSize = db.MaxPageSize
	var all []*model.Booking
	for page := 1; ; page++ {
		input.Page = page
		res, err := lister.ListBookings(ctx, input)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Bookings...)
		if len(res.Bookings) == 0 || len(all) >= res.Total {
			return all, nil
		}
	}
}
