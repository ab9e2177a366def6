package db

import (
	"context"
	"errors"
	"time"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
)

// ErrNotFound is returned when a booking does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateOccurrence is returned when a series already has an occurrence on a date
var ErrDuplicateOccurrence = errors.New("occurrence already exists for date")

// Reader defines the read operations shared by the store and its transactions
type Reader interface {
	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter, page Page) ([]*model.Booking, int, error)
	ClientRelations(ctx context.Context, bookingID int64) ([]model.ClientRelation, error)
	VolunteerRelations(ctx context.Context, bookingID int64) ([]model.VolunteerRelation, error)
	EventAttendees(ctx context.Context, bookingID int64) ([]model.EventAttendee, error)
	History(ctx context.Context, bookingID int64) ([]model.HistoryEntry, error)
	OccurrenceExists(ctx context.Context, parentID int64, date time.Time) (bool, error)
}

// Tx defines the write operations, all of which commit or roll back together
type Tx interface {
	Reader
	// NextBookingID draws from an atomic sequence starting at model.FirstBookingID
	NextBookingID(ctx context.Context) (int64, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	UpdateBooking(ctx context.Context, b *model.Booking) error
	// Replace* reconcile the stored set with the given one, touching only rows that differ
	ReplaceClientRelations(ctx context.Context, bookingID int64, rels []model.ClientRelation) error
	ReplaceVolunteerRelations(ctx context.Context, bookingID int64, rels []model.VolunteerRelation) error
	ReplaceEventAttendees(ctx context.Context, bookingID int64, attendees []model.EventAttendee) error
	AppendHistory(ctx context.Context, entry model.HistoryEntry) error
}

// Store defines the interface for all booking database operations.
// Both postgres.DB and sqlite.DB implement this interface.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// BookingFilter narrows ListBookings; nil fields match everything
type BookingFilter struct {
	Status          *model.Status
	BookingType     *model.BookingType
	DateFrom        *time.Time
	DateTo          *time.Time
	ParentBookingID *int64
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page selects a 1-based page of results
type Page struct {
	Number int
	Size   int
}

// Normalize applies defaults and bounds
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}
