package db

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
)

// bookingColumns lists the booking table columns in scan/insert order
var bookingColumns = []string{
	"booking_id", "booking_type", "status", "frequency_type", "date",
	"start_time", "appointment_time", "appointment_length", "full_duration", "notes",
	"num_volunteers_needed", "client_confirmation", "cancellation_reason", "cancellation_notes",
	"is_parent_booking", "parent_booking_id", "end_date", "recurrence_frequency", "recurrence_days",
	"service_type", "pickup_description", "pickup_street", "pickup_city",
	"destination_description", "destination_street", "destination_city",
	"event_id", "setup_start", "setup_end", "takedown_start", "takedown_end",
	"location_description", "location_street", "location_city",
	"created_at", "updated_at",
}

type addressColumns struct {
	description, street, city *string
}

func addressToColumns(a *model.Address) addressColumns {
	if a == nil {
		return addressColumns{}
	}
	return addressColumns{description: &a.Description, street: &a.Street, city: &a.City}
}

func (c addressColumns) address() *model.Address {
	if c.street == nil && c.city == nil {
		return nil
	}
	return &model.Address{Description: deref(c.description), Street: deref(c.street), City: deref(c.city)}
}

// bookingRow is the flattened storage form of a booking
type bookingRow struct {
	id                  int64
	bookingType         string
	status              string
	frequencyType       string
	date                time.Time
	startTime           string
	appointmentTime     string
	appointmentLength   int
	fullDuration        int
	notes               string
	numVolunteersNeeded int
	clientConfirmation  bool
	cancellationReason  *string
	cancellationNotes   *string
	isParentBooking     bool
	parentBookingID     *int64
	endDate             *time.Time
	recurrenceFrequency *string
	recurrenceDays      *string
	serviceType         *string
	pickup              addressColumns
	destination         addressColumns
	eventID             *string
	setupStart          *string
	setupEnd            *string
	takedownStart       *string
	takedownEnd         *string
	location            addressColumns
	createdAt           time.Time
	updatedAt           time.Time
}

func rowFromBooking(b *model.Booking) bookingRow {
	r := bookingRow{
		id:                  b.ID,
		bookingType:         string(b.Type()),
		status:              string(b.Status),
		frequencyType:       string(b.FrequencyType),
		date:                model.DateOnly(b.Date),
		startTime:           b.StartTime,
		appointmentTime:     b.AppointmentTime,
		appointmentLength:   b.AppointmentLength,
		fullDuration:        b.FullDuration,
		notes:               b.Notes,
		numVolunteersNeeded: b.NumVolunteersNeeded,
		clientConfirmation:  b.ClientConfirmation,
		cancellationReason:  b.CancellationReason,
		cancellationNotes:   b.CancellationNotes,
		isParentBooking:     b.IsParentBooking,
		parentBookingID:     b.ParentBookingID,
		createdAt:           b.CreatedAt.UTC(),
		updatedAt:           b.UpdatedAt.UTC(),
	}
	if b.EndDate != nil {
		end := model.DateOnly(*b.EndDate)
		r.endDate = &end
	}
	if b.RecurrenceFrequency != nil {
		freq := string(*b.RecurrenceFrequency)
		r.recurrenceFrequency = &freq
	}
	if len(b.RecurrenceDays) > 0 {
		days := encodeWeekdays(b.RecurrenceDays)
		r.recurrenceDays = &days
	}

	switch d := b.Details().(type) {
	case *model.ServiceProgramDetails:
		r.serviceType = &d.ServiceType
		r.pickup = addressToColumns(&d.PickupAddress)
		r.destination = addressToColumns(d.DestinationAddress)
	case *model.EventDetails:
		r.eventID = &d.EventID
		if d.SetupWindow != nil {
			r.setupStart, r.setupEnd = &d.SetupWindow.Start, &d.SetupWindow.End
		}
		if d.TakedownWindow != nil {
			r.takedownStart, r.takedownEnd = &d.TakedownWindow.Start, &d.TakedownWindow.End
		}
		r.location = addressToColumns(&d.LocationAddress)
	}
	return r
}

// args returns column values in bookingColumns order
func (r *bookingRow) args() []any {
	return []any{
		r.id, r.bookingType, r.status, r.frequencyType, r.date,
		r.startTime, r.appointmentTime, r.appointmentLength, r.fullDuration, r.notes,
		r.numVolunteersNeeded, r.clientConfirmation, r.cancellationReason, r.cancellationNotes,
		r.isParentBooking, r.parentBookingID, r.endDate, r.recurrenceFrequency, r.recurrenceDays,
		r.serviceType, r.pickup.description, r.pickup.street, r.pickup.city,
		r.destination.description, r.destination.street, r.destination.city,
		r.eventID, r.setupStart, r.setupEnd, r.takedownStart, r.takedownEnd,
		r.location.description, r.location.street, r.location.city,
		r.createdAt, r.updatedAt,
	}
}

// targets returns scan destinations in bookingColumns order
func (r *bookingRow) targets() []any {
	return []any{
		&r.id, &r.bookingType, &r.status, &r.frequencyType, &r.date,
		&r.startTime, &r.appointmentTime, &r.appointmentLength, &r.fullDuration, &r.notes,
		&r.numVolunteersNeeded, &r.clientConfirmation, &r.cancellationReason, &r.cancellationNotes,
		&r.isParentBooking, &r.parentBookingID, &r.endDate, &r.recurrenceFrequency, &r.recurrenceDays,
		&r.serviceType, &r.pickup.description, &r.pickup.street, &r.pickup.city,
		&r.destination.description, &r.destination.street, &r.destination.city,
		&r.eventID, &r.setupStart, &r.setupEnd, &r.takedownStart, &r.takedownEnd,
		&r.location.description, &r.location.street, &r.location.city,
		&r.createdAt, &r.updatedAt,
	}
}

func (r *bookingRow) booking() (*model.Booking, error) {
	var details model.Details
	switch model.BookingType(r.bookingType) {
	case model.BookingTypeServiceProgram:
		sp := &model.ServiceProgramDetails{
			ServiceType:        deref(r.serviceType),
			DestinationAddress: r.destination.address(),
		}
		if pickup := r.pickup.address(); pickup != nil {
			sp.PickupAddress = *pickup
		}
		details = sp
	case model.BookingTypeEvent:
		ev := &model.EventDetails{EventID: deref(r.eventID)}
		if r.setupStart != nil && r.setupEnd != nil {
			ev.SetupWindow = &model.TimeWindow{Start: *r.setupStart, End: *r.setupEnd}
		}
		if r.takedownStart != nil && r.takedownEnd != nil {
			ev.TakedownWindow = &model.TimeWindow{Start: *r.takedownStart, End: *r.takedownEnd}
		}
		if loc := r.location.address(); loc != nil {
			ev.LocationAddress = *loc
		}
		details = ev
	default:
		return nil, fmt.Errorf("booking %d has unknown type %q", r.id, r.bookingType)
	}

	b, err := model.NewBooking(model.BookingType(r.bookingType), details)
	if err != nil {
		return nil, err
	}
	b.ID = r.id
	b.Status = model.Status(r.status)
	b.FrequencyType = model.FrequencyType(r.frequencyType)
	b.Date = model.DateOnly(r.date)
	b.StartTime = r.startTime
	b.AppointmentTime = r.appointmentTime
	b.AppointmentLength = r.appointmentLength
	b.FullDuration = r.fullDuration
	b.Notes = r.notes
	b.NumVolunteersNeeded = r.numVolunteersNeeded
	b.ClientConfirmation = r.clientConfirmation
	b.CancellationReason = r.cancellationReason
	b.CancellationNotes = r.cancellationNotes
	b.IsParentBooking = r.isParentBooking
	b.ParentBookingID = r.parentBookingID
	if r.endDate != nil {
		end := model.DateOnly(*r.endDate)
		b.EndDate = &end
	}
	if r.recurrenceFrequency != nil {
		freq := model.RecurrenceFrequency(*r.recurrenceFrequency)
		b.RecurrenceFrequency = &freq
	}
	if r.recurrenceDays != nil {
		days, err := decodeWeekdays(*r.recurrenceDays)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", r.id, err)
		}
		b.RecurrenceDays = days
	}
	b.CreatedAt = r.createdAt.UTC()
	b.UpdatedAt = r.updatedAt.UTC()
	return b, nil
}

// encodeWeekdays stores days as "1,5" (Monday, Friday)
func encodeWeekdays(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(s string) ([]time.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid recurrence day %q", p)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
