package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// FirstBookingID is the id handed out when the store holds no bookings yet
const FirstBookingID int64 = 1

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// BookingType tags the variant carried by a booking
type BookingType string

const (
	BookingTypeServiceProgram BookingType = "service_program"
	BookingTypeEvent          BookingType = "event"
)

// Status is the lifecycle state of a booking
type Status string

const (
	StatusNotAssigned Status = "Not Assigned"
	StatusAssigned    Status = "Assigned"
	StatusCompleted   Status = "Completed"
	StatusCancelled   Status = "Cancelled"
	StatusDeleted     Status = "Deleted"
)

// FrequencyType says whether a booking happens once or repeats
type FrequencyType string

const (
	FrequencyOneTime    FrequencyType = "One-time"
	FrequencyOngoing    FrequencyType = "Ongoing"
	FrequencyContinuous FrequencyType = "Continuous"
)

// RecurrenceFrequency is the repeat interval of a parent booking
type RecurrenceFrequency string

const (
	RecurrenceDaily    RecurrenceFrequency = "Daily"
	RecurrenceWeekly   RecurrenceFrequency = "Weekly"
	RecurrenceBiWeekly RecurrenceFrequency = "Bi-weekly"
	RecurrenceMonthly  RecurrenceFrequency = "Monthly"
	RecurrenceAnnually RecurrenceFrequency = "Annually"
)

// Address is a free-form postal address
type Address struct {
	Description string `json:"description,omitempty"`
	Street      string `json:"street" validate:"required"`
	City        string `json:"city" validate:"required"`
}

// TimeWindow is a start/end pair of "15:04" times on the booking date
type TimeWindow struct {
	Start string `json:"start" validate:"required,datetime=15:04"`
	End   string `json:"end" validate:"required,datetime=15:04"`
}

// Details is the variant-specific part of a booking.
// Only ServiceProgramDetails and EventDetails implement it.
type Details interface {
	Kind() BookingType
	Label() string
	clone() Details
}

// ServiceProgramDetails holds the fields of a client service engagement
type ServiceProgramDetails struct {
	ServiceType        string   `json:"service_type"`
	PickupAddress      Address  `json:"pickup_address"`
	DestinationAddress *Address `json:"destination_address"`
}

func (d *ServiceProgramDetails) Kind() BookingType { return BookingTypeServiceProgram }
func (d *ServiceProgramDetails) Label() string     { return d.ServiceType }

func (d *ServiceProgramDetails) clone() Details {
	c := *d
	if d.DestinationAddress != nil {
		dest := *d.DestinationAddress
		c.DestinationAddress = &dest
	}
	return &c
}

// EventDetails holds the fields of an event-attendance booking
type EventDetails struct {
	EventID         string      `json:"event_id"`
	SetupWindow     *TimeWindow `json:"setup_window"`
	TakedownWindow  *TimeWindow `json:"takedown_window"`
	LocationAddress Address     `json:"location_address"`
}

func (d *EventDetails) Kind() BookingType { return BookingTypeEvent }
func (d *EventDetails) Label() string     { return d.EventID }

func (d *EventDetails) clone() Details {
	c := *d
	if d.SetupWindow != nil {
		w := *d.SetupWindow
		c.SetupWindow = &w
	}
	if d.TakedownWindow != nil {
		w := *d.TakedownWindow
		c.TakedownWindow = &w
	}
	return &c
}

// Booking is the common envelope shared by every booking variant
type Booking struct {
	ID                  int64         `json:"booking_id"`
	Status              Status        `json:"status"`
	FrequencyType       FrequencyType `json:"frequency_type"`
	Date                time.Time     `json:"date"`
	StartTime           string        `json:"start_time"`
	AppointmentTime     string        `json:"appointment_time"`
	AppointmentLength   int           `json:"appointment_length"`
	FullDuration        int           `json:"full_duration"`
	Notes               string        `json:"notes"`
	NumVolunteersNeeded int           `json:"num_volunteers_needed"`
	ClientConfirmation  bool          `json:"client_confirmation"`
	CancellationReason  *string       `json:"cancellation_reason"`
	CancellationNotes   *string       `json:"cancellation_notes"`
	IsParentBooking     bool          `json:"is_parent_booking"`
	ParentBookingID     *int64        `json:"parent_booking_id"`

	EndDate             *time.Time           `json:"end_date"`
	RecurrenceFrequency *RecurrenceFrequency `json:"recurrence_frequency"`
	RecurrenceDays      []time.Weekday       `json:"recurrence_days"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	kind    BookingType
	details Details
}

// NewBooking creates an empty booking of the given kind.
// The details must belong to the same kind.
func NewBooking(kind BookingType, details Details) (*Booking, error) {
	if details == nil {
		return nil, fmt.Errorf("booking details are required")
	}
	if details.Kind() != kind {
		return nil, fmt.Errorf("booking type %q does not match %q details", kind, details.Kind())
	}
	return &Booking{
		Status:              StatusNotAssigned,
		FrequencyType:       FrequencyOneTime,
		NumVolunteersNeeded: 1,
		kind:                kind,
		details:             details,
	}, nil
}

// Type returns the booking's variant tag
func (b *Booking) Type() BookingType { return b.kind }

// Details returns the variant-specific fields
func (b *Booking) Details() Details { return b.details }

// ServiceProgram returns the service details, or nil for event bookings
func (b *Booking) ServiceProgram() *ServiceProgramDetails {
	d, _ := b.details.(*ServiceProgramDetails)
	return d
}

// Event returns the event details, or nil for service bookings
func (b *Booking) Event() *EventDetails {
	d, _ := b.details.(*EventDetails)
	return d
}

// Clone returns a deep copy of the booking
func (b *Booking) Clone() *Booking {
	c := *b
	if b.details != nil {
		c.details = b.details.clone()
	}
	if b.CancellationReason != nil {
		v := *b.CancellationReason
		c.CancellationReason = &v
	}
	if b.CancellationNotes != nil {
		v := *b.CancellationNotes
		c.CancellationNotes = &v
	}
	if b.ParentBookingID != nil {
		v := *b.ParentBookingID
		c.ParentBookingID = &v
	}
	if b.EndDate != nil {
		v := *b.EndDate
		c.EndDate = &v
	}
	if b.RecurrenceFrequency != nil {
		v := *b.RecurrenceFrequency
		c.RecurrenceFrequency = &v
	}
	c.RecurrenceDays = slices.Clone(b.RecurrenceDays)
	return &c
}

// ClearCancellation removes the cancellation reason and notes
func (b *Booking) ClearCancellation() {
	b.CancellationReason = nil
	b.CancellationNotes = nil
}

// ClearRecurrence removes the recurrence rule and the parent flag
func (b *Booking) ClearRecurrence() {
	b.IsParentBooking = false
	b.EndDate = nil
	b.RecurrenceFrequency = nil
	b.RecurrenceDays = nil
}

// Description is used in history entries, e.g. "service_program - Friendly Visit"
func (b *Booking) Description() string {
	return fmt.Sprintf("%s - %s", b.kind, b.details.Label())
}

// DateOnly truncates t to midnight UTC
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "2006-01-02" date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// MarshalJSON flattens the variant next to the envelope fields
func (b Booking) MarshalJSON() ([]byte, error) {
	type envelope Booking
	return json.Marshal(struct {
		envelope
		RecurrenceDays []string               `json:"recurrence_days"`
		BookingType    BookingType            `json:"booking_type"`
		ServiceProgram *ServiceProgramDetails `json:"service_program,omitempty"`
		Event          *EventDetails          `json:"event,omitempty"`
	}{
		envelope:       envelope(b),
		RecurrenceDays: WeekdayNames(b.RecurrenceDays),
		BookingType:    b.kind,
		ServiceProgram: b.ServiceProgram(),
		Event:          b.Event(),
	})
}

// UnmarshalJSON reads the envelope fields back, accepting day names for recurrence_days.
// The variant is not restored.
func (b *Booking) UnmarshalJSON(data []byte) error {
	type envelope Booking
	aux := struct {
		*envelope
		RecurrenceDays []string `json:"recurrence_days"`
	}{envelope: (*envelope)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	days, err := ParseWeekdays(aux.RecurrenceDays)
	if err != nil {
		return fmt.Errorf("recurrence_days: %w", err)
	}
	b.RecurrenceDays = days
	return nil
}
