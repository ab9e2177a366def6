package services

import (
	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
)

// VolunteerInput assigns a volunteer to a booking. Status defaults to "Possible".
type VolunteerInput struct {
	VolunteerID string `json:"volunteer_id" validate:"required"`
	Status      string `json:"status"`
}

// AttendeeInput adds an event attendee; exactly one of UserID and ExternalName is set
type AttendeeInput struct {
	UserID       string `json:"user_id" validate:"required_without=ExternalName,excluded_with=ExternalName"`
	ExternalName string `json:"external_name"`
	UserType     string `json:"user_type" validate:"required"`
}

// RecurrenceInput is the optional repeat rule of a multi-occurrence booking
type RecurrenceInput struct {
	EndDate             string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	RecurrenceFrequency string   `json:"recurrence_frequency"`
	RecurrenceDays      []string `json:"recurrence_days"`
}

// CreateBookingInput is the request to create a booking of either variant
type CreateBookingInput struct {
	BookingType         string `json:"booking_type" validate:"required,oneof=service_program event"`
	FrequencyType       string `json:"frequency_type"`
	Date                string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime           string `json:"start_time" validate:"required,datetime=15:04"`
	AppointmentTime     string `json:"appointment_time" validate:"omitempty,datetime=15:04"`
	AppointmentLength   int    `json:"appointment_length" validate:"gte=0"`
	FullDuration        int    `json:"full_duration" validate:"gte=0"`
	Notes               string `json:"notes"`
	NumVolunteersNeeded int    `json:"num_volunteers_needed" validate:"omitempty,min=1,max=4"`
	ClientConfirmation  bool   `json:"client_confirmation"`

	ServiceType        string         `json:"service_type"`
	PickupAddress      *model.Address `json:"pickup_address"`
	DestinationAddress *model.Address `json:"destination_address"`

	EventID         string            `json:"event_id"`
	SetupWindow     *model.TimeWindow `json:"setup_window"`
	TakedownWindow  *model.TimeWindow `json:"takedown_window"`
	LocationAddress *model.Address    `json:"location_address"`

	RecurrenceInput

	Clients    []string         `json:"clients" validate:"dive,required"`
	Volunteers []VolunteerInput `json:"volunteers" validate:"dive"`
	Attendees  []AttendeeInput  `json:"attendees" validate:"dive"`
}

// UpdateBookingInput is a partial update. Nil fields are left as they are.
// A non-nil relation slice replaces that whole relation set.
type UpdateBookingInput struct {
	Status              *string `json:"status"`
	FrequencyType       *string `json:"frequency_type"`
	Date                *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime           *string `json:"start_time" validate:"omitempty,datetime=15:04"`
	AppointmentTime     *string `json:"appointment_time" validate:"omitempty,datetime=15:04"`
	AppointmentLength   *int    `json:"appointment_length" validate:"omitempty,gte=0"`
	FullDuration        *int    `json:"full_duration" validate:"omitempty,gte=0"`
	Notes               *string `json:"notes"`
	NumVolunteersNeeded *int    `json:"num_volunteers_needed" validate:"omitempty,min=1,max=4"`
	ClientConfirmation  *bool   `json:"client_confirmation"`

	ServiceType        *string        `json:"service_type"`
	PickupAddress      *model.Address `json:"pickup_address"`
	DestinationAddress *model.Address `json:"destination_address"`

	EventID         *string           `json:"event_id"`
	SetupWindow     *model.TimeWindow `json:"setup_window"`
	TakedownWindow  *model.TimeWindow `json:"takedown_window"`
	LocationAddress *model.Address    `json:"location_address"`

	Clients    []string         `json:"clients" validate:"omitempty,dive,required"`
	Volunteers []VolunteerInput `json:"volunteers" validate:"omitempty,dive"`
	Attendees  []AttendeeInput  `json:"attendees" validate:"omitempty,dive"`
}

// ReplicateBookingInput copies a booking onto a new date and time
type ReplicateBookingInput struct {
	Frequency string `json:"frequency" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string `json:"time" validate:"required,datetime=15:04"`
	RecurrenceInput
}

// CancelBookingInput carries the reason a booking is being cancelled
type CancelBookingInput struct {
	Reason string `json:"cancellation_reason"`
	Notes  string `json:"cancellation_notes"`
}

// ListBookingsInput filters and pages ListBookings. Empty strings match everything.
type ListBookingsInput struct {
	Status          string `json:"status"`
	BookingType     string `json:"booking_type" validate:"omitempty,oneof=service_program event"`
	DateFrom        string `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo          string `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	ParentBookingID int64  `json:"parent_booking_id" validate:"gte=0"`
	Page            int    `json:"page"`
	PageSize        int    `json:"page_size"`
}
