package services

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jakechorley/volunteer-bookings/pkg/core/enums"
	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
	"github.com/jakechorley/volunteer-bookings/pkg/core/recurrence"
)

// newValidator reports field errors using their json names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func (s *BookingService) validateStruct(input any) error {
	if err := s.validate.Struct(input); err != nil {
		return fromValidator(err)
	}
	return nil
}

func requireActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return invalid("user_id", "an acting user is required")
	}
	return nil
}

// checkEnum rejects values outside the registry for kind
func (s *BookingService) checkEnum(ctx context.Context, kind enums.Kind, field, value string) error {
	if !s.enums.Contains(ctx, kind, value) {
		return invalid(field, "unknown value %q", value)
	}
	return nil
}

// validateDetails enforces the variant-conditional requirements of a booking.
// Destinations are dropped from non-drive services.
func (s *BookingService) validateDetails(ctx context.Context, b *model.Booking) error {
	switch d := b.Details().(type) {
	case *model.ServiceProgramDetails:
		if d.ServiceType == "" {
			return invalid("service_type", "is required for service bookings")
		}
		entry, ok := s.enums.Lookup(ctx, enums.KindServiceType, d.ServiceType)
		if !ok {
			return invalid("service_type", "unknown value %q", d.ServiceType)
		}
		if err := s.validateStruct(d.PickupAddress); err != nil {
			return invalid("pickup_address", "street and city are required")
		}
		if entry.Category == enums.CategoryDrive {
			if d.DestinationAddress == nil {
				return invalid("destination_address", "is required for drive services")
			}
			if err := s.validateStruct(d.DestinationAddress); err != nil {
				return invalid("destination_address", "street and city are required")
			}
		} else {
			d.DestinationAddress = nil
		}
	case *model.EventDetails:
		if d.EventID == "" {
			return invalid("event_id", "is required for event bookings")
		}
		if err := s.validateStruct(d.LocationAddress); err != nil {
			return invalid("location_address", "street and city are required")
		}
		if err := s.validateWindow("setup_window", d.SetupWindow); err != nil {
			return err
		}
		if err := s.validateWindow("takedown_window", d.TakedownWindow); err != nil {
			return err
		}
	default:
		return invalid("booking_type", "unsupported booking type %q", b.Type())
	}
	return nil
}

func (s *BookingService) validateWindow(field string, w *model.TimeWindow) error {
	if w == nil {
		return nil
	}
	if err := s.validateStruct(w); err != nil {
		return invalid(field, "start and end must be HH:MM times")
	}
	if w.End < w.Start {
		return invalid(field, "ends before it starts")
	}
	return nil
}

// applyRecurrence sets the rule fields on b. A booking only becomes a parent when it
// repeats and carries both an end date and a frequency; otherwise the rule is cleared.
func (s *BookingService) applyRecurrence(ctx context.Context, b *model.Booking, in RecurrenceInput) error {
	b.ClearRecurrence()
	if b.FrequencyType == model.FrequencyOneTime || in.EndDate == "" || in.RecurrenceFrequency == "" {
		return nil
	}
	if err := s.checkEnum(ctx, enums.KindRecurrenceFrequency, "recurrence_frequency", in.RecurrenceFrequency); err != nil {
		return err
	}
	end, err := model.ParseDate(in.EndDate)
	if err != nil {
		return invalid("end_date", "%v", err)
	}
	days, err := model.ParseWeekdays(in.RecurrenceDays)
	if err != nil {
		return invalid("recurrence_days", "%v", err)
	}

	rule := recurrence.Rule{
		EndDate:   end,
		Frequency: model.RecurrenceFrequency(in.RecurrenceFrequency),
		Days:      days,
	}
	if err := rule.Validate(b.Date); err != nil {
		return invalid("end_date", "%v", err)
	}

	b.IsParentBooking = true
	b.EndDate = &end
	b.RecurrenceFrequency = &rule.Frequency
	if len(days) > 0 {
		b.RecurrenceDays = days
	}
	return nil
}

func (s *BookingService) volunteerRelations(ctx context.Context, bookingID int64, in []VolunteerInput) ([]model.VolunteerRelation, error) {
	seen := make(map[string]bool, len(in))
	rels := make([]model.VolunteerRelation, 0, len(in))
	for _, v := range in {
		if seen[v.VolunteerID] {
			return nil, invalid("volunteers", "volunteer %q listed twice", v.VolunteerID)
		}
		seen[v.VolunteerID] = true
		status := v.Status
		if status == "" {
			status = string(model.VolunteerPossible)
		}
		if err := s.checkEnum(ctx, enums.KindVolunteerStatus, "volunteers.status", status); err != nil {
			return nil, err
		}
		rels = append(rels, model.VolunteerRelation{
			BookingID:   bookingID,
			VolunteerID: v.VolunteerID,
			Status:      model.VolunteerStatus(status),
		})
	}
	return rels, nil
}

func (s *BookingService) eventAttendees(ctx context.Context, b *model.Booking, in []AttendeeInput) ([]model.EventAttendee, error) {
	if len(in) > 0 && b.Type() != model.BookingTypeEvent {
		return nil, invalid("attendees", "only event bookings have attendees")
	}
	seen := make(map[string]bool, len(in))
	attendees := make([]model.EventAttendee, 0, len(in))
	for _, a := range in {
		if err := s.checkEnum(ctx, enums.KindUserType, "attendees.user_type", a.UserType); err != nil {
			return nil, err
		}
		attendee := model.EventAttendee{
			BookingID:    b.ID,
			UserID:       a.UserID,
			ExternalName: a.ExternalName,
			UserType:     a.UserType,
		}
		if seen[attendee.Key()] {
			return nil, invalid("attendees", "attendee %q listed twice", attendee.Key())
		}
		seen[attendee.Key()] = true
		attendees = append(attendees, attendee)
	}
	return attendees, nil
}

func (s *BookingService) clientRelations(b *model.Booking, clientIDs []string) ([]model.ClientRelation, error) {
	rels := model.ClientRelationsFor(b.ID, clientIDs)
	if len(rels) == 0 && b.Type() != model.BookingTypeEvent {
		return nil, invalid("clients", "at least one client is required")
	}
	return rels, nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := model.ParseDate(value)
	if err != nil {
		return time.Time{}, invalid(field, "%v", err)
	}
	return t, nil
}
