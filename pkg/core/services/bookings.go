package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/pkg/core/enums"
	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
	"github.com/jakechorley/volunteer-bookings/pkg/core/recurrence"
	"github.com/jakechorley/volunteer-bookings/pkg/db"
)

// BookingView is a booking together with its relation sets
type BookingView struct {
	Booking    *model.Booking            `json:"booking"`
	Clients    []model.ClientRelation    `json:"clients"`
	Volunteers []model.VolunteerRelation `json:"volunteers"`
	Attendees  []model.EventAttendee     `json:"attendees,omitempty"`
	// Expansion is set when the operation created a recurring series
	Expansion *ExpansionResult `json:"expansion,omitempty"`
}

// BookingPage is one page of ListBookings
type BookingPage struct {
	Bookings []*model.Booking `json:"bookings"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// BookingService runs the booking lifecycle against a store
type BookingService struct {
	store    db.Store
	enums    *enums.Resolver
	engine   *recurrence.Engine
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewBookingService wires a service. engine may be nil to use an engine without closures.
func NewBookingService(store db.Store, resolver *enums.Resolver, engine *recurrence.Engine, logger *zap.Logger) *BookingService {
	if engine == nil {
		engine = recurrence.NewEngine(nil, 0)
	}
	return &BookingService{
		store:    store,
		enums:    resolver,
		engine:   engine,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// CreateBooking validates input, stores the booking with its relations and a history
// entry, then expands the series when the booking is a recurring parent.
// On a failed expansion the created booking is returned alongside an *ExpansionError.
func (s *BookingService) CreateBooking(ctx context.Context, actor string, input CreateBookingInput) (*BookingView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("user_id", actor), zap.String("booking_type", input.BookingType))
	logger.Debug("Creating booking", zap.String("date", input.Date))

	// Step 1: Build the booking with defaults applied
	b, err := s.newBooking(ctx, input)
	if err != nil {
		return nil, err
	}

	clients, err := s.clientRelations(b, input.Clients)
	if err != nil {
		return nil, err
	}
	volunteers, err := s.volunteerRelations(ctx, 0, input.Volunteers)
	if err != nil {
		return nil, err
	}
	attendees, err := s.eventAttendees(ctx, b, input.Attendees)
	if err != nil {
		return nil, err
	}

	// Step 2: Persist booking, relations and history together
	now := s.now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	err = s.store.WithTx(ctx, func(tx db.Tx) error {
		id, err := tx.NextBookingID(ctx)
		if err != nil {
			return fmt.Errorf("failed to allocate booking id: %w", err)
		}
		b.ID = id
		clients = model.RebindClients(id, clients)
		for i := range volunteers {
			volunteers[i].BookingID = id
		}
		for i := range attendees {
			attendees[i].BookingID = id
		}

		if err := tx.InsertBooking(ctx, b); err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}
		if err := s.replaceRelations(ctx, tx, id, clients, volunteers, attendees); err != nil {
			return err
		}
		return s.record(ctx, tx, id, actor, "Booking created: "+b.Description())
	})
	if err != nil {
		return nil, s.fail(logger, "create booking", err)
	}

	logger.Info("Booking created", zap.Int64("booking_id", b.ID), zap.Bool("is_parent", b.IsParentBooking))

	view := &BookingView{Booking: b, Clients: clients, Volunteers: volunteers, Attendees: attendees}

	// Step 3: Expand the series
	if b.IsParentBooking {
		result, err := s.expand(ctx, b, clients, actor)
		view.Expansion = result
		if err != nil {
			return view, err
		}
	}

	return view, nil
}

func (s *BookingService) newBooking(ctx context.Context, input CreateBookingInput) (*model.Booking, error) {
	var details model.Details
	switch model.BookingType(input.BookingType) {
	case model.BookingTypeServiceProgram:
		sp := &model.ServiceProgramDetails{ServiceType: input.ServiceType, DestinationAddress: input.DestinationAddress}
		if input.PickupAddress != nil {
			sp.PickupAddress = *input.PickupAddress
		}
		details = sp
	case model.BookingTypeEvent:
		ev := &model.EventDetails{EventID: input.EventID, SetupWindow: input.SetupWindow, TakedownWindow: input.TakedownWindow}
		if input.LocationAddress != nil {
			ev.LocationAddress = *input.LocationAddress
		}
		details = ev
	}

	b, err := model.NewBooking(model.BookingType(input.BookingType), details)
	if err != nil {
		return nil, invalid("booking_type", "%v", err)
	}
	if err := s.validateDetails(ctx, b); err != nil {
		return nil, err
	}

	if b.Date, err = parseDate("date", input.Date); err != nil {
		return nil, err
	}
	if input.FrequencyType != "" {
		if err := s.checkEnum(ctx, enums.KindFrequencyType, "frequency_type", input.FrequencyType); err != nil {
			return nil, err
		}
		b.FrequencyType = model.FrequencyType(input.FrequencyType)
	}
	b.StartTime = input.StartTime
	b.AppointmentTime = input.AppointmentTime
	b.AppointmentLength = input.AppointmentLength
	b.FullDuration = input.FullDuration
	b.Notes = input.Notes
	if input.NumVolunteersNeeded > 0 {
		b.NumVolunteersNeeded = input.NumVolunteersNeeded
	}
	b.ClientConfirmation = input.ClientConfirmation

	if err := s.applyRecurrence(ctx, b, input.RecurrenceInput); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBooking applies a partial update. Relation slices present in the patch replace
// the stored sets, and the status is re-derived from the volunteer set when it changes.
func (s *BookingService) UpdateBooking(ctx context.Context, actor string, id int64, patch UpdateBookingInput) (*BookingView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validateStruct(patch); err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("user_id", actor), zap.Int64("booking_id", id))
	logger.Debug("Updating booking")

	view := &BookingView{}
	err := s.store.WithTx(ctx, func(tx db.Tx) error {
		current, err := tx.GetBooking(ctx, id)
		if err != nil {
			return notFoundOr(err, id)
		}

		b := current.Clone()
		if err := s.applyPatch(ctx, b, patch); err != nil {
			return err
		}

		if view.Clients, err = s.patchedClients(ctx, tx, b, patch.Clients); err != nil {
			return err
		}
		if view.Attendees, err = s.patchedAttendees(ctx, tx, b, patch.Attendees); err != nil {
			return err
		}
		if patch.Volunteers != nil {
			if view.Volunteers, err = s.volunteerRelations(ctx, id, patch.Volunteers); err != nil {
				return err
			}
			if err := tx.ReplaceVolunteerRelations(ctx, id, view.Volunteers); err != nil {
				return fmt.Errorf("failed to replace volunteers: %w", err)
			}
			if patch.Status == nil {
				b.Status = model.AssignmentStatus(b.Status, view.Volunteers)
			}
		} else if view.Volunteers, err = tx.VolunteerRelations(ctx, id); err != nil {
			return fmt.Errorf("failed to load volunteers: %w", err)
		}

		if !model.CanTransition(current.Status, b.Status) {
			return invalid("status", "cannot move a booking from %s to %s", current.Status, b.Status)
		}

		b.UpdatedAt = s.now().UTC()
		if err := tx.UpdateBooking(ctx, b); err != nil {
			if errors.Is(err, db.ErrDuplicateOccurrence) {
				return invalid("date", "another occurrence of booking %d is already on %s", *b.ParentBookingID, b.Date.Format(model.DateLayout))
			}
			return notFoundOr(err, id)
		}
		view.Booking = b
		return s.record(ctx, tx, id, actor, "Booking updated")
	})
	if err != nil {
		return nil, s.fail(logger, "update booking", err)
	}

	logger.Info("Booking updated", zap.String("status", string(view.Booking.Status)))
	return view, nil
}

// applyPatch copies the non-nil patch fields onto b
func (s *BookingService) applyPatch(ctx context.Context, b *model.Booking, patch UpdateBookingInput) error {
	if patch.Status != nil {
		status := model.Status(*patch.Status)
		switch status {
		case model.StatusCompleted, model.StatusNotAssigned, model.StatusAssigned:
		case model.StatusCancelled, model.StatusDeleted:
			return invalid("status", "use the cancel or delete operation to set %s", status)
		default:
			return invalid("status", "unknown value %q", *patch.Status)
		}
		b.Status = status
	}
	if patch.FrequencyType != nil {
		if err := s.checkEnum(ctx, enums.KindFrequencyType, "frequency_type", *patch.FrequencyType); err != nil {
			return err
		}
		freq := model.FrequencyType(*patch.FrequencyType)
		if b.IsParentBooking && freq == model.FrequencyOneTime {
			return invalid("frequency_type", "booking %d has a recurrence rule and cannot become %s", b.ID, freq)
		}
		b.FrequencyType = freq
	}
	if patch.Date != nil {
		d, err := parseDate("date", *patch.Date)
		if err != nil {
			return err
		}
		b.Date = d
	}
	if patch.StartTime != nil {
		b.StartTime = *patch.StartTime
	}
	if patch.AppointmentTime != nil {
		b.AppointmentTime = *patch.AppointmentTime
	}
	if patch.AppointmentLength != nil {
		b.AppointmentLength = *patch.AppointmentLength
	}
	if patch.FullDuration != nil {
		b.FullDuration = *patch.FullDuration
	}
	if patch.Notes != nil {
		b.Notes = *patch.Notes
	}
	if patch.NumVolunteersNeeded != nil {
		b.NumVolunteersNeeded = *patch.NumVolunteersNeeded
	}
	if patch.ClientConfirmation != nil {
		b.ClientConfirmation = *patch.ClientConfirmation
	}

	switch d := b.Details().(type) {
	case *model.ServiceProgramDetails:
		if patch.EventID != nil || patch.SetupWindow != nil || patch.TakedownWindow != nil || patch.LocationAddress != nil {
			return invalid("booking_type", "event fields cannot be set on a service booking")
		}
		if patch.ServiceType != nil {
			d.ServiceType = *patch.ServiceType
		}
		if patch.PickupAddress != nil {
			d.PickupAddress = *patch.PickupAddress
		}
		if patch.DestinationAddress != nil {
			d.DestinationAddress = patch.DestinationAddress
		}
	case *model.EventDetails:
		if patch.ServiceType != nil || patch.PickupAddress != nil || patch.DestinationAddress != nil {
			return invalid("booking_type", "service fields cannot be set on an event booking")
		}
		if patch.EventID != nil {
			d.EventID = *patch.EventID
		}
		if patch.SetupWindow != nil {
			d.SetupWindow = patch.SetupWindow
		}
		if patch.TakedownWindow != nil {
			d.TakedownWindow = patch.TakedownWindow
		}
		if patch.LocationAddress != nil {
			d.LocationAddress = *patch.LocationAddress
		}
	}
	return s.validateDetails(ctx, b)
}

func (s *BookingService) patchedClients(ctx context.Context, tx db.Tx, b *model.Booking, clientIDs []string) ([]model.ClientRelation, error) {
	if clientIDs == nil {
		rels, err := tx.ClientRelations(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load clients: %w", err)
		}
		return rels, nil
	}
	rels, err := s.clientRelations(b, clientIDs)
	if err != nil {
		return nil, err
	}
	if err := tx.ReplaceClientRelations(ctx, b.ID, rels); err != nil {
		return nil, fmt.Errorf("failed to replace clients: %w", err)
	}
	return rels, nil
}

func (s *BookingService) patchedAttendees(ctx context.Context, tx db.Tx, b *model.Booking, in []AttendeeInput) ([]model.EventAttendee, error) {
	if in == nil {
		if b.Type() != model.BookingTypeEvent {
			return nil, nil
		}
		attendees, err := tx.EventAttendees(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load attendees: %w", err)
		}
		return attendees, nil
	}
	attendees, err := s.eventAttendees(ctx, b, in)
	if err != nil {
		return nil, err
	}
	if err := tx.ReplaceEventAttendees(ctx, b.ID, attendees); err != nil {
		return nil, fmt.Errorf("failed to replace attendees: %w", err)
	}
	return attendees, nil
}

// CancelBooking moves an active booking to Cancelled with a reason from the
// cancellation-reason registry. The reason is checked before the booking is looked up.
func (s *BookingService) CancelBooking(ctx context.Context, actor string, id int64, input CancelBookingInput) (*model.Booking, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if input.Reason == "" {
		return nil, invalid("cancellation_reason", "is required")
	}
	if err := s.checkEnum(ctx, enums.KindCancellationReason, "cancellation_reason", input.Reason); err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("user_id", actor), zap.Int64("booking_id", id))
	logger.Debug("Cancelling booking", zap.String("reason", input.Reason))

	var cancelled *model.Booking
	err := s.store.WithTx(ctx, func(tx db.Tx) error {
		b, err := tx.GetBooking(ctx, id)
		if err != nil {
			return notFoundOr(err, id)
		}
		if !model.CanTransition(b.Status, model.StatusCancelled) {
			return invalid("status", "cannot cancel a booking that is %s", b.Status)
		}

		reason, notes := input.Reason, input.Notes
		b.Status = model.StatusCancelled
		b.CancellationReason = &reason
		b.CancellationNotes = nil
		if notes != "" {
			b.CancellationNotes = &notes
		}
		b.UpdatedAt = s.now().UTC()
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return notFoundOr(err, id)
		}
		cancelled = b
		return s.record(ctx, tx, id, actor, fmt.Sprintf("Booking cancelled: %s - %s", reason, notes))
	})
	if err != nil {
		return nil, s.fail(logger, "cancel booking", err)
	}

	logger.Info("Booking cancelled", zap.String("reason", input.Reason))
	return cancelled, nil
}

// DeleteBooking soft-deletes a booking. Deleting twice is allowed and records a second entry.
func (s *BookingService) DeleteBooking(ctx context.Context, actor string, id int64) (*model.Booking, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("user_id", actor), zap.Int64("booking_id", id))

	var deleted *model.Booking
	err := s.store.WithTx(ctx, func(tx db.Tx) error {
		b, err := tx.GetBooking(ctx, id)
		if err != nil {
			return notFoundOr(err, id)
		}
		b.Status = model.StatusDeleted
		b.UpdatedAt = s.now().UTC()
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return notFoundOr(err, id)
		}
		deleted = b
		return s.record(ctx, tx, id, actor, "Booking deleted")
	})
	if err != nil {
		return nil, s.fail(logger, "delete booking", err)
	}

	logger.Info("Booking deleted")
	return deleted, nil
}

// ReplicateBooking copies a booking onto a new date and time under a new id.
// Only client relations are carried over. The source booking is not modified.
func (s *BookingService) ReplicateBooking(ctx context.Context, actor string, sourceID int64, input ReplicateBookingInput) (*BookingView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}
	if err := s.checkEnum(ctx, enums.KindFrequencyType, "frequency", input.Frequency); err != nil {
		return nil, err
	}
	date, err := parseDate("date", input.Date)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("user_id", actor), zap.Int64("source_booking_id", sourceID))
	logger.Debug("Replicating booking", zap.String("date", input.Date), zap.String("frequency", input.Frequency))

	view := &BookingView{Volunteers: []model.VolunteerRelation{}}
	err = s.store.WithTx(ctx, func(tx db.Tx) error {
		source, err := tx.GetBooking(ctx, sourceID)
		if err != nil {
			return notFoundOr(err, sourceID)
		}
		sourceClients, err := tx.ClientRelations(ctx, sourceID)
		if err != nil {
			return fmt.Errorf("failed to load clients: %w", err)
		}

		b := source.Clone()
		b.Date = date
		b.StartTime = input.Time
		b.Status = model.StatusNotAssigned
		b.ClientConfirmation = false
		b.ClearCancellation()
		b.ParentBookingID = nil
		b.FrequencyType = model.FrequencyType(input.Frequency)
		if err := s.applyRecurrence(ctx, b, input.RecurrenceInput); err != nil {
			return err
		}

		id, err := tx.NextBookingID(ctx)
		if err != nil {
			return fmt.Errorf("failed to allocate booking id: %w", err)
		}
		now := s.now().UTC()
		b.ID = id
		b.CreatedAt = now
		b.UpdatedAt = now
		if err := tx.InsertBooking(ctx, b); err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}

		view.Clients = model.RebindClients(id, sourceClients)
		if err := tx.ReplaceClientRelations(ctx, id, view.Clients); err != nil {
			return fmt.Errorf("failed to copy clients: %w", err)
		}
		view.Booking = b
		return s.record(ctx, tx, id, actor, fmt.Sprintf("Booking replicated from #%d", sourceID))
	})
	if err != nil {
		return nil, s.fail(logger, "replicate booking", err)
	}

	logger.Info("Booking replicated", zap.Int64("booking_id", view.Booking.ID))

	if view.Booking.IsParentBooking {
		result, err := s.expand(ctx, view.Booking, view.Clients, actor)
		view.Expansion = result
		if err != nil {
			return view, err
		}
	}
	return view, nil
}

// GetBooking returns a booking with its relation sets
func (s *BookingService) GetBooking(ctx context.Context, id int64) (*BookingView, error) {
	logger := s.logger.With(zap.Int64("booking_id", id))

	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, s.fail(logger, "get booking", notFoundOr(err, id))
	}
	view := &BookingView{Booking: b}
	if view.Clients, err = s.store.ClientRelations(ctx, id); err != nil {
		return nil, s.fail(logger, "load clients", err)
	}
	if view.Volunteers, err = s.store.VolunteerRelations(ctx, id); err != nil {
		return nil, s.fail(logger, "load volunteers", err)
	}
	if b.Type() == model.BookingTypeEvent {
		if view.Attendees, err = s.store.EventAttendees(ctx, id); err != nil {
			return nil, s.fail(logger, "load attendees", err)
		}
	}
	return view, nil
}

// ListBookings returns one page of bookings ordered by date then id
func (s *BookingService) ListBookings(ctx context.Context, input ListBookingsInput) (*BookingPage, error) {
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}

	var filter db.BookingFilter
	if input.Status != "" {
		status := model.Status(input.Status)
		if !isKnownStatus(status) {
			return nil, invalid("status", "unknown value %q", input.Status)
		}
		filter.Status = &status
	}
	if input.BookingType != "" {
		bt := model.BookingType(input.BookingType)
		filter.BookingType = &bt
	}
	if input.DateFrom != "" {
		from, err := parseDate("date_from", input.DateFrom)
		if err != nil {
			return nil, err
		}
		filter.DateFrom = &from
	}
	if input.DateTo != "" {
		to, err := parseDate("date_to", input.DateTo)
		if err != nil {
			return nil, err
		}
		filter.DateTo = &to
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, invalid("date_to", "is before date_from")
	}
	if input.ParentBookingID > 0 {
		parentID := input.ParentBookingID
		filter.ParentBookingID = &parentID
	}

	page := db.Page{Number: input.Page, Size: input.PageSize}.Normalize()
	bookings, total, err := s.store.ListBookings(ctx, filter, page)
	if err != nil {
		return nil, s.fail(s.logger, "list bookings", err)
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	s.logger.Debug("Listed bookings", zap.Int("count", len(bookings)), zap.Int("total", total))
	return &BookingPage{Bookings: bookings, Total: total, Page: page.Number, PageSize: page.Size}, nil
}

func isKnownStatus(s model.Status) bool {
	switch s {
	case model.StatusNotAssigned, model.StatusAssigned, model.StatusCompleted, model.StatusCancelled, model.StatusDeleted:
		return true
	}
	return false
}

func (s *BookingService) replaceRelations(ctx context.Context, tx db.Tx, id int64, clients []model.ClientRelation, volunteers []model.VolunteerRelation, attendees []model.EventAttendee) error {
	if err := tx.ReplaceClientRelations(ctx, id, clients); err != nil {
		return fmt.Errorf("failed to store clients: %w", err)
	}
	if err := tx.ReplaceVolunteerRelations(ctx, id, volunteers); err != nil {
		return fmt.Errorf("failed to store volunteers: %w", err)
	}
	if err := tx.ReplaceEventAttendees(ctx, id, attendees); err != nil {
		return fmt.Errorf("failed to store attendees: %w", err)
	}
	return nil
}

// fail passes validation and not-found errors through and wraps anything else as a
// StorageError, logging it.
func (s *BookingService) fail(logger *zap.Logger, op string, err error) error {
	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	if errors.As(err, &validationErr) || errors.As(err, &notFoundErr) {
		logger.Debug("Request rejected", zap.String("op", op), zap.Error(err))
		return err
	}
	logger.Error("Storage operation failed", zap.String("op", op), zap.Error(err))
	return &StorageError{Op: op, Err: err}
}
