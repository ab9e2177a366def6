package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
	"github.com/jakechorley/volunteer-bookings/pkg/core/recurrence"
	"github.com/jakechorley/volunteer-bookings/pkg/db"
)

// ExpansionResult summarises one run of the recurrence engine over a parent booking
type ExpansionResult struct {
	ParentBookingID int64    `json:"parent_booking_id"`
	Planned         int      `json:"planned"`
	CreatedIDs      []int64  `json:"created_ids"`
	Skipped         int      `json:"skipped"`
	ClosedDates     []string `json:"closed_dates,omitempty"`
	Truncated       bool     `json:"truncated"`
}

// Created is the number of occurrences this run committed
func (r *ExpansionResult) Created() int {
	return len(r.CreatedIDs)
}

// expand commits one occurrence per planned date, each in its own transaction.
// Dates that already have an occurrence are skipped, so a stopped expansion can be
// resumed. Cancellation is checked before every occurrence.
func (s *BookingService) expand(ctx context.Context, parent *model.Booking, clients []model.ClientRelation, actor string) (*ExpansionResult, error) {
	rule, ok := recurrence.RuleFor(parent)
	if !ok {
		return nil, invalid("recurrence_frequency", "booking %d has no recurrence rule", parent.ID)
	}

	plan := s.engine.Plan(parent.Date, rule)
	result := &ExpansionResult{
		ParentBookingID: parent.ID,
		Planned:         len(plan.Dates),
		CreatedIDs:      []int64{},
		Truncated:       plan.Truncated,
	}
	for _, d := range plan.Closed {
		result.ClosedDates = append(result.ClosedDates, d.Format(model.DateLayout))
	}

	logger := s.logger.With(zap.Int64("parent_booking_id", parent.ID))
	logger.Debug("Expanding recurring booking",
		zap.String("frequency", string(rule.Frequency)),
		zap.String("end_date", rule.EndDate.Format(model.DateLayout)),
		zap.Int("planned", result.Planned),
		zap.Int("closed", len(plan.Closed)))
	if plan.Truncated {
		logger.Warn("Expansion truncated at occurrence cap", zap.Int("planned", result.Planned))
	}

	for _, day := range plan.Dates {
		if err := ctx.Err(); err != nil {
			return result, s.stopExpansion(logger, result, err)
		}

		id, err := s.createOccurrence(ctx, parent, clients, day, actor)
		if errors.Is(err, db.ErrDuplicateOccurrence) {
			result.Skipped++
			continue
		}
		if err != nil {
			return result, s.stopExpansion(logger, result, err)
		}
		if id == 0 {
			result.Skipped++
			continue
		}
		result.CreatedIDs = append(result.CreatedIDs, id)
	}

	logger.Info("Recurring booking expanded",
		zap.Int("created", result.Created()),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// createOccurrence returns 0 when the date is already taken
func (s *BookingService) createOccurrence(ctx context.Context, parent *model.Booking, clients []model.ClientRelation, day time.Time, actor string) (int64, error) {
	occurrence := recurrence.Occurrence(parent, day)
	var id int64
	err := s.store.WithTx(ctx, func(tx db.Tx) error {
		exists, err := tx.OccurrenceExists(ctx, parent.ID, occurrence.Date)
		if err != nil {
			return fmt.Errorf("failed to check occurrence: %w", err)
		}
		if exists {
			return nil
		}

		if id, err = tx.NextBookingID(ctx); err != nil {
			return fmt.Errorf("failed to allocate booking id: %w", err)
		}
		now := s.now().UTC()
		occurrence.ID = id
		occurrence.CreatedAt = now
		occurrence.UpdatedAt = now
		if err := tx.InsertBooking(ctx, occurrence); err != nil {
			return err
		}
		if err := tx.ReplaceClientRelations(ctx, id, model.RebindClients(id, clients)); err != nil {
			return fmt.Errorf("failed to copy clients: %w", err)
		}
		return s.record(ctx, tx, id, actor, fmt.Sprintf("Booking created: %s (occurrence of #%d)", occurrence.Description(), parent.ID))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *BookingService) stopExpansion(logger *zap.Logger, result *ExpansionResult, err error) error {
	logger.Error("Expansion stopped",
		zap.Int("created", result.Created()),
		zap.Int("planned", result.Planned),
		zap.Error(err))
	return &ExpansionError{ParentBookingID: result.ParentBookingID, Created: result.Created(), Err: err}
}

// ResumeExpansion re-runs the expansion of a recurring parent, creating only the
// occurrences that are missing.
func (s *BookingService) ResumeExpansion(ctx context.Context, actor string, parentID int64) (*ExpansionResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	logger := s.logger.With(zap.Int64("parent_booking_id", parentID))

	parent, err := s.store.GetBooking(ctx, parentID)
	if err != nil {
		return nil, s.fail(logger, "get booking", notFoundOr(err, parentID))
	}
	if !parent.IsParentBooking {
		return nil, invalid("booking_id", "booking %d is not a recurring parent", parentID)
	}
	if !parent.Status.IsActive() {
		return nil, invalid("status", "booking %d is %s", parentID, parent.Status)
	}
	clients, err := s.store.ClientRelations(ctx, parentID)
	if err != nil {
		return nil, s.fail(logger, "load clients", err)
	}
	return s.expand(ctx, parent, clients, actor)
}
