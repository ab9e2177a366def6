package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
	"github.com/jakechorley/volunteer-bookings/pkg/db"
)

// record appends an audit entry inside tx
func (s *BookingService) record(ctx context.Context, tx db.Tx, bookingID int64, actor, action string) error {
	entry := model.HistoryEntry{
		ID:        s.newID(),
		BookingID: bookingID,
		UserID:    actor,
		Action:    action,
		Timestamp: s.now().UTC(),
	}
	if err := tx.AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// GetBookingHistory returns the audit trail of a booking, newest first
func (s *BookingService) GetBookingHistory(ctx context.Context, id int64) ([]model.HistoryEntry, error) {
	logger := s.logger.With(zap.Int64("booking_id", id))

	if _, err := s.store.GetBooking(ctx, id); err != nil {
		return nil, s.fail(logger, "get booking", notFoundOr(err, id))
	}
	entries, err := s.store.History(ctx, id)
	if err != nil {
		return nil, s.fail(logger, "load history", err)
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	return entries, nil
}
