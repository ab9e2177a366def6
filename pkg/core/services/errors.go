package services

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jakechorley/volunteer-bookings/pkg/db"
)

// ValidationError is returned for missing or malformed input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned when a booking does not exist
type NotFoundError struct {
	BookingID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("booking %d not found", e.BookingID)
}

// StorageError wraps an unexpected persistence failure
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ExpansionError reports a recurrence expansion that stopped part way.
// Occurrences created before the failure are kept.
type ExpansionError struct {
	ParentBookingID int64
	Created         int
	Err             error
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("expansion of booking %d stopped after %d occurrences: %v", e.ParentBookingID, e.Created, e.Err)
}

func (e *ExpansionError) Unwrap() error { return e.Err }

// StatusCode maps an error to the HTTP status the request boundary should return
func StatusCode(err error) int {
	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ParseBookingID parses a booking id supplied as text
func ParseBookingID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, invalid("booking_id", "must be a positive integer, got %q", s)
	}
	return id, nil
}

// notFoundOr turns db.ErrNotFound into a NotFoundError for id
func notFoundOr(err error, id int64) error {
	if errors.Is(err, db.ErrNotFound) {
		return &NotFoundError{BookingID: id}
	}
	return err
}

// fromValidator flattens validator errors into a single ValidationError
func fromValidator(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Message: err.Error()}
	}
	fields := make([]string, 0, len(fieldErrs))
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Namespace())
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return &ValidationError{Field: strings.Join(fields, ","), Message: strings.Join(msgs, "; ")}
}
