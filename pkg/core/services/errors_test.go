package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volunteer-bookings/pkg/db"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", invalid("date", "bad"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("outer: %w", invalid("date", "bad")), http.StatusBadRequest},
		{"not found", &NotFoundError{BookingID: 3}, http.StatusNotFound},
		{"storage", &StorageError{Op: "get booking", Err: errors.New("boom")}, http.StatusInternalServerError},
		{"expansion", &ExpansionError{ParentBookingID: 1, Created: 2, Err: errors.New("boom")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestParseBookingID(t *testing.T) {
	id, err := ParseBookingID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "4.2", "0", "-1"} {
		_, err := ParseBookingID(bad)
		assertValidation(t, err)
	}
}

func TestNotFoundOr(t *testing.T) {
	err := notFoundOr(fmt.Errorf("booking 9: %w", db.ErrNotFound), 9)
	var notFoundErr *NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	assert.Equal(t, int64(9), notFoundErr.BookingID)

	other := errors.New("boom")
	assert.Same(t, other, notFoundOr(other, 9))
}

func TestFromValidator_UsesJSONNames(t *testing.T) {
	v := newValidator()

	err := fromValidator(v.Struct(CreateBookingInput{BookingType: "event", Date: "2024-01-01"}))

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Field, "start_time")
	assert.Contains(t, validationErr.Message, "required")
}

func TestExpansionError_Unwrap(t *testing.T) {
	inner := errors.New("reset")
	err := &ExpansionError{ParentBookingID: 1, Created: 4, Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "stopped after 4 occurrences")
}
