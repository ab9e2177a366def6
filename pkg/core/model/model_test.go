package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBooking_RejectsMismatchedDetails(t *testing.T) {
	_, err := NewBooking(BookingTypeEvent, &ServiceProgramDetails{ServiceType: "Friendly Visit"})
	assert.Error(t, err)

	_, err = NewBooking(BookingTypeServiceProgram, nil)
	assert.Error(t, err)
}

func TestNewBooking_Defaults(t *testing.T) {
	b, err := NewBooking(BookingTypeEvent, &EventDetails{EventID: "gala"})
	require.NoError(t, err)

	assert.Equal(t, BookingTypeEvent, b.Type())
	assert.Equal(t, StatusNotAssigned, b.Status)
	assert.Equal(t, FrequencyOneTime, b.FrequencyType)
	assert.Equal(t, 1, b.NumVolunteersNeeded)
	assert.Nil(t, b.ServiceProgram())
	require.NotNil(t, b.Event())
	assert.Equal(t, "event - gala", b.Description())
}

func TestClone_IsDeep(t *testing.T) {
	b, err := NewBooking(BookingTypeServiceProgram, &ServiceProgramDetails{
		ServiceType:        "Medical Appointment Drive",
		PickupAddress:      Address{Street: "1 High St", City: "Ilford"},
		DestinationAddress: &Address{Street: "2 Low Rd", City: "Ilford"},
	})
	require.NoError(t, err)
	reason := "Client - Health"
	b.CancellationReason = &reason
	b.RecurrenceDays = []time.Weekday{time.Monday}

	c := b.Clone()
	c.ServiceProgram().DestinationAddress.Street = "changed"
	*c.CancellationReason = "changed"
	c.RecurrenceDays[0] = time.Friday

	assert.Equal(t, "2 Low Rd", b.ServiceProgram().DestinationAddress.Street)
	assert.Equal(t, "Client - Health", *b.CancellationReason)
	assert.Equal(t, time.Monday, b.RecurrenceDays[0])
}

func TestMarshalJSON_IncludesVariant(t *testing.T) {
	b, err := NewBooking(BookingTypeEvent, &EventDetails{EventID: "gala", LocationAddress: Address{Street: "Hall", City: "Ilford"}})
	require.NoError(t, err)
	b.ID = 7

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "event", out["booking_type"])
	assert.EqualValues(t, 7, out["booking_id"])
	assert.NotNil(t, out["event"])
	assert.NotContains(t, out, "service_program")
}

func TestMarshalJSON_RecurrenceDaysAsNames(t *testing.T) {
	b, err := NewBooking(BookingTypeEvent, &EventDetails{EventID: "gala", LocationAddress: Address{Street: "Hall", City: "Ilford"}})
	require.NoError(t, err)
	b.IsParentBooking = true
	b.RecurrenceDays = []time.Weekday{time.Monday, time.Friday}

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, []any{"Monday", "Friday"}, out["recurrence_days"])

	var back Booking
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, back.RecurrenceDays)
	assert.True(t, back.IsParentBooking)

	err = json.Unmarshal([]byte(`{"recurrence_days":["Someday"]}`), &back)
	assert.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusNotAssigned, StatusAssigned))
	assert.True(t, CanTransition(StatusAssigned, StatusCompleted))
	assert.True(t, CanTransition(StatusAssigned, StatusCancelled))
	assert.True(t, CanTransition(StatusCompleted, StatusDeleted))
	assert.True(t, CanTransition(StatusDeleted, StatusDeleted))

	assert.False(t, CanTransition(StatusNotAssigned, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusCancelled))
	assert.False(t, CanTransition(StatusCancelled, StatusAssigned))
	assert.False(t, CanTransition(StatusDeleted, StatusNotAssigned))
}

func TestAssignmentStatus(t *testing.T) {
	assigned := []VolunteerRelation{{VolunteerID: "v1", Status: VolunteerEmailed}, {VolunteerID: "v2", Status: VolunteerAssigned}}
	pending := []VolunteerRelation{{VolunteerID: "v1", Status: VolunteerPossible}}

	assert.Equal(t, StatusAssigned, AssignmentStatus(StatusNotAssigned, assigned))
	assert.Equal(t, StatusNotAssigned, AssignmentStatus(StatusAssigned, pending))
	assert.Equal(t, StatusCancelled, AssignmentStatus(StatusCancelled, assigned))
}

func TestClientRelationsFor_FirstIsPrimary(t *testing.T) {
	rels := ClientRelationsFor(3, []string{"c1", "c2", "c1"})
	require.Len(t, rels, 2)
	assert.True(t, rels[0].IsPrimary)
	assert.False(t, rels[1].IsPrimary)
	assert.Equal(t, int64(3), rels[1].BookingID)
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays([]string{"Mon", "friday", "MON"})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, days)

	_, err = ParseWeekdays([]string{"Funday"})
	assert.Error(t, err)
}
