package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
	"github.com/jakechorley/volunteer-bookings/pkg/db"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(context.Background(), MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func date(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func serviceBooking(t *testing.T, day string) *model.Booking {
	t.Helper()
	b, err := model.NewBooking(model.BookingTypeServiceProgram, &model.ServiceProgramDetails{
		ServiceType:        "Medical Appointment Drive",
		PickupAddress:      model.Address{Street: "1 High St", City: "Ilford"},
		DestinationAddress: &model.Address{Description: "Clinic", Street: "2 Low Rd", City: "Barking"},
	})
	require.NoError(t, err)
	b.Date = date(day)
	b.StartTime = "09:30"
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	b.CreatedAt, b.UpdatedAt = now, now
	return b
}

func eventBooking(t *testing.T, day string) *model.Booking {
	t.Helper()
	b, err := model.NewBooking(model.BookingTypeEvent, &model.EventDetails{
		EventID:         "summer-fair",
		SetupWindow:     &model.TimeWindow{Start: "08:00", End: "09:00"},
		LocationAddress: model.Address{Street: "Town Hall", City: "Ilford"},
	})
	require.NoError(t, err)
	b.Date = date(day)
	b.StartTime = "10:00"
	return b
}

// insert allocates an id and stores b in its own transaction
func insert(t *testing.T, d *DB, b *model.Booking) int64 {
	t.Helper()
	err := d.WithTx(context.Background(), func(tx db.Tx) error {
		id, err := tx.NextBookingID(context.Background())
		if err != nil {
			return err
		}
		b.ID = id
		return tx.InsertBooking(context.Background(), b)
	})
	require.NoError(t, err)
	return b.ID
}

func TestOpen_RunsMigrationsOnce(t *testing.T) {
	d := openTestDB(t)

	require.NoError(t, d.RunMigrations(context.Background()))

	var count int
	require.NoError(t, d.sqlDB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestNextBookingID_StartsAtOneAndIncrements(t *testing.T) {
	d := openTestDB(t)

	first := insert(t, d, serviceBooking(t, "2025-01-06"))
	second := insert(t, d, serviceBooking(t, "2025-01-07"))

	assert.Equal(t, model.FirstBookingID, first)
	assert.Equal(t, first+1, second)
}

func TestNextBookingID_RolledBackWithTransaction(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	err := d.WithTx(ctx, func(tx db.Tx) error {
		if _, err := tx.NextBookingID(ctx); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	assert.Equal(t, model.FirstBookingID, insert(t, d, serviceBooking(t, "2025-01-06")))
}

func TestGetBooking_ServiceRoundTrip(t *testing.T) {
	d := openTestDB(t)
	b := serviceBooking(t, "2025-01-06")
	b.FrequencyType = model.FrequencyOngoing
	b.IsParentBooking = true
	end := date("2025-02-28")
	freq := model.RecurrenceWeekly
	b.EndDate = &end
	b.RecurrenceFrequency = &freq
	b.RecurrenceDays = []time.Weekday{time.Monday, time.Friday}
	id := insert(t, d, b)

	got, err := d.GetBooking(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, model.BookingTypeServiceProgram, got.Type())
	assert.Equal(t, model.StatusNotAssigned, got.Status)
	assert.True(t, got.Date.Equal(date("2025-01-06")))
	assert.Equal(t, "09:30", got.StartTime)
	assert.True(t, got.IsParentBooking)
	require.NotNil(t, got.EndDate)
	assert.True(t, got.EndDate.Equal(end))
	assert.Equal(t, model.RecurrenceWeekly, *got.RecurrenceFrequency)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, got.RecurrenceDays)
	assert.True(t, got.CreatedAt.Equal(b.CreatedAt))

	sp := got.ServiceProgram()
	require.NotNil(t, sp)
	assert.Equal(t, "Medical Appointment Drive", sp.ServiceType)
	assert.Equal(t, "Ilford", sp.PickupAddress.City)
	require.NotNil(t, sp.DestinationAddress)
	assert.Equal(t, "Clinic", sp.DestinationAddress.Description)
	assert.Nil(t, got.Event())
}

func TestGetBooking_EventRoundTrip(t *testing.T) {
	d := openTestDB(t)
	id := insert(t, d, eventBooking(t, "2025-06-21"))

	got, err := d.GetBooking(context.Background(), id)
	require.NoError(t, err)

	ev := got.Event()
	require.NotNil(t, ev)
	assert.Equal(t, "summer-fair", ev.EventID)
	require.NotNil(t, ev.SetupWindow)
	assert.Equal(t, "08:00", ev.SetupWindow.Start)
	assert.Nil(t, ev.TakedownWindow)
	assert.Equal(t, "Town Hall", ev.LocationAddress.Street)
	assert.Nil(t, got.ServiceProgram())
}

func TestGetBooking_NotFound(t *testing.T) {
	d := openTestDB(t)

	_, err := d.GetBooking(context.Background(), 42)

	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestUpdateBooking(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	b := serviceBooking(t, "2025-01-06")
	id := insert(t, d, b)

	reason, notes := "Weather", "snow"
	b.Status = model.StatusCancelled
	b.CancellationReason = &reason
	b.CancellationNotes = &notes
	require.NoError(t, d.WithTx(ctx, func(tx db.Tx) error { return tx.UpdateBooking(ctx, b) }))

	got, err := d.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	assert.Equal(t, "Weather", *got.CancellationReason)
	assert.Equal(t, "snow", *got.CancellationNotes)
}

func TestUpdateBooking_NotFound(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	b := serviceBooking(t, "2025-01-06")
	b.ID = 99

	err := d.WithTx(ctx, func(tx db.Tx) error { return tx.UpdateBooking(ctx, b) })

	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestListBookings_FiltersAndPages(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	insert(t, d, serviceBooking(t, "2025-01-08"))
	insert(t, d, serviceBooking(t, "2025-01-06"))
	insert(t, d, eventBooking(t, "2025-01-07"))
	cancelled := serviceBooking(t, "2025-01-09")
	cancelled.Status = model.StatusCancelled
	insert(t, d, cancelled)

	all, total, err := d.ListBookings(ctx, db.BookingFilter{}, db.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, all, 2)
	assert.True(t, all[0].Date.Equal(date("2025-01-06")))
	assert.True(t, all[1].Date.Equal(date("2025-01-07")))

	second, _, err := d.ListBookings(ctx, db.BookingFilter{}, db.Page{Number: 2, Size: 2})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.True(t, second[0].Date.Equal(date("2025-01-08")))

	status := model.StatusNotAssigned
	bt := model.BookingTypeServiceProgram
	from, to := date("2025-01-06"), date("2025-01-08")
	filtered, total, err := d.ListBookings(ctx, db.BookingFilter{
		Status: &status, BookingType: &bt, DateFrom: &from, DateTo: &to,
	}, db.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, filtered, 2)
	for _, b := range filtered {
		assert.Equal(t, model.BookingTypeServiceProgram, b.Type())
		assert.Equal(t, model.StatusNotAssigned, b.Status)
	}
}

func TestListBookings_PastLastPage(t *testing.T) {
	d := openTestDB(t)
	insert(t, d, serviceBooking(t, "2025-01-06"))

	got, total, err := d.ListBookings(context.Background(), db.BookingFilter{}, db.Page{Number: 5, Size: 10})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, got)
}

func TestInsertBooking_DuplicateOccurrence(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	parentID := insert(t, d, serviceBooking(t, "2025-01-06"))

	occ := serviceBooking(t, "2025-01-13")
	occ.ParentBookingID = &parentID
	insert(t, d, occ)

	exists, err := d.OccurrenceExists(ctx, parentID, date("2025-01-13"))
	require.NoError(t, err)
	assert.True(t, exists)

	dup := serviceBooking(t, "2025-01-13")
	dup.ParentBookingID = &parentID
	err = d.WithTx(ctx, func(tx db.Tx) error {
		id, err := tx.NextBookingID(ctx)
		if err != nil {
			return err
		}
		dup.ID = id
		return tx.InsertBooking(ctx, dup)
	})
	assert.ErrorIs(t, err, db.ErrDuplicateOccurrence)

	exists, err = d.OccurrenceExists(ctx, parentID, date("2025-01-20"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateBooking_DuplicateOccurrence(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	parentID := insert(t, d, serviceBooking(t, "2025-01-06"))

	first := serviceBooking(t, "2025-01-13")
	first.ParentBookingID = &parentID
	insert(t, d, first)
	second := serviceBooking(t, "2025-01-20")
	second.ParentBookingID = &parentID
	insert(t, d, second)

	second.Date = date("2025-01-13")
	err := d.WithTx(ctx, func(tx db.Tx) error {
		return tx.UpdateBooking(ctx, second)
	})
	assert.ErrorIs(t, err, db.ErrDuplicateOccurrence)

	exists, err := d.OccurrenceExists(ctx, parentID, date("2025-01-20"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReplaceClientRelations_SwapsPrimary(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	id := insert(t, d, serviceBooking(t, "2025-01-06"))

	replace := func(ids ...string) {
		require.NoError(t, d.WithTx(ctx, func(tx db.Tx) error {
			return tx.ReplaceClientRelations(ctx, id, model.ClientRelationsFor(id, ids))
		}))
	}

	replace("alice", "bob")
	replace("bob", "alice", "carol")

	got, err := d.ClientRelations(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	primaries := map[string]bool{}
	for _, r := range got {
		primaries[r.ClientID] = r.IsPrimary
	}
	assert.Equal(t, map[string]bool{"alice": false, "bob": true, "carol": false}, primaries)

	replace("carol")
	got, err = d.ClientRelations(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "carol", got[0].ClientID)
	assert.True(t, got[0].IsPrimary)
}

func TestReplaceVolunteerRelations(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	id := insert(t, d, serviceBooking(t, "2025-01-06"))

	require.NoError(t, d.WithTx(ctx, func(tx db.Tx) error {
		return tx.ReplaceVolunteerRelations(ctx, id, []model.VolunteerRelation{
			{BookingID: id, VolunteerID: "v1", Status: model.VolunteerPossible},
			{BookingID: id, VolunteerID: "v2", Status: model.VolunteerEmailed},
		})
	}))
	require.NoError(t, d.WithTx(ctx, func(tx db.Tx) error {
		return tx.ReplaceVolunteerRelations(ctx, id, []model.VolunteerRelation{
			{BookingID: id, VolunteerID: "v1", Status: model.VolunteerAssigned},
		})
	}))

	got, err := d.VolunteerRelations(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v1", got[0].VolunteerID)
	assert.Equal(t, model.VolunteerAssigned, got[0].Status)
}

func TestReplaceEventAttendees(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	id := insert(t, d, eventBooking(t, "2025-06-21"))

	require.NoError(t, d.WithTx(ctx, func(tx db.Tx) error {
		return tx.ReplaceEventAttendees(ctx, id, []model.EventAttendee{
			{BookingID: id, UserID: "u1", UserType: "client"},
			{BookingID: id, ExternalName: "Pat Guest", UserType: "guest"},
		})
	}))

	got, err := d.EventAttendees(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	keys := []string{got[0].Key(), got[1].Key()}
	assert.ElementsMatch(t, []string{"user:u1", "external:Pat Guest"}, keys)
}

func TestHistory_NewestFirst(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	id := insert(t, d, serviceBooking(t, "2025-01-06"))
	ts := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, d.WithTx(ctx, func(tx db.Tx) error {
		for i, action := range []string{"Booking created: x", "Booking updated", "Booking deleted"} {
			entry := model.HistoryEntry{
				ID:        "h" + string(rune('a'+i)),
				BookingID: id,
				UserID:    "staff-1",
				Action:    action,
				Timestamp: ts,
			}
			if i == 0 {
				entry.Timestamp = ts.Add(-time.Minute)
			}
			if err := tx.AppendHistory(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	}))

	got, err := d.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Booking deleted", got[0].Action)
	assert.Equal(t, "Booking updated", got[1].Action)
	assert.Equal(t, "Booking created: x", got[2].Action)
	assert.Equal(t, "staff-1", got[0].UserID)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := d.WithTx(ctx, func(tx db.Tx) error {
		b := serviceBooking(t, "2025-01-06")
		id, err := tx.NextBookingID(ctx)
		if err != nil {
			return err
		}
		b.ID = id
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, total, err := d.ListBookings(ctx, db.BookingFilter{}, db.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
