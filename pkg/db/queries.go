package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
)

// Conn is the query surface shared by pgx pools/transactions and database/sql handles
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
}

// Rows iterates a result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Row is a single-row result
type Row interface {
	Scan(dest ...any) error
}

// Dialect captures what differs between SQL backends.
// Queries are written with '?' placeholders and passed through Rebind.
type Dialect interface {
	Rebind(query string) string
	NextBookingIDQuery() string
	IsUniqueViolation(err error) bool
	IsNoRows(err error) bool
}

// Queries implements Tx on top of a Conn. Backends wrap either their
// connection pool or an open transaction in it.
type Queries struct {
	conn    Conn
	dialect Dialect
}

// NewQueries creates a Queries for conn
func NewQueries(conn Conn, dialect Dialect) *Queries {
	return &Queries{conn: conn, dialect: dialect}
}

var _ Tx = (*Queries)(nil)

func (q *Queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	return q.conn.Exec(ctx, q.dialect.Rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (Rows, error) {
	return q.conn.Query(ctx, q.dialect.Rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) Row {
	return q.conn.QueryRow(ctx, q.dialect.Rebind(query), args...)
}

// NextBookingID draws the next booking id from the backend's sequence
func (q *Queries) NextBookingID(ctx context.Context) (int64, error) {
	var id int64
	if err := q.conn.QueryRow(ctx, q.dialect.NextBookingIDQuery()).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to allocate booking id: %w", err)
	}
	return id, nil
}

// GetBooking retrieves a single booking
func (q *Queries) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	var r bookingRow
	err := q.queryRow(ctx, `SELECT `+strings.Join(bookingColumns, ", ")+` FROM booking WHERE booking_id = ?`, id).
		Scan(r.targets()...)
	if err != nil {
		if q.dialect.IsNoRows(err) {
			return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get booking %d: %w", id, err)
	}
	return r.booking()
}

// ListBookings returns one page of bookings matching filter ordered by date then id,
// together with the total number of matches
func (q *Queries) ListBookings(ctx context.Context, filter BookingFilter, page Page) ([]*model.Booking, int, error) {
	page = page.Normalize()

	var conds []string
	var args []any
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.BookingType != nil {
		conds = append(conds, "booking_type = ?")
		args = append(args, string(*filter.BookingType))
	}
	if filter.DateFrom != nil {
		conds = append(conds, "date >= ?")
		args = append(args, model.DateOnly(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		conds = append(conds, "date <= ?")
		args = append(args, model.DateOnly(*filter.DateTo))
	}
	if filter.ParentBookingID != nil {
		conds = append(conds, "parent_booking_id = ?")
		args = append(args, *filter.ParentBookingID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := q.queryRow(ctx, `SELECT COUNT(*) FROM booking`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	rows, err := q.query(ctx,
		`SELECT `+strings.Join(bookingColumns, ", ")+` FROM booking`+where+
			` ORDER BY date, booking_id LIMIT ? OFFSET ?`,
		append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		var r bookingRow
		if err := rows.Scan(r.targets()...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan booking: %w", err)
		}
		b, err := r.booking()
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, total, nil
}

// InsertBooking inserts a booking whose id has already been allocated
func (q *Queries) InsertBooking(ctx context.Context, b *model.Booking) error {
	r := rowFromBooking(b)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(bookingColumns)), ", ")
	_, err := q.exec(ctx,
		`INSERT INTO booking (`+strings.Join(bookingColumns, ", ")+`) VALUES (`+placeholders+`)`,
		r.args()...)
	if err != nil {
		if b.ParentBookingID != nil && q.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("booking %d on %s: %w", *b.ParentBookingID, b.Date.Format(model.DateLayout), ErrDuplicateOccurrence)
		}
		return fmt.Errorf("failed to insert booking %d: %w", b.ID, err)
	}
	return nil
}

// UpdateBooking overwrites every column of an existing booking except its id and creation time
func (q *Queries) UpdateBooking(ctx context.Context, b *model.Booking) error {
	r := rowFromBooking(b)
	args := r.args()

	// Skip booking_id and created_at
	var sets []string
	var values []any
	for i, col := range bookingColumns {
		if col == "booking_id" || col == "created_at" {
			continue
		}
		sets = append(sets, col+" = ?")
		values = append(values, args[i])
	}
	values = append(values, b.ID)

	n, err := q.exec(ctx, `UPDATE booking SET `+strings.Join(sets, ", ")+` WHERE booking_id = ?`, values...)
	if err != nil {
		if b.ParentBookingID != nil && q.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("booking %d on %s: %w", *b.ParentBookingID, b.Date.Format(model.DateLayout), ErrDuplicateOccurrence)
		}
		return fmt.Errorf("failed to update booking %d: %w", b.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("booking %d: %w", b.ID, ErrNotFound)
	}
	return nil
}

// OccurrenceExists reports whether the series already has an occurrence on date
func (q *Queries) OccurrenceExists(ctx context.Context, parentID int64, date time.Time) (bool, error) {
	var count int
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM booking WHERE parent_booking_id = ? AND date = ?`,
		parentID, model.DateOnly(date)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check occurrence: %w", err)
	}
	return count > 0, nil
}

// ClientRelations retrieves a booking's clients, primary first
func (q *Queries) ClientRelations(ctx context.Context, bookingID int64) ([]model.ClientRelation, error) {
	rows, err := q.query(ctx, `
		SELECT booking_id, client_id, is_primary
		FROM client_relation
		WHERE booking_id = ?
		ORDER BY is_primary DESC, client_id
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query client relations: %w", err)
	}
	defer rows.Close()

	rels := []model.ClientRelation{}
	for rows.Next() {
		var r model.ClientRelation
		if err := rows.Scan(&r.BookingID, &r.ClientID, &r.IsPrimary); err != nil {
			return nil, fmt.Errorf("failed to scan client relation: %w", err)
		}
		rels = append(rels, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client relations: %w", err)
	}
	return rels, nil
}

// VolunteerRelations retrieves a booking's volunteers
func (q *Queries) VolunteerRelations(ctx context.Context, bookingID int64) ([]model.VolunteerRelation, error) {
	rows, err := q.query(ctx, `
		SELECT booking_id, volunteer_id, status
		FROM volunteer_relation
		WHERE booking_id = ?
		ORDER BY volunteer_id
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query volunteer relations: %w", err)
	}
	defer rows.Close()

	rels := []model.VolunteerRelation{}
	for rows.Next() {
		var r model.VolunteerRelation
		var status string
		if err := rows.Scan(&r.BookingID, &r.VolunteerID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan volunteer relation: %w", err)
		}
		r.Status = model.VolunteerStatus(status)
		rels = append(rels, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating volunteer relations: %w", err)
	}
	return rels, nil
}

// EventAttendees retrieves an event booking's attendees
func (q *Queries) EventAttendees(ctx context.Context, bookingID int64) ([]model.EventAttendee, error) {
	rows, err := q.query(ctx, `
		SELECT booking_id, user_id, external_name, user_type
		FROM event_attendee
		WHERE booking_id = ?
		ORDER BY attendee_key
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event attendees: %w", err)
	}
	defer rows.Close()

	attendees := []model.EventAttendee{}
	for rows.Next() {
		var a model.EventAttendee
		var userID, externalName *string
		if err := rows.Scan(&a.BookingID, &userID, &externalName, &a.UserType); err != nil {
			return nil, fmt.Errorf("failed to scan event attendee: %w", err)
		}
		a.UserID = deref(userID)
		a.ExternalName = deref(externalName)
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event attendees: %w", err)
	}
	return attendees, nil
}

// ReplaceClientRelations reconciles the stored clients with rels
func (q *Queries) ReplaceClientRelations(ctx context.Context, bookingID int64, rels []model.ClientRelation) error {
	current, err := q.ClientRelations(ctx, bookingID)
	if err != nil {
		return err
	}
	diff := DiffClientRelations(current, rels)

	for _, r := range diff.Delete {
		if _, err := q.exec(ctx, `DELETE FROM client_relation WHERE booking_id = ? AND client_id = ?`, bookingID, r.ClientID); err != nil {
			return fmt.Errorf("failed to delete client relation: %w", err)
		}
	}
	for _, r := range diff.Update {
		if _, err := q.exec(ctx, `UPDATE client_relation SET is_primary = ? WHERE booking_id = ? AND client_id = ?`, r.IsPrimary, bookingID, r.ClientID); err != nil {
			return fmt.Errorf("failed to update client relation: %w", err)
		}
	}
	for _, r := range diff.Insert {
		if _, err := q.exec(ctx, `INSERT INTO client_relation (booking_id, client_id, is_primary) VALUES (?, ?, ?)`, bookingID, r.ClientID, r.IsPrimary); err != nil {
			return fmt.Errorf("failed to insert client relation: %w", err)
		}
	}
	return nil
}

// ReplaceVolunteerRelations reconciles the stored volunteers with rels
func (q *Queries) ReplaceVolunteerRelations(ctx context.Context, bookingID int64, rels []model.VolunteerRelation) error {
	current, err := q.VolunteerRelations(ctx, bookingID)
	if err != nil {
		return err
	}
	diff := DiffVolunteerRelations(current, rels)

	for _, r := range diff.Delete {
		if _, err := q.exec(ctx, `DELETE FROM volunteer_relation WHERE booking_id = ? AND volunteer_id = ?`, bookingID, r.VolunteerID); err != nil {
			return fmt.Errorf("failed to delete volunteer relation: %w", err)
		}
	}
	for _, r := range diff.Update {
		if _, err := q.exec(ctx, `UPDATE volunteer_relation SET status = ? WHERE booking_id = ? AND volunteer_id = ?`, string(r.Status), bookingID, r.VolunteerID); err != nil {
			return fmt.Errorf("failed to update volunteer relation: %w", err)
		}
	}
	for _, r := range diff.Insert {
		if _, err := q.exec(ctx, `INSERT INTO volunteer_relation (booking_id, volunteer_id, status) VALUES (?, ?, ?)`, bookingID, r.VolunteerID, string(r.Status)); err != nil {
			return fmt.Errorf("failed to insert volunteer relation: %w", err)
		}
	}
	return nil
}

// ReplaceEventAttendees reconciles the stored attendees with attendees
func (q *Queries) ReplaceEventAttendees(ctx context.Context, bookingID int64, attendees []model.EventAttendee) error {
	current, err := q.EventAttendees(ctx, bookingID)
	if err != nil {
		return err
	}
	diff := DiffEventAttendees(current, attendees)

	for _, a := range diff.Delete {
		if _, err := q.exec(ctx, `DELETE FROM event_attendee WHERE booking_id = ? AND attendee_key = ?`, bookingID, a.Key()); err != nil {
			return fmt.Errorf("failed to delete event attendee: %w", err)
		}
	}
	for _, a := range diff.Update {
		if _, err := q.exec(ctx, `UPDATE event_attendee SET user_type = ? WHERE booking_id = ? AND attendee_key = ?`, a.UserType, bookingID, a.Key()); err != nil {
			return fmt.Errorf("failed to update event attendee: %w", err)
		}
	}
	for _, a := range diff.Insert {
		var userID, externalName *string
		if a.UserID != "" {
			userID = &a.UserID
		} else {
			externalName = &a.ExternalName
		}
		if _, err := q.exec(ctx, `
			INSERT INTO event_attendee (booking_id, attendee_key, user_id, external_name, user_type)
			VALUES (?, ?, ?, ?, ?)
		`, bookingID, a.Key(), userID, externalName, a.UserType); err != nil {
			return fmt.Errorf("failed to insert event attendee: %w", err)
		}
	}
	return nil
}

// AppendHistory inserts an audit entry. Entries are never updated or deleted.
func (q *Queries) AppendHistory(ctx context.Context, entry model.HistoryEntry) error {
	_, err := q.exec(ctx, `
		INSERT INTO job_history (history_id, booking_id, user_id, action, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, entry.BookingID, entry.UserID, entry.Action, entry.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// History retrieves a booking's audit trail, newest first
func (q *Queries) History(ctx context.Context, bookingID int64) ([]model.HistoryEntry, error) {
	rows, err := q.query(ctx, `
		SELECT history_id, booking_id, user_id, action, created_at
		FROM job_history
		WHERE booking_id = ?
		ORDER BY created_at DESC, seq DESC
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var e model.HistoryEntry
		if err := rows.Scan(&e.ID, &e.BookingID, &e.UserID, &e.Action, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}
