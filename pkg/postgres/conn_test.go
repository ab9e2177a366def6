package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	got := dialect{}.Rebind(`SELECT * FROM booking WHERE status = ? AND date >= ? LIMIT ? OFFSET ?`)

	assert.Equal(t, `SELECT * FROM booking WHERE status = $1 AND date >= $2 LIMIT $3 OFFSET $4`, got)
}

func TestRebind_NoPlaceholders(t *testing.T) {
	assert.Equal(t, `SELECT nextval('booking_id_seq')`, dialect{}.Rebind(`SELECT nextval('booking_id_seq')`))
}

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})

	assert.True(t, dialect{}.IsUniqueViolation(wrapped))
	assert.False(t, dialect{}.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, dialect{}.IsUniqueViolation(errors.New("boom")))
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, dialect{}.IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, dialect{}.IsNoRows(errors.New("boom")))
}
