package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func assign(dest []any, src []any) error {
	if len(dest) != len(src) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(src))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = src[i].(string)
		case *int:
			*p = src[i].(int)
		case *int64:
			*p = src[i].(int64)
		case *bool:
			*p = src[i].(bool)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type fakeRows struct {
	pgx.Rows
	data [][]any
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error { return assign(dest, r.data[r.pos-1]) }
func (r *fakeRows) Err() error             { return nil }
func (r *fakeRows) Close()                 {}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type execCall struct {
	sql  string
	args []any
}

type fakeTx struct {
	pgx.Tx
	execs      []execCall
	tags       []string
	failOnExec int
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, execCall{sql: sql, args: args})
	if tx.failOnExec == len(tx.execs) {
		return pgconn.CommandTag{}, errors.New("unique violation")
	}
	tag := "INSERT 0 1"
	if i := len(tx.execs) - 1; i < len(tx.tags) {
		tag = tx.tags[i]
	}
	return pgconn.NewCommandTag(tag), nil
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	rows  [][]any
	row   fakeRow
	tx    *fakeTx
	query string
	args  []any
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.query, db.args = sql, args
	return &fakeRows{data: db.rows}, nil
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.query, db.args = sql, args
	return db.row
}

func (db *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("exec outside tx")
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) { return db.tx, nil }
func (db *fakeDB) Ping(context.Context) error            { return nil }
func (db *fakeDB) Close()                                {}

func TestSeatRepository_LoadLayout(t *testing.T) {
	db := &fakeDB{rows: [][]any{
		{"A-1", "show-1", "A", 1, "regular", false, false},
		{"A-2", "show-1", "A", 2, "regular", false, true},
		{"A-3", "show-1", "A", 3, "vip", true, false},
	}}
	repo := NewSeatRepository(db, zap.NewNop())

	seats, err := repo.LoadLayout(context.Background(), "show-1")
	require.NoError(t, err)
	require.Len(t, seats, 3)

	assert.Equal(t, []any{"show-1"}, db.args)
	assert.Equal(t, entity.SeatAvailable, seats[0].Status)
	assert.Equal(t, entity.SeatSold, seats[1].Status)
	assert.Equal(t, entity.SeatBlocked, seats[2].Status)
	assert.Equal(t, "vip", seats[2].SeatTypeID)
	assert.Equal(t, "A3", seats[2].Label())
}

func TestCatalogRepository_NotFound(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	repo := NewCatalogRepository(db, zap.NewNop())
	ctx := context.Background()

	_, err := repo.Showtime(ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrShowtimeNotFound)

	_, err = repo.Combo(ctx, "nope")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	_, err = repo.SeatType(ctx, "nope")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	_, err = repo.VoucherByCode(ctx, "nope")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestCatalogRepository_Combo(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{"popcorn", "Popcorn", int64(30000), true}}}
	repo := NewCatalogRepository(db, zap.NewNop())

	combo, err := repo.Combo(context.Background(), "popcorn")
	require.NoError(t, err)
	assert.Equal(t, entity.Combo{ID: "popcorn", Name: "Popcorn", Price: 30000, IsActive: true}, *combo)
}

func TestCatalogRepository_DriverErrorIsNotNotFound(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: errors.New("conn reset")}}
	repo := NewCatalogRepository(db, zap.NewNop())

	_, err := repo.Showtime(context.Background(), "show-1")
	require.Error(t, err)
	assert.False(t, apperr.IsKind(err, apperr.NotFound))
}

func paidBooking() (*entity.Booking, []entity.BookingSeat) {
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	b := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		OrderRef:     "ord-1",
		SessionID:    "sess-1",
		ShowtimeID:   "show-1",
		TotalSeats:   2,
		TotalAmount:  100000,
		Currency:     "IDR",
		Status:       entity.BookingStatusPaid,
	}
	seats := []entity.BookingSeat{
		{BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now}, BookingID: b.ID, ShowtimeID: "show-1", SeatID: "A-1"},
		{BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now}, BookingID: b.ID, ShowtimeID: "show-1", SeatID: "A-2"},
	}
	return b, seats
}

func TestBookingRepository_SaveBooking(t *testing.T) {
	tx := &fakeTx{}
	repo := NewBookingRepository(&fakeDB{tx: tx}, zap.NewNop())
	b, seats := paidBooking()

	require.NoError(t, repo.SaveBooking(context.Background(), b, seats))

	require.Len(t, tx.execs, 3)
	assert.Equal(t, "ord-1", tx.execs[0].args[1])
	assert.Equal(t, "A-1", tx.execs[1].args[3])
	assert.Equal(t, "A-2", tx.execs[2].args[3])
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestBookingRepository_SaveBookingIsIdempotent(t *testing.T) {
	tx := &fakeTx{tags: []string{"INSERT 0 0"}}
	repo := NewBookingRepository(&fakeDB{tx: tx}, zap.NewNop())
	b, seats := paidBooking()

	require.NoError(t, repo.SaveBooking(context.Background(), b, seats))
	assert.Len(t, tx.execs, 1)
	assert.False(t, tx.committed)
}

func TestBookingRepository_SaveBookingRollsBack(t *testing.T) {
	tx := &fakeTx{failOnExec: 3}
	repo := NewBookingRepository(&fakeDB{tx: tx}, zap.NewNop())
	b, seats := paidBooking()

	err := repo.SaveBooking(context.Background(), b, seats)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A-2")
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}
