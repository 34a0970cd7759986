package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

var seatCols = []string{
	"trip_id", "seat_id", "seat_number", "status", "holder_session",
	"lock_expires_at", "price_cents", "version", "created_at", "updated_at",
}

func newSeatRepoMock(t *testing.T) (*SeatRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSeatRepo(db), mock
}

func TestTryTransitionSuccessIncrementsVersion(t *testing.T) {
	repo, mock := newSeatRepoMock(t)
	expires := time.Now().UTC().Add(5 * time.Minute)

	mock.ExpectExec("UPDATE trip_seats").
		WithArgs("LOCKED", "sess-a", sqlmock.AnyArg(), int64(1), int64(7), "AVAILABLE", int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	newVersion, err := repo.TryTransition(context.Background(), 1, 7,
		model.SeatAvailable, model.SeatLocked, 0, "sess-a", &expires)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), newVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryTransitionVersionMismatchIsConflict(t *testing.T) {
	repo, mock := newSeatRepoMock(t)

	// Zero rows matched: the seat moved on since the caller's read.
	mock.ExpectExec("UPDATE trip_seats").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.TryTransition(context.Background(), 1, 7,
		model.SeatAvailable, model.SeatLocked, 3, "sess-a", nil)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryTransitionOutOfLockedClearsHolder(t *testing.T) {
	repo, mock := newSeatRepoMock(t)

	mock.ExpectExec("UPDATE trip_seats").
		WithArgs("AVAILABLE", nil, nil, int64(2), int64(4), "LOCKED", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	newVersion, err := repo.TryTransition(context.Background(), 2, 4,
		model.SeatLocked, model.SeatAvailable, 1, "", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), newVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotScansNullableColumns(t *testing.T) {
	repo, mock := newSeatRepoMock(t)
	now := time.Now().UTC()
	expires := now.Add(time.Minute)

	mock.ExpectQuery("SELECT (.+) FROM trip_seats WHERE trip_id").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow(9, 1, "1A", "AVAILABLE", nil, nil, 4500, 0, now, now).
			AddRow(9, 2, "1B", "LOCKED", "sess-x", expires, 4500, 3, now, now))

	seats, err := repo.Snapshot(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, seats, 2)

	assert.Equal(t, model.SeatAvailable, seats[0].Status)
	assert.Nil(t, seats[0].HolderSession)
	assert.Nil(t, seats[0].LockExpiresAt)

	assert.Equal(t, model.SeatLocked, seats[1].Status)
	require.NotNil(t, seats[1].HolderSession)
	assert.Equal(t, "sess-x", *seats[1].HolderSession)
	require.NotNil(t, seats[1].LockExpiresAt)
	assert.Equal(t, uint64(3), seats[1].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnknownSeatReturnsNotFound(t *testing.T) {
	repo, mock := newSeatRepoMock(t)

	mock.ExpectQuery("SELECT (.+) FROM trip_seats WHERE trip_id").
		WithArgs(int64(1), int64(999)).
		WillReturnRows(sqlmock.NewRows(seatCols))

	_, err := repo.Get(context.Background(), 1, 999)
	assert.ErrorIs(t, err, ErrSeatNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListExpiredLocksQueriesLockedOnly(t *testing.T) {
	repo, mock := newSeatRepoMock(t)
	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	mock.ExpectQuery("SELECT (.+) FROM trip_seats WHERE status").
		WithArgs("LOCKED", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow(1, 5, "2A", "LOCKED", "sess-gone", past, 4500, 2, now, now))

	seats, err := repo.ListExpiredLocks(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, seats, 1)
	assert.Equal(t, uint64(5), seats[0].SeatID)
	assert.True(t, seats[0].LockLapsed(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLayoutInsertsAllSeatsAtVersionZero(t *testing.T) {
	repo, mock := newSeatRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO trip_seats").
		WithArgs(
			int64(3), int64(1), "1A", "AVAILABLE", int64(4500), int64(0),
			int64(3), int64(2), "1B", "AVAILABLE", int64(5000), int64(0),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := repo.DB().Begin()
	require.NoError(t, err)
	err = repo.CreateLayoutTx(context.Background(), tx, 3, []SeatSpec{
		{SeatNumber: "1A", PriceCents: 4500},
		{SeatNumber: "1B", PriceCents: 5000},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
