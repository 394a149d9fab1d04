package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return &Store{db: db}, mock
}

var dayColumnNames = []string{
	"id", "store_id", "business_date", "status", "opening_cash", "opening_bank",
	"closing_cash", "actual_bank", "expected_cash", "expected_bank", "cash_variance", "bank_variance",
	"close_notes", "opened_at", "opened_by", "closed_at", "closed_by",
	"reopened_at", "reopened_by", "reopen_notes", "reopen_count",
}

func TestCreateDayMapsUniqueViolationToConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO day_operations").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "day_operations_one_active_per_store"})

	_, err := s.CreateDay(context.Background(), domain.DayOperation{
		StoreID:      "main-store",
		BusinessDate: "2024-05-02",
		OpeningCash:  decimal.NewFromInt(100),
		OpenedBy:     "cashier",
	})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDayRejectsMissingStore(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.CreateDay(context.Background(), domain.DayOperation{BusinessDate: "2024-05-02"})
	assert.ErrorIs(t, err, store.ErrInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDayScansNullableSnapshot(t *testing.T) {
	s, mock := newMockStore(t)
	openedAt := time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM day_operations WHERE id = \\$1").
		WithArgs("day-1").
		WillReturnRows(sqlmock.NewRows(dayColumnNames).AddRow(
			"day-1", "main-store", "2024-05-02", "open", "500.00", "1200.50",
			nil, nil, nil, nil, nil, nil,
			"", openedAt, "cashier", nil, "",
			nil, "", "", int64(0),
		))

	day, err := s.GetDay(context.Background(), "day-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DayStatusOpen, day.Status)
	assert.True(t, day.OpeningBank.Equal(decimal.RequireFromString("1200.5")))
	assert.Nil(t, day.ClosingCash)
	assert.Nil(t, day.ClosedAt)
	assert.True(t, day.IsActive())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDayNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM day_operations WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(dayColumnNames))

	_, err := s.GetDay(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseDayRefusesClosedDay(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM day_operations WHERE id = $1 FOR UPDATE")).
		WithArgs("day-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("closed"))
	mock.ExpectRollback()

	_, err := s.CloseDay(context.Background(), "day-1", domain.DayClosing{ClosedBy: "cashier"})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReopenDayMapsActiveIndexViolation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM day_operations WHERE id = $1 FOR UPDATE")).
		WithArgs("day-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("closed"))
	mock.ExpectQuery("UPDATE day_operations").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := s.ReopenDay(context.Background(), "day-1", domain.DayReopening{Note: "late refund", ReopenedBy: "admin"})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReopenDayUnknownDay(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM day_operations WHERE id = $1 FOR UPDATE")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err := s.ReopenDay(context.Background(), "nope", domain.DayReopening{ReopenedBy: "admin"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCashMovementRefusesClosedDay(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM day_operations WHERE id = $1 FOR UPDATE")).
		WithArgs("day-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("closed"))
	mock.ExpectRollback()

	_, err := s.CreateCashMovement(context.Background(), domain.CashMovement{
		StoreID: "main-store",
		DayID:   "day-1",
		Kind:    domain.MovementOwnerWithdrawal,
		Channel: domain.ChannelCash,
		Amount:  decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCashMovementInsertsUnderDayLock(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM day_operations WHERE id = $1 FOR UPDATE")).
		WithArgs("day-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("reopened"))
	mock.ExpectExec("INSERT INTO cash_movements").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	saved, err := s.CreateCashMovement(context.Background(), domain.CashMovement{
		StoreID:    "main-store",
		DayID:      "day-1",
		Kind:       domain.MovementExpense,
		Channel:    domain.ChannelCash,
		Amount:     decimal.NewFromInt(25),
		OccurredAt: time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
