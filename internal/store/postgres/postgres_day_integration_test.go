package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("POSDAY_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set POSDAY_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestConcurrentCreateDayKeepsOneActive(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	storeID := fmt.Sprintf("store-it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM day_operations WHERE store_id = $1`, storeID)
	})

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CreateDay(ctx, domain.DayOperation{
				StoreID:      storeID,
				BusinessDate: time.Date(2024, 5, 1+i, 0, 0, 0, 0, time.UTC).Format(domain.DateLayout),
				OpeningCash:  decimal.NewFromInt(100),
				OpenedBy:     "cashier",
			})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, errors.Is(err, store.ErrConflict), err)
	}
	assert.Equal(t, 1, created)
}

func TestCloseAndReopenDay(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	storeID := fmt.Sprintf("store-it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM day_operations WHERE store_id = $1`, storeID)
	})

	day, err := s.CreateDay(ctx, domain.DayOperation{
		StoreID:      storeID,
		BusinessDate: "2024-05-01",
		OpeningCash:  decimal.RequireFromString("500.00"),
		OpenedBy:     "cashier",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", day.BusinessDate)
	assert.Equal(t, domain.DayStatusOpen, day.Status)

	closed, err := s.CloseDay(ctx, day.ID, domain.DayClosing{
		ClosingCash:  decimal.RequireFromString("640"),
		ExpectedCash: decimal.RequireFromString("635"),
		CashVariance: decimal.RequireFromString("5"),
		ClosedBy:     "cashier",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DayStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosingCash)
	assert.True(t, closed.ClosingCash.Equal(decimal.NewFromInt(640)))

	_, err = s.CloseDay(ctx, day.ID, domain.DayClosing{ClosedBy: "cashier"})
	assert.ErrorIs(t, err, store.ErrConflict)

	next, err := s.CreateDay(ctx, domain.DayOperation{StoreID: storeID, BusinessDate: "2024-05-02", OpenedBy: "cashier"})
	require.NoError(t, err)

	_, err = s.ReopenDay(ctx, day.ID, domain.DayReopening{Note: "late refund", ReopenedBy: "admin"})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.CloseDay(ctx, next.ID, domain.DayClosing{ClosedBy: "cashier"})
	require.NoError(t, err)

	reopened, err := s.ReopenDay(ctx, day.ID, domain.DayReopening{Note: "late refund", ReopenedBy: "admin"})
	require.NoError(t, err)
	assert.Equal(t, domain.DayStatusReopened, reopened.Status)
	assert.Equal(t, "late refund", reopened.ReopenNotes)
	assert.Equal(t, 1, reopened.ReopenCount)
	require.NotNil(t, reopened.ClosingCash)

	last, err := s.GetLastClosedDay(ctx, storeID, "2024-05-03")
	require.NoError(t, err)
	assert.Equal(t, next.ID, last.ID)
}
