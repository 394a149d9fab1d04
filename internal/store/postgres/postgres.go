package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/store"
	"kasirharian/backend/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// EnsureSchema creates missing tables and indexes. Every statement is
// idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const dayColumns = `
	id, store_id, business_date::text, status, opening_cash, opening_bank,
	closing_cash, actual_bank, expected_cash, expected_bank, cash_variance, bank_variance,
	close_notes, opened_at, opened_by, closed_at, closed_by,
	reopened_at, reopened_by, reopen_notes, reopen_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDay(row rowScanner) (*domain.DayOperation, error) {
	var day domain.DayOperation
	var closingCash, actualBank, expectedCash, expectedBank, cashVariance, bankVariance decimal.NullDecimal
	var closedAt, reopenedAt sql.NullTime
	err := row.Scan(
		&day.ID,
		&day.StoreID,
		&day.BusinessDate,
		&day.Status,
		&day.OpeningCash,
		&day.OpeningBank,
		&closingCash,
		&actualBank,
		&expectedCash,
		&expectedBank,
		&cashVariance,
		&bankVariance,
		&day.CloseNotes,
		&day.OpenedAt,
		&day.OpenedBy,
		&closedAt,
		&day.ClosedBy,
		&reopenedAt,
		&day.ReopenedBy,
		&day.ReopenNotes,
		&day.ReopenCount,
	)
	if err != nil {
		return nil, err
	}
	day.OpenedAt = day.OpenedAt.UTC()
	day.ClosingCash = fromNull(closingCash)
	day.ActualBank = fromNull(actualBank)
	day.ExpectedCash = fromNull(expectedCash)
	day.ExpectedBank = fromNull(expectedBank)
	day.CashVariance = fromNull(cashVariance)
	day.BankVariance = fromNull(bankVariance)
	day.ClosedAt = fromNullTime(closedAt)
	day.ReopenedAt = fromNullTime(reopenedAt)
	return &day, nil
}

func (s *Store) CreateDay(ctx context.Context, day domain.DayOperation) (*domain.DayOperation, error) {
	if strings.TrimSpace(day.StoreID) == "" || strings.TrimSpace(day.BusinessDate) == "" {
		return nil, store.ErrInvalid
	}
	if day.ID == "" {
		day.ID = xid.New("day")
	}
	if day.OpenedAt.IsZero() {
		day.OpenedAt = time.Now().UTC()
	}

	// Both the (store_id, business_date) key and the partial index on active
	// days surface as unique violations.
	created, err := scanDay(s.db.QueryRowContext(ctx, `
		INSERT INTO day_operations (
			id, store_id, business_date, status, opening_cash, opening_bank, opened_at, opened_by
		)
		VALUES ($1,$2,$3::date,'open',$4,$5,$6,$7)
		RETURNING `+dayColumns,
		day.ID, day.StoreID, day.BusinessDate, day.OpeningCash, day.OpeningBank, day.OpenedAt, day.OpenedBy,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return created, nil
}

func (s *Store) GetDay(ctx context.Context, id string) (*domain.DayOperation, error) {
	day, err := scanDay(s.db.QueryRowContext(ctx, `SELECT `+dayColumns+` FROM day_operations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return day, nil
}

func (s *Store) GetDayByDate(ctx context.Context, storeID string, businessDate string) (*domain.DayOperation, error) {
	day, err := scanDay(s.db.QueryRowContext(ctx, `
		SELECT `+dayColumns+`
		FROM day_operations
		WHERE store_id = $1 AND business_date = $2::date
	`, storeID, businessDate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return day, nil
}

func (s *Store) GetActiveDay(ctx context.Context, storeID string) (*domain.DayOperation, error) {
	day, err := scanDay(s.db.QueryRowContext(ctx, `
		SELECT `+dayColumns+`
		FROM day_operations
		WHERE store_id = $1 AND status IN ('open','reopened')
	`, storeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return day, nil
}

func (s *Store) GetLastClosedDay(ctx context.Context, storeID string, before string) (*domain.DayOperation, error) {
	query := `
		SELECT ` + dayColumns + `
		FROM day_operations
		WHERE store_id = $1 AND status = 'closed'`
	args := []any{storeID}
	if before != "" {
		query += ` AND business_date < $2::date`
		args = append(args, before)
	}
	query += ` ORDER BY business_date DESC LIMIT 1`

	day, err := scanDay(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return day, nil
}

func (s *Store) ListDays(ctx context.Context, storeID string, limit int) ([]domain.DayOperation, error) {
	if limit < 1 {
		limit = 30
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+dayColumns+`
		FROM day_operations
		WHERE store_id = $1
		ORDER BY business_date DESC
		LIMIT $2
	`, storeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]domain.DayOperation, 0, limit)
	for rows.Next() {
		day, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, *day)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

// CloseDay locks the row, then compare-and-sets the status so a concurrent
// close of the same day fails with ErrConflict instead of overwriting.
func (s *Store) CloseDay(ctx context.Context, id string, closing domain.DayClosing) (*domain.DayOperation, error) {
	if closing.ClosedAt.IsZero() {
		closing.ClosedAt = time.Now().UTC()
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	if err := lockDayStatus(ctx, dbTx, id, domain.DayStatusOpen, domain.DayStatusReopened); err != nil {
		return nil, err
	}

	closed, err := scanDay(dbTx.QueryRowContext(ctx, `
		UPDATE day_operations
		SET status = 'closed',
			closing_cash = $2,
			actual_bank = $3,
			expected_cash = $4,
			expected_bank = $5,
			cash_variance = $6,
			bank_variance = $7,
			close_notes = $8,
			closed_at = $9,
			closed_by = $10
		WHERE id = $1 AND status IN ('open','reopened')
		RETURNING `+dayColumns,
		id,
		closing.ClosingCash,
		closing.ActualBank,
		closing.ExpectedCash,
		closing.ExpectedBank,
		closing.CashVariance,
		closing.BankVariance,
		closing.Notes,
		closing.ClosedAt,
		closing.ClosedBy,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, err
	}
	return closed, nil
}

// ReopenDay relies on the partial unique index to refuse a reopen while
// another day of the store is active.
func (s *Store) ReopenDay(ctx context.Context, id string, reopening domain.DayReopening) (*domain.DayOperation, error) {
	if reopening.ReopenedAt.IsZero() {
		reopening.ReopenedAt = time.Now().UTC()
	}
	note := strings.TrimSpace(reopening.Note)

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	if err := lockDayStatus(ctx, dbTx, id, domain.DayStatusClosed); err != nil {
		return nil, err
	}

	reopened, err := scanDay(dbTx.QueryRowContext(ctx, `
		UPDATE day_operations
		SET status = 'reopened',
			reopened_at = $2,
			reopened_by = $3,
			reopen_notes = CASE
				WHEN $4 = '' THEN reopen_notes
				WHEN reopen_notes = '' THEN $4
				ELSE reopen_notes || E'\n' || $4
			END,
			reopen_count = reopen_count + 1
		WHERE id = $1 AND status = 'closed'
		RETURNING `+dayColumns,
		id, reopening.ReopenedAt, reopening.ReopenedBy, note,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, err
	}
	return reopened, nil
}

func lockDayStatus(ctx context.Context, dbTx *sql.Tx, id string, allowed ...domain.DayStatus) error {
	var status domain.DayStatus
	err := dbTx.QueryRowContext(ctx, `SELECT status FROM day_operations WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	for _, want := range allowed {
		if status == want {
			return nil
		}
	}
	return store.ErrConflict
}

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if strings.TrimSpace(tx.StoreID) == "" {
		return nil, store.ErrInvalid
	}
	if tx.ID == "" {
		tx.ID = xid.New("trx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.Status == "" {
		tx.Status = domain.TxStatusCompleted
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales_transactions (id, store_id, total, payment_method, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, tx.ID, tx.StoreID, tx.Total, tx.PaymentMethod, tx.Status, tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := tx
	return &saved, nil
}

func (s *Store) ListTransactions(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, total, payment_method, status, created_at
		FROM sales_transactions
		WHERE store_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC
	`, storeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0, 128)
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.StoreID, &tx.Total, &tx.PaymentMethod, &tx.Status, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Store) CreateCreditTransaction(ctx context.Context, tx domain.CreditTransaction) (*domain.CreditTransaction, error) {
	if strings.TrimSpace(tx.StoreID) == "" {
		return nil, store.ErrInvalid
	}
	if tx.ID == "" {
		tx.ID = xid.New("ctx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_transactions (id, store_id, customer_id, type, payment_method, amount, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, tx.ID, tx.StoreID, nullIfEmpty(tx.CustomerID), tx.Type, tx.PaymentMethod, tx.Amount, tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := tx
	return &saved, nil
}

func (s *Store) ListCreditTransactions(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.CreditTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, COALESCE(customer_id, ''), type, payment_method, amount, created_at
		FROM credit_transactions
		WHERE store_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC
	`, storeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.CreditTransaction, 0, 32)
	for rows.Next() {
		var tx domain.CreditTransaction
		if err := rows.Scan(&tx.ID, &tx.StoreID, &tx.CustomerID, &tx.Type, &tx.PaymentMethod, &tx.Amount, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Store) CreateSupplierPayment(ctx context.Context, payment domain.SupplierPayment) (*domain.SupplierPayment, error) {
	if strings.TrimSpace(payment.StoreID) == "" || strings.TrimSpace(payment.PaymentDate) == "" {
		return nil, store.ErrInvalid
	}
	if payment.ID == "" {
		payment.ID = xid.New("spay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO supplier_payments (id, store_id, supplier_id, amount, payment_method, payment_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6::date,$7)
	`, payment.ID, payment.StoreID, nullIfEmpty(payment.SupplierID), payment.Amount, payment.PaymentMethod, payment.PaymentDate, payment.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := payment
	return &saved, nil
}

func (s *Store) ListSupplierPayments(ctx context.Context, storeID string, paymentDate string) ([]domain.SupplierPayment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, COALESCE(supplier_id, ''), amount, payment_method, payment_date::text, created_at
		FROM supplier_payments
		WHERE store_id = $1 AND payment_date = $2::date
		ORDER BY created_at ASC
	`, storeID, paymentDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.SupplierPayment, 0, 16)
	for rows.Next() {
		var p domain.SupplierPayment
		if err := rows.Scan(&p.ID, &p.StoreID, &p.SupplierID, &p.Amount, &p.PaymentMethod, &p.PaymentDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

// CreateCashMovement refuses a day that is no longer open or reopened.
func (s *Store) CreateCashMovement(ctx context.Context, movement domain.CashMovement) (*domain.CashMovement, error) {
	if strings.TrimSpace(movement.StoreID) == "" || strings.TrimSpace(movement.DayID) == "" || strings.TrimSpace(movement.Kind) == "" {
		return nil, store.ErrInvalid
	}
	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if movement.OccurredAt.IsZero() {
		movement.OccurredAt = time.Now().UTC()
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	// the day row lock serialises this insert against CloseDay
	if err := lockDayStatus(ctx, dbTx, movement.DayID, domain.DayStatusOpen, domain.DayStatusReopened); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO cash_movements (id, store_id, day_id, kind, channel, amount, note, recorded_by, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, movement.ID, movement.StoreID, movement.DayID, movement.Kind, movement.Channel,
		movement.Amount, movement.Note, movement.RecordedBy, movement.OccurredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	if err := dbTx.Commit(); err != nil {
		return nil, err
	}
	saved := movement
	return &saved, nil
}

func (s *Store) ListCashMovements(ctx context.Context, dayID string) ([]domain.CashMovement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, day_id, kind, channel, amount, note, recorded_by, occurred_at
		FROM cash_movements
		WHERE day_id = $1
		ORDER BY occurred_at ASC
	`, dayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.CashMovement, 0, 16)
	for rows.Next() {
		var m domain.CashMovement
		if err := rows.Scan(&m.ID, &m.StoreID, &m.DayID, &m.Kind, &m.Channel, &m.Amount, &m.Note, &m.RecordedBy, &m.OccurredAt); err != nil {
			return nil, err
		}
		m.OccurredAt = m.OccurredAt.UTC()
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *Store) ListVATConfigs(ctx context.Context, storeID string) ([]domain.VATConfiguration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, category, rate, active, updated_at
		FROM vat_configurations
		WHERE store_id = $1
		ORDER BY category ASC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := make([]domain.VATConfiguration, 0, 16)
	for rows.Next() {
		var cfg domain.VATConfiguration
		if err := rows.Scan(&cfg.ID, &cfg.StoreID, &cfg.Category, &cfg.Rate, &cfg.Active, &cfg.UpdatedAt); err != nil {
			return nil, err
		}
		cfg.UpdatedAt = cfg.UpdatedAt.UTC()
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return configs, nil
}

func (s *Store) UpsertVATConfig(ctx context.Context, cfg domain.VATConfiguration) (*domain.VATConfiguration, error) {
	cfg.Category = strings.TrimSpace(cfg.Category)
	if strings.TrimSpace(cfg.StoreID) == "" || cfg.Category == "" {
		return nil, store.ErrInvalid
	}
	if cfg.ID == "" {
		cfg.ID = xid.New("vat")
	}
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = time.Now().UTC()
	}

	var saved domain.VATConfiguration
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO vat_configurations (id, store_id, category, rate, active, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (store_id, lower(category))
		DO UPDATE SET rate = EXCLUDED.rate, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at
		RETURNING id, store_id, category, rate, active, updated_at
	`, cfg.ID, cfg.StoreID, cfg.Category, cfg.Rate, cfg.Active, cfg.UpdatedAt).Scan(
		&saved.ID, &saved.StoreID, &saved.Category, &saved.Rate, &saved.Active, &saved.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	saved.UpdatedAt = saved.UpdatedAt.UTC()
	return &saved, nil
}

func (s *Store) GetStoreSettings(ctx context.Context, storeID string) (*domain.StoreSettings, error) {
	var settings domain.StoreSettings
	var rate decimal.NullDecimal
	err := s.db.QueryRowContext(ctx, `
		SELECT store_id, default_vat_rate, updated_at
		FROM store_settings
		WHERE store_id = $1
	`, storeID).Scan(&settings.StoreID, &rate, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	settings.DefaultVATRate = fromNull(rate)
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return &settings, nil
}

func (s *Store) UpsertStoreSettings(ctx context.Context, settings domain.StoreSettings) (*domain.StoreSettings, error) {
	if strings.TrimSpace(settings.StoreID) == "" {
		return nil, store.ErrInvalid
	}
	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_settings (store_id, default_vat_rate, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (store_id)
		DO UPDATE SET default_vat_rate = EXCLUDED.default_vat_rate, updated_at = EXCLUDED.updated_at
	`, settings.StoreID, toNull(settings.DefaultVATRate), settings.UpdatedAt)
	if err != nil {
		return nil, err
	}
	saved := settings
	return &saved, nil
}

const promotionColumns = `
	id, store_id, name, discount_type, value, min_order_amount, max_discount,
	buy_quantity, get_quantity, active, created_at`

func scanPromotion(row rowScanner) (*domain.Promotion, error) {
	var promo domain.Promotion
	var minOrder, maxDiscount decimal.NullDecimal
	if err := row.Scan(
		&promo.ID, &promo.StoreID, &promo.Name, &promo.DiscountType, &promo.Value,
		&minOrder, &maxDiscount, &promo.BuyQuantity, &promo.GetQuantity, &promo.Active, &promo.CreatedAt,
	); err != nil {
		return nil, err
	}
	promo.MinOrderAmount = fromNull(minOrder)
	promo.MaxDiscount = fromNull(maxDiscount)
	promo.CreatedAt = promo.CreatedAt.UTC()
	return &promo, nil
}

func (s *Store) CreatePromotion(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error) {
	if strings.TrimSpace(promo.Name) == "" || strings.TrimSpace(promo.StoreID) == "" {
		return nil, store.ErrInvalid
	}
	if promo.ID == "" {
		promo.ID = xid.New("promo")
	}
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO promotions (`+promotionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, promo.ID, promo.StoreID, promo.Name, promo.DiscountType, promo.Value,
		toNull(promo.MinOrderAmount), toNull(promo.MaxDiscount),
		promo.BuyQuantity, promo.GetQuantity, promo.Active, promo.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := promo
	return &saved, nil
}

func (s *Store) GetPromotion(ctx context.Context, id string) (*domain.Promotion, error) {
	promo, err := scanPromotion(s.db.QueryRowContext(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return promo, nil
}

func (s *Store) ListPromotions(ctx context.Context, storeID string, activeOnly bool) ([]domain.Promotion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+promotionColumns+`
		FROM promotions
		WHERE store_id = $1 AND ($2 = false OR active = true)
		ORDER BY created_at DESC
	`, storeID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promos := make([]domain.Promotion, 0, 16)
	for rows.Next() {
		promo, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promos = append(promos, *promo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return promos, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.StoreID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE store_id = $1
			AND created_at >= $2
			AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4
	`, storeID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.StoreID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalid
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalid
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func fromNull(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func toNull(p *decimal.Decimal) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*p)
}

func fromNullTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}
