package store

import (
	"context"
	"errors"
	"time"

	"kasirharian/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would break a state rule, such as
	// a second active day for a store or a transition from the wrong status.
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid record")
)

type DayRepository interface {
	// CreateDay inserts an open day. It fails with ErrConflict when the store
	// already has an active day or a day for the same business date.
	CreateDay(ctx context.Context, day domain.DayOperation) (*domain.DayOperation, error)
	GetDay(ctx context.Context, id string) (*domain.DayOperation, error)
	GetDayByDate(ctx context.Context, storeID string, businessDate string) (*domain.DayOperation, error)
	GetActiveDay(ctx context.Context, storeID string) (*domain.DayOperation, error)
	// GetLastClosedDay returns the closed day with the latest business date
	// strictly before the given date.
	GetLastClosedDay(ctx context.Context, storeID string, before string) (*domain.DayOperation, error)
	ListDays(ctx context.Context, storeID string, limit int) ([]domain.DayOperation, error)
	// CloseDay writes the closing snapshot only if the day is still active.
	CloseDay(ctx context.Context, id string, closing domain.DayClosing) (*domain.DayOperation, error)
	// ReopenDay flips a closed day back to reopened only if it is closed and
	// no other day of the store is active.
	ReopenDay(ctx context.Context, id string, reopening domain.DayReopening) (*domain.DayOperation, error)
}

type LedgerRepository interface {
	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.Transaction, error)
	CreateCreditTransaction(ctx context.Context, tx domain.CreditTransaction) (*domain.CreditTransaction, error)
	ListCreditTransactions(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.CreditTransaction, error)
	CreateSupplierPayment(ctx context.Context, payment domain.SupplierPayment) (*domain.SupplierPayment, error)
	ListSupplierPayments(ctx context.Context, storeID string, paymentDate string) ([]domain.SupplierPayment, error)
	CreateCashMovement(ctx context.Context, movement domain.CashMovement) (*domain.CashMovement, error)
	// ListCashMovements returns the movements recorded against a day.
	ListCashMovements(ctx context.Context, dayID string) ([]domain.CashMovement, error)
}

type PricingRepository interface {
	ListVATConfigs(ctx context.Context, storeID string) ([]domain.VATConfiguration, error)
	UpsertVATConfig(ctx context.Context, cfg domain.VATConfiguration) (*domain.VATConfiguration, error)
	GetStoreSettings(ctx context.Context, storeID string) (*domain.StoreSettings, error)
	UpsertStoreSettings(ctx context.Context, settings domain.StoreSettings) (*domain.StoreSettings, error)
	CreatePromotion(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error)
	GetPromotion(ctx context.Context, id string) (*domain.Promotion, error)
	ListPromotions(ctx context.Context, storeID string, activeOnly bool) ([]domain.Promotion, error)
}

type AuditRepository interface {
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type Repository interface {
	DayRepository
	LedgerRepository
	PricingRepository
	AuditRepository
	UserRepository
}
