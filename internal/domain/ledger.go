package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentCredit = "credit"
	PaymentSplit  = "split"
)

const (
	TxStatusCompleted = "completed"
	TxStatusVoided    = "voided"
)

// Transaction is a completed sale. Total is nullable so that a corrupt
// record can be carried through classification as zero.
type Transaction struct {
	ID            string              `json:"id"`
	StoreID       string              `json:"store_id"`
	Total         decimal.NullDecimal `json:"total"`
	PaymentMethod string              `json:"payment_method"`
	Status        string              `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
}

const (
	CreditTypePayment = "payment"
	CreditTypeRefund  = "refund"
)

// CreditTransaction is a movement on a customer's credit account.
type CreditTransaction struct {
	ID            string              `json:"id"`
	StoreID       string              `json:"store_id"`
	CustomerID    string              `json:"customer_id,omitempty"`
	Type          string              `json:"type"`
	PaymentMethod string              `json:"payment_method"`
	Amount        decimal.NullDecimal `json:"amount"`
	CreatedAt     time.Time           `json:"created_at"`
}

type SupplierPayment struct {
	ID            string              `json:"id"`
	StoreID       string              `json:"store_id"`
	SupplierID    string              `json:"supplier_id,omitempty"`
	Amount        decimal.NullDecimal `json:"amount"`
	PaymentMethod string              `json:"payment_method"`
	PaymentDate   string              `json:"payment_date"`
	CreatedAt     time.Time           `json:"created_at"`
}

const (
	MovementOwnerDeposit    = "owner_deposit"
	MovementOwnerWithdrawal = "owner_withdrawal"
	MovementExpense         = "expense"
	MovementTransfer        = "transfer"
	MovementBankWithdrawal  = "bank_withdrawal"
)

const (
	ChannelCash = "cash"
	ChannelBank = "bank"
)

// CashMovement is a non-sale movement of money within a trading day.
// Amount is signed only for transfers: positive moves cash into the bank.
type CashMovement struct {
	ID         string          `json:"id"`
	StoreID    string          `json:"store_id"`
	DayID      string          `json:"day_id,omitempty"`
	Kind       string          `json:"kind"`
	Channel    string          `json:"channel"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
	RecordedBy string          `json:"recorded_by"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type TransactionRecordRequest struct {
	StoreID       string              `json:"store_id"`
	Total         decimal.NullDecimal `json:"total"`
	PaymentMethod string              `json:"payment_method"`
	Status        string              `json:"status,omitempty"`
	CreatedAt     *time.Time          `json:"created_at,omitempty"`
}

type CreditTransactionRecordRequest struct {
	StoreID       string              `json:"store_id"`
	CustomerID    string              `json:"customer_id,omitempty"`
	Type          string              `json:"type"`
	PaymentMethod string              `json:"payment_method"`
	Amount        decimal.NullDecimal `json:"amount"`
	CreatedAt     *time.Time          `json:"created_at,omitempty"`
}

type SupplierPaymentRecordRequest struct {
	StoreID       string              `json:"store_id"`
	SupplierID    string              `json:"supplier_id,omitempty"`
	Amount        decimal.NullDecimal `json:"amount"`
	PaymentMethod string              `json:"payment_method"`
	PaymentDate   string              `json:"payment_date,omitempty"`
}

type CashMovementRecordRequest struct {
	StoreID    string          `json:"store_id"`
	Kind       string          `json:"kind"`
	Channel    string          `json:"channel,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
	OccurredAt *time.Time      `json:"occurred_at,omitempty"`
}

// DayLedger holds every record that feeds a store-day reconciliation.
type DayLedger struct {
	Transactions       []Transaction
	CreditTransactions []CreditTransaction
	SupplierPayments   []SupplierPayment
	CashMovements      []CashMovement
}
