package domain

import "github.com/shopspring/decimal"

// SalesClassification is the per-channel breakdown of a set of sales.
type SalesClassification struct {
	CashSales   decimal.Decimal `json:"cash_sales"`
	CardSales   decimal.Decimal `json:"card_sales"`
	CreditSales decimal.Decimal `json:"credit_sales"`
	SplitSales  decimal.Decimal `json:"split_sales"`
	TotalSales  decimal.Decimal `json:"total_sales"`
	CashCount   int             `json:"cash_count"`
	CardCount   int             `json:"card_count"`
	CreditCount int             `json:"credit_count"`
	SplitCount  int             `json:"split_count"`
	TotalCount  int             `json:"total_count"`
	// Skipped counts records whose amount or channel could not be read.
	Skipped int `json:"skipped"`
}

// CreditClassification splits credit-account movements by type and channel.
type CreditClassification struct {
	CashPayments  decimal.Decimal `json:"cash_payments"`
	CardPayments  decimal.Decimal `json:"card_payments"`
	CashRefunds   decimal.Decimal `json:"cash_refunds"`
	CardRefunds   decimal.Decimal `json:"card_refunds"`
	TotalPayments decimal.Decimal `json:"total_payments"`
	TotalRefunds  decimal.Decimal `json:"total_refunds"`
	Skipped       int             `json:"skipped"`
}

// ReconciliationInput carries every term of the expected-balance formulas.
// Absent terms are zero.
type ReconciliationInput struct {
	OpeningCash          decimal.Decimal      `json:"opening_cash"`
	OpeningBank          decimal.Decimal      `json:"opening_bank"`
	Sales                SalesClassification  `json:"sales"`
	Credit               CreditClassification `json:"credit"`
	SupplierCashPayments decimal.Decimal      `json:"supplier_cash_payments"`
	OwnerCashDeposits    decimal.Decimal      `json:"owner_cash_deposits"`
	OwnerCashWithdrawals decimal.Decimal      `json:"owner_cash_withdrawals"`
	OwnerBankDeposits    decimal.Decimal      `json:"owner_bank_deposits"`
	OwnerBankWithdrawals decimal.Decimal      `json:"owner_bank_withdrawals"`
	ExpenseCashPayments  decimal.Decimal      `json:"expense_cash_payments"`
	Transfer             decimal.Decimal      `json:"transfer"`
	BankWithdrawals      decimal.Decimal      `json:"bank_withdrawals"`
}

type Reconciliation struct {
	ReconciliationInput
	ExpectedCash decimal.Decimal `json:"expected_cash"`
	ExpectedBank decimal.Decimal `json:"expected_bank"`
}

const (
	VarianceMatch    = "match"
	VarianceOverage  = "overage"
	VarianceShortage = "shortage"
)

type Variance struct {
	CashVariance decimal.Decimal `json:"cash_variance"`
	BankVariance decimal.Decimal `json:"bank_variance"`
	CashStatus   string          `json:"cash_status"`
	BankStatus   string          `json:"bank_status"`
}
