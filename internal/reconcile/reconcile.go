// Package reconcile projects expected cash and bank balances for a store-day
// and compares them against counted amounts.
package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"

	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/money"
)

// BuildInput classifies a store-day ledger into reconciliation terms.
// Supplier payments are taken only when paid in cash on businessDate.
func BuildInput(openingCash, openingBank decimal.Decimal, businessDate string, ledger domain.DayLedger) domain.ReconciliationInput {
	in := domain.ReconciliationInput{
		OpeningCash: openingCash,
		OpeningBank: openingBank,
		Sales:       money.ClassifySales(ledger.Transactions),
		Credit:      money.ClassifyCredit(ledger.CreditTransactions),
	}

	for _, payment := range ledger.SupplierPayments {
		if payment.PaymentDate != businessDate {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(payment.PaymentMethod), domain.PaymentCash) {
			continue
		}
		amount, _ := money.Readable(payment.Amount)
		in.SupplierCashPayments = in.SupplierCashPayments.Add(amount)
	}

	for _, mv := range ledger.CashMovements {
		bank := mv.Channel == domain.ChannelBank
		switch mv.Kind {
		case domain.MovementOwnerDeposit:
			if bank {
				in.OwnerBankDeposits = in.OwnerBankDeposits.Add(mv.Amount)
			} else {
				in.OwnerCashDeposits = in.OwnerCashDeposits.Add(mv.Amount)
			}
		case domain.MovementOwnerWithdrawal:
			if bank {
				in.OwnerBankWithdrawals = in.OwnerBankWithdrawals.Add(mv.Amount)
			} else {
				in.OwnerCashWithdrawals = in.OwnerCashWithdrawals.Add(mv.Amount)
			}
		case domain.MovementExpense:
			if bank {
				in.BankWithdrawals = in.BankWithdrawals.Add(mv.Amount)
			} else {
				in.ExpenseCashPayments = in.ExpenseCashPayments.Add(mv.Amount)
			}
		case domain.MovementTransfer:
			in.Transfer = in.Transfer.Add(mv.Amount)
		case domain.MovementBankWithdrawal:
			in.BankWithdrawals = in.BankWithdrawals.Add(mv.Amount)
		}
	}

	return in
}

// ExpectedCash rounds once, after every term has been applied.
func ExpectedCash(in domain.ReconciliationInput) decimal.Decimal {
	total := in.OpeningCash.
		Add(in.Sales.CashSales).
		Add(in.OwnerCashDeposits).
		Add(in.Credit.CashPayments).
		Sub(in.OwnerCashWithdrawals).
		Sub(in.SupplierCashPayments).
		Sub(in.ExpenseCashPayments).
		Sub(in.Credit.CashRefunds).
		Sub(in.Transfer)
	return money.Round2(total)
}

// ExpectedBank rounds once, after every term has been applied.
func ExpectedBank(in domain.ReconciliationInput) decimal.Decimal {
	total := in.OpeningBank.
		Add(in.Sales.CardSales).
		Add(in.Credit.CardPayments).
		Add(in.OwnerBankDeposits).
		Sub(in.OwnerBankWithdrawals).
		Add(in.Transfer).
		Sub(in.BankWithdrawals)
	return money.Round2(total)
}

func Compute(in domain.ReconciliationInput) domain.Reconciliation {
	return domain.Reconciliation{
		ReconciliationInput: in,
		ExpectedCash:        ExpectedCash(in),
		ExpectedBank:        ExpectedBank(in),
	}
}
