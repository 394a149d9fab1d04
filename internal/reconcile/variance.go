package reconcile

import (
	"github.com/shopspring/decimal"

	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/money"
)

// CashVariance is positive on overage and negative on shortage.
func CashVariance(actual, expected decimal.Decimal) decimal.Decimal {
	return actual.Sub(expected)
}

func BankVariance(actual, expected decimal.Decimal) decimal.Decimal {
	return actual.Sub(expected)
}

// Classify names a variance; anything closer to zero than one cent is a match.
func Classify(variance decimal.Decimal) string {
	switch {
	case variance.Abs().LessThan(money.Epsilon):
		return domain.VarianceMatch
	case variance.IsPositive():
		return domain.VarianceOverage
	default:
		return domain.VarianceShortage
	}
}

// Compare checks counted amounts against a reconciliation without
// rounding beyond what the reconciliation already applied.
func Compare(actualCash, actualBank decimal.Decimal, rec domain.Reconciliation) domain.Variance {
	cash := CashVariance(actualCash, rec.ExpectedCash)
	bank := BankVariance(actualBank, rec.ExpectedBank)
	return domain.Variance{
		CashVariance: cash,
		BankVariance: bank,
		CashStatus:   Classify(cash),
		BankStatus:   Classify(bank),
	}
}
