package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"kasirharian/backend/internal/domain"
)

func amt(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func sale(total, method string) domain.Transaction {
	return domain.Transaction{Total: amt(total), PaymentMethod: method, Status: domain.TxStatusCompleted}
}

func TestClassifySalesByChannel(t *testing.T) {
	got := ClassifySales([]domain.Transaction{
		sale("100", domain.PaymentCash),
		sale("50", domain.PaymentCard),
		sale("75", domain.PaymentCredit),
		sale("25", domain.PaymentSplit),
		sale("30", domain.PaymentCash),
	})

	assert.Equal(t, "280", got.TotalSales.String())
	assert.Equal(t, "130", got.CashSales.String())
	assert.Equal(t, "50", got.CardSales.String())
	assert.Equal(t, "75", got.CreditSales.String())
	assert.Equal(t, "25", got.SplitSales.String())
	assert.Equal(t, 2, got.CashCount)
	assert.Equal(t, 5, got.TotalCount)
	assert.Zero(t, got.Skipped)
}

func TestClassifySalesTreatsUnreadableAmountAsZero(t *testing.T) {
	got := ClassifySales([]domain.Transaction{
		sale("10.005", domain.PaymentCash),
		{PaymentMethod: domain.PaymentCash, Status: domain.TxStatusCompleted},
		sale("-4", domain.PaymentCard),
		sale("12", "voucher"),
		{Total: amt("99"), PaymentMethod: domain.PaymentCash, Status: domain.TxStatusVoided},
	})

	assert.True(t, got.CashSales.Equal(decimal.RequireFromString("10.005")), "channel sums are not rounded")
	assert.True(t, got.CardSales.IsZero())
	assert.Equal(t, 2, got.CashCount)
	assert.Equal(t, 1, got.CardCount)
	assert.Equal(t, 3, got.Skipped)
	assert.True(t, got.TotalSales.Equal(got.CashSales.Add(got.CardSales).Add(got.CreditSales).Add(got.SplitSales)))
}

func TestClassifySalesEmpty(t *testing.T) {
	got := ClassifySales(nil)
	assert.True(t, got.TotalSales.IsZero())
	assert.Zero(t, got.TotalCount)
}

func TestClassifyCredit(t *testing.T) {
	got := ClassifyCredit([]domain.CreditTransaction{
		{Type: domain.CreditTypePayment, PaymentMethod: domain.PaymentCash, Amount: amt("20")},
		{Type: domain.CreditTypePayment, PaymentMethod: domain.PaymentCard, Amount: amt("15")},
		{Type: domain.CreditTypeRefund, PaymentMethod: domain.PaymentCash, Amount: amt("5")},
		{Type: domain.CreditTypeRefund, PaymentMethod: "transfer", Amount: amt("7")},
		{Type: domain.CreditTypePayment, PaymentMethod: domain.PaymentCash},
	})

	assert.Equal(t, "35", got.TotalPayments.String())
	assert.Equal(t, "20", got.CashPayments.String())
	assert.Equal(t, "15", got.CardPayments.String())
	assert.Equal(t, "5", got.CashRefunds.String())
	assert.Equal(t, "5", got.TotalRefunds.String())
	assert.Equal(t, 2, got.Skipped)
}

