package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirharian/backend/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

func scenarioLedger() domain.DayLedger {
	tx := func(total, method string) domain.Transaction {
		return domain.Transaction{Total: nd(total), PaymentMethod: method, Status: domain.TxStatusCompleted}
	}
	return domain.DayLedger{
		Transactions: []domain.Transaction{
			tx("100", domain.PaymentCash),
			tx("50", domain.PaymentCard),
			tx("75", domain.PaymentCredit),
			tx("25", domain.PaymentSplit),
			tx("30", domain.PaymentCash),
		},
		CreditTransactions: []domain.CreditTransaction{
			{Type: domain.CreditTypePayment, PaymentMethod: domain.PaymentCash, Amount: nd("20")},
			{Type: domain.CreditTypePayment, PaymentMethod: domain.PaymentCard, Amount: nd("15")},
			{Type: domain.CreditTypeRefund, PaymentMethod: domain.PaymentCash, Amount: nd("5")},
		},
		SupplierPayments: []domain.SupplierPayment{
			{Amount: nd("10"), PaymentMethod: domain.PaymentCash, PaymentDate: "2024-05-02"},
			{Amount: nd("40"), PaymentMethod: "bank", PaymentDate: "2024-05-02"},
			{Amount: nd("60"), PaymentMethod: domain.PaymentCash, PaymentDate: "2024-05-01"},
		},
	}
}

func TestEndToEndDay(t *testing.T) {
	in := BuildInput(dec("500"), dec("0"), "2024-05-02", scenarioLedger())
	assert.True(t, in.Sales.TotalSales.Equal(dec("280")))
	assert.True(t, in.Sales.CashSales.Equal(dec("130")))
	assert.True(t, in.Credit.TotalPayments.Equal(dec("35")))
	assert.True(t, in.SupplierCashPayments.Equal(dec("10")))

	rec := Compute(in)
	assert.Equal(t, "635", rec.ExpectedCash.String())
	assert.Equal(t, "65", rec.ExpectedBank.String())

	v := Compare(dec("640.00"), dec("65"), rec)
	assert.True(t, v.CashVariance.Equal(dec("5")))
	assert.Equal(t, domain.VarianceOverage, v.CashStatus)
	assert.Equal(t, domain.VarianceMatch, v.BankStatus)
}

func TestMovementsFeedBothFormulas(t *testing.T) {
	ledger := domain.DayLedger{CashMovements: []domain.CashMovement{
		{Kind: domain.MovementOwnerDeposit, Channel: domain.ChannelCash, Amount: dec("100")},
		{Kind: domain.MovementOwnerWithdrawal, Channel: domain.ChannelCash, Amount: dec("30")},
		{Kind: domain.MovementOwnerDeposit, Channel: domain.ChannelBank, Amount: dec("200")},
		{Kind: domain.MovementOwnerWithdrawal, Channel: domain.ChannelBank, Amount: dec("50")},
		{Kind: domain.MovementExpense, Channel: domain.ChannelCash, Amount: dec("12.5")},
		{Kind: domain.MovementExpense, Channel: domain.ChannelBank, Amount: dec("7.5")},
		{Kind: domain.MovementTransfer, Amount: dec("80")},
		{Kind: domain.MovementTransfer, Amount: dec("-20")},
		{Kind: domain.MovementBankWithdrawal, Channel: domain.ChannelBank, Amount: dec("10")},
	}}

	rec := Compute(BuildInput(dec("100"), dec("1000"), "2024-05-02", ledger))
	require.True(t, rec.Transfer.Equal(dec("60")))
	require.True(t, rec.BankWithdrawals.Equal(dec("17.5")))
	// 100 + 100 - 30 - 12.5 - 60
	assert.True(t, rec.ExpectedCash.Equal(dec("97.5")), rec.ExpectedCash.String())
	// 1000 + 200 - 50 + 60 - 17.5
	assert.True(t, rec.ExpectedBank.Equal(dec("1192.5")), rec.ExpectedBank.String())
}

func TestExpectedCashRoundsOnce(t *testing.T) {
	in := domain.ReconciliationInput{
		OpeningCash:       dec("0.004"),
		OwnerCashDeposits: dec("0.004"),
	}
	assert.Equal(t, "0.01", ExpectedCash(in).StringFixed(2))
}

func TestSubCentLedgerRoundsOnlyAtTheEnd(t *testing.T) {
	ledger := domain.DayLedger{
		Transactions: []domain.Transaction{
			{Total: nd("0.004"), PaymentMethod: domain.PaymentCash, Status: domain.TxStatusCompleted},
		},
		CreditTransactions: []domain.CreditTransaction{
			{Type: domain.CreditTypePayment, PaymentMethod: domain.PaymentCash, Amount: nd("0.004")},
		},
	}

	rec := Compute(BuildInput(decimal.Zero, decimal.Zero, "2024-05-02", ledger))
	// per-term rounding would give 0.00 + 0.00
	assert.Equal(t, "0.01", rec.ExpectedCash.StringFixed(2))
}

func TestClassifyVariance(t *testing.T) {
	cases := map[string]string{
		"0":      domain.VarianceMatch,
		"0.009":  domain.VarianceMatch,
		"-0.009": domain.VarianceMatch,
		"0.01":   domain.VarianceOverage,
		"-0.01":  domain.VarianceShortage,
		"-15":    domain.VarianceShortage,
	}
	for raw, want := range cases {
		assert.Equal(t, want, Classify(dec(raw)), raw)
	}
}

func TestCheckOpening(t *testing.T) {
	th := DefaultOpeningThreshold()

	_, significant := CheckOpening(domain.ChannelCash, dec("1040"), dec("1000"), th)
	assert.False(t, significant)

	v, significant := CheckOpening(domain.ChannelCash, dec("1060"), dec("1000"), th)
	assert.True(t, significant)
	assert.True(t, v.Difference.Equal(dec("60")))
	assert.True(t, v.Percent.Equal(dec("6")))

	// 5% rule alone: 40 exceeds 5% of 400.
	_, significant = CheckOpening(domain.ChannelBank, dec("440"), dec("400"), th)
	assert.True(t, significant)

	// no previous balance: only the absolute rule applies
	_, significant = CheckOpening(domain.ChannelCash, dec("30"), dec("0"), th)
	assert.False(t, significant)
	_, significant = CheckOpening(domain.ChannelCash, dec("51"), dec("0"), th)
	assert.True(t, significant)
}

func TestOpeningVariances(t *testing.T) {
	closing := dec("500")
	bank := dec("2000")
	prev := domain.DayOperation{ClosingCash: &closing, ActualBank: &bank}

	got := OpeningVariances(dec("500"), dec("1500"), prev, DefaultOpeningThreshold())
	require.Len(t, got, 1)
	assert.Equal(t, domain.ChannelBank, got[0].Channel)
	assert.True(t, got[0].Difference.Equal(dec("-500")))
}
