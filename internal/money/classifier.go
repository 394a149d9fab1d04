package money

import (
	"strings"

	"github.com/shopspring/decimal"

	"kasirharian/backend/internal/domain"
)

// ClassifySales sums completed sales per payment channel. Voided sales are
// ignored. A record with a missing or negative total contributes zero and is
// counted in Skipped; a record with an unknown channel is skipped entirely.
func ClassifySales(txs []domain.Transaction) domain.SalesClassification {
	var cash, card, credit, split decimal.Decimal
	var out domain.SalesClassification

	for _, tx := range txs {
		if strings.EqualFold(tx.Status, domain.TxStatusVoided) {
			continue
		}
		amount, ok := Readable(tx.Total)
		if !ok {
			out.Skipped++
		}
		switch strings.ToLower(strings.TrimSpace(tx.PaymentMethod)) {
		case domain.PaymentCash:
			cash = cash.Add(amount)
			out.CashCount++
		case domain.PaymentCard:
			card = card.Add(amount)
			out.CardCount++
		case domain.PaymentCredit:
			credit = credit.Add(amount)
			out.CreditCount++
		case domain.PaymentSplit:
			split = split.Add(amount)
			out.SplitCount++
		default:
			if ok {
				out.Skipped++
			}
		}
	}

	// channel sums stay unrounded; the reconcile formulas round once at the end
	out.CashSales = cash
	out.CardSales = card
	out.CreditSales = credit
	out.SplitSales = split
	out.TotalSales = out.CashSales.Add(out.CardSales).Add(out.CreditSales).Add(out.SplitSales)
	out.TotalCount = out.CashCount + out.CardCount + out.CreditCount + out.SplitCount
	return out
}

// ClassifyCredit splits credit-account payments and refunds by channel.
func ClassifyCredit(txs []domain.CreditTransaction) domain.CreditClassification {
	var cashPay, cardPay, cashRefund, cardRefund decimal.Decimal
	var out domain.CreditClassification

	for _, tx := range txs {
		amount, ok := Readable(tx.Amount)
		if !ok {
			out.Skipped++
			continue
		}
		method := strings.ToLower(strings.TrimSpace(tx.PaymentMethod))
		switch strings.ToLower(strings.TrimSpace(tx.Type)) {
		case domain.CreditTypePayment:
			switch method {
			case domain.PaymentCash:
				cashPay = cashPay.Add(amount)
			case domain.PaymentCard:
				cardPay = cardPay.Add(amount)
			default:
				out.Skipped++
			}
		case domain.CreditTypeRefund:
			switch method {
			case domain.PaymentCash:
				cashRefund = cashRefund.Add(amount)
			case domain.PaymentCard:
				cardRefund = cardRefund.Add(amount)
			default:
				out.Skipped++
			}
		default:
			out.Skipped++
		}
	}

	out.CashPayments = cashPay
	out.CardPayments = cardPay
	out.CashRefunds = cashRefund
	out.CardRefunds = cardRefund
	out.TotalPayments = out.CashPayments.Add(out.CardPayments)
	out.TotalRefunds = out.CashRefunds.Add(out.CardRefunds)
	return out
}
