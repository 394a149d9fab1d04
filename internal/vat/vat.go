// Package vat resolves tax rates through the product → category → store
// default → system default cascade and computes tax-inclusive totals.
package vat

import (
	"strings"

	"github.com/shopspring/decimal"

	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/money"
)

// SystemDefaultRate applies when nothing else matches.
var SystemDefaultRate = decimal.Zero

// ResolveRate picks the rate for an item; the first match wins.
func ResolveRate(item domain.VATLineItem, vctx domain.VATContext) (decimal.Decimal, string) {
	if item.ProductRate != nil {
		return *item.ProductRate, domain.VATSourceProduct
	}

	category := strings.TrimSpace(item.Category)
	if category != "" {
		for _, cfg := range vctx.Configs {
			if !cfg.Active {
				continue
			}
			if cfg.StoreID != "" && vctx.StoreID != "" && cfg.StoreID != vctx.StoreID {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(cfg.Category), category) {
				return cfg.Rate, domain.VATSourceCategory
			}
		}
	}

	if vctx.DefaultVATRate != nil {
		return *vctx.DefaultVATRate, domain.VATSourceStoreDefault
	}
	return SystemDefaultRate, domain.VATSourceSystemDefault
}

// Calculate returns the per-unit VAT breakdown for one item.
func Calculate(item domain.VATLineItem, vctx domain.VATContext) domain.VATCalculation {
	rate, source := ResolveRate(item, vctx)
	vatAmount := money.Round2(item.BasePrice.Mul(rate).Div(money.Hundred))
	return domain.VATCalculation{
		ProductID:   item.ProductID,
		Category:    item.Category,
		BaseAmount:  item.BasePrice,
		Rate:        rate,
		VATAmount:   vatAmount,
		TotalAmount: item.BasePrice.Add(vatAmount),
		Source:      source,
	}
}

// CalculateCart multiplies each line's per-unit result by its quantity and
// sums the lines. Non-positive quantities contribute nothing.
func CalculateCart(items []domain.VATLineItem, vctx domain.VATContext) domain.CartVATCalculation {
	out := domain.CartVATCalculation{
		Items: make([]domain.CartVATLine, 0, len(items)),
	}
	for _, item := range items {
		unit := Calculate(item, vctx)
		qty := item.Quantity
		if qty < 0 {
			qty = 0
		}
		q := decimal.NewFromInt(int64(qty))
		line := domain.CartVATLine{
			VATCalculation: unit,
			Quantity:       qty,
			LineBase:       unit.BaseAmount.Mul(q),
			LineVAT:        unit.VATAmount.Mul(q),
			LineTotal:      unit.TotalAmount.Mul(q),
		}
		out.BaseAmount = out.BaseAmount.Add(line.LineBase)
		out.VATAmount = out.VATAmount.Add(line.LineVAT)
		out.TotalAmount = out.TotalAmount.Add(line.LineTotal)
		out.Items = append(out.Items, line)
	}
	out.BaseAmount = money.Round2(out.BaseAmount)
	out.VATAmount = money.Round2(out.VATAmount)
	out.TotalAmount = money.Round2(out.TotalAmount)
	return out
}
