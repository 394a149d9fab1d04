// Package discount computes promotion discounts. Every function is pure; the
// sale flow decides which promotion applies.
package discount

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/money"
)

var ErrUnknownType = errors.New("unknown discount type")

// Percentage returns cartTotal × pct / 100, capped when maxCap is set.
func Percentage(cartTotal, pct decimal.Decimal, maxCap *decimal.Decimal) decimal.Decimal {
	if !cartTotal.IsPositive() || !pct.IsPositive() {
		return decimal.Zero
	}
	d := money.Round2(cartTotal.Mul(pct).Div(money.Hundred))
	if maxCap != nil && d.GreaterThan(*maxCap) {
		return *maxCap
	}
	return d
}

// Fixed returns value, capped when maxCap is set. Callers clamp the result
// to the payable total with ClampToPayable.
func Fixed(value decimal.Decimal, maxCap *decimal.Decimal) decimal.Decimal {
	if !value.IsPositive() {
		return decimal.Zero
	}
	if maxCap != nil && value.GreaterThan(*maxCap) {
		return *maxCap
	}
	return value
}

// ClampToPayable keeps a discount within [0, payable].
func ClampToPayable(discount, payable decimal.Decimal) decimal.Decimal {
	if !payable.IsPositive() || discount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(discount, payable)
}

// BuyXGetY grants getQty free units for every buyQty eligible units, taken
// from the cheapest items first. It returns the discount and the number of
// free units actually allocated.
func BuyXGetY(items []domain.EligibleItem, buyQty, getQty int) (decimal.Decimal, int) {
	if buyQty < 1 || getQty < 1 {
		return decimal.Zero, 0
	}

	eligible := make([]domain.EligibleItem, 0, len(items))
	total := 0
	for _, item := range items {
		if item.Quantity < 1 || item.Price.IsNegative() {
			continue
		}
		eligible = append(eligible, item)
		total += item.Quantity
	}

	sets := total / buyQty
	freeUnits := sets * getQty
	if freeUnits == 0 {
		return decimal.Zero, 0
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Price.LessThan(eligible[j].Price)
	})

	discount := decimal.Zero
	allocated := 0
	remaining := freeUnits
	for _, item := range eligible {
		if remaining == 0 {
			break
		}
		take := item.Quantity
		if take > remaining {
			take = remaining
		}
		discount = discount.Add(item.Price.Mul(decimal.NewFromInt(int64(take))))
		remaining -= take
		allocated += take
	}
	return money.Round2(discount), allocated
}

// Compute dispatches on the discount type. A configured minimum order that
// the cart total does not reach yields zero.
func Compute(req domain.DiscountRequest) (domain.DiscountResponse, error) {
	resp := domain.DiscountResponse{DiscountType: req.DiscountType, Amount: decimal.Zero}
	if req.MinOrder != nil && req.CartTotal.LessThan(*req.MinOrder) {
		switch req.DiscountType {
		case domain.DiscountPercentage, domain.DiscountFixedAmount, domain.DiscountBuyXGetY:
			return resp, nil
		}
	}

	switch req.DiscountType {
	case domain.DiscountPercentage:
		resp.Amount = Percentage(req.CartTotal, req.Value, req.MaxDiscount)
	case domain.DiscountFixedAmount:
		resp.Amount = Fixed(req.Value, req.MaxDiscount)
	case domain.DiscountBuyXGetY:
		resp.Amount, resp.FreeUnits = BuyXGetY(req.Items, req.BuyQuantity, req.GetQuantity)
		if req.MaxDiscount != nil && resp.Amount.GreaterThan(*req.MaxDiscount) {
			resp.Amount = *req.MaxDiscount
		}
	default:
		return resp, ErrUnknownType
	}
	return resp, nil
}

// FromPromotion fills the discount parameters from a stored promotion.
func FromPromotion(p domain.Promotion, cartTotal decimal.Decimal, items []domain.EligibleItem) domain.DiscountRequest {
	return domain.DiscountRequest{
		StoreID:      p.StoreID,
		PromotionID:  p.ID,
		DiscountType: p.DiscountType,
		CartTotal:    cartTotal,
		Value:        p.Value,
		MinOrder:     p.MinOrderAmount,
		MaxDiscount:  p.MaxDiscount,
		BuyQuantity:  p.BuyQuantity,
		GetQuantity:  p.GetQuantity,
		Items:        items,
	}
}
