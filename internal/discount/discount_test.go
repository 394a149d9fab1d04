package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirharian/backend/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestPercentage(t *testing.T) {
	assert.True(t, Percentage(dec("1000"), dec("20"), ptr("100")).Equal(dec("100")))
	assert.True(t, Percentage(dec("1000"), dec("5"), ptr("100")).Equal(dec("50")))
	assert.True(t, Percentage(dec("33.33"), dec("10"), nil).Equal(dec("3.33")))
	assert.True(t, Percentage(dec("0"), dec("10"), nil).IsZero())
}

func TestFixedAndClamp(t *testing.T) {
	assert.True(t, Fixed(dec("25"), nil).Equal(dec("25")))
	assert.True(t, Fixed(dec("25"), ptr("20")).Equal(dec("20")))
	assert.True(t, Fixed(dec("-1"), nil).IsZero())

	assert.True(t, ClampToPayable(dec("25"), dec("10")).Equal(dec("10")))
	assert.True(t, ClampToPayable(dec("5"), dec("10")).Equal(dec("5")))
	assert.True(t, ClampToPayable(dec("5"), dec("0")).IsZero())
}

func TestBuyXGetY(t *testing.T) {
	amount, free := BuyXGetY([]domain.EligibleItem{{Price: dec("15"), Quantity: 9}}, 3, 2)
	assert.True(t, amount.Equal(dec("90")), amount.String())
	assert.Equal(t, 6, free)

	amount, free = BuyXGetY([]domain.EligibleItem{{Price: dec("10"), Quantity: 6}}, 2, 1)
	assert.True(t, amount.Equal(dec("30")))
	assert.Equal(t, 3, free)

	amount, free = BuyXGetY([]domain.EligibleItem{{Price: dec("10"), Quantity: 1}}, 2, 1)
	assert.True(t, amount.IsZero())
	assert.Zero(t, free)
}

func TestBuyXGetYCheapestFirst(t *testing.T) {
	items := []domain.EligibleItem{
		{ProductID: "premium", Price: dec("20"), Quantity: 2},
		{ProductID: "basic", Price: dec("5.5"), Quantity: 2},
	}
	amount, free := BuyXGetY(items, 2, 1)
	require.Equal(t, 2, free)
	assert.True(t, amount.Equal(dec("11")))

	// free units never exceed what is in the cart
	amount, free = BuyXGetY([]domain.EligibleItem{{Price: dec("3"), Quantity: 2}}, 1, 5)
	assert.Equal(t, 2, free)
	assert.True(t, amount.Equal(dec("6")))
}

func TestComputeDispatch(t *testing.T) {
	resp, err := Compute(domain.DiscountRequest{
		DiscountType: domain.DiscountPercentage,
		CartTotal:    dec("1000"),
		Value:        dec("20"),
		MaxDiscount:  ptr("100"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Amount.Equal(dec("100")))

	resp, err = Compute(domain.DiscountRequest{
		DiscountType: domain.DiscountFixedAmount,
		CartTotal:    dec("40"),
		Value:        dec("10"),
		MinOrder:     ptr("50"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Amount.IsZero())

	resp, err = Compute(domain.DiscountRequest{
		DiscountType: domain.DiscountBuyXGetY,
		BuyQuantity:  3,
		GetQuantity:  2,
		Items:        []domain.EligibleItem{{Price: dec("15"), Quantity: 9}},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, resp.FreeUnits)

	_, err = Compute(domain.DiscountRequest{DiscountType: "mystery"})
	assert.ErrorIs(t, err, ErrUnknownType)
}
