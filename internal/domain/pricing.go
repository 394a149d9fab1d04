package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VATConfiguration is a per-store, per-category tax rate.
type VATConfiguration struct {
	ID        string          `json:"id"`
	StoreID   string          `json:"store_id"`
	Category  string          `json:"category"`
	Rate      decimal.Decimal `json:"rate"`
	Active    bool            `json:"active"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type StoreSettings struct {
	StoreID        string           `json:"store_id"`
	DefaultVATRate *decimal.Decimal `json:"default_vat_rate,omitempty"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// VATContext is everything the VAT cascade needs to know about a store.
type VATContext struct {
	StoreID        string             `json:"store_id"`
	DefaultVATRate *decimal.Decimal   `json:"default_vat_rate,omitempty"`
	Configs        []VATConfiguration `json:"configs,omitempty"`
}

type VATLineItem struct {
	ProductID   string           `json:"product_id,omitempty"`
	Name        string           `json:"name,omitempty"`
	Category    string           `json:"category,omitempty"`
	BasePrice   decimal.Decimal  `json:"base_price"`
	Quantity    int              `json:"quantity"`
	ProductRate *decimal.Decimal `json:"product_rate,omitempty"`
}

const (
	VATSourceProduct       = "product"
	VATSourceCategory      = "category"
	VATSourceStoreDefault  = "store_default"
	VATSourceSystemDefault = "system_default"
)

// VATCalculation is the per-unit result for one line item.
type VATCalculation struct {
	ProductID   string          `json:"product_id,omitempty"`
	Category    string          `json:"category,omitempty"`
	BaseAmount  decimal.Decimal `json:"base_amount"`
	Rate        decimal.Decimal `json:"rate"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Source      string          `json:"source"`
}

type CartVATLine struct {
	VATCalculation
	Quantity  int             `json:"quantity"`
	LineBase  decimal.Decimal `json:"line_base"`
	LineVAT   decimal.Decimal `json:"line_vat"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartVATCalculation struct {
	BaseAmount  decimal.Decimal `json:"base_amount"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []CartVATLine   `json:"items"`
}

type VATCalculateRequest struct {
	StoreID string      `json:"store_id"`
	Item    VATLineItem `json:"item"`
}

type CartVATRequest struct {
	StoreID string        `json:"store_id"`
	Items   []VATLineItem `json:"items"`
}

type VATConfigUpsertRequest struct {
	StoreID  string          `json:"store_id"`
	Category string          `json:"category"`
	Rate     decimal.Decimal `json:"rate"`
	Active   bool            `json:"active"`
}

type StoreDefaultVATRequest struct {
	StoreID string           `json:"store_id"`
	Rate    *decimal.Decimal `json:"rate"`
}

const (
	DiscountPercentage  = "percentage"
	DiscountFixedAmount = "fixed_amount"
	DiscountBuyXGetY    = "buy_x_get_y"
)

type Promotion struct {
	ID             string           `json:"id"`
	StoreID        string           `json:"store_id"`
	Name           string           `json:"name"`
	DiscountType   string           `json:"discount_type"`
	Value          decimal.Decimal  `json:"value"`
	MinOrderAmount *decimal.Decimal `json:"min_order_amount,omitempty"`
	MaxDiscount    *decimal.Decimal `json:"max_discount,omitempty"`
	BuyQuantity    int              `json:"buy_quantity,omitempty"`
	GetQuantity    int              `json:"get_quantity,omitempty"`
	Active         bool             `json:"active"`
	CreatedAt      time.Time        `json:"created_at"`
}

type PromotionCreateRequest struct {
	StoreID        string           `json:"store_id"`
	Name           string           `json:"name"`
	DiscountType   string           `json:"discount_type"`
	Value          decimal.Decimal  `json:"value"`
	MinOrderAmount *decimal.Decimal `json:"min_order_amount,omitempty"`
	MaxDiscount    *decimal.Decimal `json:"max_discount,omitempty"`
	BuyQuantity    int              `json:"buy_quantity,omitempty"`
	GetQuantity    int              `json:"get_quantity,omitempty"`
}

// EligibleItem is a cart line that a buy-X-get-Y promotion applies to.
type EligibleItem struct {
	ProductID string          `json:"product_id,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type DiscountRequest struct {
	StoreID      string           `json:"store_id,omitempty"`
	PromotionID  string           `json:"promotion_id,omitempty"`
	DiscountType string           `json:"discount_type,omitempty"`
	CartTotal    decimal.Decimal  `json:"cart_total"`
	Value        decimal.Decimal  `json:"value"`
	MinOrder     *decimal.Decimal `json:"min_order_amount,omitempty"`
	MaxDiscount  *decimal.Decimal `json:"max_discount,omitempty"`
	BuyQuantity  int              `json:"buy_quantity,omitempty"`
	GetQuantity  int              `json:"get_quantity,omitempty"`
	Items        []EligibleItem   `json:"items,omitempty"`
}

type DiscountResponse struct {
	DiscountType string          `json:"discount_type"`
	Amount       decimal.Decimal `json:"amount"`
	FreeUnits    int             `json:"free_units,omitempty"`
}
