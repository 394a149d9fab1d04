package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kasirharian/backend/internal/apperror"
	"kasirharian/backend/internal/discount"
	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/money"
	"kasirharian/backend/internal/store"
	"kasirharian/backend/internal/vat"
)

// VATContext loads the store's VAT reference data, through the cache when
// one is configured. Cache failures fall back to the repository.
func (s *Service) VATContext(ctx context.Context, storeID string) (domain.VATContext, error) {
	storeID = s.storeOrDefault(storeID)

	generation := s.vatGeneration(storeID)
	cached, ok, err := s.vatCache.Get(ctx, storeID)
	if err != nil {
		s.logFor(ctx).Warnw("vat cache read failed", "store_id", storeID, "error", err)
	}
	if ok && cached != nil {
		return *cached, nil
	}

	configs, err := s.repo.ListVATConfigs(ctx, storeID)
	if err != nil {
		return domain.VATContext{}, mapStoreError(err, "vat_configuration", storeID)
	}
	vctx := domain.VATContext{StoreID: storeID, Configs: configs}

	settings, err := s.repo.GetStoreSettings(ctx, storeID)
	switch {
	case err == nil:
		vctx.DefaultVATRate = settings.DefaultVATRate
	case !errors.Is(err, store.ErrNotFound):
		return domain.VATContext{}, mapStoreError(err, "store_settings", storeID)
	}

	if s.vatGeneration(storeID) != generation {
		return vctx, nil
	}
	if err := s.vatCache.Set(ctx, storeID, &vctx, s.vatCacheTTL); err != nil {
		s.logFor(ctx).Warnw("vat cache write failed", "store_id", storeID, "error", err)
	}
	// a write that landed while we were filling may have invalidated before our Set
	if s.vatGeneration(storeID) != generation {
		s.dropVATEntry(ctx, storeID)
	}
	return vctx, nil
}

func (s *Service) ComputeVAT(ctx context.Context, req domain.VATCalculateRequest) (domain.VATCalculation, error) {
	if err := validateLineItem(req.Item, false); err != nil {
		return domain.VATCalculation{}, err
	}
	vctx, err := s.VATContext(ctx, req.StoreID)
	if err != nil {
		return domain.VATCalculation{}, err
	}
	return vat.Calculate(req.Item, vctx), nil
}

func (s *Service) ComputeCartVAT(ctx context.Context, req domain.CartVATRequest) (domain.CartVATCalculation, error) {
	if len(req.Items) == 0 {
		return domain.CartVATCalculation{}, apperror.NewValidation("cart has no items")
	}
	for _, item := range req.Items {
		if err := validateLineItem(item, true); err != nil {
			return domain.CartVATCalculation{}, err
		}
	}
	vctx, err := s.VATContext(ctx, req.StoreID)
	if err != nil {
		return domain.CartVATCalculation{}, err
	}
	return vat.CalculateCart(req.Items, vctx), nil
}

func (s *Service) UpsertVATConfig(ctx context.Context, req domain.VATConfigUpsertRequest) (domain.VATConfiguration, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.VATConfiguration{}, err
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return domain.VATConfiguration{}, apperror.NewValidation("category is required")
	}
	if err := validateRate("rate", req.Rate); err != nil {
		return domain.VATConfiguration{}, err
	}

	storeID := s.storeOrDefault(req.StoreID)
	saved, err := s.repo.UpsertVATConfig(ctx, domain.VATConfiguration{
		StoreID:   storeID,
		Category:  category,
		Rate:      req.Rate,
		Active:    req.Active,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.VATConfiguration{}, mapStoreError(err, "vat_configuration", category)
	}

	s.invalidateVAT(ctx, storeID)
	s.logAudit(ctx, storeID, "vat_config_upsert", "vat_configuration", saved.ID,
		fmt.Sprintf("category=%s,rate=%s,active=%t", saved.Category, saved.Rate.String(), saved.Active))
	return *saved, nil
}

func (s *Service) ListVATConfigs(ctx context.Context, storeID string) ([]domain.VATConfiguration, error) {
	storeID = s.storeOrDefault(storeID)
	configs, err := s.repo.ListVATConfigs(ctx, storeID)
	if err != nil {
		return nil, mapStoreError(err, "vat_configuration", storeID)
	}
	return configs, nil
}

// SetStoreDefaultVAT sets or, with a nil rate, clears the store default.
func (s *Service) SetStoreDefaultVAT(ctx context.Context, req domain.StoreDefaultVATRequest) (domain.StoreSettings, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.StoreSettings{}, err
	}
	if req.Rate != nil {
		if err := validateRate("rate", *req.Rate); err != nil {
			return domain.StoreSettings{}, err
		}
	}

	storeID := s.storeOrDefault(req.StoreID)
	saved, err := s.repo.UpsertStoreSettings(ctx, domain.StoreSettings{
		StoreID:        storeID,
		DefaultVATRate: req.Rate,
		UpdatedAt:      s.now().UTC(),
	})
	if err != nil {
		return domain.StoreSettings{}, mapStoreError(err, "store_settings", storeID)
	}

	s.invalidateVAT(ctx, storeID)
	rate := "none"
	if req.Rate != nil {
		rate = req.Rate.String()
	}
	s.logAudit(ctx, storeID, "store_vat_default", "store_settings", storeID, "rate="+rate)
	return *saved, nil
}

// invalidateVAT bumps the store's generation before dropping the entry so
// an in-flight fill that read the old rows does not write them back.
func (s *Service) invalidateVAT(ctx context.Context, storeID string) {
	s.vatMu.Lock()
	s.vatGen[storeID]++
	s.vatMu.Unlock()
	s.dropVATEntry(ctx, storeID)
}

func (s *Service) dropVATEntry(ctx context.Context, storeID string) {
	if err := s.vatCache.Invalidate(ctx, storeID); err != nil {
		s.logFor(ctx).Warnw("vat cache invalidate failed", "store_id", storeID, "error", err)
	}
}

func (s *Service) vatGeneration(storeID string) uint64 {
	s.vatMu.Lock()
	defer s.vatMu.Unlock()
	return s.vatGen[storeID]
}

func (s *Service) CreatePromotion(ctx context.Context, req domain.PromotionCreateRequest) (domain.Promotion, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Promotion{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Promotion{}, apperror.NewValidation("name is required")
	}
	discountType := strings.ToLower(strings.TrimSpace(req.DiscountType))
	switch discountType {
	case domain.DiscountPercentage:
		if !req.Value.IsPositive() || req.Value.GreaterThan(money.Hundred) {
			return domain.Promotion{}, apperror.NewValidation("percentage must be between 0 and 100")
		}
	case domain.DiscountFixedAmount:
		if !req.Value.IsPositive() {
			return domain.Promotion{}, apperror.NewValidation("value must be positive")
		}
		if err := validateAmount("value", req.Value); err != nil {
			return domain.Promotion{}, err
		}
	case domain.DiscountBuyXGetY:
		if req.BuyQuantity < 1 || req.GetQuantity < 1 {
			return domain.Promotion{}, apperror.NewValidation("buy_quantity and get_quantity must be at least 1")
		}
	default:
		return domain.Promotion{}, apperror.NewValidation("discount_type must be percentage, fixed_amount or buy_x_get_y")
	}
	if err := validateOptionalAmount("min_order_amount", req.MinOrderAmount); err != nil {
		return domain.Promotion{}, err
	}
	if err := validateOptionalAmount("max_discount", req.MaxDiscount); err != nil {
		return domain.Promotion{}, err
	}

	storeID := s.storeOrDefault(req.StoreID)
	saved, err := s.repo.CreatePromotion(ctx, domain.Promotion{
		StoreID:        storeID,
		Name:           name,
		DiscountType:   discountType,
		Value:          req.Value,
		MinOrderAmount: req.MinOrderAmount,
		MaxDiscount:    req.MaxDiscount,
		BuyQuantity:    req.BuyQuantity,
		GetQuantity:    req.GetQuantity,
		Active:         true,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return domain.Promotion{}, mapStoreError(err, "promotion", name)
	}

	s.logAudit(ctx, storeID, "promotion_create", "promotion", saved.ID, fmt.Sprintf("type=%s,name=%s", saved.DiscountType, saved.Name))
	return *saved, nil
}

func (s *Service) ListPromotions(ctx context.Context, storeID string, activeOnly bool) ([]domain.Promotion, error) {
	promos, err := s.repo.ListPromotions(ctx, s.storeOrDefault(storeID), activeOnly)
	if err != nil {
		return nil, mapStoreError(err, "promotion", storeID)
	}
	return promos, nil
}

// ComputeDiscount evaluates either a stored promotion or inline parameters.
// A positive cart total caps the result at the payable amount.
func (s *Service) ComputeDiscount(ctx context.Context, req domain.DiscountRequest) (domain.DiscountResponse, error) {
	if err := validateAmount("cart_total", req.CartTotal); err != nil {
		return domain.DiscountResponse{}, err
	}
	for _, item := range req.Items {
		if item.Price.IsNegative() || item.Quantity < 0 {
			return domain.DiscountResponse{}, apperror.NewValidation("eligible items must have non-negative price and quantity")
		}
	}

	if id := strings.TrimSpace(req.PromotionID); id != "" {
		promo, err := s.repo.GetPromotion(ctx, id)
		if err != nil {
			return domain.DiscountResponse{}, mapStoreError(err, "promotion", id)
		}
		if promo.StoreID != s.storeOrDefault(req.StoreID) {
			return domain.DiscountResponse{}, apperror.NewNotFound("promotion", id)
		}
		if !promo.Active {
			return domain.DiscountResponse{}, apperror.NewConflict("promotion is not active").WithDetail("promotion_id", id)
		}
		req = discount.FromPromotion(*promo, req.CartTotal, req.Items)
	} else {
		req.DiscountType = strings.ToLower(strings.TrimSpace(req.DiscountType))
		if req.Value.IsNegative() {
			return domain.DiscountResponse{}, apperror.NewValidation("value must not be negative")
		}
		if err := validateOptionalAmount("max_discount", req.MaxDiscount); err != nil {
			return domain.DiscountResponse{}, err
		}
	}

	resp, err := discount.Compute(req)
	if err != nil {
		if errors.Is(err, discount.ErrUnknownType) {
			return domain.DiscountResponse{}, apperror.NewValidation("discount_type must be percentage, fixed_amount or buy_x_get_y")
		}
		return domain.DiscountResponse{}, apperror.NewInternal(err)
	}
	if req.CartTotal.IsPositive() {
		resp.Amount = discount.ClampToPayable(resp.Amount, req.CartTotal)
	}
	return resp, nil
}

func validateLineItem(item domain.VATLineItem, needQuantity bool) error {
	if item.BasePrice.IsNegative() {
		return apperror.NewValidation("base_price must not be negative").WithDetail("product_id", item.ProductID)
	}
	if item.ProductRate != nil {
		if err := validateRate("product_rate", *item.ProductRate); err != nil {
			return err
		}
	}
	if needQuantity && item.Quantity < 1 {
		return apperror.NewValidation("quantity must be at least 1").WithDetail("product_id", item.ProductID)
	}
	return nil
}

func validateRate(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(money.Hundred) {
		return apperror.NewValidation(field + " must be between 0 and 100").WithDetail("field", field)
	}
	return nil
}

func validateOptionalAmount(field string, amount *decimal.Decimal) error {
	if amount == nil {
		return nil
	}
	return validateAmount(field, *amount)
}
