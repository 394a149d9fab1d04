package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kasirharian/backend/internal/apperror"
	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/store"
)

func (s *Service) RecordTransaction(ctx context.Context, req domain.TransactionRecordRequest) (domain.Transaction, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.Transaction{}, err
	}

	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if !isSalesChannel(method) {
		return domain.Transaction{}, apperror.NewValidation("payment_method must be cash, card, credit or split")
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = domain.TxStatusCompleted
	}
	if status != domain.TxStatusCompleted && status != domain.TxStatusVoided {
		return domain.Transaction{}, apperror.NewValidation("status must be completed or voided")
	}
	if err := validateNullAmount("total", req.Total); err != nil {
		return domain.Transaction{}, err
	}

	saved, err := s.repo.CreateTransaction(ctx, domain.Transaction{
		StoreID:       s.storeOrDefault(req.StoreID),
		Total:         req.Total,
		PaymentMethod: method,
		Status:        status,
		CreatedAt:     s.timestamp(req.CreatedAt),
	})
	if err != nil {
		return domain.Transaction{}, mapStoreError(err, "transaction", "")
	}
	return *saved, nil
}

func (s *Service) RecordCreditTransaction(ctx context.Context, req domain.CreditTransactionRecordRequest) (domain.CreditTransaction, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.CreditTransaction{}, err
	}

	txType := strings.ToLower(strings.TrimSpace(req.Type))
	if txType != domain.CreditTypePayment && txType != domain.CreditTypeRefund {
		return domain.CreditTransaction{}, apperror.NewValidation("type must be payment or refund")
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method != domain.PaymentCash && method != domain.PaymentCard {
		return domain.CreditTransaction{}, apperror.NewValidation("payment_method must be cash or card")
	}
	if err := validateNullAmount("amount", req.Amount); err != nil {
		return domain.CreditTransaction{}, err
	}

	saved, err := s.repo.CreateCreditTransaction(ctx, domain.CreditTransaction{
		StoreID:       s.storeOrDefault(req.StoreID),
		CustomerID:    strings.TrimSpace(req.CustomerID),
		Type:          txType,
		PaymentMethod: method,
		Amount:        req.Amount,
		CreatedAt:     s.timestamp(req.CreatedAt),
	})
	if err != nil {
		return domain.CreditTransaction{}, mapStoreError(err, "credit_transaction", "")
	}
	return *saved, nil
}

func (s *Service) RecordSupplierPayment(ctx context.Context, req domain.SupplierPaymentRecordRequest) (domain.SupplierPayment, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.SupplierPayment{}, err
	}

	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		return domain.SupplierPayment{}, apperror.NewValidation("payment_method is required")
	}
	if err := validateNullAmount("amount", req.Amount); err != nil {
		return domain.SupplierPayment{}, err
	}
	paymentDate, err := s.businessDate(req.PaymentDate)
	if err != nil {
		return domain.SupplierPayment{}, err
	}

	saved, err := s.repo.CreateSupplierPayment(ctx, domain.SupplierPayment{
		StoreID:       s.storeOrDefault(req.StoreID),
		SupplierID:    strings.TrimSpace(req.SupplierID),
		Amount:        req.Amount,
		PaymentMethod: method,
		PaymentDate:   paymentDate,
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		return domain.SupplierPayment{}, mapStoreError(err, "supplier_payment", "")
	}
	return *saved, nil
}

// RecordCashMovement books a non-sale movement against the store's active
// day. Only transfers carry a sign.
func (s *Service) RecordCashMovement(ctx context.Context, req domain.CashMovementRecordRequest) (domain.CashMovement, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.CashMovement{}, err
	}

	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	channel := strings.ToLower(strings.TrimSpace(req.Channel))
	switch kind {
	case domain.MovementOwnerDeposit, domain.MovementOwnerWithdrawal, domain.MovementExpense:
		if channel == "" {
			channel = domain.ChannelCash
		}
		if channel != domain.ChannelCash && channel != domain.ChannelBank {
			return domain.CashMovement{}, apperror.NewValidation("channel must be cash or bank")
		}
	case domain.MovementBankWithdrawal:
		channel = domain.ChannelBank
	case domain.MovementTransfer:
		channel = domain.ChannelCash
	default:
		return domain.CashMovement{}, apperror.NewValidation("unknown movement kind").WithDetail("kind", req.Kind)
	}

	if kind == domain.MovementTransfer {
		if req.Amount.IsZero() {
			return domain.CashMovement{}, apperror.NewValidation("transfer amount must not be zero")
		}
		if err := validateAmount("amount", req.Amount.Abs()); err != nil {
			return domain.CashMovement{}, err
		}
	} else {
		if err := validateAmount("amount", req.Amount); err != nil {
			return domain.CashMovement{}, err
		}
		if req.Amount.IsZero() {
			return domain.CashMovement{}, apperror.NewValidation("amount must be positive")
		}
	}

	storeID := s.storeOrDefault(req.StoreID)
	var saved *domain.CashMovement
	var dayID string
	err = s.withStoreLock(ctx, storeID, func() error {
		active, err := s.findActiveDay(ctx, storeID)
		if err != nil {
			return err
		}
		if active == nil {
			return apperror.NewConflict("no open day to record the movement against")
		}
		dayID = active.ID

		saved, err = s.repo.CreateCashMovement(ctx, domain.CashMovement{
			StoreID:    storeID,
			DayID:      active.ID,
			Kind:       kind,
			Channel:    channel,
			Amount:     req.Amount,
			Note:       strings.TrimSpace(req.Note),
			RecordedBy: actor.Username,
			OccurredAt: s.timestamp(req.OccurredAt),
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperror.NewConflict("day is no longer open").WithDetail("day_id", active.ID).WithCause(err)
			}
			return mapStoreError(err, "cash_movement", "")
		}
		return nil
	})
	if err != nil {
		return domain.CashMovement{}, err
	}

	s.logAudit(ctx, storeID, "cash_movement_record", "cash_movement", saved.ID,
		fmt.Sprintf("day=%s,kind=%s,channel=%s,amount=%s", dayID, kind, channel, req.Amount.StringFixed(2)))
	return *saved, nil
}

func (s *Service) timestamp(at *time.Time) time.Time {
	if at == nil || at.IsZero() {
		return s.now().UTC()
	}
	return at.UTC()
}

func validateNullAmount(field string, amount decimal.NullDecimal) error {
	if !amount.Valid {
		return apperror.NewValidation(field + " is required").WithDetail("field", field)
	}
	return validateAmount(field, amount.Decimal)
}

func isSalesChannel(method string) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentCredit, domain.PaymentSplit:
		return true
	default:
		return false
	}
}
