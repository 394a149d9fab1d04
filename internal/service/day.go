package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kasirharian/backend/internal/apperror"
	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/money"
	"kasirharian/backend/internal/reconcile"
	"kasirharian/backend/internal/store"
)

// OpenDay starts a trading day. A large drift between the requested opening
// amounts and the previous close is reported in the response, never refused.
func (s *Service) OpenDay(ctx context.Context, req domain.OpenDayRequest) (domain.OpenDayResponse, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.OpenDayResponse{}, err
	}

	storeID := s.storeOrDefault(req.StoreID)
	businessDate, err := s.businessDate(req.BusinessDate)
	if err != nil {
		return domain.OpenDayResponse{}, err
	}
	if err := validateAmount("opening_cash", req.OpeningCash); err != nil {
		return domain.OpenDayResponse{}, err
	}
	if err := validateAmount("opening_bank", req.OpeningBank); err != nil {
		return domain.OpenDayResponse{}, err
	}

	var resp domain.OpenDayResponse
	err = s.withStoreLock(ctx, storeID, func() error {
		active, err := s.findActiveDay(ctx, storeID)
		if err != nil {
			return err
		}
		if active != nil {
			if active.BusinessDate != businessDate {
				return apperror.NewConflict(fmt.Sprintf("day %s is still open for this store, close it first", active.BusinessDate)).
					WithDetail("active_day_id", active.ID)
			}
			return apperror.NewConflict("day is already open").WithDetail("day_id", active.ID)
		}

		existing, err := s.repo.GetDayByDate(ctx, storeID, businessDate)
		switch {
		case err == nil:
			return apperror.NewConflict("day has already been closed, reopen it instead").
				WithDetail("day_id", existing.ID)
		case !errors.Is(err, store.ErrNotFound):
			return mapStoreError(err, "day", businessDate)
		}

		previous, err := s.repo.GetLastClosedDay(ctx, storeID, businessDate)
		switch {
		case err == nil:
			resp.PreviousDayID = previous.ID
			resp.Variances = reconcile.OpeningVariances(req.OpeningCash, req.OpeningBank, *previous, s.threshold)
			resp.SignificantVariance = len(resp.Variances) > 0
		case !errors.Is(err, store.ErrNotFound):
			return mapStoreError(err, "day", businessDate)
		}

		created, err := s.repo.CreateDay(ctx, domain.DayOperation{
			StoreID:      storeID,
			BusinessDate: businessDate,
			Status:       domain.DayStatusOpen,
			OpeningCash:  req.OpeningCash,
			OpeningBank:  req.OpeningBank,
			OpenedAt:     s.now().UTC(),
			OpenedBy:     actor.Username,
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperror.NewConflict("store already has an open day").WithCause(err)
			}
			return mapStoreError(err, "day", businessDate)
		}
		resp.Day = *created
		return nil
	})
	if err != nil {
		s.logFor(ctx).Infow("open day refused", "store_id", storeID, "business_date", businessDate, "actor", actor.Username, "error", err)
		return domain.OpenDayResponse{}, err
	}

	log := s.logFor(ctx).With("store_id", storeID, "day_id", resp.Day.ID, "actor", actor.Username)
	if resp.SignificantVariance {
		log.Warnw("opening amounts differ from previous close", "previous_day_id", resp.PreviousDayID, "variances", len(resp.Variances))
	}
	log.Infow("day opened", "business_date", businessDate)
	s.logAudit(ctx, storeID, "day_open", "day_operation", resp.Day.ID,
		fmt.Sprintf("date=%s,cash=%s,bank=%s,significant_variance=%t", businessDate, req.OpeningCash.StringFixed(2), req.OpeningBank.StringFixed(2), resp.SignificantVariance))
	return resp, nil
}

// CloseDay reconciles the day and writes the closing snapshot. Nothing is
// written when reconciliation fails.
func (s *Service) CloseDay(ctx context.Context, req domain.CloseDayRequest) (domain.CloseDayResponse, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.CloseDayResponse{}, err
	}
	if err := validateAmount("actual_cash", req.ActualCash); err != nil {
		return domain.CloseDayResponse{}, err
	}
	if err := validateAmount("actual_bank", req.ActualBank); err != nil {
		return domain.CloseDayResponse{}, err
	}

	day, err := s.repo.GetDay(ctx, req.DayID)
	if err != nil {
		return domain.CloseDayResponse{}, mapStoreError(err, "day", req.DayID)
	}

	var resp domain.CloseDayResponse
	err = s.withStoreLock(ctx, day.StoreID, func() error {
		current, err := s.repo.GetDay(ctx, req.DayID)
		if err != nil {
			return mapStoreError(err, "day", req.DayID)
		}
		if !current.IsActive() {
			return apperror.NewConflict("day is not open").WithDetail("status", current.Status)
		}

		rec, err := s.reconcileDay(ctx, *current)
		if err != nil {
			return err
		}
		variance := reconcile.Compare(req.ActualCash, req.ActualBank, rec)

		closed, err := s.repo.CloseDay(ctx, current.ID, domain.DayClosing{
			ClosingCash:  req.ActualCash,
			ActualBank:   req.ActualBank,
			ExpectedCash: rec.ExpectedCash,
			ExpectedBank: rec.ExpectedBank,
			CashVariance: variance.CashVariance,
			BankVariance: variance.BankVariance,
			Notes:        strings.TrimSpace(req.Notes),
			ClosedAt:     s.now().UTC(),
			ClosedBy:     actor.Username,
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperror.NewConflict("day is not open").WithCause(err)
			}
			return mapStoreError(err, "day", current.ID)
		}

		resp = domain.CloseDayResponse{Day: *closed, Reconciliation: rec, Variance: variance}
		return nil
	})
	if err != nil {
		s.logFor(ctx).Infow("close day refused", "day_id", req.DayID, "actor", actor.Username, "error", err)
		return domain.CloseDayResponse{}, err
	}

	s.logFor(ctx).Infow("day closed",
		"store_id", resp.Day.StoreID,
		"day_id", resp.Day.ID,
		"actor", actor.Username,
		"cash_variance", resp.Variance.CashVariance.StringFixed(2),
		"bank_variance", resp.Variance.BankVariance.StringFixed(2),
	)
	s.logAudit(ctx, resp.Day.StoreID, "day_close", "day_operation", resp.Day.ID,
		fmt.Sprintf("expected_cash=%s,actual_cash=%s,cash=%s,bank=%s",
			resp.Reconciliation.ExpectedCash.StringFixed(2), req.ActualCash.StringFixed(2), resp.Variance.CashStatus, resp.Variance.BankStatus))
	return resp, nil
}

// ReopenDay needs the elevated capability. The previous closing snapshot is
// kept until the day is closed again.
func (s *Service) ReopenDay(ctx context.Context, req domain.ReopenDayRequest) (domain.DayOperation, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.DayOperation{}, err
	}
	if !actor.CanOverride() {
		return domain.DayOperation{}, apperror.NewForbidden("reopening a day requires manager approval")
	}

	day, err := s.repo.GetDay(ctx, req.DayID)
	if err != nil {
		return domain.DayOperation{}, mapStoreError(err, "day", req.DayID)
	}

	var reopened *domain.DayOperation
	err = s.withStoreLock(ctx, day.StoreID, func() error {
		current, err := s.repo.GetDay(ctx, req.DayID)
		if err != nil {
			return mapStoreError(err, "day", req.DayID)
		}
		if current.Status != domain.DayStatusClosed {
			return apperror.NewConflict("only a closed day can be reopened").WithDetail("status", current.Status)
		}

		active, err := s.findActiveDay(ctx, current.StoreID)
		if err != nil {
			return err
		}
		if active != nil && active.ID != current.ID {
			return apperror.NewConflict(fmt.Sprintf("day %s is open, close it before reopening", active.BusinessDate)).
				WithDetail("active_day_id", active.ID)
		}

		note := strings.TrimSpace(req.Note)
		if note == "" {
			return apperror.NewValidation("a reason is required to reopen a day")
		}

		reopened, err = s.repo.ReopenDay(ctx, current.ID, domain.DayReopening{
			Note:       note,
			ReopenedAt: s.now().UTC(),
			ReopenedBy: actor.Username,
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperror.NewConflict("day cannot be reopened while another day is open").WithCause(err)
			}
			return mapStoreError(err, "day", current.ID)
		}
		return nil
	})
	if err != nil {
		s.logFor(ctx).Infow("reopen day refused", "day_id", req.DayID, "actor", actor.Username, "error", err)
		return domain.DayOperation{}, err
	}

	s.logFor(ctx).Infow("day reopened", "store_id", reopened.StoreID, "day_id", reopened.ID, "actor", actor.Username, "elevated", actor.Elevated, "reopen_count", reopened.ReopenCount)
	s.logAudit(ctx, reopened.StoreID, "day_reopen", "day_operation", reopened.ID,
		fmt.Sprintf("count=%d,note=%s", reopened.ReopenCount, strings.TrimSpace(req.Note)))
	return *reopened, nil
}

// GetStatus derives the allowed transitions for a store and date from the
// stored state alone; capability checks happen at transition time.
func (s *Service) GetStatus(ctx context.Context, storeID string, date string) (domain.DayStatusResponse, error) {
	storeID = s.storeOrDefault(storeID)
	businessDate, err := s.businessDate(date)
	if err != nil {
		return domain.DayStatusResponse{}, err
	}

	resp := domain.DayStatusResponse{
		StoreID:      storeID,
		BusinessDate: businessDate,
		Status:       domain.DayStatusNone,
	}

	day, err := s.repo.GetDayByDate(ctx, storeID, businessDate)
	switch {
	case err == nil:
		resp.Day = day
		resp.Status = string(day.Status)
	case !errors.Is(err, store.ErrNotFound):
		return domain.DayStatusResponse{}, mapStoreError(err, "day", businessDate)
	}

	active, err := s.findActiveDay(ctx, storeID)
	if err != nil {
		return domain.DayStatusResponse{}, err
	}
	resp.ActiveDay = active

	switch {
	case day == nil && active == nil:
		resp.CanOpen = true
		resp.Message = fmt.Sprintf("No day is open for %s.", businessDate)
	case day == nil:
		resp.Message = fmt.Sprintf("Day %s is still open. Close it before opening %s.", active.BusinessDate, businessDate)
	case day.Status == domain.DayStatusOpen:
		resp.CanClose = true
		resp.Message = "Day is open."
	case day.Status == domain.DayStatusReopened:
		resp.CanClose = true
		resp.Message = "Day was reopened. Close it again when corrections are done."
	case active != nil:
		resp.Message = fmt.Sprintf("Day is closed. Day %s must be closed before this day can be reopened.", active.BusinessDate)
	default:
		resp.CanReopen = true
		resp.Message = "Day is closed."
	}

	if day == nil {
		previous, err := s.repo.GetLastClosedDay(ctx, storeID, businessDate)
		switch {
		case err == nil:
			resp.SuggestedOpeningCash = previous.ClosingCash
			resp.SuggestedOpeningBank = previous.ActualBank
		case !errors.Is(err, store.ErrNotFound):
			return domain.DayStatusResponse{}, mapStoreError(err, "day", businessDate)
		}
	}
	return resp, nil
}

// PreviewClose runs the reconciliation without changing any state.
func (s *Service) PreviewClose(ctx context.Context, dayID string) (domain.ReconciliationPreviewResponse, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.ReconciliationPreviewResponse{}, err
	}

	day, err := s.repo.GetDay(ctx, dayID)
	if err != nil {
		return domain.ReconciliationPreviewResponse{}, mapStoreError(err, "day", dayID)
	}
	rec, err := s.reconcileDay(ctx, *day)
	if err != nil {
		return domain.ReconciliationPreviewResponse{}, err
	}
	return domain.ReconciliationPreviewResponse{Day: *day, Reconciliation: rec}, nil
}

func (s *Service) ListDays(ctx context.Context, storeID string, limit int) (domain.DayListResponse, error) {
	storeID = s.storeOrDefault(storeID)
	if limit < 1 {
		limit = 30
	}
	if limit > 366 {
		limit = 366
	}

	days, err := s.repo.ListDays(ctx, storeID, limit)
	if err != nil {
		return domain.DayListResponse{}, mapStoreError(err, "day", storeID)
	}
	return domain.DayListResponse{Days: days}, nil
}

func (s *Service) findActiveDay(ctx context.Context, storeID string) (*domain.DayOperation, error) {
	active, err := s.repo.GetActiveDay(ctx, storeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, mapStoreError(err, "day", storeID)
	}
	return active, nil
}

// reconcileDay loads every record for the store-day and computes the
// expected balances.
func (s *Service) reconcileDay(ctx context.Context, day domain.DayOperation) (domain.Reconciliation, error) {
	from, to, err := s.dayWindow(day.BusinessDate)
	if err != nil {
		return domain.Reconciliation{}, err
	}

	var ledger domain.DayLedger
	if ledger.Transactions, err = s.repo.ListTransactions(ctx, day.StoreID, from, to); err != nil {
		return domain.Reconciliation{}, apperror.NewInternal(fmt.Errorf("load transactions: %w", err))
	}
	if ledger.CreditTransactions, err = s.repo.ListCreditTransactions(ctx, day.StoreID, from, to); err != nil {
		return domain.Reconciliation{}, apperror.NewInternal(fmt.Errorf("load credit transactions: %w", err))
	}
	if ledger.SupplierPayments, err = s.repo.ListSupplierPayments(ctx, day.StoreID, day.BusinessDate); err != nil {
		return domain.Reconciliation{}, apperror.NewInternal(fmt.Errorf("load supplier payments: %w", err))
	}
	if ledger.CashMovements, err = s.repo.ListCashMovements(ctx, day.ID); err != nil {
		return domain.Reconciliation{}, apperror.NewInternal(fmt.Errorf("load cash movements: %w", err))
	}

	in := reconcile.BuildInput(day.OpeningCash, day.OpeningBank, day.BusinessDate, ledger)
	if skipped := in.Sales.Skipped + in.Credit.Skipped; skipped > 0 {
		s.logFor(ctx).Warnw("records counted as zero during reconciliation",
			"day_id", day.ID, "sales_skipped", in.Sales.Skipped, "credit_skipped", in.Credit.Skipped)
	}
	return reconcile.Compute(in), nil
}

func validateAmount(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperror.NewValidation(field + " must not be negative").WithDetail("field", field)
	}
	if !amount.Equal(money.Round2(amount)) {
		return apperror.NewValidation(field + " must have at most two decimal places").WithDetail("field", field)
	}
	return nil
}
