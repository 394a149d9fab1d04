package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/service"
)

func (a *API) handleDayStatus(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status, err := a.service.GetStatus(r.Context(), query.Get("store_id"), query.Get("date"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) handleListDays(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parsePositiveLimit(query.Get("limit"), 30, 366)

	days, err := a.service.ListDays(r.Context(), query.Get("store_id"), limit)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (a *API) handleOpenDay(w http.ResponseWriter, r *http.Request) {
	var req domain.OpenDayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.OpenDay(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleCloseDay(w http.ResponseWriter, r *http.Request) {
	var req domain.CloseDayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.DayID = r.PathValue("id")

	resp, err := a.service.CloseDay(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReopenDay elevates a cashier for this request when a valid manager
// PIN arrives in the X-Manager-PIN header or the body. A supplied PIN that
// does not match is refused even for admins.
func (a *API) handleReopenDay(w http.ResponseWriter, r *http.Request) {
	var req domain.ReopenDayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.DayID = r.PathValue("id")

	pin := strings.TrimSpace(r.Header.Get("X-Manager-PIN"))
	if pin == "" {
		pin = strings.TrimSpace(req.ManagerPIN)
	}
	req.ManagerPIN = ""

	ctx := r.Context()
	if pin != "" {
		if !a.pinLimiter.Allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errors.New("too many manager PIN attempts"))
			return
		}
		if !a.auth.ValidateManagerPIN(pin) {
			writeError(w, http.StatusForbidden, errors.New("invalid manager PIN"))
			return
		}
		actor, _ := service.ActorFromContext(ctx)
		actor.Elevated = true
		ctx = service.WithActor(ctx, actor)
	}

	day, err := a.service.ReopenDay(ctx, req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"day": day})
}

func (a *API) handlePreviewClose(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.PreviewClose(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.TransactionRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tx, err := a.service.RecordTransaction(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"transaction": tx})
}

func (a *API) handleRecordCreditTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.CreditTransactionRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tx, err := a.service.RecordCreditTransaction(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"credit_transaction": tx})
}

func (a *API) handleRecordSupplierPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.SupplierPaymentRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payment, err := a.service.RecordSupplierPayment(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"supplier_payment": payment})
}

func (a *API) handleRecordCashMovement(w http.ResponseWriter, r *http.Request) {
	var req domain.CashMovementRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	movement, err := a.service.RecordCashMovement(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"cash_movement": movement})
}
