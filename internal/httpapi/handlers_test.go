package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirharian/backend/internal/apperror"
	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/service"
	"kasirharian/backend/internal/store/memory"
)

const testManagerPIN = "482913"

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.New()
	svc := service.New(repo, service.Options{DefaultStoreID: "main-store"})
	auth := NewAuthManager("test-secret-key-with-enough-length!", time.Hour, testManagerPIN, repo, nil)
	return New(svc, auth, "*", nil)
}

type call struct {
	method  string
	path    string
	token   string
	body    any
	headers map[string]string
}

func do(t *testing.T, api *API, c call) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if c.body != nil {
		payload, err := json.Marshal(c.body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(c.method, c.path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", api.generateCSRFToken())
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func decodeBody[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out), res.Body.String())
	return out
}

func login(t *testing.T, api *API, username, password string) string {
	t.Helper()
	res := do(t, api, call{method: http.MethodPost, path: "/api/v1/auth/login", body: domain.LoginRequest{Username: username, Password: password}})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	payload := decodeBody[domain.LoginResponse](t, res)
	require.NotEmpty(t, payload.AccessToken)
	return payload.AccessToken
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	res := do(t, api, call{method: http.MethodGet, path: "/healthz"})
	require.Equal(t, http.StatusOK, res.Code)
	body := decodeBody[map[string]any](t, res)
	assert.Equal(t, true, body["ok"])
}

func TestHandleLogin(t *testing.T) {
	api := newTestAPI(t)

	token := login(t, api, "admin", "admin123")
	assert.NotEmpty(t, token)

	res := do(t, api, call{method: http.MethodPost, path: "/api/v1/auth/login", body: domain.LoginRequest{Username: "admin", Password: "wrong"}})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestDayEndpointsRequireToken(t *testing.T) {
	api := newTestAPI(t)

	res := do(t, api, call{method: http.MethodGet, path: "/api/v1/days/status"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = do(t, api, call{method: http.MethodGet, path: "/api/v1/days/status", token: "not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestDayLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	cashier := login(t, api, "cashier", "cashier123")

	res := do(t, api, call{method: http.MethodGet, path: "/api/v1/days/status", token: cashier})
	require.Equal(t, http.StatusOK, res.Code)
	status := decodeBody[domain.DayStatusResponse](t, res)
	assert.Equal(t, domain.DayStatusNone, status.Status)
	assert.True(t, status.CanOpen)

	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/days/open", token: cashier, body: map[string]any{"opening_cash": "500.00", "opening_bank": 0}})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	opened := decodeBody[domain.OpenDayResponse](t, res)
	dayID := opened.Day.ID
	require.NotEmpty(t, dayID)

	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/days/open", token: cashier, body: map[string]any{"opening_cash": "500.00"}})
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, apperror.CodeConflict, decodeBody[map[string]any](t, res)["code"])

	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/ledger/transactions", token: cashier, body: map[string]any{"total": "120.50", "payment_method": "cash"}})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/ledger/transactions", token: cashier, body: map[string]any{"total": "40", "payment_method": "card"}})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/ledger/cash-movements", token: cashier, body: map[string]any{"kind": "expense", "amount": "20.50", "note": "ice"}})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	res = do(t, api, call{method: http.MethodGet, path: "/api/v1/days/" + dayID + "/preview", token: cashier})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	preview := decodeBody[domain.ReconciliationPreviewResponse](t, res)
	assert.True(t, preview.Reconciliation.ExpectedCash.Equal(decimal.RequireFromString("600")), preview.Reconciliation.ExpectedCash.String())
	assert.True(t, preview.Reconciliation.ExpectedBank.Equal(decimal.RequireFromString("40")))

	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/days/" + dayID + "/close", token: cashier, body: map[string]any{"actual_cash": "598", "actual_bank": "40"}})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	closed := decodeBody[domain.CloseDayResponse](t, res)
	assert.Equal(t, domain.DayStatusClosed, closed.Day.Status)
	assert.Equal(t, domain.VarianceShortage, closed.Variance.CashStatus)
	assert.True(t, closed.Variance.CashVariance.Equal(decimal.NewFromInt(-2)))
	assert.Equal(t, domain.VarianceMatch, closed.Variance.BankStatus)

	res = do(t, api, call{method: http.MethodGet, path: "/api/v1/days", token: cashier})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, decodeBody[domain.DayListResponse](t, res).Days, 1)
}

func TestReopenRequiresElevation(t *testing.T) {
	api := newTestAPI(t)
	cashier := login(t, api, "cashier", "cashier123")

	res := do(t, api, call{method: http.MethodPost, path: "/api/v1/days/open", token: cashier, body: map[string]any{"opening_cash": "100"}})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	dayID := decodeBody[domain.OpenDayResponse](t, res).Day.ID

	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/days/" + dayID + "/close", token: cashier, body: map[string]any{"actual_cash": "100"}})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	reopenPath := "/api/v1/days/" + dayID + "/reopen"

	res = do(t, api, call{method: http.MethodPost, path: reopenPath, token: cashier, body: map[string]any{"note": "recount"}})
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, apperror.CodeForbidden, decodeBody[map[string]any](t, res)["code"])

	res = do(t, api, call{method: http.MethodPost, path: reopenPath, token: cashier, body: map[string]any{"note": "recount", "manager_pin": "000000"}})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = do(t, api, call{method: http.MethodPost, path: reopenPath, token: cashier, body: map[string]any{"note": "recount"}, headers: map[string]string{"X-Manager-PIN": testManagerPIN}})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	reopened := decodeBody[map[string]domain.DayOperation](t, res)["day"]
	assert.Equal(t, domain.DayStatusReopened, reopened.Status)
	assert.Equal(t, 1, reopened.ReopenCount)

	res = do(t, api, call{method: http.MethodPost, path: reopenPath, token: cashier, body: map[string]any{"note": "again", "manager_pin": testManagerPIN}})
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	api := newTestAPI(t)
	cashier := login(t, api, "cashier", "cashier123")

	res := do(t, api, call{method: http.MethodPost, path: "/api/v1/days/open", token: cashier, body: map[string]any{"opening_cash": "-5"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, apperror.CodeValidation, decodeBody[map[string]any](t, res)["code"])

	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/days/day-missing/close", token: cashier, body: map[string]any{"actual_cash": "1"}})
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/ledger/cash-movements", token: cashier, body: map[string]any{"kind": "owner_deposit", "amount": "10"}})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/days/open", token: cashier, body: map[string]any{"opening_cash": "1", "surprise": true}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestAdminOnlyRoutes(t *testing.T) {
	api := newTestAPI(t)
	cashier := login(t, api, "cashier", "cashier123")
	admin := login(t, api, "admin", "admin123")

	cfg := map[string]any{"category": "beverage", "rate": "11", "active": true}
	res := do(t, api, call{method: http.MethodPost, path: "/api/v1/vat/configs", token: cashier, body: cfg})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/vat/configs", token: admin, body: cfg})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = do(t, api, call{method: http.MethodPut, path: "/api/v1/vat/default", token: admin, body: map[string]any{"rate": "10"}})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/vat/calculate", token: cashier, body: map[string]any{"item": map[string]any{"category": "Beverage", "base_price": "200"}}})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	calc := decodeBody[domain.VATCalculation](t, res)
	assert.Equal(t, domain.VATSourceCategory, calc.Source)
	assert.True(t, calc.VATAmount.Equal(decimal.NewFromInt(22)))

	res = do(t, api, call{method: http.MethodGet, path: "/api/v1/audit-logs", token: cashier})
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = do(t, api, call{method: http.MethodGet, path: "/api/v1/audit-logs", token: admin})
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestPromotionDiscountOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	cashier := login(t, api, "cashier", "cashier123")
	admin := login(t, api, "admin", "admin123")

	res := do(t, api, call{method: http.MethodPost, path: "/api/v1/promotions", token: admin, body: map[string]any{
		"name": "Beli 2 gratis 1", "discount_type": "buy_x_get_y", "value": "0", "buy_quantity": 2, "get_quantity": 1,
	}})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	promo := decodeBody[map[string]domain.Promotion](t, res)["promotion"]

	res = do(t, api, call{method: http.MethodPost, path: "/api/v1/discounts/calculate", token: cashier, body: map[string]any{
		"promotion_id": promo.ID,
		"cart_total":   "30",
		"items":        []map[string]any{{"price": "10", "quantity": 3}},
	}})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	discount := decodeBody[domain.DiscountResponse](t, res)
	assert.True(t, discount.Amount.Equal(decimal.NewFromInt(10)), discount.Amount.String())
	assert.Equal(t, 1, discount.FreeUnits)

	res = do(t, api, call{method: http.MethodGet, path: "/api/v1/promotions?active=true", token: cashier})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, decodeBody[map[string][]domain.Promotion](t, res)["promotions"], 1)
}

func TestWriteServiceErrorHidesInternalCause(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/x", nil).WithContext(context.Background())
	res := httptest.NewRecorder()

	api.writeServiceError(res, req, apperror.NewInternal(errors.New("pq: relation day_operations does not exist")))

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.NotContains(t, res.Body.String(), "day_operations")
	assert.Contains(t, res.Body.String(), "internal server error")

	res = httptest.NewRecorder()
	api.writeServiceError(res, req, errors.New("plain failure"))
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.NotContains(t, res.Body.String(), "plain failure")
}
