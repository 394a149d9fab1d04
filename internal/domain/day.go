package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DayStatus string

const (
	DayStatusOpen     DayStatus = "open"
	DayStatusClosed   DayStatus = "closed"
	DayStatusReopened DayStatus = "reopened"
)

// DateLayout is the layout of business dates.
const DateLayout = "2006-01-02"

// DayOperation is one store's trading day.
type DayOperation struct {
	ID           string           `json:"id"`
	StoreID      string           `json:"store_id"`
	BusinessDate string           `json:"business_date"`
	Status       DayStatus        `json:"status"`
	OpeningCash  decimal.Decimal  `json:"opening_cash"`
	OpeningBank  decimal.Decimal  `json:"opening_bank"`
	ClosingCash  *decimal.Decimal `json:"closing_cash,omitempty"`
	ActualBank   *decimal.Decimal `json:"actual_bank,omitempty"`
	ExpectedCash *decimal.Decimal `json:"expected_cash,omitempty"`
	ExpectedBank *decimal.Decimal `json:"expected_bank,omitempty"`
	CashVariance *decimal.Decimal `json:"cash_variance,omitempty"`
	BankVariance *decimal.Decimal `json:"bank_variance,omitempty"`
	CloseNotes   string           `json:"close_notes,omitempty"`
	OpenedAt     time.Time        `json:"opened_at"`
	OpenedBy     string           `json:"opened_by"`
	ClosedAt     *time.Time       `json:"closed_at,omitempty"`
	ClosedBy     string           `json:"closed_by,omitempty"`
	ReopenedAt   *time.Time       `json:"reopened_at,omitempty"`
	ReopenedBy   string           `json:"reopened_by,omitempty"`
	ReopenNotes  string           `json:"reopen_notes,omitempty"`
	ReopenCount  int              `json:"reopen_count"`
}

// IsActive reports whether the day accepts new money movements.
func (d DayOperation) IsActive() bool {
	return d.Status == DayStatusOpen || d.Status == DayStatusReopened
}

// DayClosing is the snapshot written atomically when a day closes.
type DayClosing struct {
	ClosingCash  decimal.Decimal
	ActualBank   decimal.Decimal
	ExpectedCash decimal.Decimal
	ExpectedBank decimal.Decimal
	CashVariance decimal.Decimal
	BankVariance decimal.Decimal
	Notes        string
	ClosedAt     time.Time
	ClosedBy     string
}

// DayReopening is the state change written atomically when a day reopens.
type DayReopening struct {
	Note       string
	ReopenedAt time.Time
	ReopenedBy string
}

type OpenDayRequest struct {
	StoreID      string          `json:"store_id"`
	BusinessDate string          `json:"business_date"`
	OpeningCash  decimal.Decimal `json:"opening_cash"`
	OpeningBank  decimal.Decimal `json:"opening_bank"`
}

// OpeningVariance is the advisory signal raised when opening amounts drift
// from the previous day's closing amounts.
type OpeningVariance struct {
	Channel       string          `json:"channel"`
	Requested     decimal.Decimal `json:"requested"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Difference    decimal.Decimal `json:"difference"`
	Percent       decimal.Decimal `json:"percent"`
}

type OpenDayResponse struct {
	Day                 DayOperation      `json:"day"`
	SignificantVariance bool              `json:"significant_variance"`
	Variances           []OpeningVariance `json:"variances,omitempty"`
	PreviousDayID       string            `json:"previous_day_id,omitempty"`
}

type CloseDayRequest struct {
	DayID      string          `json:"-"`
	ActualCash decimal.Decimal `json:"actual_cash"`
	ActualBank decimal.Decimal `json:"actual_bank"`
	Notes      string          `json:"notes,omitempty"`
}

type CloseDayResponse struct {
	Day            DayOperation   `json:"day"`
	Reconciliation Reconciliation `json:"reconciliation"`
	Variance       Variance       `json:"variance"`
}

type ReopenDayRequest struct {
	DayID      string `json:"-"`
	Note       string `json:"note"`
	ManagerPIN string `json:"manager_pin,omitempty"`
}

type DayStatusResponse struct {
	StoreID              string           `json:"store_id"`
	BusinessDate         string           `json:"business_date"`
	Status               string           `json:"status"`
	CanOpen              bool             `json:"can_open"`
	CanClose             bool             `json:"can_close"`
	CanReopen            bool             `json:"can_reopen"`
	Message              string           `json:"message"`
	Day                  *DayOperation    `json:"day,omitempty"`
	ActiveDay            *DayOperation    `json:"active_day,omitempty"`
	SuggestedOpeningCash *decimal.Decimal `json:"suggested_opening_cash,omitempty"`
	SuggestedOpeningBank *decimal.Decimal `json:"suggested_opening_bank,omitempty"`
}

// DayStatusNone is reported when no record exists for the requested date.
const DayStatusNone = "no_day"

type DayListResponse struct {
	Days []DayOperation `json:"days"`
}

type ReconciliationPreviewResponse struct {
	Day            DayOperation   `json:"day"`
	Reconciliation Reconciliation `json:"reconciliation"`
}
