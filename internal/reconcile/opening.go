package reconcile

import (
	"github.com/shopspring/decimal"

	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/money"
)

// OpeningThreshold bounds how far a new day's opening amounts may drift from
// the previous close before a significant-variance signal is raised.
type OpeningThreshold struct {
	Absolute decimal.Decimal
	Percent  decimal.Decimal
}

func DefaultOpeningThreshold() OpeningThreshold {
	return OpeningThreshold{
		Absolute: decimal.NewFromInt(50),
		Percent:  decimal.NewFromInt(5),
	}
}

// CheckOpening compares a requested opening amount with the previous close.
// The percentage rule only applies when the previous close is positive.
func CheckOpening(channel string, requested, previousClose decimal.Decimal, th OpeningThreshold) (domain.OpeningVariance, bool) {
	diff := requested.Sub(previousClose)
	v := domain.OpeningVariance{
		Channel:       channel,
		Requested:     requested,
		PreviousClose: previousClose,
		Difference:    diff,
	}

	significant := diff.Abs().GreaterThan(th.Absolute)
	if previousClose.IsPositive() {
		v.Percent = diff.Abs().Mul(money.Hundred).DivRound(previousClose, 2)
		if diff.Abs().Mul(money.Hundred).GreaterThan(th.Percent.Mul(previousClose)) {
			significant = true
		}
	}
	return v, significant
}

// OpeningVariances checks both channels against the previous closed day.
// Closing fields that were never set compare as zero.
func OpeningVariances(openingCash, openingBank decimal.Decimal, previous domain.DayOperation, th OpeningThreshold) []domain.OpeningVariance {
	out := make([]domain.OpeningVariance, 0, 2)
	if v, ok := CheckOpening(domain.ChannelCash, openingCash, money.Or(previous.ClosingCash), th); ok {
		out = append(out, v)
	}
	if v, ok := CheckOpening(domain.ChannelBank, openingBank, money.Or(previous.ActualBank), th); ok {
		out = append(out, v)
	}
	return out
}
