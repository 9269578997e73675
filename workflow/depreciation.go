package workflow

import (
	"time"

	"github.com/mmcattleworks/herdbooks_backend/utils"
	"github.com/shopspring/decimal"
)

// DefaultUsefulLifeMonths is the straight-line useful life policy for
// dairy cattle (5 years, posted monthly).
const DefaultUsefulLifeMonths = 60

type DepreciationInput struct {
	PurchasePrice    decimal.Decimal
	SalvageValue     decimal.Decimal
	InServiceDate    time.Time
	AsOfDate         time.Time
	UsefulLifeMonths int
}

type DepreciationResult struct {
	MonthlyDepreciation     decimal.Decimal
	MonthsElapsed           int
	AccumulatedDepreciation decimal.Decimal
	BookValue               decimal.Decimal
}

// WholeCalendarMonths counts complete calendar months between from and to.
// Partial months are not pro-rated: a cow freshened Jan 15 has one elapsed
// month on Feb 15 and zero on Feb 14. Never negative.
func WholeCalendarMonths(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// ComputeDepreciation is the pure straight-line calculator. Deterministic,
// no I/O; safe to memoize per input tuple. Accumulated depreciation is
// capped at the depreciable base and book value is floored at salvage.
func ComputeDepreciation(input DepreciationInput) (DepreciationResult, error) {
	var result DepreciationResult

	if input.PurchasePrice.LessThanOrEqual(decimal.Zero) {
		return result, utils.NewValidationError("purchase price must be positive, got %s", input.PurchasePrice)
	}
	if input.SalvageValue.IsNegative() {
		return result, utils.NewValidationError("salvage value must not be negative, got %s", input.SalvageValue)
	}
	if input.SalvageValue.GreaterThan(input.PurchasePrice) {
		return result, utils.NewValidationError("salvage value %s exceeds purchase price %s", input.SalvageValue, input.PurchasePrice)
	}

	life := input.UsefulLifeMonths
	if life <= 0 {
		life = DefaultUsefulLifeMonths
	}

	depreciableBase := input.PurchasePrice.Sub(input.SalvageValue)
	monthly := depreciableBase.DivRound(decimal.NewFromInt(int64(life)), 4)
	monthsElapsed := WholeCalendarMonths(input.InServiceDate, input.AsOfDate)

	accumulated := monthly.Mul(decimal.NewFromInt(int64(monthsElapsed)))
	if accumulated.GreaterThan(depreciableBase) {
		accumulated = depreciableBase
	}

	bookValue := input.PurchasePrice.Sub(accumulated)
	if bookValue.LessThan(input.SalvageValue) {
		bookValue = input.SalvageValue
	}

	result.MonthlyDepreciation = monthly
	result.MonthsElapsed = monthsElapsed
	result.AccumulatedDepreciation = accumulated
	result.BookValue = bookValue
	return result, nil
}
