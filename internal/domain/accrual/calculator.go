package accrual

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidDateRange is returned when the due date is not strictly after
// the start date.
var ErrInvalidDateRange = errors.New("invalid_date_range")

type Mode string

const (
	// ModeDaily prices short-term pawns per diem.
	ModeDaily Mode = "daily"
	// ModeMonthly amortizes longer loans as fixed installments.
	ModeMonthly Mode = "monthly"
)

// dailyModeThresholdDays is the term length below which the daily pricing
// mode applies.
const dailyModeThresholdDays = 30

// Params are the business rates the calculator runs on. The defaults are
// contractual; changing them breaks output-compatibility with issued
// contracts.
type Params struct {
	DailyInterestRate decimal.Decimal
	DailyMoraRate     decimal.Decimal
	GracePeriodDays   int
}

func DefaultParams() Params {
	return Params{
		DailyInterestRate: decimal.RequireFromString("0.0005"),
		DailyMoraRate:     decimal.RequireFromString("0.0010"),
		GracePeriodDays:   3,
	}
}

// Estimate is the projected cost of a loan over its contracted term. In
// daily mode Installments equals the term in days and Installment is the
// average daily payment, not a schedule. In monthly mode Installments is
// the number of fixed amortization payments.
type Estimate struct {
	Mode          Mode            `json:"mode"`
	TermDays      int             `json:"term_days"`
	Installments  int             `json:"installments"`
	Installment   decimal.Decimal `json:"installment"`
	InterestTotal decimal.Decimal `json:"interest_total"`
	MoraEstimate  decimal.Decimal `json:"mora_estimate"`
}

// MarshalJSON keeps money in the fixed two-decimal format issued contracts
// carry; decimal's default rendering trims trailing zeros.
func (e Estimate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mode          Mode   `json:"mode"`
		TermDays      int    `json:"term_days"`
		Installments  int    `json:"installments"`
		Installment   string `json:"installment"`
		InterestTotal string `json:"interest_total"`
		MoraEstimate  string `json:"mora_estimate"`
	}{
		Mode:          e.Mode,
		TermDays:      e.TermDays,
		Installments:  e.Installments,
		Installment:   e.Installment.StringFixed(2),
		InterestTotal: e.InterestTotal.StringFixed(2),
		MoraEstimate:  e.MoraEstimate.StringFixed(2),
	})
}

// Compute estimates interest and mora for a loan under the default business
// parameters. Pure: no side effects, no clock access.
func Compute(principal decimal.Decimal, startDate, dueDate time.Time) (Estimate, error) {
	return ComputeWith(DefaultParams(), principal, startDate, dueDate)
}

// ComputeWith is Compute with explicit parameters. The caller guarantees
// principal >= 0; the only failure over valid money is an inverted date
// range.
func ComputeWith(p Params, principal decimal.Decimal, startDate, dueDate time.Time) (Estimate, error) {
	if !truncateToDay(dueDate).After(truncateToDay(startDate)) {
		return Estimate{}, ErrInvalidDateRange
	}

	termDays := daysBetween(startDate, dueDate)
	if termDays < 1 {
		termDays = 1
	}

	mora := principal.
		Mul(p.DailyMoraRate).
		Mul(decimal.NewFromInt(int64(p.GracePeriodDays))).
		Round(2)

	if termDays < dailyModeThresholdDays {
		return dailyEstimate(p, principal, termDays, mora), nil
	}
	return monthlyEstimate(p, principal, startDate, dueDate, termDays, mora), nil
}

func dailyEstimate(p Params, principal decimal.Decimal, termDays int, mora decimal.Decimal) Estimate {
	days := decimal.NewFromInt(int64(termDays))
	interest := principal.Mul(p.DailyInterestRate).Mul(days).Round(2)
	installment := principal.Add(interest).Div(days).Round(2)

	return Estimate{
		Mode:          ModeDaily,
		TermDays:      termDays,
		Installments:  termDays,
		Installment:   installment,
		InterestTotal: interest,
		MoraEstimate:  mora,
	}
}

func monthlyEstimate(p Params, principal decimal.Decimal, startDate, dueDate time.Time, termDays int, mora decimal.Decimal) Estimate {
	n := monthsBetween(startDate, dueDate)
	if n < 1 {
		n = 1
	}

	one := decimal.NewFromInt(1)
	// Equivalent monthly rate from the daily rate: (1 + r)^30 - 1.
	monthlyRate := one.Add(p.DailyInterestRate).Pow(decimal.NewFromInt(30)).Sub(one)

	// Fixed-installment amortization: P * m / (1 - (1 + m)^-n).
	growth := one.Add(monthlyRate).Pow(decimal.NewFromInt(int64(n)))
	denominator := one.Sub(one.Div(growth))
	installment := principal.Mul(monthlyRate).Div(denominator).Round(2)
	interestTotal := installment.Mul(decimal.NewFromInt(int64(n))).Sub(principal).Round(2)

	return Estimate{
		Mode:          ModeMonthly,
		TermDays:      termDays,
		Installments:  n,
		Installment:   installment,
		InterestTotal: interestTotal,
		MoraEstimate:  mora,
	}
}

// AccruedMora is the late penalty actually accrued by now: zero until the
// grace period after the due date lapses, then linear per elapsed day.
func AccruedMora(p Params, principal decimal.Decimal, dueDate, now time.Time) decimal.Decimal {
	graceEnd := truncateToDay(dueDate).AddDate(0, 0, p.GracePeriodDays)
	lateDays := daysBetween(graceEnd, now)
	if lateDays <= 0 {
		return decimal.Zero.Round(2)
	}
	return principal.
		Mul(p.DailyMoraRate).
		Mul(decimal.NewFromInt(int64(lateDays))).
		Round(2)
}

func daysBetween(from, to time.Time) int {
	return int(truncateToDay(to).Sub(truncateToDay(from)).Hours() / 24)
}

// monthsBetween counts calendar months from start to due, rounding any
// partial trailing month up.
func monthsBetween(start, due time.Time) int {
	s := truncateToDay(start)
	d := truncateToDay(due)
	months := (d.Year()-s.Year())*12 + int(d.Month()) - int(s.Month())
	if d.Day() > s.Day() {
		months++
	}
	return months
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
