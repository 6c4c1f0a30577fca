package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Derive computes the display status of a loan from its debt, term and
// signature completion. Pure; recomputed on every read. Precedence when
// several conditions hold: closed > full default > partial default >
// awaiting signatures > active.
func Derive(l Entity, fullySigned bool, now time.Time, moraDefaultDays int) Status {
	debtOutstanding := l.Debt.GreaterThan(decimal.Zero)
	pastDue := now.After(l.DueDate)

	switch {
	case l.Status == StatusClosed:
		// Administrative close is terminal regardless of anything else.
		return StatusClosed
	case !debtOutstanding && pastDue:
		return StatusClosed
	case debtOutstanding && now.After(l.DueDate.AddDate(0, 0, moraDefaultDays)):
		return StatusFullDefault
	case debtOutstanding && pastDue:
		return StatusPartialDefault
	case !fullySigned:
		return StatusAwaitingSignatures
	default:
		return StatusActive
	}
}
