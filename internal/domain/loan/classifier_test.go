package loan

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDerive(t *testing.T) {
	due := date(2025, 6, 1)
	moraDefaultDays := 30

	cases := []struct {
		name        string
		debt        string
		status      Status
		fullySigned bool
		now         time.Time
		want        Status
	}{
		{"signed with debt before due", "500.00", StatusActive, true, date(2025, 5, 1), StatusActive},
		{"unsigned before due", "500.00", StatusAwaitingSignatures, false, date(2025, 5, 1), StatusAwaitingSignatures},
		{"debt cleared before due stays active", "0.00", StatusActive, true, date(2025, 5, 1), StatusActive},
		{"debt cleared past due closes", "0.00", StatusActive, true, date(2025, 6, 2), StatusClosed},
		{"debt past due within mora window", "500.00", StatusActive, true, date(2025, 6, 15), StatusPartialDefault},
		{"debt past mora window", "500.00", StatusActive, true, date(2025, 7, 2), StatusFullDefault},
		{"exactly at mora boundary still partial", "500.00", StatusActive, true, date(2025, 7, 1), StatusPartialDefault},
		{"administrative close wins over everything", "500.00", StatusClosed, true, date(2025, 7, 2), StatusClosed},
		{"default outranks missing signatures", "500.00", StatusAwaitingSignatures, false, date(2025, 7, 2), StatusFullDefault},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := Entity{
				Principal: money("1000.00"),
				StartDate: date(2025, 1, 1),
				DueDate:   due,
				Debt:      money(tc.debt),
				Status:    tc.status,
			}
			if got := Derive(l, tc.fullySigned, tc.now, moraDefaultDays); got != tc.want {
				t.Fatalf("Derive() = %s, want %s", got, tc.want)
			}
		})
	}
}
