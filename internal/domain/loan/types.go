package loan

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("loan_not_found")

// Entity is a pawn loan. Debt satisfies
// debt = principal + interest_accrued + mora_accrued - sum(validated payments),
// clamped at zero; the clamped remainder accumulates in Overpayment.
type Entity struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"client_id"`
	Principal       decimal.Decimal `json:"principal"`
	StartDate       time.Time       `json:"start_date"`
	DueDate         time.Time       `json:"due_date"`
	InterestAccrued decimal.Decimal `json:"interest_accrued"`
	MoraAccrued     decimal.Decimal `json:"mora_accrued"`
	Debt            decimal.Decimal `json:"debt"`
	Overpayment     decimal.Decimal `json:"overpayment"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// MarshalJSON renders money columns with two fixed decimals so API clients
// see "100.50", not decimal's zero-trimmed "100.5".
func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID              string    `json:"id"`
		ClientID        string    `json:"client_id"`
		Principal       string    `json:"principal"`
		StartDate       time.Time `json:"start_date"`
		DueDate         time.Time `json:"due_date"`
		InterestAccrued string    `json:"interest_accrued"`
		MoraAccrued     string    `json:"mora_accrued"`
		Debt            string    `json:"debt"`
		Overpayment     string    `json:"overpayment"`
		Status          Status    `json:"status"`
		CreatedAt       time.Time `json:"created_at"`
		UpdatedAt       time.Time `json:"updated_at"`
	}{
		ID:              e.ID,
		ClientID:        e.ClientID,
		Principal:       e.Principal.StringFixed(2),
		StartDate:       e.StartDate,
		DueDate:         e.DueDate,
		InterestAccrued: e.InterestAccrued.StringFixed(2),
		MoraAccrued:     e.MoraAccrued.StringFixed(2),
		Debt:            e.Debt.StringFixed(2),
		Overpayment:     e.Overpayment.StringFixed(2),
		Status:          e.Status,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	})
}

type CreateInput struct {
	ClientID         string
	Principal        decimal.Decimal
	StartDate        time.Time
	DueDate          time.Time
	InterestEstimate decimal.Decimal
	MoraEstimate     decimal.Decimal
}

type ListFilter struct {
	ClientID string
	Status   string
	Limit    int32
	Offset   int32
}

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*Entity, error)
	GetByID(ctx context.Context, id string) (*Entity, error)
	List(ctx context.Context, f ListFilter) ([]Entity, error)
	// RefreshAccrual rewrites the cached accrual columns and rederives debt
	// from the validated-payment sum; the returned entity carries the new
	// debt. Closed loans are left untouched.
	RefreshAccrual(ctx context.Context, id string, interest, mora decimal.Decimal) (*Entity, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	// Close is the administrative terminal transition.
	Close(ctx context.Context, id string) (*Entity, error)
}
