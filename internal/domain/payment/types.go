package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	loandomain "github.com/FintechGT/empeno-backend/internal/domain/loan"
)

var (
	// ErrInvalidAmount is returned when a payment is created with a
	// non-positive amount.
	ErrInvalidAmount = errors.New("invalid_amount")
	// ErrAlreadyFinalized is returned when validating or rejecting a payment
	// that already reached a terminal status.
	ErrAlreadyFinalized = errors.New("already_finalized")

	ErrNotFound = errors.New("payment_not_found")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
)

var legacyStatuses = map[string]Status{
	"pendiente": StatusPending,
	"validado":  StatusValidated,
	"rechazado": StatusRejected,
}

// ParseStatus accepts canonical and legacy persisted values,
// case-insensitively.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch Status(normalized) {
	case StatusPending, StatusValidated, StatusRejected:
		return Status(normalized), nil
	}
	if s, ok := legacyStatuses[normalized]; ok {
		return s, nil
	}
	return "", fmt.Errorf("unknown payment status %q", raw)
}

// Well-known payment channels. The enum is open: other channel strings are
// accepted and stored normalized.
const (
	ChannelCash     = "cash"
	ChannelTransfer = "transfer"
	ChannelCard     = "card"
)

type Entity struct {
	ID         string          `json:"id"`
	LoanID     string          `json:"loan_id"`
	Amount     decimal.Decimal `json:"amount"`
	Channel    string          `json:"channel"`
	Reference  string          `json:"reference,omitempty"`
	ProofURI   string          `json:"proof_uri,omitempty"`
	Status     Status          `json:"status"`
	Note       string          `json:"note,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// MarshalJSON renders the amount with two fixed decimals so API clients see
// "500.00", not decimal's zero-trimmed "500".
func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string     `json:"id"`
		LoanID     string     `json:"loan_id"`
		Amount     string     `json:"amount"`
		Channel    string     `json:"channel"`
		Reference  string     `json:"reference,omitempty"`
		ProofURI   string     `json:"proof_uri,omitempty"`
		Status     Status     `json:"status"`
		Note       string     `json:"note,omitempty"`
		CreatedAt  time.Time  `json:"created_at"`
		ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	}{
		ID:         e.ID,
		LoanID:     e.LoanID,
		Amount:     e.Amount.StringFixed(2),
		Channel:    e.Channel,
		Reference:  e.Reference,
		ProofURI:   e.ProofURI,
		Status:     e.Status,
		Note:       e.Note,
		CreatedAt:  e.CreatedAt,
		ResolvedAt: e.ResolvedAt,
	})
}

type CreateInput struct {
	LoanID    string
	Amount    decimal.Decimal
	Channel   string
	Reference string
	ProofURI  string
}

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*Entity, error)
	GetByID(ctx context.Context, id string) (*Entity, error)
	ListByLoan(ctx context.Context, loanID string, limit, offset int32) ([]Entity, error)
	// Validate flips pending -> validated and decrements the owning loan's
	// debt (clamped at zero, overage recorded) in one transaction. The
	// pending check is a conditional update, so exactly one of two
	// concurrent attempts succeeds; the loser gets ErrAlreadyFinalized.
	Validate(ctx context.Context, id, note string) (*Entity, *loandomain.Entity, error)
	// Reject flips pending -> rejected with no debt effect.
	Reject(ctx context.Context, id, reason string) (*Entity, error)
}
