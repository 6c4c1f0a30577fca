package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	contractdomain "github.com/FintechGT/empeno-backend/internal/domain/contract"
	loandomain "github.com/FintechGT/empeno-backend/internal/domain/loan"
)

// ContractRepository provides the signature completion the service needs to
// rederive a loan's status after a payment applies.
type ContractRepository interface {
	GetByLoanID(ctx context.Context, loanID string) (*contractdomain.Entity, error)
}

type Service struct {
	repo            Repository
	contracts       ContractRepository
	moraDefaultDays int
	now             func() time.Time
}

func NewService(repo Repository, contracts ContractRepository, moraDefaultDays int) *Service {
	return &Service{
		repo:            repo,
		contracts:       contracts,
		moraDefaultDays: moraDefaultDays,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Create records intake of money against a loan. The payment starts pending
// and has no effect on debt until validated.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Entity, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	channel := strings.ToLower(strings.TrimSpace(in.Channel))
	if channel == "" {
		channel = ChannelCash
	}

	return s.repo.Create(ctx, CreateInput{
		LoanID:    strings.TrimSpace(in.LoanID),
		Amount:    in.Amount,
		Channel:   channel,
		Reference: strings.TrimSpace(in.Reference),
		ProofURI:  strings.TrimSpace(in.ProofURI),
	})
}

func (s *Service) Get(ctx context.Context, id string) (*Entity, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByLoan(ctx context.Context, loanID string, limit, offset int32) ([]Entity, error) {
	return s.repo.ListByLoan(ctx, loanID, limit, offset)
}

// Validate recognizes a pending payment against the loan. Returns the
// finalized payment plus the loan with its debt reduced and status rederived
// from its contract's signature completion.
func (s *Service) Validate(ctx context.Context, paymentID, note string) (*Entity, *loandomain.Entity, error) {
	p, l, err := s.repo.Validate(ctx, paymentID, strings.TrimSpace(note))
	if err != nil {
		return nil, nil, err
	}
	signed, err := s.fullySigned(ctx, l.ID)
	if err != nil {
		return nil, nil, err
	}
	l.Status = loandomain.Derive(*l, signed, s.now(), s.moraDefaultDays)
	return p, l, nil
}

func (s *Service) fullySigned(ctx context.Context, loanID string) (bool, error) {
	ct, err := s.contracts.GetByLoanID(ctx, loanID)
	if errors.Is(err, contractdomain.ErrNotFound) {
		// Rows migrated from before contracts existed count as unsigned.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ct.Completed(), nil
}

// Reject finalizes a pending payment without touching debt.
func (s *Service) Reject(ctx context.Context, paymentID, reason string) (*Entity, error) {
	return s.repo.Reject(ctx, paymentID, strings.TrimSpace(reason))
}
