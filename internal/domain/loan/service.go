package loan

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FintechGT/empeno-backend/internal/domain/accrual"
	contractdomain "github.com/FintechGT/empeno-backend/internal/domain/contract"
)

const outboxTopicRefreshAccrual = "refresh_loan_accrual"

var ErrInvalidPrincipal = errors.New("invalid_principal")

type CreateRequest struct {
	ClientID  string          `json:"client_id"`
	Principal decimal.Decimal `json:"principal"`
	StartDate time.Time       `json:"start_date"`
	DueDate   time.Time       `json:"due_date"`
}

type ContractRepository interface {
	Create(ctx context.Context, in contractdomain.CreateInput) (*contractdomain.Entity, error)
	GetByLoanID(ctx context.Context, loanID string) (*contractdomain.Entity, error)
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, topic string, payload []byte) error
}

type Service struct {
	loanRepo        Repository
	contractRepo    ContractRepository
	outboxRepo      OutboxRepository
	params          accrual.Params
	moraDefaultDays int
	now             func() time.Time
}

func NewService(loanRepo Repository, contractRepo ContractRepository, outboxRepo OutboxRepository, moraDefaultDays int) *Service {
	return &Service{
		loanRepo:        loanRepo,
		contractRepo:    contractRepo,
		outboxRepo:      outboxRepo,
		params:          accrual.DefaultParams(),
		moraDefaultDays: moraDefaultDays,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Create registers an approved evaluation as a loan awaiting signatures,
// seeds its contract and records the contracted interest as initial debt.
func (s *Service) Create(ctx context.Context, in CreateRequest) (*Entity, *contractdomain.Entity, accrual.Estimate, error) {
	if strings.TrimSpace(in.ClientID) == "" || in.Principal.IsNegative() {
		return nil, nil, accrual.Estimate{}, ErrInvalidPrincipal
	}

	est, err := accrual.ComputeWith(s.params, in.Principal, in.StartDate, in.DueDate)
	if err != nil {
		return nil, nil, accrual.Estimate{}, err
	}

	created, err := s.loanRepo.Create(ctx, CreateInput{
		ClientID:         strings.TrimSpace(in.ClientID),
		Principal:        in.Principal,
		StartDate:        in.StartDate,
		DueDate:          in.DueDate,
		InterestEstimate: est.InterestTotal,
		MoraEstimate:     est.MoraEstimate,
	})
	if err != nil {
		return nil, nil, accrual.Estimate{}, err
	}

	contentHash := contractdomain.HashContent(created.ID, in.Principal, in.StartDate, in.DueDate)
	ct, err := s.contractRepo.Create(ctx, contractdomain.CreateInput{
		LoanID:      created.ID,
		ContentHash: contentHash,
	})
	if err != nil {
		return nil, nil, accrual.Estimate{}, err
	}

	if err := s.enqueueRefresh(ctx, created.ID); err != nil {
		return nil, nil, accrual.Estimate{}, err
	}

	return created, ct, est, nil
}

// Get returns the loan with its status derived live from debt, term and
// signature completion rather than the cached column.
func (s *Service) Get(ctx context.Context, loanID string) (*Entity, error) {
	l, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	fullySigned, err := s.fullySigned(ctx, loanID)
	if err != nil {
		return nil, err
	}
	l.Status = Derive(*l, fullySigned, s.now(), s.moraDefaultDays)
	return l, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Entity, error) {
	return s.loanRepo.List(ctx, f)
}

// EstimateCurrent reruns the calculator over the loan's contracted
// principal and term, for display next to the live debt figure.
func (s *Service) EstimateCurrent(ctx context.Context, loanID string) (accrual.Estimate, error) {
	l, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return accrual.Estimate{}, err
	}
	return accrual.ComputeWith(s.params, l.Principal, l.StartDate, l.DueDate)
}

// Recalculate refreshes the cached accrual columns and display status of a
// loan. Driven by the outbox worker after payments, activation and on the
// periodic sweep.
func (s *Service) Recalculate(ctx context.Context, loanID string) error {
	l, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return err
	}
	if l.Status == StatusClosed {
		return nil
	}

	est, err := accrual.ComputeWith(s.params, l.Principal, l.StartDate, l.DueDate)
	if err != nil {
		return err
	}
	mora := accrual.AccruedMora(s.params, l.Principal, l.DueDate, s.now())

	refreshed, err := s.loanRepo.RefreshAccrual(ctx, loanID, est.InterestTotal, mora)
	if err != nil {
		return err
	}

	fullySigned, err := s.fullySigned(ctx, loanID)
	if err != nil {
		return err
	}
	status := Derive(*refreshed, fullySigned, s.now(), s.moraDefaultDays)
	if status == refreshed.Status {
		return nil
	}
	return s.loanRepo.UpdateStatus(ctx, loanID, status)
}

// Close is the administrative terminal transition; the loan row survives,
// only its status changes.
func (s *Service) Close(ctx context.Context, loanID string) (*Entity, error) {
	return s.loanRepo.Close(ctx, loanID)
}

func (s *Service) fullySigned(ctx context.Context, loanID string) (bool, error) {
	ct, err := s.contractRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return false, err
	}
	return ct.Completed(), nil
}

func (s *Service) enqueueRefresh(ctx context.Context, loanID string) error {
	payload, _ := json.Marshal(map[string]any{"loan_id": loanID})
	return s.outboxRepo.Enqueue(ctx, outboxTopicRefreshAccrual, payload)
}
