package loan

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FintechGT/empeno-backend/internal/domain/accrual"
	contractdomain "github.com/FintechGT/empeno-backend/internal/domain/contract"
)

type fakeLoanRepo struct {
	loans          map[string]*Entity
	created        []CreateInput
	statusUpdates  map[string]Status
	refreshedDebts map[string]string
}

func newFakeLoanRepo() *fakeLoanRepo {
	return &fakeLoanRepo{
		loans:          map[string]*Entity{},
		statusUpdates:  map[string]Status{},
		refreshedDebts: map[string]string{},
	}
}

func (r *fakeLoanRepo) Create(_ context.Context, in CreateInput) (*Entity, error) {
	r.created = append(r.created, in)
	l := &Entity{
		ID:              "loan-1",
		ClientID:        in.ClientID,
		Principal:       in.Principal,
		StartDate:       in.StartDate,
		DueDate:         in.DueDate,
		InterestAccrued: in.InterestEstimate,
		MoraAccrued:     decimal.Zero,
		Debt:            in.Principal.Add(in.InterestEstimate),
		Status:          StatusAwaitingSignatures,
	}
	r.loans[l.ID] = l
	return l, nil
}

func (r *fakeLoanRepo) GetByID(_ context.Context, id string) (*Entity, error) {
	l, ok := r.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLoanRepo) List(_ context.Context, _ ListFilter) ([]Entity, error) {
	out := make([]Entity, 0, len(r.loans))
	for _, l := range r.loans {
		out = append(out, *l)
	}
	return out, nil
}

func (r *fakeLoanRepo) RefreshAccrual(_ context.Context, id string, interest, mora decimal.Decimal) (*Entity, error) {
	l, ok := r.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	l.InterestAccrued = interest
	l.MoraAccrued = mora
	l.Debt = l.Principal.Add(interest).Add(mora)
	r.refreshedDebts[id] = l.Debt.StringFixed(2)
	cp := *l
	return &cp, nil
}

func (r *fakeLoanRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	l, ok := r.loans[id]
	if !ok {
		return ErrNotFound
	}
	l.Status = status
	r.statusUpdates[id] = status
	return nil
}

func (r *fakeLoanRepo) Close(_ context.Context, id string) (*Entity, error) {
	l, ok := r.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	l.Status = StatusClosed
	cp := *l
	return &cp, nil
}

type fakeContractRepo struct {
	byLoan  map[string]*contractdomain.Entity
	created []contractdomain.CreateInput
}

func newFakeContractRepo() *fakeContractRepo {
	return &fakeContractRepo{byLoan: map[string]*contractdomain.Entity{}}
}

func (r *fakeContractRepo) Create(_ context.Context, in contractdomain.CreateInput) (*contractdomain.Entity, error) {
	r.created = append(r.created, in)
	ct := &contractdomain.Entity{ID: "contract-1", LoanID: in.LoanID, ContentHash: in.ContentHash}
	r.byLoan[in.LoanID] = ct
	return ct, nil
}

func (r *fakeContractRepo) GetByLoanID(_ context.Context, loanID string) (*contractdomain.Entity, error) {
	ct, ok := r.byLoan[loanID]
	if !ok {
		return nil, contractdomain.ErrNotFound
	}
	return ct, nil
}

type fakeOutbox struct {
	topics   []string
	payloads [][]byte
}

func (o *fakeOutbox) Enqueue(_ context.Context, topic string, payload []byte) error {
	o.topics = append(o.topics, topic)
	o.payloads = append(o.payloads, payload)
	return nil
}

func sign(ct *contractdomain.Entity, at time.Time) {
	ct.ClientSignedAt = &at
	ct.CompanySignedAt = &at
}

func TestServiceCreate(t *testing.T) {
	loanRepo := newFakeLoanRepo()
	contractRepo := newFakeContractRepo()
	outbox := &fakeOutbox{}
	svc := NewService(loanRepo, contractRepo, outbox, 30)

	created, ct, est, err := svc.Create(context.Background(), CreateRequest{
		ClientID:  "client-1",
		Principal: money("1000"),
		StartDate: date(2025, 1, 1),
		DueDate:   date(2025, 1, 11),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.Status != StatusAwaitingSignatures {
		t.Fatalf("expected awaiting_signatures, got %s", created.Status)
	}
	if !est.InterestTotal.Equal(money("5.00")) {
		t.Fatalf("expected interest 5.00, got %s", est.InterestTotal)
	}
	if !created.Debt.Equal(money("1005.00")) {
		t.Fatalf("expected initial debt 1005.00, got %s", created.Debt)
	}
	if ct.LoanID != created.ID || len(ct.ContentHash) == 0 {
		t.Fatalf("contract not seeded from loan: %+v", ct)
	}

	if len(loanRepo.created) != 1 || !loanRepo.created[0].MoraEstimate.Equal(money("3.00")) {
		t.Fatalf("expected mora estimate 3.00 handed to the store, got %+v", loanRepo.created)
	}

	if len(outbox.topics) != 1 || outbox.topics[0] != outboxTopicRefreshAccrual {
		t.Fatalf("expected one refresh job, got %v", outbox.topics)
	}
	var payload struct {
		LoanID string `json:"loan_id"`
	}
	if err := json.Unmarshal(outbox.payloads[0], &payload); err != nil || payload.LoanID != created.ID {
		t.Fatalf("unexpected job payload: %s (%v)", outbox.payloads[0], err)
	}
}

func TestServiceCreateRejectsBadInput(t *testing.T) {
	svc := NewService(newFakeLoanRepo(), newFakeContractRepo(), &fakeOutbox{}, 30)

	_, _, _, err := svc.Create(context.Background(), CreateRequest{
		ClientID:  "",
		Principal: money("1000"),
		StartDate: date(2025, 1, 1),
		DueDate:   date(2025, 1, 11),
	})
	if !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal for missing client, got %v", err)
	}

	_, _, _, err = svc.Create(context.Background(), CreateRequest{
		ClientID:  "client-1",
		Principal: money("-5"),
		StartDate: date(2025, 1, 1),
		DueDate:   date(2025, 1, 11),
	})
	if !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal for negative principal, got %v", err)
	}

	_, _, _, err = svc.Create(context.Background(), CreateRequest{
		ClientID:  "client-1",
		Principal: money("1000"),
		StartDate: date(2025, 1, 11),
		DueDate:   date(2025, 1, 1),
	})
	if !errors.Is(err, accrual.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestServiceGetDerivesStatus(t *testing.T) {
	loanRepo := newFakeLoanRepo()
	contractRepo := newFakeContractRepo()
	svc := NewService(loanRepo, contractRepo, &fakeOutbox{}, 30)

	created, ct, _, err := svc.Create(context.Background(), CreateRequest{
		ClientID:  "client-1",
		Principal: money("1000"),
		StartDate: date(2025, 1, 1),
		DueDate:   date(2025, 1, 11),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Unsigned: stays awaiting signatures.
	svc.now = func() time.Time { return date(2025, 1, 5) }
	got, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusAwaitingSignatures {
		t.Fatalf("expected awaiting_signatures, got %s", got.Status)
	}

	// Fully signed with outstanding debt before due: active, regardless of
	// the cached column.
	sign(contractRepo.byLoan[ct.LoanID], date(2025, 1, 2))
	got, err = svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusActive {
		t.Fatalf("expected active, got %s", got.Status)
	}

	// Past due with debt inside the mora window: partial default.
	svc.now = func() time.Time { return date(2025, 1, 20) }
	got, err = svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusPartialDefault {
		t.Fatalf("expected partial_default, got %s", got.Status)
	}
}

func TestServiceRecalculate(t *testing.T) {
	loanRepo := newFakeLoanRepo()
	contractRepo := newFakeContractRepo()
	svc := NewService(loanRepo, contractRepo, &fakeOutbox{}, 30)

	created, ct, _, err := svc.Create(context.Background(), CreateRequest{
		ClientID:  "client-1",
		Principal: money("1000"),
		StartDate: date(2025, 1, 1),
		DueDate:   date(2025, 1, 11),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sign(contractRepo.byLoan[ct.LoanID], date(2025, 1, 2))

	// Ten days past grace: mora accrues and the loan is past due.
	svc.now = func() time.Time { return date(2025, 1, 24) }
	if err := svc.Recalculate(context.Background(), created.ID); err != nil {
		t.Fatalf("recalculate: %v", err)
	}

	refreshed := loanRepo.loans[created.ID]
	if !refreshed.MoraAccrued.Equal(money("10.00")) {
		t.Fatalf("expected mora 10.00, got %s", refreshed.MoraAccrued)
	}
	if loanRepo.statusUpdates[created.ID] != StatusPartialDefault {
		t.Fatalf("expected status update to partial_default, got %q", loanRepo.statusUpdates[created.ID])
	}
}

func TestServiceRecalculateSkipsClosed(t *testing.T) {
	loanRepo := newFakeLoanRepo()
	contractRepo := newFakeContractRepo()
	svc := NewService(loanRepo, contractRepo, &fakeOutbox{}, 30)

	created, _, _, err := svc.Create(context.Background(), CreateRequest{
		ClientID:  "client-1",
		Principal: money("1000"),
		StartDate: date(2025, 1, 1),
		DueDate:   date(2025, 1, 11),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Close(context.Background(), created.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := svc.Recalculate(context.Background(), created.ID); err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if _, refreshed := loanRepo.refreshedDebts[created.ID]; refreshed {
		t.Fatalf("expected no accrual refresh on a closed loan")
	}
}
