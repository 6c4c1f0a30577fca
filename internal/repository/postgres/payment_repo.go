package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	loandomain "github.com/FintechGT/empeno-backend/internal/domain/loan"
	paymentdomain "github.com/FintechGT/empeno-backend/internal/domain/payment"
)

const paymentColumns = `id, loan_id, amount, channel,
       COALESCE(reference, ''), COALESCE(proof_uri, ''), status,
       COALESCE(note, ''), created_at, resolved_at`

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func scanPayment(row pgx.Row) (*paymentdomain.Entity, error) {
	out := &paymentdomain.Entity{}
	var rawStatus string
	err := row.Scan(
		&out.ID, &out.LoanID, &out.Amount, &out.Channel,
		&out.Reference, &out.ProofURI, &rawStatus,
		&out.Note, &out.CreatedAt, &out.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	status, err := paymentdomain.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	out.Status = status
	return out, nil
}

func (r *PaymentRepository) Create(ctx context.Context, in paymentdomain.CreateInput) (*paymentdomain.Entity, error) {
	q := `
INSERT INTO payments (id, loan_id, amount, channel, reference, proof_uri, status)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), 'pending')
RETURNING ` + paymentColumns
	return scanPayment(r.pool.QueryRow(ctx, q,
		uuid.NewString(), in.LoanID, in.Amount, in.Channel, in.Reference, in.ProofURI,
	))
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*paymentdomain.Entity, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	out, err := scanPayment(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, paymentdomain.ErrNotFound
	}
	return out, err
}

func (r *PaymentRepository) ListByLoan(ctx context.Context, loanID string, limit, offset int32) ([]paymentdomain.Entity, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE loan_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, loanID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]paymentdomain.Entity, 0)
	for rows.Next() {
		item, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate finalizes a pending payment and applies it to the owning loan in
// one transaction. The payment flip is a conditional update on the pending
// status, so of two concurrent attempts exactly one commits; the other sees
// zero rows and gets ErrAlreadyFinalized. The debt decrement clamps at zero
// and banks the excess in overpayment; both SET expressions read the
// pre-update debt.
func (r *PaymentRepository) Validate(ctx context.Context, id, note string) (*paymentdomain.Entity, *loandomain.Entity, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	flip := `
UPDATE payments SET status = 'validated', note = NULLIF($2, ''), resolved_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING ` + paymentColumns
	p, err := scanPayment(tx.QueryRow(ctx, flip, id, note))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, r.classifyMissing(ctx, id)
	}
	if err != nil {
		return nil, nil, err
	}

	apply := `
UPDATE loans
SET overpayment = overpayment + GREATEST($2 - debt, 0),
    debt = GREATEST(debt - $2, 0),
    updated_at = NOW()
WHERE id = $1
RETURNING ` + loanColumns
	l, err := scanLoan(tx.QueryRow(ctx, apply, p.LoanID, p.Amount))
	if err != nil {
		return nil, nil, err
	}

	payload, _ := json.Marshal(map[string]any{
		"payment_id": p.ID,
		"amount":     p.Amount.StringFixed(2),
		"debt_after": l.Debt.StringFixed(2),
	})
	if err := insertLoanEvent(ctx, tx, p.LoanID, "payment_validated", payload); err != nil {
		return nil, nil, err
	}
	refresh, _ := json.Marshal(map[string]any{"loan_id": p.LoanID})
	if err := enqueueOutbox(ctx, tx, "refresh_loan_accrual", refresh); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return p, l, nil
}

// Reject finalizes a pending payment with no effect on debt.
func (r *PaymentRepository) Reject(ctx context.Context, id, reason string) (*paymentdomain.Entity, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
UPDATE payments SET status = 'rejected', note = NULLIF($2, ''), resolved_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING ` + paymentColumns
	p, err := scanPayment(tx.QueryRow(ctx, q, id, reason))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyMissing(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]any{"payment_id": p.ID, "reason": reason})
	if err := insertLoanEvent(ctx, tx, p.LoanID, "payment_rejected", payload); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) classifyMissing(ctx context.Context, id string) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return paymentdomain.ErrNotFound
	}
	return paymentdomain.ErrAlreadyFinalized
}
