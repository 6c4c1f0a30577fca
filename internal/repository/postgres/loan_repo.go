package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	loandomain "github.com/FintechGT/empeno-backend/internal/domain/loan"
)

const loanColumns = `id, client_id, principal, start_date, due_date,
       interest_accrued, mora_accrued, debt, overpayment, status, created_at, updated_at`

type LoanRepository struct {
	pool *pgxpool.Pool
}

func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

func scanLoan(row pgx.Row) (*loandomain.Entity, error) {
	out := &loandomain.Entity{}
	var rawStatus string
	err := row.Scan(
		&out.ID, &out.ClientID, &out.Principal, &out.StartDate, &out.DueDate,
		&out.InterestAccrued, &out.MoraAccrued, &out.Debt, &out.Overpayment,
		&rawStatus, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	status, err := loandomain.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	out.Status = status
	return out, nil
}

func (r *LoanRepository) Create(ctx context.Context, in loandomain.CreateInput) (*loandomain.Entity, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
INSERT INTO loans (
  id, client_id, principal, start_date, due_date,
  interest_accrued, mora_accrued, debt, overpayment, status
) VALUES ($1,$2,$3,$4,$5,$6,0,$7,0,'awaiting_signatures')
RETURNING ` + loanColumns

	initialDebt := in.Principal.Add(in.InterestEstimate)
	out, err := scanLoan(tx.QueryRow(ctx, q,
		uuid.NewString(), in.ClientID, in.Principal, in.StartDate, in.DueDate,
		in.InterestEstimate, initialDebt,
	))
	if err != nil {
		return nil, err
	}

	// The contracted estimates live in the audit stream; mora_accrued stays
	// zero until the loan actually runs late.
	payload, err := json.Marshal(map[string]string{
		"principal":         in.Principal.StringFixed(2),
		"interest_estimate": in.InterestEstimate.StringFixed(2),
		"mora_estimate":     in.MoraEstimate.StringFixed(2),
	})
	if err != nil {
		return nil, err
	}
	if err := insertLoanEvent(ctx, tx, out.ID, "loan_created", payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (*loandomain.Entity, error) {
	q := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	out, err := scanLoan(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, loandomain.ErrNotFound
	}
	return out, err
}

func (r *LoanRepository) List(ctx context.Context, f loandomain.ListFilter) ([]loandomain.Entity, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + loanColumns + ` FROM loans WHERE 1=1`)

	args := []any{}
	argPos := 1
	if strings.TrimSpace(f.ClientID) != "" {
		builder.WriteString(" AND client_id = $")
		builder.WriteString(strconv.Itoa(argPos))
		args = append(args, f.ClientID)
		argPos++
	}
	if strings.TrimSpace(f.Status) != "" {
		builder.WriteString(" AND status = $")
		builder.WriteString(strconv.Itoa(argPos))
		args = append(args, f.Status)
		argPos++
	}
	builder.WriteString(" ORDER BY created_at DESC")
	builder.WriteString(" LIMIT $")
	builder.WriteString(strconv.Itoa(argPos))
	args = append(args, f.Limit)
	argPos++
	builder.WriteString(" OFFSET $")
	builder.WriteString(strconv.Itoa(argPos))
	args = append(args, f.Offset)

	rows, err := r.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loandomain.Entity, 0)
	for rows.Next() {
		item, err := scanLoan(rows)
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

// RefreshAccrual rewrites the accrual columns and rederives debt from the
// validated-payment sum, keeping the debt invariant and the zero floor in
// one statement. Closed loans are returned untouched.
func (r *LoanRepository) RefreshAccrual(ctx context.Context, id string, interest, mora decimal.Decimal) (*loandomain.Entity, error) {
	q := `
UPDATE loans
SET interest_accrued = $2,
    mora_accrued = $3,
    debt = GREATEST(principal + $2 + $3 - (
      SELECT COALESCE(SUM(amount), 0) FROM payments
      WHERE loan_id = loans.id AND status = 'validated'
    ), 0),
    updated_at = NOW()
WHERE id = $1 AND status != 'closed'
RETURNING ` + loanColumns

	out, err := scanLoan(r.pool.QueryRow(ctx, q, id, interest, mora))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetByID(ctx, id)
	}
	return out, err
}

func (r *LoanRepository) UpdateStatus(ctx context.Context, id string, status loandomain.Status) error {
	q := `UPDATE loans SET status = $2, updated_at = NOW() WHERE id = $1 AND status != 'closed'`
	_, err := r.pool.Exec(ctx, q, id, status.String())
	return err
}

// Close applies the administrative terminal transition. Closing an already
// closed loan is a no-op returning the current row.
func (r *LoanRepository) Close(ctx context.Context, id string) (*loandomain.Entity, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
UPDATE loans SET status = 'closed', updated_at = NOW()
WHERE id = $1 AND status != 'closed'
RETURNING ` + loanColumns

	out, err := scanLoan(tx.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	if err := insertLoanEvent(ctx, tx, id, "loan_closed", []byte(`{}`)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
