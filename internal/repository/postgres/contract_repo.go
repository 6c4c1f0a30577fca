package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	contractdomain "github.com/FintechGT/empeno-backend/internal/domain/contract"
)

const contractColumns = `id, loan_id, content_hash, client_signed_at, company_signed_at,
       COALESCE(client_signer_ip, ''), COALESCE(company_signer_ip, ''),
       crypto_signed, crypto_signature, created_at, updated_at`

type ContractRepository struct {
	pool *pgxpool.Pool
}

func NewContractRepository(pool *pgxpool.Pool) *ContractRepository {
	return &ContractRepository{pool: pool}
}

func scanContract(row pgx.Row) (*contractdomain.Entity, error) {
	out := &contractdomain.Entity{}
	err := row.Scan(
		&out.ID, &out.LoanID, &out.ContentHash, &out.ClientSignedAt, &out.CompanySignedAt,
		&out.ClientSignerIP, &out.CompanySignerIP,
		&out.CryptoSigned, &out.CryptoSignature, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ContractRepository) Create(ctx context.Context, in contractdomain.CreateInput) (*contractdomain.Entity, error) {
	q := `
INSERT INTO contracts (id, loan_id, content_hash, crypto_signed)
VALUES ($1, $2, $3, FALSE)
RETURNING ` + contractColumns
	return scanContract(r.pool.QueryRow(ctx, q, uuid.NewString(), in.LoanID, in.ContentHash))
}

func (r *ContractRepository) GetByID(ctx context.Context, id string) (*contractdomain.Entity, error) {
	q := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	out, err := scanContract(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contractdomain.ErrNotFound
	}
	return out, err
}

func (r *ContractRepository) GetByLoanID(ctx context.Context, loanID string) (*contractdomain.Entity, error) {
	q := `SELECT ` + contractColumns + ` FROM contracts WHERE loan_id = $1`
	out, err := scanContract(r.pool.QueryRow(ctx, q, loanID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contractdomain.ErrNotFound
	}
	return out, err
}

// SetClientSignature conditionally records the client signature. Returns
// false without error when another write already set it.
func (r *ContractRepository) SetClientSignature(ctx context.Context, id string, at time.Time, ip string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
UPDATE contracts SET client_signed_at = $2, client_signer_ip = $3, updated_at = NOW()
WHERE id = $1 AND client_signed_at IS NULL
RETURNING loan_id`
	var loanID string
	err = tx.QueryRow(ctx, q, id, at, ip).Scan(&loanID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, r.classifyMissing(ctx, id)
	}
	if err != nil {
		return false, err
	}

	payload, _ := json.Marshal(map[string]any{"contract_id": id, "signer_ip": ip})
	if err := insertLoanEvent(ctx, tx, loanID, "contract_client_signed", payload); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// SetCompanySignature conditionally records the company signature and, in
// the same transaction, activates the owning loan and schedules its accrual
// refresh. The conditional WHERE enforces signature ordering at the store,
// not just in application code.
func (r *ContractRepository) SetCompanySignature(ctx context.Context, id string, at time.Time, ip string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
UPDATE contracts SET company_signed_at = $2, company_signer_ip = $3, updated_at = NOW()
WHERE id = $1 AND client_signed_at IS NOT NULL AND company_signed_at IS NULL
RETURNING loan_id`
	var loanID string
	err = tx.QueryRow(ctx, q, id, at, ip).Scan(&loanID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, r.classifyMissing(ctx, id)
	}
	if err != nil {
		return false, err
	}

	activate := `UPDATE loans SET status = 'active', updated_at = NOW() WHERE id = $1 AND status = 'awaiting_signatures'`
	if _, err := tx.Exec(ctx, activate, loanID); err != nil {
		return false, err
	}

	payload, _ := json.Marshal(map[string]any{"contract_id": id, "signer_ip": ip})
	if err := insertLoanEvent(ctx, tx, loanID, "loan_activated", payload); err != nil {
		return false, err
	}
	refresh, _ := json.Marshal(map[string]any{"loan_id": loanID})
	if err := enqueueOutbox(ctx, tx, "refresh_loan_accrual", refresh); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// SetCryptoSignature conditionally attaches the counter-signature and the
// re-issued content hash, once, on a fully signed contract.
func (r *ContractRepository) SetCryptoSignature(ctx context.Context, id string, signature, newContentHash []byte) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
UPDATE contracts SET crypto_signed = TRUE, crypto_signature = $2, content_hash = $3, updated_at = NOW()
WHERE id = $1 AND crypto_signed = FALSE AND company_signed_at IS NOT NULL
RETURNING loan_id`
	var loanID string
	err = tx.QueryRow(ctx, q, id, signature, newContentHash).Scan(&loanID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, r.classifyMissing(ctx, id)
	}
	if err != nil {
		return false, err
	}

	payload, _ := json.Marshal(map[string]any{"contract_id": id})
	if err := insertLoanEvent(ctx, tx, loanID, "contract_crypto_signed", payload); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// classifyMissing separates "row does not exist" from "condition not met"
// after a conditional write touched zero rows.
func (r *ContractRepository) classifyMissing(ctx context.Context, id string) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM contracts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return contractdomain.ErrNotFound
	}
	return nil
}
