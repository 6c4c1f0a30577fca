package contract

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadySigned is returned when a party re-attempts a signature it
	// has already provided.
	ErrAlreadySigned = errors.New("already_signed")
	// ErrOutOfOrderSignature is returned when the company attempts to sign
	// before the client, or a crypto signature is attempted before
	// completion.
	ErrOutOfOrderSignature = errors.New("out_of_order_signature")
	// ErrCryptoUnavailable is returned when no signing key is configured in
	// the environment.
	ErrCryptoUnavailable = errors.New("crypto_unavailable")

	ErrNotFound = errors.New("contract_not_found")
)

type SignatureState string

const (
	StateAwaitingClientSignature  SignatureState = "awaiting_client_signature"
	StateAwaitingCompanySignature SignatureState = "awaiting_company_signature"
	StateFullySigned              SignatureState = "fully_signed"
	StateCryptographicallySigned  SignatureState = "cryptographically_signed"
)

// Entity is a dual-party contract over a loan. Signature state is derived
// from which timestamps are present, never stored separately.
type Entity struct {
	ID              string     `json:"id"`
	LoanID          string     `json:"loan_id"`
	ContentHash     []byte     `json:"content_hash"`
	ClientSignedAt  *time.Time `json:"client_signed_at"`
	CompanySignedAt *time.Time `json:"company_signed_at"`
	ClientSignerIP  string     `json:"client_signer_ip,omitempty"`
	CompanySignerIP string     `json:"company_signer_ip,omitempty"`
	CryptoSigned    bool       `json:"crypto_signed"`
	CryptoSignature []byte     `json:"crypto_signature,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type CreateInput struct {
	LoanID      string
	ContentHash []byte
}

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*Entity, error)
	GetByID(ctx context.Context, id string) (*Entity, error)
	GetByLoanID(ctx context.Context, loanID string) (*Entity, error)
	// SetClientSignature is a conditional write: it only applies while the
	// client signature is absent and reports whether it applied.
	SetClientSignature(ctx context.Context, id string, at time.Time, ip string) (bool, error)
	// SetCompanySignature applies only when the client has signed and the
	// company has not; committed atomically with the owning loan's
	// transition to active.
	SetCompanySignature(ctx context.Context, id string, at time.Time, ip string) (bool, error)
	// SetCryptoSignature applies only once on a fully signed contract.
	SetCryptoSignature(ctx context.Context, id string, signature, newContentHash []byte) (bool, error)
}
