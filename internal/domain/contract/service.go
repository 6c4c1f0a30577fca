package contract

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMissingSignature is returned when a signature call carries no blob.
var ErrMissingSignature = errors.New("missing_signature_blob")

type Service struct {
	repo   Repository
	signer Signer
	now    func() time.Time
}

// NewService wires the state machine over its store. A nil signer disables
// cryptographic counter-signatures.
func NewService(repo Repository, signer Signer) *Service {
	return &Service{
		repo:   repo,
		signer: signer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, contractID string) (*Entity, error) {
	return s.repo.GetByID(ctx, contractID)
}

func (s *Service) GetByLoanID(ctx context.Context, loanID string) (*Entity, error) {
	return s.repo.GetByLoanID(ctx, loanID)
}

// SignClient records the client signature. Identity is the caller's
// precondition; here only ordering and idempotence are enforced.
func (s *Service) SignClient(ctx context.Context, contractID string, signatureBlob []byte, signerIP string) (*Entity, error) {
	if len(signatureBlob) == 0 {
		return nil, ErrMissingSignature
	}

	ct, err := s.repo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if err := ct.SignClient(at, signerIP); err != nil {
		return nil, err
	}

	applied, err := s.repo.SetClientSignature(ctx, contractID, at, signerIP)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost a race against another signature write.
		return nil, ErrAlreadySigned
	}
	return s.repo.GetByID(ctx, contractID)
}

// SignCompany records the company signature and, in the same transaction,
// moves the owning loan from awaiting signatures to active.
func (s *Service) SignCompany(ctx context.Context, contractID string, signatureBlob []byte, signerIP string) (*Entity, error) {
	if len(signatureBlob) == 0 {
		return nil, ErrMissingSignature
	}

	ct, err := s.repo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if err := ct.SignCompany(at, signerIP); err != nil {
		return nil, err
	}

	applied, err := s.repo.SetCompanySignature(ctx, contractID, at, signerIP)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent transition got there first; reload to report the
		// precise state conflict.
		fresh, err := s.repo.GetByID(ctx, contractID)
		if err != nil {
			return nil, err
		}
		cp := *fresh
		if err := cp.SignCompany(at, signerIP); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("company signature not applied")
	}
	return s.repo.GetByID(ctx, contractID)
}

// SignCryptographically attaches the certificate-backed counter-signature
// and re-issues the content hash. Repeating the call after success returns
// the existing result unchanged.
func (s *Service) SignCryptographically(ctx context.Context, contractID string) (*Entity, error) {
	ct, err := s.repo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if ct.CryptoSigned {
		return ct, nil
	}
	if !ct.Completed() {
		return nil, ErrOutOfOrderSignature
	}
	if s.signer == nil {
		return nil, ErrCryptoUnavailable
	}

	signature, err := s.signer.Sign(ct.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("sign contract: %w", err)
	}
	newHash := RegenerateHash(ct.ContentHash, signature)

	applied, err := s.repo.SetCryptoSignature(ctx, contractID, signature, newHash)
	if err != nil {
		return nil, err
	}
	if !applied {
		fresh, err := s.repo.GetByID(ctx, contractID)
		if err != nil {
			return nil, err
		}
		if fresh.CryptoSigned {
			return fresh, nil
		}
		return nil, fmt.Errorf("crypto signature not applied")
	}
	return s.repo.GetByID(ctx, contractID)
}
