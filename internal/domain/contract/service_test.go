package contract

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeRepo struct {
	ct *Entity

	// forceNotApplied simulates losing a conditional write to a concurrent
	// transition even when the in-memory check passed.
	forceNotApplied bool
	cryptoWrites    int
}

func (r *fakeRepo) Create(_ context.Context, in CreateInput) (*Entity, error) {
	r.ct = &Entity{ID: "contract-1", LoanID: in.LoanID, ContentHash: in.ContentHash}
	return r.copyOut(), nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*Entity, error) {
	if r.ct == nil || r.ct.ID != id {
		return nil, ErrNotFound
	}
	return r.copyOut(), nil
}

func (r *fakeRepo) GetByLoanID(_ context.Context, loanID string) (*Entity, error) {
	if r.ct == nil || r.ct.LoanID != loanID {
		return nil, ErrNotFound
	}
	return r.copyOut(), nil
}

func (r *fakeRepo) SetClientSignature(_ context.Context, id string, at time.Time, ip string) (bool, error) {
	if r.forceNotApplied || r.ct == nil || r.ct.ID != id || r.ct.ClientSignedAt != nil {
		return false, nil
	}
	r.ct.ClientSignedAt = &at
	r.ct.ClientSignerIP = ip
	return true, nil
}

func (r *fakeRepo) SetCompanySignature(_ context.Context, id string, at time.Time, ip string) (bool, error) {
	if r.forceNotApplied || r.ct == nil || r.ct.ID != id || r.ct.ClientSignedAt == nil || r.ct.CompanySignedAt != nil {
		return false, nil
	}
	r.ct.CompanySignedAt = &at
	r.ct.CompanySignerIP = ip
	return true, nil
}

func (r *fakeRepo) SetCryptoSignature(_ context.Context, id string, signature, newContentHash []byte) (bool, error) {
	if r.forceNotApplied || r.ct == nil || r.ct.ID != id || !r.ct.Completed() || r.ct.CryptoSigned {
		return false, nil
	}
	r.cryptoWrites++
	r.ct.CryptoSigned = true
	r.ct.CryptoSignature = signature
	r.ct.ContentHash = newContentHash
	return true, nil
}

func (r *fakeRepo) copyOut() *Entity {
	cp := *r.ct
	return &cp
}

func seededRepo(t *testing.T) *fakeRepo {
	t.Helper()
	repo := &fakeRepo{}
	if _, err := repo.Create(context.Background(), CreateInput{LoanID: "loan-1", ContentHash: []byte("content-hash")}); err != nil {
		t.Fatalf("seed contract: %v", err)
	}
	return repo
}

func testSigner(t *testing.T) *Ed25519Signer {
	t.Helper()
	s, err := NewEd25519SignerFromHex(strings.Repeat("cd", ed25519.SeedSize))
	if err != nil {
		t.Fatalf("build signer: %v", err)
	}
	return s
}

func TestServiceSignClient(t *testing.T) {
	repo := seededRepo(t)
	svc := NewService(repo, nil)
	ctx := context.Background()

	if _, err := svc.SignClient(ctx, "contract-1", nil, "10.0.0.2"); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}

	ct, err := svc.SignClient(ctx, "contract-1", []byte("blob"), "10.0.0.2")
	if err != nil {
		t.Fatalf("sign client: %v", err)
	}
	if ct.State() != StateAwaitingCompanySignature || ct.ClientSignerIP != "10.0.0.2" {
		t.Fatalf("unexpected contract after client signature: %+v", ct)
	}

	if _, err := svc.SignClient(ctx, "contract-1", []byte("blob"), "10.0.0.2"); !errors.Is(err, ErrAlreadySigned) {
		t.Fatalf("expected ErrAlreadySigned, got %v", err)
	}
}

func TestServiceSignClientLosesRace(t *testing.T) {
	repo := seededRepo(t)
	repo.forceNotApplied = true
	svc := NewService(repo, nil)

	if _, err := svc.SignClient(context.Background(), "contract-1", []byte("blob"), "10.0.0.2"); !errors.Is(err, ErrAlreadySigned) {
		t.Fatalf("expected ErrAlreadySigned when the conditional write loses, got %v", err)
	}
}

func TestServiceSignCompanyRequiresClientFirst(t *testing.T) {
	repo := seededRepo(t)
	svc := NewService(repo, nil)
	ctx := context.Background()

	if _, err := svc.SignCompany(ctx, "contract-1", []byte("blob"), "10.0.0.1"); !errors.Is(err, ErrOutOfOrderSignature) {
		t.Fatalf("expected ErrOutOfOrderSignature, got %v", err)
	}

	if _, err := svc.SignClient(ctx, "contract-1", []byte("blob"), "10.0.0.2"); err != nil {
		t.Fatalf("sign client: %v", err)
	}
	ct, err := svc.SignCompany(ctx, "contract-1", []byte("blob"), "10.0.0.1")
	if err != nil {
		t.Fatalf("sign company: %v", err)
	}
	if !ct.Completed() || ct.State() != StateFullySigned {
		t.Fatalf("expected fully signed contract, got %s", ct.State())
	}
}

func TestServiceSignCryptographically(t *testing.T) {
	repo := seededRepo(t)
	signer := testSigner(t)
	svc := NewService(repo, signer)
	ctx := context.Background()

	// Both parties must have signed first.
	if _, err := svc.SignCryptographically(ctx, "contract-1"); !errors.Is(err, ErrOutOfOrderSignature) {
		t.Fatalf("expected ErrOutOfOrderSignature, got %v", err)
	}

	if _, err := svc.SignClient(ctx, "contract-1", []byte("blob"), "10.0.0.2"); err != nil {
		t.Fatalf("sign client: %v", err)
	}
	if _, err := svc.SignCompany(ctx, "contract-1", []byte("blob"), "10.0.0.1"); err != nil {
		t.Fatalf("sign company: %v", err)
	}

	ct, err := svc.SignCryptographically(ctx, "contract-1")
	if err != nil {
		t.Fatalf("sign cryptographically: %v", err)
	}
	if ct.State() != StateCryptographicallySigned {
		t.Fatalf("expected cryptographically_signed, got %s", ct.State())
	}
	if !ed25519.Verify(signer.PublicKey(), []byte("content-hash"), ct.CryptoSignature) {
		t.Fatalf("counter-signature does not verify over the original hash")
	}
	if !bytes.Equal(ct.ContentHash, RegenerateHash([]byte("content-hash"), ct.CryptoSignature)) {
		t.Fatalf("content hash not re-issued from signature")
	}

	// Repeating the call returns the existing result without another write.
	again, err := svc.SignCryptographically(ctx, "contract-1")
	if err != nil {
		t.Fatalf("repeat sign: %v", err)
	}
	if !bytes.Equal(again.CryptoSignature, ct.CryptoSignature) || repo.cryptoWrites != 1 {
		t.Fatalf("expected idempotent repeat, writes=%d", repo.cryptoWrites)
	}
}

func TestServiceSignCryptographicallyWithoutKey(t *testing.T) {
	repo := seededRepo(t)
	svc := NewService(repo, nil)
	ctx := context.Background()

	if _, err := svc.SignClient(ctx, "contract-1", []byte("blob"), "10.0.0.2"); err != nil {
		t.Fatalf("sign client: %v", err)
	}
	if _, err := svc.SignCompany(ctx, "contract-1", []byte("blob"), "10.0.0.1"); err != nil {
		t.Fatalf("sign company: %v", err)
	}

	if _, err := svc.SignCryptographically(ctx, "contract-1"); !errors.Is(err, ErrCryptoUnavailable) {
		t.Fatalf("expected ErrCryptoUnavailable, got %v", err)
	}
}
