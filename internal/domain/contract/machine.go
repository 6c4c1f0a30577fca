package contract

import "time"

// State derives the signature state from the recorded timestamps.
func (e *Entity) State() SignatureState {
	switch {
	case e.CryptoSigned:
		return StateCryptographicallySigned
	case e.ClientSignedAt != nil && e.CompanySignedAt != nil:
		return StateFullySigned
	case e.ClientSignedAt != nil:
		return StateAwaitingCompanySignature
	default:
		return StateAwaitingClientSignature
	}
}

// Completed reports whether both parties have signed.
func (e *Entity) Completed() bool {
	return e.ClientSignedAt != nil && e.CompanySignedAt != nil
}

// SignClient applies the client signature transition in memory. The caller
// is responsible for having authorized the signer as the loan's owning
// client; the machine enforces ordering and idempotence only.
func (e *Entity) SignClient(at time.Time, ip string) error {
	if e.ClientSignedAt != nil {
		return ErrAlreadySigned
	}
	e.ClientSignedAt = &at
	e.ClientSignerIP = ip
	return nil
}

// SignCompany applies the company signature transition in memory. The
// client must have signed first; completing this transition is the instant
// the owning loan becomes active, which the repository commits atomically
// with the signature write.
func (e *Entity) SignCompany(at time.Time, ip string) error {
	if e.ClientSignedAt == nil {
		return ErrOutOfOrderSignature
	}
	if e.CompanySignedAt != nil {
		return ErrAlreadySigned
	}
	e.CompanySignedAt = &at
	e.CompanySignerIP = ip
	return nil
}

// ApplyCryptoSignature attaches the counter-signature and the regenerated
// content hash. Valid only once both parties have signed; calling it again
// after success is the caller's no-op to detect via CryptoSigned.
func (e *Entity) ApplyCryptoSignature(signature, newContentHash []byte) error {
	if !e.Completed() {
		return ErrOutOfOrderSignature
	}
	if e.CryptoSigned {
		return ErrAlreadySigned
	}
	e.CryptoSigned = true
	e.CryptoSignature = signature
	e.ContentHash = newContentHash
	return nil
}
