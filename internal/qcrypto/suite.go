// Package qcrypto is the crypto suite (§4.1): Dilithium3 post-quantum
// signatures, Ed25519 classical signatures, SHA3-256/SHA3-512 hashing,
// Blake3 for non-cryptographic identifiers, and PBKDF2+AES-GCM for at-rest
// secret wrapping. Every verify function is pure and takes no time input;
// time-dependent checks such as certificate expiry live with the callers,
// which read time from internal/clock.
package qcrypto

// FailureReason classifies why a verification failed, per §4.1's
// "classified failure reason" requirement.
type FailureReason int

const (
	FailureNone FailureReason = iota
	FailureSignatureMalformed
	FailureKeyMismatch
	FailureExpiredCertificate
	FailureNotVerifiable
)

func (f FailureReason) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureSignatureMalformed:
		return "signature_malformed"
	case FailureKeyMismatch:
		return "key_mismatch"
	case FailureExpiredCertificate:
		return "expired_certificate"
	case FailureNotVerifiable:
		return "not_verifiable"
	default:
		return "unknown"
	}
}

// VerifyResult is the return shape of every verify function in this
// package: a boolean plus a classified failure reason when false.
type VerifyResult struct {
	Valid  bool
	Reason FailureReason
}

func ok() VerifyResult  { return VerifyResult{Valid: true, Reason: FailureNone} }
func fail(r FailureReason) VerifyResult { return VerifyResult{Valid: false, Reason: r} }
