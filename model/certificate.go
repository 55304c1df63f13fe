package model

// HybridCertificate binds an Ed25519 identity key to a Dilithium key via a
// Dilithium signature over the Ed25519 public key. Lifetime 270s, rotation
// at 80% of lifetime (216s).
type HybridCertificate struct {
	Ed25519PK             [32]byte `cbor:"ed25519_pk"`
	DilithiumPK           []byte   `cbor:"dilithium_pk"`
	DilithiumSigOfEd25519 []byte   `cbor:"dilithium_sig_of_ed25519"`
	Serial                string   `cbor:"serial"`
	IssuedAt              uint64   `cbor:"issued_at"`
	ValidFrom             uint64   `cbor:"valid_from"`
	ValidUntil            uint64   `cbor:"valid_until"`
	IssuerNodeID          string   `cbor:"issuer_node_id"`
}

const (
	// CertificateLifetimeSeconds is the certificate validity window.
	CertificateLifetimeSeconds = 270
	// CertificateRotationFraction is the fraction of lifetime at which
	// rotation becomes due (80%).
	CertificateRotationFraction = 0.80
	// CertificateCacheCapacity bounds the verified-certificate LRU.
	CertificateCacheCapacity = 100_000
	// CertificatePurgeAfterSeconds purges cache entries older than 2x
	// lifetime regardless of use.
	CertificatePurgeAfterSeconds = 2 * CertificateLifetimeSeconds
	// CertificateReplayGuardSeconds bounds how old issued_at may be.
	CertificateReplayGuardSeconds = 7_200
	// CertificateClockSkewSeconds bounds how far into the future
	// issued_at may appear.
	CertificateClockSkewSeconds = 60
)
