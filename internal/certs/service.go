// Package certs implements the Hybrid Certificate Service (§4.2): issuing,
// rotating, caching, and verifying certificates that bind an Ed25519
// identity key to a Dilithium public key.
package certs

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jellydator/ttlcache/v3"

	qnetclock "github.com/qnet-xyz/qnet-core/internal/clock"
	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
	"github.com/qnet-xyz/qnet-core/model"
)

// VerifyFailure classifies why Verify rejected a certificate, matching the
// six layered checks in §4.2.
type VerifyFailure int

const (
	VerifyOK VerifyFailure = iota
	VerifySpoof
	VerifyReplay
	VerifyExpired
	VerifyClockSkew
	VerifySignatureInvalid
	VerifyProducerMismatch
)

func (f VerifyFailure) String() string {
	switch f {
	case VerifyOK:
		return "ok"
	case VerifySpoof:
		return "spoof"
	case VerifyReplay:
		return "replay"
	case VerifyExpired:
		return "expired"
	case VerifyClockSkew:
		return "clock_skew"
	case VerifySignatureInvalid:
		return "signature_invalid"
	case VerifyProducerMismatch:
		return "producer_mismatch"
	default:
		return "unknown"
	}
}

// NodeKeys is the pair of long-lived keys a node's certificate binds.
type NodeKeys struct {
	NodeID      string
	Ed25519     qcrypto.Ed25519KeyPair
	Dilithium   qcrypto.DilithiumKeyPair
}

// Service owns the verified LRU cache and the shadow pending cache, and
// implements issue/rotate/verify.
type Service struct {
	clock qnetclock.Clock

	mu       sync.RWMutex
	verified *lru.Cache[string, model.HybridCertificate]
	pending  *ttlcache.Cache[string, model.HybridCertificate]

	lastBroadcastSerial map[string]string // node_id -> last serial broadcast
}

// NewService constructs a certificate service with the LRU and shadow
// caches sized per §4.2 (100k verified entries, 9-minute pending TTL).
func NewService(clock qnetclock.Clock) (*Service, error) {
	verified, err := lru.New[string, model.HybridCertificate](model.CertificateCacheCapacity)
	if err != nil {
		return nil, err
	}

	pending := ttlcache.New[string, model.HybridCertificate](
		ttlcache.WithTTL[string, model.HybridCertificate](9 * time.Minute),
	)
	go pending.Start()

	return &Service{
		clock:                clock,
		verified:             verified,
		pending:              pending,
		lastBroadcastSerial:  make(map[string]string),
	}, nil
}

// Issue signs keys.Ed25519's public key with the Dilithium private key,
// producing a fresh certificate with a new serial and a 270s lifetime.
func Issue(keys NodeKeys, now uint64) model.HybridCertificate {
	serial := serialFor(keys.NodeID, now)
	sig := qcrypto.DilithiumSign(keys.Dilithium.Private, keys.Ed25519.Public)

	var pk [32]byte
	copy(pk[:], keys.Ed25519.Public)

	return model.HybridCertificate{
		Ed25519PK:             pk,
		DilithiumPK:           qcrypto.DilithiumPublicKeyBytes(keys.Dilithium.Public),
		DilithiumSigOfEd25519: sig,
		Serial:                serial,
		IssuedAt:              now,
		ValidFrom:             now,
		ValidUntil:            now + model.CertificateLifetimeSeconds,
		IssuerNodeID:          keys.NodeID,
	}
}

func serialFor(nodeID string, validFrom uint64) string {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(validFrom >> (8 * i))
	}
	h := qcrypto.Blake3Sum256([]byte(nodeID), buf[:])
	return hexify(h[:])
}

func hexify(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

// NeedsRotation reports whether cert is at or past 80% of its lifetime.
func NeedsRotation(cert model.HybridCertificate, now uint64) bool {
	lifetime := cert.ValidUntil - cert.ValidFrom
	elapsed := now - cert.ValidFrom
	return float64(elapsed) >= model.CertificateRotationFraction*float64(lifetime)
}

// Rotate issues a new certificate for keys, keeping the Ed25519 key stable
// if the current certificate's key has not itself expired, otherwise the
// caller must regenerate keys.Ed25519 before calling Rotate.
func Rotate(keys NodeKeys, now uint64) model.HybridCertificate {
	return Issue(keys, now)
}

// VerifyResult is the outcome of the six-layer §4.2 verify sequence.
type VerifyResult struct {
	Valid        bool
	Failure      VerifyFailure
	ReputationDelta float64
}

// Verify runs the six layered checks in order: sender/node_id match,
// clock skew, replay guard, expiry, Dilithium verification of the embedded
// Ed25519 key, and (when checking against a block) producer match.
func Verify(cert model.HybridCertificate, senderID string, now uint64, producerID string) VerifyResult {
	if cert.IssuerNodeID != senderID {
		return VerifyResult{Valid: false, Failure: VerifySpoof, ReputationDelta: -20}
	}
	// Clock skew runs before the replay guard: a cert issued up to
	// CertificateClockSkewSeconds in the future is within tolerance, and
	// checking it here first avoids the replay guard underflowing
	// now-cert.IssuedAt for any cert whose issued_at is still ahead of now.
	if cert.IssuedAt > now+model.CertificateClockSkewSeconds {
		return VerifyResult{Valid: false, Failure: VerifyClockSkew}
	}
	if now > cert.IssuedAt && now-cert.IssuedAt > model.CertificateReplayGuardSeconds {
		return VerifyResult{Valid: false, Failure: VerifyReplay}
	}
	if now > cert.ValidUntil {
		return VerifyResult{Valid: false, Failure: VerifyExpired}
	}

	pub, vr := qcrypto.DilithiumPublicKeyFromBytes(cert.DilithiumPK)
	if !vr.Valid {
		return VerifyResult{Valid: false, Failure: VerifySignatureInvalid}
	}
	if res := qcrypto.DilithiumVerify(pub, cert.Ed25519PK[:], cert.DilithiumSigOfEd25519); !res.Valid {
		return VerifyResult{Valid: false, Failure: VerifySignatureInvalid}
	}

	if producerID != "" && cert.IssuerNodeID != producerID {
		return VerifyResult{Valid: false, Failure: VerifyProducerMismatch}
	}

	return VerifyResult{Valid: true, Failure: VerifyOK}
}

// AdmitPending synchronously admits a received certificate to the shadow
// cache (optimistic acceptance, §4.2); the caller kicks off asynchronous
// Dilithium verification separately and calls either PromoteVerified or
// RejectPending with the result.
func (s *Service) AdmitPending(cert model.HybridCertificate) {
	s.pending.Set(cert.Serial, cert, ttlcache.DefaultTTL)
}

// PromoteVerified moves a certificate from the pending shadow cache into
// the verified LRU once asynchronous Dilithium verification succeeds.
func (s *Service) PromoteVerified(cert model.HybridCertificate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Delete(cert.Serial)
	s.verified.Add(cert.Serial, cert)
}

// RejectPending removes a certificate that failed asynchronous verification.
func (s *Service) RejectPending(serial string) {
	s.pending.Delete(serial)
}

// Get returns a verified certificate by serial.
func (s *Service) Get(serial string) (model.HybridCertificate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verified.Get(serial)
}

// Purge evicts verified entries older than 2x lifetime regardless of LRU
// recency (§3 invariant on the certificate cache).
func (s *Service) Purge(now uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for _, serial := range s.verified.Keys() {
		cert, ok := s.verified.Peek(serial)
		if !ok {
			continue
		}
		if now-cert.IssuedAt > model.CertificatePurgeAfterSeconds {
			s.verified.Remove(serial)
			purged++
		}
	}
	return purged
}

// Len reports the current verified cache size.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verified.Len()
}

// ShouldBroadcast reports whether cert's serial differs from the last one
// broadcast for its issuer, implementing the anti-duplication rule for
// periodic re-broadcast (§4.2).
func (s *Service) ShouldBroadcast(cert model.HybridCertificate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.lastBroadcastSerial[cert.IssuerNodeID]
	if last == cert.Serial {
		return false
	}
	s.lastBroadcastSerial[cert.IssuerNodeID] = cert.Serial
	return true
}

// RebroadcastInterval returns the adaptive periodic re-broadcast interval
// for a node that has been up for uptimeSeconds (§4.2: 10s/30s/120s).
func RebroadcastInterval(uptimeSeconds uint64) uint64 {
	switch {
	case uptimeSeconds < 120:
		return 10
	case uptimeSeconds < 300:
		return 30
	default:
		return 120
	}
}

// TrackedBroadcastTimeout returns the adaptive ack-wait timeout for a
// tracked certificate-rotation broadcast to peerCount peers (§4.2).
func TrackedBroadcastTimeout(peerCount int) uint64 {
	switch {
	case peerCount <= 10:
		return 3
	case peerCount <= 100:
		return 5
	default:
		return 10
	}
}
