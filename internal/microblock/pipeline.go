// Package microblock implements the producer and non-producer paths of the
// microblock pipeline (§4.8): 1-second compact-signed blocks, local
// validation, and immediate gossip.
package microblock

import (
	"crypto/ed25519"

	qnetErrors "github.com/qnet-xyz/qnet-core/errors"
	"github.com/qnet-xyz/qnet-core/internal/poh"
	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
	"github.com/qnet-xyz/qnet-core/model"
)

// MacroblockWindowFloor returns the macroblock state height a microblock at
// height h references: floor((h-1)/90)*90.
func MacroblockWindowFloor(h uint64) uint64 {
	if h == 0 {
		return 0
	}
	return ((h - 1) / model.MicroblocksPerMacroblock) * model.MicroblocksPerMacroblock
}

// BuildInput is everything the elected producer needs to assemble, sign,
// and emit the next microblock.
type BuildInput struct {
	Height       uint64
	Timestamp    uint64
	PreviousHash [32]byte
	Transactions []model.Transaction
	ProducerID   string
	CertSerial   string
	Ed25519Priv  ed25519.PrivateKey
	DilithiumSignFn func(msg []byte) []byte
	PoHState     model.PoHState
}

// merkleRoot computes a simple binary Merkle root over transaction hashes
// (duplicate-last-leaf padding for odd levels).
func merkleRoot(txs []model.Transaction) [32]byte {
	if len(txs) == 0 {
		return qcrypto.SHA3_256()
	}
	level := make([][32]byte, len(txs))
	for i, tx := range txs {
		level[i] = tx.Hash
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][32]byte, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = qcrypto.SHA3_256(level[2*i][:], level[2*i+1][:])
		}
		level = next
	}
	return level[0]
}

// signingBytes returns the bytes a microblock's hybrid signature covers:
// every field except the signature itself.
func signingBytes(b model.Microblock) []byte {
	var buf []byte
	buf = append(buf, heightBytes(b.Height)...)
	buf = append(buf, heightBytes(b.Timestamp)...)
	buf = append(buf, b.PreviousHash[:]...)
	buf = append(buf, b.MerkleRoot[:]...)
	buf = append(buf, []byte(b.ProducerID)...)
	buf = append(buf, b.PoHHash[:]...)
	buf = append(buf, heightBytes(b.PoHCount)...)
	return buf
}

func heightBytes(h uint64) []byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(h >> (8 * i))
	}
	return b[:]
}

// Hash returns a microblock's identity hash, covering every field
// including its signature — what the next block's PreviousHash chains to.
func Hash(b model.Microblock) [32]byte {
	buf := signingBytes(b)
	buf = append(buf, b.Signature.Ed25519Sig...)
	buf = append(buf, b.Signature.DilithiumSig...)
	return qcrypto.SHA3_256(buf)
}

// Build assembles and signs the next microblock for the producer path.
func Build(in BuildInput) model.Microblock {
	root := merkleRoot(in.Transactions)

	b := model.Microblock{
		Height:       in.Height,
		Timestamp:    in.Timestamp,
		PreviousHash: in.PreviousHash,
		MerkleRoot:   root,
		ProducerID:   in.ProducerID,
		Transactions: in.Transactions,
		PoHHash:      in.PoHState.PoHHash,
		PoHCount:     in.PoHState.PoHCount,
	}

	msg := signingBytes(b)
	b.Signature = model.CompactHybridSignature{
		NodeID:       in.ProducerID,
		CertSerial:   in.CertSerial,
		Ed25519Sig:   ed25519.Sign(in.Ed25519Priv, msg),
		DilithiumSig: in.DilithiumSignFn(msg),
		SignedAt:     in.Timestamp,
	}
	return b
}

// CertificateLookup resolves a node ID + serial to the certificate needed
// to verify a compact signature.
type CertificateLookup func(serial string) (model.HybridCertificate, bool)

// Validate runs the non-producer path's checks in order: certificate
// check, structural checks (height, previous_hash, PoH chain), then
// Dilithium verification of the compact signature.
func Validate(b model.Microblock, localHeight uint64, localPrevHash [32]byte, priorPoH model.PoHState, lookupCert CertificateLookup) error {
	cert, ok := lookupCert(b.Signature.CertSerial)
	if !ok {
		return qnetErrors.New(qnetErrors.ERR_CERTIFICATE_INVALID, "no cached certificate for serial %s", b.Signature.CertSerial)
	}
	if cert.IssuerNodeID != b.ProducerID {
		return qnetErrors.New(qnetErrors.ERR_CERTIFICATE_INVALID, "certificate producer mismatch")
	}

	if b.Height != localHeight+1 {
		return qnetErrors.New(qnetErrors.ERR_HEIGHT_MISMATCH, "microblock height %d != local+1 (%d)", b.Height, localHeight+1)
	}
	if b.PreviousHash != localPrevHash {
		return qnetErrors.New(qnetErrors.ERR_HEIGHT_MISMATCH, "microblock previous_hash mismatch at height %d", b.Height)
	}
	if !poh.Verify(priorPoH, b.PoHHash, b.PoHCount) {
		return qnetErrors.New(qnetErrors.ERR_POH_CHAIN_BROKEN, "microblock %d PoH chain broken", b.Height)
	}

	msg := signingBytes(b)
	if !ed25519.Verify(cert.Ed25519PK[:], msg, b.Signature.Ed25519Sig) {
		return qnetErrors.New(qnetErrors.ERR_SIGNATURE_INVALID, "ed25519 signature invalid for block %d", b.Height)
	}

	pub, vr := qcrypto.DilithiumPublicKeyFromBytes(cert.DilithiumPK)
	if !vr.Valid {
		return qnetErrors.New(qnetErrors.ERR_CERTIFICATE_INVALID, "certificate dilithium key malformed")
	}
	if res := qcrypto.DilithiumVerify(pub, msg, b.Signature.DilithiumSig); !res.Valid {
		return qnetErrors.New(qnetErrors.ERR_SIGNATURE_INVALID, "dilithium signature invalid for block %d: %s", b.Height, res.Reason)
	}

	return nil
}
