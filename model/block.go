// Package model holds the core entity types shared across every QNet
// component: microblocks, macroblocks, certificates, signatures, peers,
// bundles, attestations, heartbeats, and pending rewards.
package model

// NodeType classifies a peer's role and, transitively, its consensus rights.
type NodeType int

const (
	NodeTypeLight NodeType = iota
	NodeTypeFull
	NodeTypeSuper
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeLight:
		return "light"
	case NodeTypeFull:
		return "full"
	case NodeTypeSuper:
		return "super"
	default:
		return "unknown"
	}
}

// CompactHybridSignature references a certificate by serial rather than
// embedding it; verification requires a certificate-cache lookup.
type CompactHybridSignature struct {
	NodeID        string `cbor:"node_id"`
	CertSerial    string `cbor:"cert_serial"`
	Ed25519Sig    []byte `cbor:"ed25519_sig"`
	DilithiumSig  []byte `cbor:"dilithium_sig"`
	SignedAt      uint64 `cbor:"signed_at"`
}

// FullHybridSignature embeds the certificate, making it self-verifiable
// without a cache lookup — used for macroblock validator signatures.
type FullHybridSignature struct {
	NodeID       string            `cbor:"node_id"`
	Ed25519Sig   []byte            `cbor:"ed25519_sig"`
	DilithiumSig []byte            `cbor:"dilithium_sig"`
	SignedAt     uint64            `cbor:"signed_at"`
	Certificate  HybridCertificate `cbor:"certificate"`
}

// Microblock is the 1-second compact-signed block produced by the current
// slot's producer. Immutable after creation.
type Microblock struct {
	Height          uint64                 `cbor:"height"`
	Timestamp       uint64                 `cbor:"timestamp"`
	PreviousHash    [32]byte               `cbor:"previous_hash"`
	MerkleRoot      [32]byte               `cbor:"merkle_root"`
	ProducerID      string                 `cbor:"producer_id"`
	Transactions    []Transaction          `cbor:"transactions"`
	PoHHash         [64]byte               `cbor:"poh_hash"`
	PoHCount        uint64                 `cbor:"poh_count"`
	Signature       CompactHybridSignature `cbor:"signature"`
}

// RotationIndex returns the index of the producer rotation the block's
// height falls in: Height / rotationLength.
func (b *Microblock) RotationIndex(rotationLength uint64) uint64 {
	return b.Height / rotationLength
}

// Macroblock finalizes a contiguous range of 90 microblocks via commit-reveal.
type Macroblock struct {
	Height              uint64                 `cbor:"height"`
	Timestamp           uint64                 `cbor:"timestamp"`
	StateRoot           [32]byte               `cbor:"state_root"`
	MicroblockHashes    [][32]byte             `cbor:"microblock_hashes"`
	ValidatorSignatures []MacroblockSignature  `cbor:"validator_signatures"`
	ConsensusRound      uint64                 `cbor:"consensus_round"`
}

// MacroblockSignature pairs a validator's node ID with its full signature
// over the macroblock, matching spec's "set of {node_id, FullHybridSignature}".
type MacroblockSignature struct {
	NodeID    string               `cbor:"node_id"`
	Signature FullHybridSignature  `cbor:"signature"`
}

// MicroblocksPerMacroblock is the fixed window a macroblock finalizes.
const MicroblocksPerMacroblock = 90

// MicroblockMaxSlots bounds how many transaction slots (public + reserved
// bundle) one microblock composes from the mempool (§4.12).
const MicroblockMaxSlots = 2000

// MacroblockIndex returns the macroblock index k that finalizes the range
// containing microblock height h (90*(k-1)+1 .. 90*k).
func MacroblockIndex(height uint64) uint64 {
	return (height-1)/MicroblocksPerMacroblock + 1
}
