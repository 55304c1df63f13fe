package wire

import "github.com/qnet-xyz/qnet-core/model"

// MicroblockMessage carries a produced or relayed microblock.
type MicroblockMessage struct {
	Block model.Microblock `cbor:"block"`
}

// MacroblockMessage carries a finalized macroblock.
type MacroblockMessage struct {
	Block model.Macroblock `cbor:"block"`
}

// CertificateAnnounceMessage carries a certificate being (re)broadcast.
type CertificateAnnounceMessage struct {
	Certificate model.HybridCertificate `cbor:"certificate"`
}

// CertificateRequestMessage asks a peer for the certificate of NodeID.
type CertificateRequestMessage struct {
	NodeID string `cbor:"node_id"`
}

// PeerDiscoveryMessage advertises a peer along with its certificate, the
// mechanism by which peers beyond the Genesis set are learned (§4.4).
type PeerDiscoveryMessage struct {
	Peer        model.PeerInfo          `cbor:"peer"`
	Certificate model.HybridCertificate `cbor:"certificate"`
}

// ReputationSyncMessage carries a batch of reputation deltas for gossip
// convergence (§4.5).
type ReputationSyncMessage struct {
	Deltas []ReputationDelta `cbor:"deltas"`
}

// ReputationDelta is one peer's observed score as of a given time, used by
// the weighted-average convergence rule.
type ReputationDelta struct {
	NodeID         string  `cbor:"node_id"`
	ConsensusScore float64 `cbor:"consensus_score"`
	NetworkScore   float64 `cbor:"network_score"`
	ObservedAt     uint64  `cbor:"observed_at"`
}

// CommitMessage is a validator's commit-phase broadcast: a hash of the
// candidate state root plus nonce, signed with a full hybrid signature.
type CommitMessage struct {
	Round          uint64                    `cbor:"round"`
	CommitHash     [32]byte                  `cbor:"commit_hash"`
	ValidatorID    string                    `cbor:"validator_id"`
	Signature      model.FullHybridSignature `cbor:"signature"`
}

// RevealMessage is a validator's reveal-phase broadcast of its committed
// state root and nonce.
type RevealMessage struct {
	Round       uint64                    `cbor:"round"`
	StateRoot   [32]byte                  `cbor:"state_root"`
	Nonce       uint64                    `cbor:"nonce"`
	ValidatorID string                    `cbor:"validator_id"`
	Signature   model.FullHybridSignature `cbor:"signature"`
}

// BlockRequestMessage asks for a contiguous range of microblocks.
type BlockRequestMessage struct {
	FromHeight uint64 `cbor:"from_height"`
	ToHeight   uint64 `cbor:"to_height"`
}

// BlocksBatchMessage answers a BlockRequest with up to BlocksBatchMaxLen
// microblocks.
type BlocksBatchMessage struct {
	Blocks []model.Microblock `cbor:"blocks"`
}

// SyncStatusMessage reports a peer's local height and PFP/rotation state,
// used during full state-sync after two consecutive entropy divergences.
type SyncStatusMessage struct {
	Height         uint64 `cbor:"height"`
	MacroblockIdx  uint64 `cbor:"macroblock_idx"`
	DivergenceSync bool   `cbor:"divergence_sync"`
}

// ConsensusStateMessage reports a node's current macroblock consensus round
// state (§4.9) and, where applicable, active PFP level (§4.10).
type ConsensusStateMessage struct {
	Round    uint64 `cbor:"round"`
	State    string `cbor:"state"`
	PFPLevel int    `cbor:"pfp_level"`
}

// AttestationMessage carries a Light node's dual-signed liveness proof.
type AttestationMessage struct {
	Attestation model.Attestation `cbor:"attestation"`
}

// HeartbeatMessage carries a Full/Super node's self-issued liveness signal.
type HeartbeatMessage struct {
	Heartbeat model.Heartbeat `cbor:"heartbeat"`
}

// BundleMessage carries a signed MEV bundle submission.
type BundleMessage struct {
	Bundle model.Bundle `cbor:"bundle"`
}

// AckMessage acknowledges receipt of a tracked-broadcast envelope, keyed by
// the SHA3-256 hash of the original envelope's signing bytes.
type AckMessage struct {
	EnvelopeHash [32]byte `cbor:"envelope_hash"`
}

// EntropyQueryMessage asks a sampled peer to report its view of E(h) for the
// rotation boundary at Height, as part of the §4.7 adaptive entropy
// consensus round. QuerierAddress is where the peer should send its
// EntropyVoteMessage back to.
type EntropyQueryMessage struct {
	Height         uint64 `cbor:"height"`
	QuerierAddress string `cbor:"querier_address"`
}

// EntropyVoteMessage is a peer's reported view of E(h) in response to an
// EntropyQueryMessage.
type EntropyVoteMessage struct {
	Height  uint64   `cbor:"height"`
	Entropy [32]byte `cbor:"entropy"`
	VoterID string   `cbor:"voter_id"`
}
