// Package wire implements the canonical peer-to-peer wire envelope and
// message type registry (§6): a typed envelope signed over its canonical
// CBOR encoding, carried end to end over the P2P HTTP transport.
package wire

import (
	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
)

// MessageType enumerates every wire message relevant to the consensus core.
type MessageType string

const (
	MessageMicroblock          MessageType = "Microblock"
	MessageMacroblock          MessageType = "Macroblock"
	MessageCertificateAnnounce MessageType = "CertificateAnnounce"
	MessageCertificateRequest  MessageType = "CertificateRequest"
	MessagePeerDiscovery       MessageType = "PeerDiscovery"
	MessageReputationSync      MessageType = "ReputationSync"
	MessageCommit              MessageType = "Commit"
	MessageReveal              MessageType = "Reveal"
	MessageBlockRequest        MessageType = "BlockRequest"
	MessageBlocksBatch         MessageType = "BlocksBatch"
	MessageSyncStatus          MessageType = "SyncStatus"
	MessageConsensusState      MessageType = "ConsensusState"
	MessageAttestation         MessageType = "Attestation"
	MessageHeartbeat           MessageType = "Heartbeat"
	MessageBundle              MessageType = "Bundle"
	MessageAck                 MessageType = "Ack"
	MessageEntropyQuery        MessageType = "EntropyQuery"
	MessageEntropyVote         MessageType = "EntropyVote"
)

// BlocksBatchMaxLen bounds a single BlocksBatch response.
const BlocksBatchMaxLen = 100

// Envelope is the wire format exchanged between peers over POST /p2p/message.
// Signature is computed over the canonical CBOR encoding of the envelope
// with Signature cleared.
type Envelope struct {
	MessageType MessageType `cbor:"message_type"`
	Payload     []byte      `cbor:"payload"`
	SenderID    string      `cbor:"sender_id"`
	Signature   []byte      `cbor:"signature"`
}

// SigningBytes returns the canonical CBOR encoding of the envelope with the
// signature field cleared — the bytes that Signature is computed over.
func SigningBytes(e Envelope) ([]byte, error) {
	e.Signature = nil
	return Marshal(e)
}

// HashEnvelope returns the SHA3-256 identity hash of an envelope's signing
// bytes, used for dedup and gossip loop prevention.
func HashEnvelope(e Envelope) ([32]byte, error) {
	b, err := SigningBytes(e)
	if err != nil {
		return [32]byte{}, err
	}
	return qcrypto.SHA3_256(b), nil
}
