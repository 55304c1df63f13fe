package model

// BlacklistState is the peer's current soft/hard blacklist status.
type BlacklistState int

const (
	BlacklistNone BlacklistState = iota
	BlacklistSoft
	BlacklistHard
)

// PeerInfo is the per-peer state tracked by the reputation engine and peer
// table.
type PeerInfo struct {
	NodeID          string         `cbor:"node_id"`
	Address         string         `cbor:"address"`
	Region          string         `cbor:"region"`
	NodeType        NodeType       `cbor:"node_type"`
	ConsensusScore  float64        `cbor:"consensus_score"`
	NetworkScore    float64        `cbor:"network_score"`
	LatencyMs       float64        `cbor:"latency_ms"`
	LastSeen        uint64         `cbor:"last_seen"`
	JailState       JailState      `cbor:"jail_state"`
	Blacklist       BlacklistState `cbor:"blacklist"`
	BlacklistExpiry uint64         `cbor:"blacklist_expiry"`
}

// JailState tracks a peer's position on the progressive jail ladder.
type JailState struct {
	Jailed     bool   `cbor:"jailed"`
	Strikes    int    `cbor:"strikes"`
	RungScore  float64 `cbor:"rung_score"`
	ReleaseAt  uint64 `cbor:"release_at"`
	Permanent  bool   `cbor:"permanent"`
}

// LightNodeConsensusScore is the fixed, immutable consensus score assigned
// to every Light node; it grants no consensus rights.
const LightNodeConsensusScore = 70.0

// QualifiedConsensusThreshold is the minimum consensus_score required to
// participate in consensus quorums.
const QualifiedConsensusThreshold = 70.0
