// Package producer implements deterministic producer selection and
// rotation (§4.7): the qualified/sampled pool, the hash-indexed producer
// choice, and the adaptive entropy consensus run at every rotation
// boundary.
package producer

import (
	"encoding/binary"
	"sort"

	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
	"github.com/qnet-xyz/qnet-core/model"
)

// RotationLength is the number of microblock heights a single producer
// holds the slot for.
const RotationLength = 30

// FinalityWindow is the lag N=10 used to derive rotation entropy, avoiding
// false divergence from lagging nodes (§9 Open Questions).
const FinalityWindow = 10

// MaxSampledPool bounds the deterministically-sampled validator set used
// in one consensus round.
const MaxSampledPool = 1000

// MinFullNodeValidatedPeers is the Byzantine 3f+1 (f=1) minimum validated
// peer count a Full node needs to join the qualified pool.
const MinFullNodeValidatedPeers = 3

// RotationBoundary reports whether height h is a rotation boundary.
func RotationBoundary(h uint64) bool {
	return h%RotationLength == 0
}

// EntropyHeightFor returns the finality-window height that supplies
// rotation entropy for the rotation starting at h.
func EntropyHeightFor(h uint64) uint64 {
	if h < FinalityWindow {
		return 0
	}
	return h - FinalityWindow
}

// Entropy computes E(h) = hash(poh_state[max(0,h-10)]).
func Entropy(state model.PoHState) [32]byte {
	var buf []byte
	buf = append(buf, heightBytes(state.Height)...)
	buf = append(buf, state.PoHHash[:]...)
	buf = append(buf, countBytes(state.PoHCount)...)
	buf = append(buf, state.PreviousHash[:]...)
	return qcrypto.SHA3_256(buf)
}

func heightBytes(h uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], h)
	return b[:]
}

func countBytes(c uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], c)
	return b[:]
}

// Candidate is a qualified pool member as seen by the sampler.
type Candidate struct {
	NodeID string
	Weight float64 // reputation weight, used by the macroblock tally
}

// QualifiedPool filters peers down to those eligible to participate in
// consensus: non-Light, consensus_score >= threshold, and (for Full nodes)
// at least MinFullNodeValidatedPeers validated peers.
func QualifiedPool(peers []model.PeerInfo, validatedPeerCounts map[string]int) []Candidate {
	out := make([]Candidate, 0, len(peers))
	for _, p := range peers {
		if p.NodeType == model.NodeTypeLight {
			continue
		}
		if p.ConsensusScore < model.QualifiedConsensusThreshold {
			continue
		}
		if p.JailState.Jailed {
			continue
		}
		if p.NodeType == model.NodeTypeFull && validatedPeerCounts[p.NodeID] < MinFullNodeValidatedPeers {
			continue
		}
		out = append(out, Candidate{NodeID: p.NodeID, Weight: p.ConsensusScore})
	}
	return out
}

// SamplePool deterministically samples up to MaxSampledPool candidates
// using the finality-window entropy, when the qualified pool exceeds the
// cap; otherwise returns the pool unchanged (sorted for determinism).
func SamplePool(pool []Candidate, entropy [32]byte) []Candidate {
	sorted := append([]Candidate(nil), pool...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].NodeID < sorted[j].NodeID })

	if len(sorted) <= MaxSampledPool {
		return sorted
	}

	scored := make([]struct {
		c   Candidate
		key [32]byte
	}, len(sorted))
	for i, c := range sorted {
		scored[i] = struct {
			c   Candidate
			key [32]byte
		}{c, qcrypto.SHA3_256(entropy[:], []byte(c.NodeID))}
	}
	sort.Slice(scored, func(i, j int) bool {
		return string(scored[i].key[:]) < string(scored[j].key[:])
	})

	out := make([]Candidate, MaxSampledPool)
	for i := 0; i < MaxSampledPool; i++ {
		out[i] = scored[i].c
	}
	return out
}

// ForSlot returns the producer node ID for slot s, a pure function of the
// sampled pool and the rotation entropy: sampled_pool[hash(E||s) mod n].
func ForSlot(sampledPool []Candidate, entropy [32]byte, slot uint64) string {
	if len(sampledPool) == 0 {
		return ""
	}
	idx := qcrypto.SHA3_256(entropy[:], countBytes(slot))
	n := uint64(len(sampledPool))
	sel := binary.BigEndian.Uint64(idx[:8]) % n
	return sampledPool[sel].NodeID
}

// SlotFor returns the rotation/slot index for height h.
func SlotFor(h uint64) uint64 {
	return h / RotationLength
}
