// Package rewards implements the Reward Accounting Hook (§4.11): lazy
// pending-reward accumulation from attestation/heartbeat eligibility,
// computed once per 4-hour window on Full/Super nodes.
package rewards

import (
	"encoding/binary"
	"sort"

	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
	"github.com/qnet-xyz/qnet-core/model"
)

// ShardFor returns the attestation shard (0..255) a light node belongs to:
// SHA3-256(light_node_id)[0].
func ShardFor(lightNodeID string) byte {
	h := qcrypto.SHA3_256([]byte(lightNodeID))
	return h[0]
}

// PingerFor deterministically assigns a pinger to lightNodeID for a given
// window, using the window's finality-window entropy.
func PingerFor(lightNodeID string, windowEntropy [32]byte, pingers []string) string {
	if len(pingers) == 0 {
		return ""
	}
	h := qcrypto.SHA3_256(windowEntropy[:], []byte(lightNodeID))
	idx := binary.BigEndian.Uint64(h[:8]) % uint64(len(pingers))
	return pingers[idx]
}

// LightEligible reports whether a Light node earned Pool 1 eligibility for
// the window: at least one successful dual-signed attestation.
func LightEligible(successfulAttestations int) bool {
	return successfulAttestations >= model.LightEligibilityMinAttestations
}

// FullEligible reports whether a Full node met its 80% heartbeat quorum.
func FullEligible(heartbeats int) bool {
	return float64(heartbeats) >= model.FullEligibilityFraction*model.HeartbeatsPerWindow
}

// SuperEligible reports whether a Super node met its 90% heartbeat quorum.
func SuperEligible(heartbeats int) bool {
	return float64(heartbeats) >= model.SuperEligibilityFraction*model.HeartbeatsPerWindow
}

// Eligible dispatches to the right eligibility rule by node type.
func Eligible(nodeType model.NodeType, successfulAttestationsOrHeartbeats int) bool {
	switch nodeType {
	case model.NodeTypeLight:
		return LightEligible(successfulAttestationsOrHeartbeats)
	case model.NodeTypeFull:
		return FullEligible(successfulAttestationsOrHeartbeats)
	case model.NodeTypeSuper:
		return SuperEligible(successfulAttestationsOrHeartbeats)
	default:
		return false
	}
}

// SamplingSeed computes the deterministic reward-sampling seed:
// SHA3-256("QNet_Ping_Sampling_v1" || E(h_finality) || window_start).
func SamplingSeed(finalityEntropy [32]byte, windowStart uint64) [32]byte {
	var ws [8]byte
	binary.BigEndian.PutUint64(ws[:], windowStart)
	return qcrypto.SHA3_256([]byte("QNet_Ping_Sampling_v1"), finalityEntropy[:], ws[:])
}

// SampleSizeFloor is the minimum absolute sample size regardless of the 1%
// rule.
const SampleSizeFloor = 10_000

// SampleFraction is the minimum fraction of attestations sampled.
const SampleFraction = 0.01

// SampleSize returns the number of attestations to sample out of total,
// honoring both the 1% rule and the 10,000 floor.
func SampleSize(total int) int {
	n := int(float64(total) * SampleFraction)
	if n < SampleSizeFloor {
		n = SampleSizeFloor
	}
	if n > total {
		n = total
	}
	return n
}

// SampleIndices deterministically selects sampleSize indices out of total,
// seeded by seed, without replacement.
func SampleIndices(total, sampleSize int, seed [32]byte) []int {
	if sampleSize >= total {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}

	type scored struct {
		idx int
		key [32]byte
	}
	scoredIdx := make([]scored, total)
	for i := 0; i < total; i++ {
		var ib [8]byte
		binary.BigEndian.PutUint64(ib[:], uint64(i))
		scoredIdx[i] = scored{idx: i, key: qcrypto.SHA3_256(seed[:], ib[:])}
	}
	sort.Slice(scoredIdx, func(i, j int) bool {
		return string(scoredIdx[i].key[:]) < string(scoredIdx[j].key[:])
	})

	out := make([]int, sampleSize)
	for i := 0; i < sampleSize; i++ {
		out[i] = scoredIdx[i].idx
	}
	return out
}

// Ledger lazily accumulates PendingReward per node, written once per window
// and pulled via the external claim interface.
type Ledger struct {
	pending map[string]*model.PendingReward
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{pending: make(map[string]*model.PendingReward)}
}

// Credit adds amount to pool (1, 2, or 3) for nodeID, updating Total and
// LastUpdated.
func (l *Ledger) Credit(nodeID, wallet string, pool int, amount uint64, now uint64) {
	p, ok := l.pending[nodeID]
	if !ok {
		p = &model.PendingReward{NodeID: nodeID, Wallet: wallet}
		l.pending[nodeID] = p
	}
	switch pool {
	case 1:
		p.Pool1 += amount
	case 2:
		p.Pool2 += amount
	case 3:
		p.Pool3 += amount
	}
	p.Total = p.Pool1 + p.Pool2 + p.Pool3
	p.LastUpdated = now
}

// Get returns a node's current pending reward snapshot.
func (l *Ledger) Get(nodeID string) (model.PendingReward, bool) {
	p, ok := l.pending[nodeID]
	if !ok {
		return model.PendingReward{}, false
	}
	return *p, true
}

// Claim zeroes out a node's pending reward and returns the pre-claim
// snapshot, used by the external claim interface.
func (l *Ledger) Claim(nodeID string) (model.PendingReward, bool) {
	p, ok := l.pending[nodeID]
	if !ok {
		return model.PendingReward{}, false
	}
	snapshot := *p
	delete(l.pending, nodeID)
	return snapshot, true
}

// Pool1PerNode computes the base-emission share for a single window: total
// base emission (after any halving/sharp-drop adjustment) divided equally
// across eligibleCount nodes.
func Pool1PerNode(curve model.RewardCurve, ageYears int, eligibleCount int) uint64 {
	if eligibleCount <= 0 {
		return 0
	}

	emission := float64(curve.BaseEmissionPerWindow)
	if curve.HalvingIntervalYears > 0 {
		halvings := ageYears / curve.HalvingIntervalYears
		for i := 0; i < halvings; i++ {
			emission /= 2
		}
	}
	if curve.SharpDropYear > 0 && ageYears >= curve.SharpDropYear {
		emission /= curve.SharpDropFactor
	}

	return uint64(emission) / uint64(eligibleCount)
}

// Pool2Split divides the transaction-fee pool among Super/Full/Light per
// the fixed 70/30/0 split.
func Pool2Split(totalFees uint64) (superShare, fullShare uint64) {
	superShare = uint64(float64(totalFees) * model.Pool2SuperFraction)
	fullShare = uint64(float64(totalFees) * model.Pool2FullFraction)
	return
}

// OfflineGracePeriodSeconds re-exports the grace period constant from
// model for callers that only import rewards.
const OfflineGracePeriodSeconds = model.OfflineGracePeriodSecond
