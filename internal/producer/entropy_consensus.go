package producer

// PeerRegion classifies the latency tier used to size the entropy-consensus
// timeout (§4.7: "Genesis WAN", "Small LAN/WAN", "Medium LAN/WAN", "Large").
type PeerRegion int

const (
	RegionGenesisWAN PeerRegion = iota
	RegionSmallLAN
	RegionSmallWAN
	RegionMediumLAN
	RegionMediumWAN
	RegionLarge
)

// SampleSize returns the entropy-consensus query sample size for a
// qualified pool of the given size (§4.7).
func SampleSize(poolSize int) int {
	switch {
	case poolSize <= 50:
		return poolSize
	case poolSize <= 200:
		return 20
	case poolSize <= 1000:
		return 50
	default:
		return 100
	}
}

// TimeoutSeconds returns the adaptive entropy-consensus timeout for the
// given pool size and average peer latency region.
func TimeoutSeconds(poolSize int, region PeerRegion) float64 {
	switch {
	case poolSize <= 50:
		return 2.0 // Genesis, WAN
	case poolSize <= 200:
		if region == RegionSmallLAN {
			return 1.0
		}
		return 2.0
	case poolSize <= 1000:
		if region == RegionMediumLAN {
			return 1.0
		}
		return 1.5
	default:
		return 1.0 // Large
	}
}

// AgreementThreshold is the fraction of sampled peers that must agree on
// the same entropy value before it is adopted (§4.7, §8 boundary case).
const AgreementThreshold = 0.60

// RequiredAgreement returns ceil(sampleSize * AgreementThreshold).
func RequiredAgreement(sampleSize int) int {
	need := int(float64(sampleSize) * AgreementThreshold)
	if float64(need) < float64(sampleSize)*AgreementThreshold {
		need++
	}
	return need
}

// ConsecutiveDivergenceBeforeSync is the number of consecutive failed
// entropy-consensus rounds before a full state sync is triggered.
const ConsecutiveDivergenceBeforeSync = 2

// TallyResult is the outcome of counting one round of peer-reported
// entropy values.
type TallyResult struct {
	Agreed      bool
	Entropy     [32]byte
	AgreeCount  int
	SampleSize  int
}

// Tally counts votes (one VoteObservation per reporting peer) per entropy
// value and reports whether any single value reached RequiredAgreement.
// Ties are broken by first-seen order in the votes slice, matching how a
// live poll would exit as soon as the threshold is first crossed.
func Tally(votes []VoteObservation, sampleSize int) TallyResult {
	if len(votes) == 0 {
		return TallyResult{Agreed: false, SampleSize: sampleSize}
	}

	need := RequiredAgreement(sampleSize)
	counts := make(map[[32]byte]int)
	order := make([][32]byte, 0, len(votes))

	for _, v := range votes {
		if counts[v.Entropy] == 0 {
			order = append(order, v.Entropy)
		}
		counts[v.Entropy]++
		if counts[v.Entropy] >= need {
			return TallyResult{Agreed: true, Entropy: v.Entropy, AgreeCount: counts[v.Entropy], SampleSize: sampleSize}
		}
	}

	// No value reached threshold even after counting all votes.
	best := order[0]
	bestCount := 0
	for _, e := range order {
		if counts[e] > bestCount {
			best, bestCount = e, counts[e]
		}
	}
	return TallyResult{Agreed: false, Entropy: best, AgreeCount: bestCount, SampleSize: sampleSize}
}

// VoteObservation is one peer's reported view of E(h).
type VoteObservation struct {
	PeerID  string
	Entropy [32]byte
}
