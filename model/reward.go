package model

// PendingReward accumulates a node's unclaimed reward across all three
// pools; written lazily, pulled by the external claim interface.
type PendingReward struct {
	NodeID      string  `cbor:"node_id"`
	Wallet      string  `cbor:"wallet"`
	Pool1       uint64  `cbor:"pool1"`
	Pool2       uint64  `cbor:"pool2"`
	Pool3       uint64  `cbor:"pool3"`
	Total       uint64  `cbor:"total"`
	LastUpdated uint64  `cbor:"last_updated"`
}

// RewardCurve parameterizes Pool 1's emission schedule; the "sharp drop" is
// an explicit parameter rather than a hard-coded constant, since the
// underlying economics sit outside the consensus core.
type RewardCurve struct {
	BaseEmissionPerWindow uint64
	HalvingIntervalYears  int
	SharpDropYear         int
	SharpDropFactor       float64
}

// DefaultRewardCurve halves every 4 years, with a single 10x sharp drop
// at year 20.
var DefaultRewardCurve = RewardCurve{
	BaseEmissionPerWindow: 1_000_000,
	HalvingIntervalYears:  4,
	SharpDropYear:         20,
	SharpDropFactor:       10.0,
}

// Pool2 fee split.
const (
	Pool2SuperFraction = 0.70
	Pool2FullFraction  = 0.30
	Pool2LightFraction = 0.0
)
