package rewards

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qnet-xyz/qnet-core/model"
)

func TestEligibilityThresholds(t *testing.T) {
	require.True(t, LightEligible(1))
	require.False(t, LightEligible(0))

	require.True(t, FullEligible(8))
	require.False(t, FullEligible(7))

	require.True(t, SuperEligible(9))
	require.False(t, SuperEligible(8))
}

func TestEligibleDispatchesByNodeType(t *testing.T) {
	require.True(t, Eligible(model.NodeTypeLight, 1))
	require.True(t, Eligible(model.NodeTypeFull, 8))
	require.True(t, Eligible(model.NodeTypeSuper, 9))
	require.False(t, Eligible(model.NodeTypeSuper, 8))
}

func TestShardForIsDeterministicAndBounded(t *testing.T) {
	a := ShardFor("light-node-1")
	b := ShardFor("light-node-1")
	require.Equal(t, a, b)
}

func TestPingerForIsDeterministic(t *testing.T) {
	entropy := [32]byte{1, 2, 3}
	pingers := []string{"p1", "p2", "p3"}

	a := PingerFor("light-1", entropy, pingers)
	b := PingerFor("light-1", entropy, pingers)
	require.Equal(t, a, b)
	require.Contains(t, pingers, a)

	require.Equal(t, "", PingerFor("light-1", entropy, nil))
}

func TestSampleSizeFloorAndFraction(t *testing.T) {
	require.Equal(t, SampleSizeFloor, SampleSize(100_000))   // 1% of 100k = 1000 < floor
	require.Equal(t, 20_000, SampleSize(2_000_000))          // 1% of 2M = 20000 > floor
	require.Equal(t, 50, SampleSize(50))                     // total smaller than floor
}

func TestSampleIndicesDeterministicAndWithinRange(t *testing.T) {
	seed := [32]byte{9}
	a := SampleIndices(1000, 100, seed)
	b := SampleIndices(1000, 100, seed)
	require.Equal(t, a, b)
	require.Len(t, a, 100)
	seen := make(map[int]bool)
	for _, idx := range a {
		require.False(t, seen[idx], "sampled indices must be unique")
		require.True(t, idx >= 0 && idx < 1000)
		seen[idx] = true
	}
}

func TestSampleIndicesReturnsAllWhenSampleExceedsTotal(t *testing.T) {
	out := SampleIndices(5, 10, [32]byte{1})
	require.Len(t, out, 5)
}

func TestLedgerCreditGetClaim(t *testing.T) {
	l := NewLedger()
	l.Credit("node-a", "wallet-a", 1, 100, 1000)
	l.Credit("node-a", "wallet-a", 2, 50, 1100)

	got, ok := l.Get("node-a")
	require.True(t, ok)
	require.Equal(t, uint64(150), got.Total)
	require.Equal(t, uint64(1100), got.LastUpdated)

	claimed, ok := l.Claim("node-a")
	require.True(t, ok)
	require.Equal(t, uint64(150), claimed.Total)

	_, ok = l.Get("node-a")
	require.False(t, ok, "claim must zero out the ledger entry")
}

func TestPool1PerNodeHalvingAndSharpDrop(t *testing.T) {
	curve := model.DefaultRewardCurve

	base := Pool1PerNode(curve, 0, 100)
	require.Equal(t, curve.BaseEmissionPerWindow/100, base)

	oneHalving := Pool1PerNode(curve, 4, 100)
	require.Equal(t, (curve.BaseEmissionPerWindow/2)/100, oneHalving)

	sharpDrop := Pool1PerNode(curve, 20, 1)
	// 5 halvings by year 20, then /10 sharp drop
	expected := curve.BaseEmissionPerWindow
	for i := 0; i < 5; i++ {
		expected /= 2
	}
	expected = uint64(float64(expected) / curve.SharpDropFactor)
	require.Equal(t, expected, sharpDrop)
}

func TestPool1PerNodeZeroEligibleIsZero(t *testing.T) {
	require.Equal(t, uint64(0), Pool1PerNode(model.DefaultRewardCurve, 0, 0))
}

func TestPool2SplitFixedFraction(t *testing.T) {
	super, full := Pool2Split(1000)
	require.Equal(t, uint64(700), super)
	require.Equal(t, uint64(300), full)
}
