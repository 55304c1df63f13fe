package producer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSampleSizeBuckets(t *testing.T) {
	require.Equal(t, 30, SampleSize(30))
	require.Equal(t, 20, SampleSize(150))
	require.Equal(t, 50, SampleSize(900))
	require.Equal(t, 100, SampleSize(5000))
}

func TestTimeoutSeconds(t *testing.T) {
	require.Equal(t, 2.0, TimeoutSeconds(40, RegionGenesisWAN))
	require.Equal(t, 1.0, TimeoutSeconds(150, RegionSmallLAN))
	require.Equal(t, 2.0, TimeoutSeconds(150, RegionSmallWAN))
	require.Equal(t, 1.0, TimeoutSeconds(900, RegionMediumLAN))
	require.Equal(t, 1.5, TimeoutSeconds(900, RegionMediumWAN))
	require.Equal(t, 1.0, TimeoutSeconds(5000, RegionLarge))
}

func TestRequiredAgreement(t *testing.T) {
	require.Equal(t, 30, RequiredAgreement(50)) // ceil(50*0.6) = 30
	require.Equal(t, 12, RequiredAgreement(20)) // ceil(20*0.6) = 12
}

func TestTallyExitsEarlyOnThresholdMatch(t *testing.T) {
	e1 := [32]byte{1}
	votes := []VoteObservation{
		{PeerID: "a", Entropy: e1},
		{PeerID: "b", Entropy: e1},
		{PeerID: "c", Entropy: e1},
	}
	res := Tally(votes, 5) // need ceil(5*0.6)=3
	require.True(t, res.Agreed)
	require.Equal(t, e1, res.Entropy)
	require.Equal(t, 3, res.AgreeCount)
}

func TestTallyDisagreementKeepsLocalEntropy(t *testing.T) {
	e1, e2, e3 := [32]byte{1}, [32]byte{2}, [32]byte{3}
	votes := []VoteObservation{
		{PeerID: "a", Entropy: e1}, {PeerID: "b", Entropy: e1},
		{PeerID: "c", Entropy: e2}, {PeerID: "d", Entropy: e2},
		{PeerID: "e", Entropy: e3},
	}
	res := Tally(votes, 5) // 40/40/20 split, threshold 3, nobody reaches it
	require.False(t, res.Agreed)
}

func TestConsecutiveDivergenceTriggersSyncAtTwo(t *testing.T) {
	require.Equal(t, 2, ConsecutiveDivergenceBeforeSync)
}
