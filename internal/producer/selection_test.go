package producer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qnet-xyz/qnet-core/model"
)

func TestRotationBoundary(t *testing.T) {
	require.True(t, RotationBoundary(0))
	require.True(t, RotationBoundary(30))
	require.False(t, RotationBoundary(31))
}

func TestEntropyHeightForAppliesFinalityWindowOffset(t *testing.T) {
	require.Equal(t, uint64(0), EntropyHeightFor(5))
	require.Equal(t, uint64(20), EntropyHeightFor(30))
}

func TestQualifiedPoolFiltersLightAndBelowThreshold(t *testing.T) {
	peers := []model.PeerInfo{
		{NodeID: "light", NodeType: model.NodeTypeLight, ConsensusScore: 100},
		{NodeID: "lowscore", NodeType: model.NodeTypeFull, ConsensusScore: 50},
		{NodeID: "super", NodeType: model.NodeTypeSuper, ConsensusScore: 90},
		{NodeID: "full-unvalidated", NodeType: model.NodeTypeFull, ConsensusScore: 90},
		{NodeID: "full-validated", NodeType: model.NodeTypeFull, ConsensusScore: 90},
		{NodeID: "jailed", NodeType: model.NodeTypeSuper, ConsensusScore: 90, JailState: model.JailState{Jailed: true}},
	}
	counts := map[string]int{"full-validated": 3, "full-unvalidated": 1}

	pool := QualifiedPool(peers, counts)

	ids := make(map[string]bool)
	for _, c := range pool {
		ids[c.NodeID] = true
	}
	require.True(t, ids["super"])
	require.True(t, ids["full-validated"])
	require.False(t, ids["full-unvalidated"], "Full node below 3 validated peers must be excluded")
	require.False(t, ids["light"])
	require.False(t, ids["lowscore"])
	require.False(t, ids["jailed"])
}

func TestSamplePoolUnderCapReturnsAll(t *testing.T) {
	pool := []Candidate{{NodeID: "a"}, {NodeID: "b"}}
	sampled := SamplePool(pool, [32]byte{1})
	require.Len(t, sampled, 2)
}

func TestSamplePoolDeterministic(t *testing.T) {
	pool := make([]Candidate, 1500)
	for i := range pool {
		pool[i] = Candidate{NodeID: string(rune('a')) + string(rune(i%26+'a'))}
	}
	entropy := [32]byte{7}

	a := SamplePool(pool, entropy)
	b := SamplePool(pool, entropy)
	require.Equal(t, a, b)
	require.Len(t, a, MaxSampledPool)
}

func TestForSlotIsPureFunctionOfPoolAndEntropy(t *testing.T) {
	pool := []Candidate{{NodeID: "a"}, {NodeID: "b"}, {NodeID: "c"}}
	entropy := [32]byte{42}

	p1 := ForSlot(pool, entropy, 5)
	p2 := ForSlot(pool, entropy, 5)
	require.Equal(t, p1, p2)
	require.Contains(t, []string{"a", "b", "c"}, p1)

	require.Equal(t, "", ForSlot(nil, entropy, 5))
}

func TestSlotFor(t *testing.T) {
	require.Equal(t, uint64(0), SlotFor(0))
	require.Equal(t, uint64(0), SlotFor(29))
	require.Equal(t, uint64(1), SlotFor(30))
}
