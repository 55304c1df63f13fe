package reputation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qnet-xyz/qnet-core/model"
)

func newPeer(id string, nodeType model.NodeType, score float64) model.PeerInfo {
	return model.PeerInfo{NodeID: id, NodeType: nodeType, ConsensusScore: score, NetworkScore: 100}
}

func TestLightNodeScoreIsImmutable(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("light-1", model.NodeTypeLight, 100))

	p, ok := e.Get("light-1")
	require.True(t, ok)
	require.Equal(t, model.LightNodeConsensusScore, p.ConsensusScore)

	e.Apply("light-1", EventValidBlock)
	e.Apply("light-1", EventInvalidBlock)
	e.Apply("light-1", EventMaliciousBehavior)

	p, _ = e.Get("light-1")
	require.Equal(t, model.LightNodeConsensusScore, p.ConsensusScore)
	require.False(t, p.JailState.Jailed)
}

func TestApplyValidBlockIncreasesConsensusScore(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("super-1", model.NodeTypeSuper, 90))
	e.Apply("super-1", EventValidBlock)

	p, _ := e.Get("super-1")
	require.Equal(t, 95.0, p.ConsensusScore)
}

func TestApplyClampsAtBounds(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("super-1", model.NodeTypeSuper, 99))
	e.Apply("super-1", EventValidBlock)
	p, _ := e.Get("super-1")
	require.Equal(t, 100.0, p.ConsensusScore)

	e2 := NewEngine()
	e2.Register(newPeer("full-1", model.NodeTypeFull, 5))
	e2.Apply("full-1", EventInvalidBlock)
	p2, _ := e2.Get("full-1")
	// score clamps to 0 then, since 0 < threshold, the drop strikes the
	// peer onto the first jail rung, which sets the score to 30
	require.True(t, p2.JailState.Jailed)
	require.Equal(t, JailLadder[0].Score, p2.ConsensusScore)
}

func TestInvalidBlockStrikesIntoJailLadder(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("full-1", model.NodeTypeFull, 100))

	e.Apply("full-1", EventInvalidBlock) // 100 -> 80, still qualified, no strike
	p, _ := e.Get("full-1")
	require.Equal(t, 80.0, p.ConsensusScore)
	require.False(t, p.JailState.Jailed)

	e.Apply("full-1", EventInvalidBlock) // 80 -> 60, below threshold -> strike 1 -> jailed at 30
	p, _ = e.Get("full-1")
	require.True(t, p.JailState.Jailed)
	require.Equal(t, 1, p.JailState.Strikes)
	require.Equal(t, JailLadder[0].Score, p.ConsensusScore)
}

func TestMaliciousBehaviorIsPermanentBan(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("super-1", model.NodeTypeSuper, 100))
	e.Apply("super-1", EventMaliciousBehavior)

	p, _ := e.Get("super-1")
	require.True(t, p.JailState.Jailed)
	require.True(t, p.JailState.Permanent)
	require.Equal(t, 0.0, p.ConsensusScore)
}

func TestSixStrikesForceOneYearJail(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("full-1", model.NodeTypeFull, 100))

	for i := 0; i < 6; i++ {
		// reset to a score that still drops below threshold after -20, so
		// each iteration strikes again regardless of the prior jail rung
		e.mu.Lock()
		e.peers["full-1"].ConsensusScore = 85
		e.peers["full-1"].JailState.Jailed = false
		e.mu.Unlock()
		e.Apply("full-1", EventInvalidBlock)
	}

	p, _ := e.Get("full-1")
	require.Equal(t, 6, p.JailState.Strikes)
	require.Equal(t, JailLadder[len(JailLadder)-1].Score, p.ConsensusScore)
}

func TestNetworkScoreEventsOnlyPenalize(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("full-1", model.NodeTypeFull, 100))
	e.Apply("full-1", EventTimeoutFailure)
	p, _ := e.Get("full-1")
	require.Equal(t, 98.0, p.NetworkScore)

	e.Apply("full-1", EventConnectionFailure)
	p, _ = e.Get("full-1")
	require.Equal(t, 93.0, p.NetworkScore)
}

func TestPassiveRecoveryTick(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("full-1", model.NodeTypeFull, 50))
	e.Register(newPeer("full-2", model.NodeTypeFull, 5)) // below floor, no recovery
	e.Register(newPeer("full-3", model.NodeTypeFull, 75)) // above ceiling, no recovery

	e.PassiveRecoveryTick()

	p1, _ := e.Get("full-1")
	require.Equal(t, 51.0, p1.ConsensusScore)
	p2, _ := e.Get("full-2")
	require.Equal(t, 5.0, p2.ConsensusScore)
	p3, _ := e.Get("full-3")
	require.Equal(t, 75.0, p3.ConsensusScore)
}

func TestPassiveRecoverySkipsJailedPeers(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("full-1", model.NodeTypeFull, 50))
	e.mu.Lock()
	e.peers["full-1"].JailState.Jailed = true
	e.mu.Unlock()

	e.PassiveRecoveryTick()
	p, _ := e.Get("full-1")
	require.Equal(t, 50.0, p.ConsensusScore)
}

func TestMergeGossipWeightedAverage(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("full-1", model.NodeTypeFull, 80))
	e.MergeGossip("full-1", 50, 50)

	p, _ := e.Get("full-1")
	require.InDelta(t, 0.7*80+0.3*50, p.ConsensusScore, 1e-9)
}

func TestMergeGossipIgnoresLightNodes(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("light-1", model.NodeTypeLight, 70))
	e.MergeGossip("light-1", 10, 10)

	p, _ := e.Get("light-1")
	require.Equal(t, model.LightNodeConsensusScore, p.ConsensusScore)
}

func TestQualifiedReflectsThresholdAndJail(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("super-1", model.NodeTypeSuper, 70))
	require.True(t, e.Qualified("super-1"))

	e.Register(newPeer("super-2", model.NodeTypeSuper, 69))
	require.False(t, e.Qualified("super-2"))

	e.Register(newPeer("super-3", model.NodeTypeSuper, 90))
	e.mu.Lock()
	e.peers["super-3"].JailState.Jailed = true
	e.mu.Unlock()
	require.False(t, e.Qualified("super-3"))

	require.False(t, e.Qualified("light-1"))
}

func TestSoftBlacklistEscalatesTTLByViolationCount(t *testing.T) {
	require.Equal(t, int64(15), int64(softBlacklistTTL(1).Seconds()))
	require.Equal(t, int64(30), int64(softBlacklistTTL(2).Seconds()))
	require.Equal(t, int64(60), int64(softBlacklistTTL(3).Seconds()))
}

func TestHardBlacklistLiftedOnlyAboveThreshold(t *testing.T) {
	e := NewEngine()
	e.Register(newPeer("full-1", model.NodeTypeFull, 50))
	e.HardBlacklist("full-1")

	e.MaybeLiftHardBlacklist("full-1")
	p, _ := e.Get("full-1")
	require.Equal(t, model.BlacklistHard, p.Blacklist)

	e.mu.Lock()
	e.peers["full-1"].ConsensusScore = 70
	e.mu.Unlock()
	e.MaybeLiftHardBlacklist("full-1")
	p, _ = e.Get("full-1")
	require.Equal(t, model.BlacklistNone, p.Blacklist)
}
