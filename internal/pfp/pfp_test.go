package pfp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelForBoundaries(t *testing.T) {
	require.Equal(t, LevelNone, LevelFor(0))
	require.Equal(t, LevelNone, LevelFor(29))
	require.Equal(t, Level1, LevelFor(30))
	require.Equal(t, Level1, LevelFor(90))
	require.Equal(t, Level2, LevelFor(91))
	require.Equal(t, Level2, LevelFor(180))
	require.Equal(t, Level3, LevelFor(181))
	require.Equal(t, Level3, LevelFor(270))
	require.Equal(t, Level4, LevelFor(271))
}

func TestShouldTick(t *testing.T) {
	require.False(t, ShouldTick(0))
	require.False(t, ShouldTick(29))
	require.True(t, ShouldTick(30))
	require.True(t, ShouldTick(120))
	require.False(t, ShouldTick(121))
}

func TestRequiredQuorumAppliesFractionAndCap(t *testing.T) {
	require.Equal(t, 800, RequiredQuorum(Level1, 2000)) // 80% of 2000 = 1600, capped at 800
	require.Equal(t, 80, RequiredQuorum(Level1, 100))
	require.Equal(t, 1, RequiredQuorum(Level4, 1))
}

func TestPolicyFor(t *testing.T) {
	p, ok := PolicyFor(Level3)
	require.True(t, ok)
	require.Equal(t, 5, p.TimeoutSeconds)
	require.False(t, p.PreservesSafety)

	p1, _ := PolicyFor(Level1)
	require.True(t, p1.PreservesSafety)
	p2, _ := PolicyFor(Level2)
	require.True(t, p2.PreservesSafety)

	_, ok = PolicyFor(LevelNone)
	require.False(t, ok)
}

func TestRecoverFlagsLevel4ForAudit(t *testing.T) {
	rec := Recover(2, [][32]byte{{1}}, [32]byte{2}, nil, 1000, 1, Level4)
	require.True(t, rec.RequiresAudit)

	rec1 := Recover(2, [][32]byte{{1}}, [32]byte{2}, nil, 1000, 1, Level1)
	require.False(t, rec1.RequiresAudit)
}
