package macroblock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qnet-xyz/qnet-core/model"
)

func TestRoundHeights(t *testing.T) {
	require.Equal(t, uint64(61), RoundStartHeight(1))
	require.Equal(t, uint64(71), RevealStartHeight(1))
	require.Equal(t, uint64(90), TallyHeight(1))

	require.Equal(t, uint64(151), RoundStartHeight(2))
	require.Equal(t, uint64(180), TallyHeight(2))
}

func TestFSMTransitions(t *testing.T) {
	ctx := context.Background()
	f := NewFSM()
	require.Equal(t, StateIdle, f.Current())

	require.NoError(t, f.Event(ctx, EventStartCommit))
	require.Equal(t, StateCommit, f.Current())

	require.NoError(t, f.Event(ctx, EventStartReveal))
	require.Equal(t, StateReveal, f.Current())

	require.NoError(t, f.Event(ctx, EventStartTally))
	require.Equal(t, StateTally, f.Current())

	require.NoError(t, f.Event(ctx, EventFinalize))
	require.Equal(t, StateFinalized, f.Current())

	require.NoError(t, f.Event(ctx, EventReset))
	require.Equal(t, StateIdle, f.Current())
}

func TestFSMRejectsOutOfOrder(t *testing.T) {
	f := NewFSM()
	require.Error(t, f.Event(context.Background(), EventStartReveal))
}

func TestAddRevealRejectsMismatchedNonce(t *testing.T) {
	r := NewRound(1)
	root := [32]byte{1, 2, 3}
	r.AddCommit(CommitRecord{ValidatorID: "a", CommitHash: CommitHash(root, 7), Weight: 10})

	ok := r.AddReveal(RevealRecord{ValidatorID: "a", StateRoot: root, Nonce: 8, Weight: 10})
	require.False(t, ok, "mismatched nonce must not be accepted as a reveal")

	ok = r.AddReveal(RevealRecord{ValidatorID: "a", StateRoot: root, Nonce: 7, Weight: 10})
	require.True(t, ok)
}

func TestAddRevealRejectsUncommittedValidator(t *testing.T) {
	r := NewRound(1)
	ok := r.AddReveal(RevealRecord{ValidatorID: "ghost", StateRoot: [32]byte{1}, Nonce: 1, Weight: 10})
	require.False(t, ok)
}

func TestTallyReachesQuorum(t *testing.T) {
	r := NewRound(1)
	root := [32]byte{9, 9, 9}

	for _, id := range []string{"a", "b", "c"} {
		r.AddCommit(CommitRecord{ValidatorID: id, CommitHash: CommitHash(root, 1), Weight: 100})
		require.True(t, r.AddReveal(RevealRecord{ValidatorID: id, StateRoot: root, Nonce: 1, Weight: 100}))
	}

	res := r.Tally(300)
	require.True(t, res.Finalized)
	require.Equal(t, root, res.StateRoot)
	require.ElementsMatch(t, []string{"a", "b", "c"}, res.Revealers)
}

func TestTallyFailsBelowQuorum(t *testing.T) {
	r := NewRound(1)
	root := [32]byte{9, 9, 9}

	r.AddCommit(CommitRecord{ValidatorID: "a", CommitHash: CommitHash(root, 1), Weight: 100})
	require.True(t, r.AddReveal(RevealRecord{ValidatorID: "a", StateRoot: root, Nonce: 1, Weight: 100}))

	res := r.Tally(300) // a's weight is only 1/3 of the pool
	require.False(t, res.Finalized)
}

func TestBuildMacroblockFields(t *testing.T) {
	hashes := [][32]byte{{1}, {2}}
	mb := BuildMacroblock(1, hashes, [32]byte{5}, []model.MacroblockSignature{{NodeID: "a"}}, 1000, 1)
	require.Equal(t, uint64(1), mb.Height)
	require.Equal(t, hashes, mb.MicroblockHashes)
	require.Len(t, mb.ValidatorSignatures, 1)
}
