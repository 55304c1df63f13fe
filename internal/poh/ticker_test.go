package poh

import (
	"testing"

	"github.com/stretchr/testify/require"

	qnetclock "github.com/qnet-xyz/qnet-core/internal/clock"
	"github.com/qnet-xyz/qnet-core/model"
)

func TestTickAdvancesCountByHashesPerTick(t *testing.T) {
	clock := qnetclock.NewMock()
	tkr := NewTicker(clock, model.PoHState{})

	_, count := tkr.Tick()
	require.Equal(t, uint64(model.PoHHashesPerTick), count)

	_, count = tkr.Tick()
	require.Equal(t, uint64(2*model.PoHHashesPerTick), count)
}

func TestVerifyAcceptsValidChain(t *testing.T) {
	clock := qnetclock.NewMock()
	genesis := model.PoHState{}
	tkr := NewTicker(clock, genesis)

	hash, count := tkr.Tick()
	require.True(t, Verify(genesis, hash, count))
}

func TestVerifyRejectsWrongCount(t *testing.T) {
	genesis := model.PoHState{}
	require.False(t, Verify(genesis, [64]byte{1}, 0), "count must strictly increase")
}

func TestVerifyRejectsTamperedHash(t *testing.T) {
	clock := qnetclock.NewMock()
	genesis := model.PoHState{}
	tkr := NewTicker(clock, genesis)

	hash, count := tkr.Tick()
	hash[0] ^= 0xFF
	require.False(t, Verify(genesis, hash, count))
}

func TestCheckpointCallbackFiresAtCheckpointBoundary(t *testing.T) {
	clock := qnetclock.NewMock()
	tkr := NewTicker(clock, model.PoHState{})

	fired := 0
	tkr.OnCheckpoint(func(model.PoHState) { fired++ })

	ticksPerCheckpoint := model.PoHHashesPerCheckpoint / model.PoHHashesPerTick
	for i := 0; i < ticksPerCheckpoint; i++ {
		tkr.Tick()
	}
	require.Equal(t, 1, fired)
}

func TestSlotAdvancesFullSlotAndCommitsHeight(t *testing.T) {
	clock := qnetclock.NewMock()
	tkr := NewTicker(clock, model.PoHState{})

	state := tkr.Slot(1, [32]byte{9})
	require.Equal(t, uint64(1), state.Height)
	require.Equal(t, [32]byte{9}, state.PreviousHash)
	require.Equal(t, uint64(model.PoHHashesPerSlot), state.PoHCount)
}

func TestDriftFractionAndResyncThreshold(t *testing.T) {
	require.InDelta(t, 0.10, DriftFraction(1000, 900), 1e-9)
	require.True(t, NeedsResync(0.05))
	require.False(t, NeedsResync(0.04))
}

func TestCatchupExceeded(t *testing.T) {
	require.False(t, CatchupExceeded(model.PoHMaxCatchupHashes))
	require.True(t, CatchupExceeded(model.PoHMaxCatchupHashes+1))
}
