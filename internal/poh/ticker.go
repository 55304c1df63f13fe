// Package poh implements the Proof of History ticker (§4.6): a monotonic
// SHA3-512 hash chain at ~500K hashes/sec, producing ticks every 10ms,
// slots every 1s, and checkpoints every ~2s, with a drift guard that
// triggers re-sync or halts block production.
package poh

import (
	"sync"

	qnetclock "github.com/qnet-xyz/qnet-core/internal/clock"
	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
	"github.com/qnet-xyz/qnet-core/internal/telemetry"
	"github.com/qnet-xyz/qnet-core/model"
)

// Ticker advances a monotonic hash chain. Only Full/Super nodes run one.
type Ticker struct {
	mu    sync.Mutex
	clock qnetclock.Clock

	height       uint64
	hash         [64]byte
	count        uint64
	previousHash [32]byte

	onCheckpoint func(model.PoHState)
}

// NewTicker seeds a ticker from the genesis PoH state.
func NewTicker(clock qnetclock.Clock, genesis model.PoHState) *Ticker {
	return &Ticker{
		clock:        clock,
		height:       genesis.Height,
		hash:         genesis.PoHHash,
		count:        genesis.PoHCount,
		previousHash: genesis.PreviousHash,
	}
}

// OnCheckpoint registers a callback invoked every PoHHashesPerCheckpoint
// hashes, used to persist PoH state to the poh_state column family.
func (t *Ticker) OnCheckpoint(fn func(model.PoHState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCheckpoint = fn
}

// Tick advances the chain by one tick's worth of hashes (PoHHashesPerTick)
// and returns the resulting PoH hash and count.
func (t *Ticker) Tick() ([64]byte, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	telemetry.PoHTicks.Inc()
	return t.advance(model.PoHHashesPerTick)
}

// advance hashes n times and fires the checkpoint callback whenever the
// running count crosses a checkpoint boundary. Caller must hold t.mu.
func (t *Ticker) advance(n uint64) ([64]byte, uint64) {
	for i := uint64(0); i < n; i++ {
		t.hash = qcrypto.SHA3_512(t.hash[:])
		t.count++
		if t.count%model.PoHHashesPerCheckpoint == 0 {
			t.fireCheckpointLocked()
		}
	}
	return t.hash, t.count
}

func (t *Ticker) fireCheckpointLocked() {
	if t.onCheckpoint == nil {
		return
	}
	t.onCheckpoint(model.PoHState{
		Height:       t.height,
		PoHHash:      t.hash,
		PoHCount:     t.count,
		PreviousHash: t.previousHash,
	})
}

// Slot advances a full slot's worth of hashes (PoHHashesPerSlot) and
// commits the new block height, returning the new PoHState.
func (t *Ticker) Slot(newHeight uint64, previousBlockHash [32]byte) model.PoHState {
	t.mu.Lock()
	defer t.mu.Unlock()

	hash, count := t.advance(model.PoHHashesPerSlot)
	t.height = newHeight
	t.previousHash = previousBlockHash

	return model.PoHState{
		Height:       newHeight,
		PoHHash:      hash,
		PoHCount:     count,
		PreviousHash: previousBlockHash,
	}
}

// Verify reports whether candidate (hash, count) validly extends prior by
// any positive number of hashes: it re-hashes prior's hash
// candidateCount-prior.PoHCount times and compares, so its cost is linear
// in that gap.
func Verify(prior model.PoHState, candidateHash [64]byte, candidateCount uint64) bool {
	if candidateCount <= prior.PoHCount {
		return false
	}
	steps := candidateCount - prior.PoHCount
	h := prior.PoHHash
	for i := uint64(0); i < steps; i++ {
		h = qcrypto.SHA3_512(h[:])
	}
	return h == candidateHash
}

// DriftFraction computes the fractional drift between the expected hash
// count (derived from elapsed wall-clock time at the target rate) and the
// ticker's actual count.
func DriftFraction(expectedCount, actualCount uint64) float64 {
	if expectedCount == 0 {
		return 0
	}
	diff := int64(expectedCount) - int64(actualCount)
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(expectedCount)
}

// NeedsResync reports whether drift has crossed the 5% threshold.
func NeedsResync(drift float64) bool {
	return drift >= model.PoHDriftThresholdFraction
}

// CatchupExceeded reports whether the hashes needed to resync exceed the
// 50M catch-up ceiling, past which the node must halt production and
// request state from peers instead.
func CatchupExceeded(hashesNeeded uint64) bool {
	return hashesNeeded > model.PoHMaxCatchupHashes
}
