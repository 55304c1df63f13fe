package model

// PoHState is the per-height checkpoint of the Proof of History hash chain,
// stored separately from the block for O(1) verification.
type PoHState struct {
	Height       uint64   `cbor:"height"`
	PoHHash      [64]byte `cbor:"poh_hash"`
	PoHCount     uint64   `cbor:"poh_count"`
	PreviousHash [32]byte `cbor:"previous_hash"`
}

const (
	// PoHHashesPerTick / PerSlot / PerCheckpoint are the hash-chain
	// cadences at the ~500K hashes/sec target rate.
	PoHHashesPerTick       = 5_000
	PoHHashesPerSlot       = 500_000
	PoHHashesPerCheckpoint = 1_000_000
	PoHTickInterval        = 10 // milliseconds
	// PoHMaxCatchupHashes bounds a drift re-sync.
	PoHMaxCatchupHashes = 50_000_000
	// PoHDriftThresholdFraction is the measured-drift fraction that
	// triggers a re-sync.
	PoHDriftThresholdFraction = 0.05
)
