package model

// Bundle is a signed, atomic set of transactions submitted through the
// priority channel of the MEV/priority mempool.
type Bundle struct {
	BundleID           string     `cbor:"bundle_id"`
	TxHashes           [][32]byte `cbor:"tx_hashes"`
	MinTimestamp       uint64     `cbor:"min_timestamp"`
	MaxTimestamp       uint64     `cbor:"max_timestamp"`
	RevertingTxHashes  [][32]byte `cbor:"reverting_tx_hashes"`
	TotalGasPriceNano  uint64     `cbor:"total_gas_price"`
	SubmitterPK        []byte     `cbor:"submitter_pk"`
	DilithiumSignature []byte     `cbor:"dilithium_signature"`
}

const (
	BundleMaxTxs                = 10
	BundleMaxLifetimeSeconds    = 60
	BundleMinSubmitterScore     = 80.0
	BundleGasPremiumFraction    = 0.20
	BundleMaxPerMinutePerSender = 10
	// BundleMaxSlotFraction is the ceiling of block slots reservable for
	// bundles; BundlePublicFloorFraction is the always-guaranteed floor
	// for public transactions.
	BundleMaxSlotFraction    = 0.20
	BundlePublicFloorFraction = 0.80
)
