package model

// Transaction is the generic transaction type the consensus core orders and
// includes in microblocks; it does not interpret payload semantics (no
// smart-contract VM or token registry here — those are external collaborators).
type Transaction struct {
	Hash         [32]byte `cbor:"hash"`
	From         string   `cbor:"from"`
	GasPriceNano uint64   `cbor:"gas_price_nano"`
	Payload      []byte   `cbor:"payload"`
	SubmittedAt  uint64   `cbor:"submitted_at"`
	Signature    []byte   `cbor:"signature"`
}

// MinGasPriceNano is the mempool admission floor from the MEV/priority
// mempool design (§4.12).
const MinGasPriceNano = 100_000
