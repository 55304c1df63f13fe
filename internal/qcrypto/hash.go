package qcrypto

import (
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// SHA3_256 hashes b, used for chain hashes, address checksums, and gossip
// signing.
func SHA3_256(b ...[]byte) [32]byte {
	h := sha3.New256()
	for _, part := range b {
		h.Write(part)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SHA3_512 hashes b, used exclusively for the PoH hash chain.
func SHA3_512(b ...[]byte) [64]byte {
	h := sha3.New512()
	for _, part := range b {
		h.Write(part)
	}
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Blake3Sum256 produces a non-cryptographic 32-byte identifier (serials,
// cache keys) — fast, not used for chain-security-critical hashing.
func Blake3Sum256(b ...[]byte) [32]byte {
	h := blake3.New(32, nil)
	for _, part := range b {
		h.Write(part)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
