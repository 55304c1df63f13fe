package qcrypto

import (
	"crypto/rand"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// DilithiumKeyPair is a NIST Level 3 Dilithium key pair (~1952B public key).
type DilithiumKeyPair struct {
	Public  *mode3.PublicKey
	Private *mode3.PrivateKey
}

// DilithiumKeyGen generates a fresh Dilithium3 key pair.
func DilithiumKeyGen() (DilithiumKeyPair, error) {
	pub, priv, err := mode3.GenerateKey(rand.Reader)
	if err != nil {
		return DilithiumKeyPair{}, err
	}
	return DilithiumKeyPair{Public: pub, Private: priv}, nil
}

// DilithiumSign signs msg with the Dilithium private key.
func DilithiumSign(priv *mode3.PrivateKey, msg []byte) []byte {
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(priv, msg, sig)
	return sig
}

// DilithiumPublicKeyBytes packs pub into its ~1952B wire representation.
func DilithiumPublicKeyBytes(pub *mode3.PublicKey) []byte {
	var out [mode3.PublicKeySize]byte
	pub.Pack(&out)
	return out[:]
}

// DilithiumPublicKeyFromBytes parses a ~1952B Dilithium public key.
func DilithiumPublicKeyFromBytes(b []byte) (*mode3.PublicKey, VerifyResult) {
	if len(b) != mode3.PublicKeySize {
		return nil, fail(FailureSignatureMalformed)
	}
	var pk mode3.PublicKey
	pk.Unpack(b)
	return &pk, ok()
}

// DilithiumVerify verifies sig over msg against pub. A nil public key is
// reported as FailureKeyMismatch and a wrong-length signature as
// FailureSignatureMalformed, rather than panicking.
func DilithiumVerify(pub *mode3.PublicKey, msg, sig []byte) VerifyResult {
	if pub == nil {
		return fail(FailureKeyMismatch)
	}
	if len(sig) != mode3.SignatureSize {
		return fail(FailureSignatureMalformed)
	}
	if mode3.Verify(pub, msg, sig) {
		return ok()
	}
	return fail(FailureNotVerifiable)
}
