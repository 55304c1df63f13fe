package qcrypto

import (
	"crypto/ed25519"
	"crypto/rand"
)

// Ed25519KeyPair is the classical half of a hybrid identity.
type Ed25519KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Ed25519KeyGen generates a fresh Ed25519 key pair.
func Ed25519KeyGen() (Ed25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Ed25519KeyPair{}, err
	}
	return Ed25519KeyPair{Public: pub, Private: priv}, nil
}

// Ed25519Sign signs msg.
func Ed25519Sign(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// Ed25519Verify verifies sig over msg against pub.
func Ed25519Verify(pub ed25519.PublicKey, msg, sig []byte) VerifyResult {
	if len(pub) != ed25519.PublicKeySize {
		return fail(FailureKeyMismatch)
	}
	if len(sig) != ed25519.SignatureSize {
		return fail(FailureSignatureMalformed)
	}
	if ed25519.Verify(pub, msg, sig) {
		return ok()
	}
	return fail(FailureNotVerifiable)
}
