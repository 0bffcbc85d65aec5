package protocol

import (
	"io"

	"golang.org/x/crypto/curve25519"
)

// KeyAgreement generates X25519 keypairs and derives shared secrets. The
// entropy source is an external collaborator (spec.md §1): callers seed it
// with a CSPRNG personalised with the local UID so that two devices with
// correlated entropy still produce distinct keys.
type KeyAgreement struct {
	entropy io.Reader
}

// NewKeyAgreement builds a KeyAgreement drawing keys from src.
func NewKeyAgreement(src io.Reader) *KeyAgreement {
	return &KeyAgreement{entropy: src}
}

// GenerateKeypair draws a random 32-byte scalar as the private key and
// derives the corresponding public key via the curve25519 base point.
func (k *KeyAgreement) GenerateKeypair() (pub, priv [SharedKeySize]byte, err error) {
	if _, err = io.ReadFull(k.entropy, priv[:]); err != nil {
		return pub, priv, ErrCryptoError
	}

	pubBytes, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return pub, priv, ErrCryptoError
	}
	copy(pub[:], pubBytes)
	return pub, priv, nil
}

// DeriveShared returns the raw X25519 scalar multiplication output, used
// directly as the symmetric key with no KDF (spec.md §4.B, §9 note 2).
func DeriveShared(peerPub, ownPriv [SharedKeySize]byte) (shared [SharedKeySize]byte, err error) {
	out, err := curve25519.X25519(ownPriv[:], peerPub[:])
	if err != nil {
		return shared, ErrCryptoError
	}
	copy(shared[:], out)
	return shared, nil
}
