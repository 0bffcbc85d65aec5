package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20"
)

// CipherSession is a per-peer symmetric stream cipher with nonce-prefixed
// frames and a monotonic anti-replay counter on each direction. There is no
// authentication tag: integrity relies on the frame header and the counter
// check, per spec.
type CipherSession struct {
	key            [SharedKeySize]byte
	encryptCounter uint32
	decryptCounter uint32

	// entropy supplies the per-frame random IV. Defaults to crypto/rand;
	// overridable for deterministic tests.
	entropy io.Reader
}

// NewCipherSession returns a session keyed with an all-zero key, matching
// the pairing engine's transient cipher before the first SetKey call.
func NewCipherSession() *CipherSession {
	return &CipherSession{entropy: rand.Reader}
}

// SetKey installs k and resets both counters to zero.
func (c *CipherSession) SetKey(k [SharedKeySize]byte) {
	c.key = k
	c.encryptCounter = 0
	c.decryptCounter = 0
}

// Key returns the currently installed key.
func (c *CipherSession) Key() [SharedKeySize]byte { return c.key }

// Encrypt draws a fresh 8-byte IV, advances the encrypt counter, and returns
// nonce(12) || stream_output_xor(plaintext).
func (c *CipherSession) Encrypt(plaintext []byte) ([]byte, error) {
	var iv [ivSize]byte
	if _, err := io.ReadFull(c.entropy, iv[:]); err != nil {
		return nil, ErrCryptoError
	}

	c.encryptCounter++
	nonce := make([]byte, NonceSize)
	copy(nonce[:ivSize], iv[:])
	binary.LittleEndian.PutUint32(nonce[ivSize:], c.encryptCounter)

	stream, err := chacha20.NewUnauthenticatedCipher(c.key[:], nonce)
	if err != nil {
		return nil, ErrCryptoError
	}

	out := make([]byte, NonceSize+len(plaintext))
	copy(out[:NonceSize], nonce)
	stream.XORKeyStream(out[NonceSize:], plaintext)
	return out, nil
}

// Decrypt validates and strips the nonce prefix, enforcing strict
// monotonicity on the embedded counter, then returns the plaintext.
func (c *CipherSession) Decrypt(frame []byte) ([]byte, error) {
	if len(frame) < NonceSize {
		return nil, ErrDecryptReject
	}

	nonce := frame[:NonceSize]
	counter := binary.LittleEndian.Uint32(nonce[ivSize:])
	if counter <= c.decryptCounter {
		return nil, ErrReplay
	}

	stream, err := chacha20.NewUnauthenticatedCipher(c.key[:], nonce)
	if err != nil {
		return nil, ErrCryptoError
	}

	ciphertext := frame[NonceSize:]
	out := make([]byte, len(ciphertext))
	stream.XORKeyStream(out, ciphertext)

	c.decryptCounter = counter
	return out, nil
}
